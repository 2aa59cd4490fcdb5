package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seenimoa/openviz/internal/logging"
	"github.com/seenimoa/openviz/internal/widget"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware already applies the origin policy
	},
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Render requests carry a widget with inline data.
	maxMessageSize = 1 << 20
)

// handleWebSocket upgrades the connection and streams rendered widgets to
// the client. Clients may also send "render" messages of their own.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.With(s.log.Warn(), logging.ErrorField(err)).Msg("websocket upgrade failed")
		return
	}

	client := &WSClient{
		hub:  s.wsHub,
		send: make(chan WSMessage, 256),
	}
	s.wsHub.Register(client)

	go s.wsWritePump(conn, client)
	go s.wsReadPump(conn, client)
}

// wsReadPump reads client messages until the connection closes.
func (s *Server) wsReadPump(conn *websocket.Conn, client *WSClient) {
	defer func() {
		client.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.With(s.log.Warn(), logging.ErrorField(err)).Msg("websocket read failed")
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			client.deliver(WSMessage{Type: "error", Data: "invalid message: " + err.Error()})
			continue
		}
		client.deliver(s.handleWSMessage(msg))
	}
}

// handleWSMessage answers one client message.
func (s *Server) handleWSMessage(msg WSMessage) WSMessage {
	switch msg.Type {
	case "ping":
		return WSMessage{Type: "pong"}
	case "subscribe":
		return WSMessage{Type: "subscribed", Data: msg.Data}
	case "render":
		raw, ok := msg.Data.(map[string]any)
		if !ok {
			return WSMessage{Type: "error", Data: "render expects a widget object"}
		}
		w, err := widget.FromMap(raw, s.cfg)
		if err != nil {
			return WSMessage{Type: "error", Data: err.Error()}
		}
		res, err := s.evaluator.Evaluate(w)
		if err != nil {
			return WSMessage{Type: "error", Data: err.Error()}
		}
		return WSMessage{Type: "widget.rendered", Data: res}
	default:
		return WSMessage{Type: "error", Data: "unknown message type " + msg.Type}
	}
}

// wsWritePump writes queued messages and keepalive pings to the connection.
func (s *Server) wsWritePump(conn *websocket.Conn, client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				logging.With(s.log.Debug(), logging.ErrorField(err)).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
