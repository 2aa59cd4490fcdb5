// Package api provides the HTTP API server for openviz.
//
// It exposes legend classification, data bites and widget rendering as JSON
// endpoints, and streams rendered widgets to WebSocket subscribers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/bolt/v3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/seenimoa/openviz/internal/config"
	"github.com/seenimoa/openviz/internal/databite"
	"github.com/seenimoa/openviz/internal/legend"
	"github.com/seenimoa/openviz/internal/logging"
	"github.com/seenimoa/openviz/internal/widget"
	"github.com/seenimoa/openviz/pkg/models"
)

// maxBodyBytes caps request bodies; datasets arrive inline.
const maxBodyBytes = 16 << 20

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	cfg        *config.Config
	classifier *legend.Classifier
	aggregator *databite.Aggregator
	evaluator  *widget.Evaluator
	wsHub      *WSHub
	log        *bolt.Logger
	version    string
}

// NewServer creates a configured API server with all routes and middleware.
// A nil classifier gets the default cached one.
func NewServer(cfg *config.Config, classifier *legend.Classifier, log *bolt.Logger, version string) *Server {
	if log == nil {
		log = logging.Get()
	}
	if classifier == nil {
		classifier = legend.NewClassifier(legend.WithLogger(log))
	}
	agg := databite.New(log)

	s := &Server{
		cfg:        cfg,
		classifier: classifier,
		aggregator: agg,
		evaluator:  widget.NewEvaluator(classifier, agg, log),
		wsHub:      NewWSHub(),
		log:        log,
		version:    version,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go s.wsHub.Run()
	defer s.wsHub.Stop()
	go s.pruneCache(ctx, s.cfg.Legend.CacheDuration())

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	s.log.Info().Str("addr", addr).Msg("api server listening")

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// pruneCache drops expired legend cache entries every ttl until ctx is done.
// Entries without a TTL never expire, so there is nothing to prune.
func (s *Server) pruneCache(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(max(ttl, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			left := s.classifier.Prune()
			s.log.Debug().Int("entries", left).Msg("legend cache pruned")
		}
	}
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/palettes", s.handlePalettes)
		r.Get("/config", s.handleGetConfig)
		r.Delete("/cache", s.handleResetCache)

		r.Post("/legend", s.handleLegend)
		r.Post("/databite", s.handleDataBite)
		r.Post("/render", s.handleRender)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// requestLogger logs one line per request through bolt.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_us", time.Since(start).Microseconds()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LegendRequest is the body for POST /api/v1/legend. Visible is the
// filtered subset shown to the user; when omitted the full data is used.
type LegendRequest struct {
	Data    models.Dataset      `json:"data"`
	Visible models.Dataset      `json:"visible,omitempty"`
	Legend  models.LegendConfig `json:"legend"`
}

// DataBiteRequest is the body for POST /api/v1/databite.
type DataBiteRequest struct {
	Data models.Dataset `json:"data"`
	models.AggregationRequest
}

// DataBiteResponse carries the rendered bite.
type DataBiteResponse struct {
	Value    string `json:"value"`
	Function string `json:"function"`
}

// RenderRequest is the body for POST /api/v1/render.
type RenderRequest struct {
	Widgets []map[string]any `json:"widgets"`
}

// PaletteInfo describes one palette for GET /api/v1/palettes.
type PaletteInfo struct {
	ID          string   `json:"id"`
	Qualitative bool     `json:"qualitative"`
	Colors      []string `json:"colors"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]any{
			"status":     "ok",
			"version":    s.version,
			"palettes":   len(legend.PaletteIDs()),
			"ws_clients": s.wsHub.ClientCount(),
		},
	})
}

func (s *Server) handlePalettes(w http.ResponseWriter, r *http.Request) {
	ids := legend.PaletteIDs()
	out := make([]PaletteInfo, 0, len(ids))
	for _, id := range ids {
		colors, _ := legend.Palette(id)
		out = append(out, PaletteInfo{ID: id, Qualitative: legend.IsQualitative(id), Colors: colors})
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: config.Status(s.cfg)})
}

func (s *Server) handleResetCache(w http.ResponseWriter, r *http.Request) {
	s.classifier.Reset()
	s.log.Info().Msg("legend cache reset")
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: map[string]any{"entries": s.classifier.Prune()}})
}

func (s *Server) handleLegend(w http.ResponseWriter, r *http.Request) {
	var req LegendRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cfg := s.withLegendDefaults(req.Legend)
	visible := req.Visible
	if visible == nil {
		visible = req.Data
	}

	res, err := s.classifier.ClassifyView(req.Data, visible, cfg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, legend.ErrInvalidConfig) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: res})
}

// withLegendDefaults fills type, item count and palette from the server config.
func (s *Server) withLegendDefaults(cfg models.LegendConfig) models.LegendConfig {
	if cfg.Type == "" {
		cfg.Type = models.LegendType(s.cfg.Legend.Type)
	}
	if t, err := models.ParseLegendType(string(cfg.Type)); err == nil {
		cfg.Type = t
	}
	if cfg.NumberOfItems == 0 {
		cfg.NumberOfItems = s.cfg.Legend.NumberOfItems
	}
	if cfg.Color == "" {
		cfg.Color = s.cfg.Legend.Color
	}
	return cfg
}

func (s *Server) handleDataBite(w http.ResponseWriter, r *http.Request) {
	var req DataBiteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	agg := req.AggregationRequest
	agg.Function = models.ParseDataFunction(string(agg.Function))
	if agg.Column == "" {
		writeError(w, http.StatusBadRequest, "dataColumn is required")
		return
	}
	if !agg.Function.Known() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown dataFunction %q", agg.Function))
		return
	}
	if agg.Precision == nil && s.cfg.DataBite.Precision >= 0 {
		p := s.cfg.DataBite.Precision
		agg.Precision = &p
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: DataBiteResponse{
			Value:    s.aggregator.DataBite(req.Data, agg),
			Function: string(agg.Function),
		},
	})
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Widgets) == 0 {
		writeError(w, http.StatusBadRequest, "widgets are required")
		return
	}

	widgets := make([]*widget.Widget, len(req.Widgets))
	for i, raw := range req.Widgets {
		wd, err := widget.FromMap(raw, s.cfg)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("widget %d: %v", i, err))
			return
		}
		widgets[i] = wd
	}

	results, err := s.evaluator.EvaluateAll(r.Context(), widgets, s.cfg.Batch.Concurrency)
	if results == nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, res := range results {
		if res != nil && res.Error == "" {
			s.wsHub.Broadcast(WSMessage{Type: "widget.rendered", Data: res})
		}
	}
	if err != nil {
		logging.With(s.log.Warn(), logging.Rows(len(results)), logging.ErrorField(err)).Msg("render request had failures")
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: results})
}

// decodeBody reads a JSON body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.With(logging.Get().Error(), logging.ErrorField(err)).Msg("failed to write JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
