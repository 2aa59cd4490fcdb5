package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/bolt/v3"
	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/openviz/internal/config"
	"github.com/seenimoa/openviz/internal/databite"
	"github.com/seenimoa/openviz/internal/dataset"
	"github.com/seenimoa/openviz/internal/legend"
	"github.com/seenimoa/openviz/internal/logging"
	"github.com/seenimoa/openviz/pkg/models"
	"github.com/seenimoa/openviz/pkg/utils"
)

// Result is the evaluated form of a widget.
type Result struct {
	ID       string `json:"id"`
	Source   string `json:"source,omitempty"`
	Type     string `json:"type"`
	Title    string `json:"title,omitempty"`
	DataBite string `json:"dataBite,omitempty"`

	Legend    []models.LegendClass `json:"legend,omitempty"`
	Truncated int                  `json:"truncated,omitempty"`
	Filters   []models.Filter      `json:"filters,omitempty"`
	Rows      []RenderedRow        `json:"rows,omitempty"`

	Error string `json:"error,omitempty"`
}

// RenderedRow is one visible map row with its class and display colors.
type RenderedRow struct {
	Row     models.Row `json:"row"`
	Class   int        `json:"class"` // -1 when the row has no class
	Colors  []string   `json:"colors"`
	Display string     `json:"display"`
}

// Evaluator turns widgets into results. It is safe for concurrent use.
type Evaluator struct {
	classifier *legend.Classifier
	aggregator *databite.Aggregator
	log        *bolt.Logger
}

// NewEvaluator wires an Evaluator. Nil arguments get defaults.
func NewEvaluator(classifier *legend.Classifier, aggregator *databite.Aggregator, log *bolt.Logger) *Evaluator {
	if log == nil {
		log = logging.Get()
	}
	if classifier == nil {
		classifier = legend.NewClassifier(legend.WithLogger(log))
	}
	if aggregator == nil {
		aggregator = databite.New(log)
	}
	return &Evaluator{classifier: classifier, aggregator: aggregator, log: log}
}

// Evaluate computes the data bite or legend a widget describes.
func (e *Evaluator) Evaluate(w *Widget) (*Result, error) {
	res := &Result{
		ID:     w.Runtime.UniqueID,
		Source: w.Runtime.Source,
		Type:   w.Type,
		Title:  w.Title,
	}

	switch w.Type {
	case TypeDataBite:
		if len(w.Data) == 0 && w.DataFile == "" {
			return nil, ErrNoData
		}
		res.DataBite = e.aggregator.DataBite(w.Data, w.Request())
	case TypeMap:
		if err := e.evaluateMap(w, res); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, w.Type)
	}

	logging.With(e.log.Debug(), logging.Widget(widgetName(w)), logging.Rows(len(w.Data))).Msg("widget evaluated")
	return res, nil
}

func (e *Evaluator) evaluateMap(w *Widget, res *Result) error {
	if len(w.Data) == 0 && w.DataFile == "" {
		return ErrNoData
	}

	cfg := w.LegendConfig()
	full := dataset.NormalizeNumbers(w.Data, cfg.PrimaryColumn)
	filters := dataset.RuntimeFilters(full, w.Filters)
	visible := dataset.Apply(full, filters)

	lg, err := e.classifier.ClassifyView(full, visible, cfg)
	if err != nil {
		return err
	}

	res.Legend = lg.Classes
	res.Truncated = lg.Truncated
	res.Filters = filters

	col := w.Columns.Primary.Model()
	if col.Name == "" {
		col.Name = cfg.PrimaryColumn
	}
	res.Rows = make([]RenderedRow, 0, len(visible))
	for _, row := range visible {
		rr := RenderedRow{Row: row, Class: -1, Colors: lg.ColorsFor(row)}
		if c, ok := lg.ClassFor(row); ok {
			rr.Class = c.Index
		}
		v, _ := row.Value(col.Name)
		rr.Display = utils.DisplayValue(v, col, cfg.SpecialClasses)
		res.Rows = append(res.Rows, rr)
	}
	return nil
}

// EvaluateAll evaluates widgets concurrently with at most limit in flight.
// Results keep the input order. A widget that fails gets a Result carrying
// its error and does not stop the others; the returned error joins every
// failure.
func (e *Evaluator) EvaluateAll(ctx context.Context, widgets []*Widget, limit int) ([]*Result, error) {
	results := make([]*Result, len(widgets))
	var (
		mu   sync.Mutex
		errs []error
	)

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, w := range widgets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.Evaluate(w)
			if err != nil {
				logging.With(e.log.Warn(), logging.Widget(widgetName(w)), logging.ErrorField(err)).Msg("widget evaluation failed")
				res = &Result{ID: w.Runtime.UniqueID, Source: w.Runtime.Source, Type: w.Type, Title: w.Title, Error: err.Error()}
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", widgetName(w), err))
				mu.Unlock()
			}
			results[i] = res
			return nil // non-fatal
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, errors.Join(errs...)
}

// LoadAll loads widget files concurrently, keeping argument order.
func LoadAll(ctx context.Context, paths []string, cfg *config.Config, limit int) ([]*Widget, error) {
	widgets := make([]*Widget, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			w, err := Load(p, cfg)
			if err != nil {
				return err
			}
			widgets[i] = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return widgets, nil
}

func widgetName(w *Widget) string {
	switch {
	case w.Runtime.Source != "":
		return w.Runtime.Source
	case w.Title != "":
		return w.Title
	}
	return w.Runtime.UniqueID
}
