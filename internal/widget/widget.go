// Package widget loads declarative visualization configs (maps and data
// bites) from JSON or YAML files and evaluates them against their data.
package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/seenimoa/openviz/internal/config"
	"github.com/seenimoa/openviz/pkg/models"
)

// Widget types.
const (
	TypeMap      = "map"
	TypeDataBite = "data-bite"
)

var (
	// ErrUnknownType is returned for widgets whose type is neither map nor data-bite.
	ErrUnknownType = errors.New("unknown widget type")
	// ErrNoData is returned when a widget has neither inline data nor a data file.
	ErrNoData = errors.New("widget has no data")
)

// Widget is a declarative visualization config.
type Widget struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Data     models.Dataset `json:"data"`
	DataFile string         `json:"dataFile"`

	// Map settings.
	Columns Columns             `json:"columns"`
	Legend  models.LegendConfig `json:"legend"`
	Filters []models.Filter     `json:"filters"`
	Color   string              `json:"color"`

	// Data bite settings.
	DataColumn   string `json:"dataColumn"`
	DataFunction string `json:"dataFunction"`
	FilterColumn string `json:"filterColumn"`
	FilterValue  any    `json:"filterValue"`
	Prefix       string `json:"prefix"`
	Suffix       string `json:"suffix"`
	RoundToPlace Places `json:"roundToPlace"`

	Runtime Runtime `json:"-"`
}

// Columns names the dataset columns a map widget reads.
type Columns struct {
	Primary Column `json:"primary"`
	Geo     Column `json:"geo"`
}

// Column is the config-file form of models.Column.
type Column struct {
	Name         string `json:"name"`
	Label        string `json:"label"`
	Prefix       string `json:"prefix"`
	Suffix       string `json:"suffix"`
	RoundToPlace Places `json:"roundToPlace"`
	UseCommas    bool   `json:"useCommas"`
	Tooltip      bool   `json:"tooltip"`
}

// Model converts c to the shared column description.
func (c Column) Model() models.Column {
	return models.Column{
		Name:         c.Name,
		Label:        c.Label,
		Prefix:       c.Prefix,
		Suffix:       c.Suffix,
		RoundToPlace: c.RoundToPlace.Ptr(),
		UseCommas:    c.UseCommas,
		Tooltip:      c.Tooltip,
	}
}

// Runtime holds per-load state that never round-trips to the config file.
type Runtime struct {
	UniqueID string
	Source   string
}

// Places is a decimal place count. Config files write it as a number or a
// numeric string; "", "None" and negative values mean unset.
type Places struct {
	N   int
	Set bool
}

// UnmarshalJSON accepts numbers, strings and null.
func (p *Places) UnmarshalJSON(b []byte) error {
	*p = Places{}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		return nil
	case float64:
		p.N = int(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		// "None" and other non-numeric strings mean no rounding.
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil
		}
		p.N = n
	default:
		return fmt.Errorf("roundToPlace: unsupported value %v", raw)
	}
	p.Set = p.N >= 0
	return nil
}

// MarshalJSON writes unset places as "".
func (p Places) MarshalJSON() ([]byte, error) {
	if !p.Set {
		return []byte(`""`), nil
	}
	return []byte(strconv.Itoa(p.N)), nil
}

// Ptr returns nil when unset.
func (p Places) Ptr() *int {
	if !p.Set {
		return nil
	}
	n := p.N
	return &n
}

// Request builds the aggregation a data-bite widget describes.
func (w *Widget) Request() models.AggregationRequest {
	return models.AggregationRequest{
		Column:       w.DataColumn,
		Function:     models.ParseDataFunction(w.DataFunction),
		FilterColumn: w.FilterColumn,
		FilterValue:  w.FilterValue,
		Precision:    w.RoundToPlace.Ptr(),
		Prefix:       w.Prefix,
		Suffix:       w.Suffix,
	}
}

// LegendConfig returns the widget's legend settings with the primary column
// and palette filled in from the rest of the widget.
func (w *Widget) LegendConfig() models.LegendConfig {
	cfg := w.Legend
	if cfg.PrimaryColumn == "" {
		cfg.PrimaryColumn = w.Columns.Primary.Name
	}
	if cfg.Color == "" {
		cfg.Color = w.Color
	}
	if t, err := models.ParseLegendType(string(cfg.Type)); err == nil {
		cfg.Type = t
	}
	return cfg
}

// Defaults returns the default config tree for a widget type, seeded with
// the legend defaults from cfg. Unknown types get the common keys only.
func Defaults(typ string, cfg *config.Config) map[string]any {
	if cfg == nil {
		cfg = config.Default()
	}
	out := map[string]any{
		"title": "",
		"data":  []any{},
	}
	switch typ {
	case TypeMap:
		out["color"] = cfg.Legend.Color
		out["filters"] = []any{}
		out["columns"] = map[string]any{
			"primary": map[string]any{"name": "", "label": "", "prefix": "", "suffix": "", "roundToPlace": "", "useCommas": false, "tooltip": true},
			"geo":     map[string]any{"name": "", "label": "Location", "tooltip": true},
		}
		out["legend"] = map[string]any{
			"type":                cfg.Legend.Type,
			"numberOfItems":       cfg.Legend.NumberOfItems,
			"specialClasses":      []any{},
			"separateZero":        false,
			"categoryValuesOrder": []any{},
			"unified":             false,
		}
	case TypeDataBite:
		out["dataColumn"] = ""
		out["dataFunction"] = ""
		out["filterColumn"] = ""
		out["filterValue"] = ""
		out["prefix"] = ""
		out["suffix"] = ""
		if cfg.DataBite.Precision >= 0 {
			out["roundToPlace"] = cfg.DataBite.Precision
		} else {
			out["roundToPlace"] = ""
		}
	}
	return out
}

// Load reads a widget config from path. Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON. Missing keys are filled from
// Defaults and a relative dataFile is resolved against the config's
// directory.
func Load(path string, cfg *config.Config) (*Widget, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read widget %s: %w", path, err)
	}

	raw, err := decode(path, b)
	if err != nil {
		return nil, fmt.Errorf("parse widget %s: %w", path, err)
	}

	w, err := FromMap(raw, cfg)
	if err != nil {
		return nil, fmt.Errorf("widget %s: %w", path, err)
	}
	w.Runtime.Source = path

	if w.DataFile != "" && len(w.Data) == 0 {
		dataPath := w.DataFile
		if !filepath.IsAbs(dataPath) {
			dataPath = filepath.Join(filepath.Dir(path), dataPath)
		}
		ds, err := LoadData(dataPath)
		if err != nil {
			return nil, fmt.Errorf("widget %s: %w", path, err)
		}
		w.Data = ds
	}
	return w, nil
}

// FromMap builds a widget from an already decoded config tree.
func FromMap(raw map[string]any, cfg *config.Config) (*Widget, error) {
	typ, _ := raw["type"].(string)
	if typ != TypeMap && typ != TypeDataBite {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}

	merged := config.MergeDefaults(raw, Defaults(typ, cfg))

	// Round-trip through JSON so YAML and JSON sources share one decoder.
	b, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	var w Widget
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	w.Runtime.UniqueID = uuid.NewString()
	return &w, nil
}

// LoadData reads a dataset file: a JSON or YAML array of row objects.
func LoadData(path string) (models.Dataset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data %s: %w", path, err)
	}
	var ds models.Dataset
	if isYAML(path) {
		var rows []map[string]any
		if err := yaml.Unmarshal(b, &rows); err != nil {
			return nil, fmt.Errorf("parse data %s: %w", path, err)
		}
		ds = make(models.Dataset, len(rows))
		for i, r := range rows {
			ds[i] = models.Row(r)
		}
		return ds, nil
	}
	if err := json.Unmarshal(b, &ds); err != nil {
		return nil, fmt.Errorf("parse data %s: %w", path, err)
	}
	return ds, nil
}

func decode(path string, b []byte) (map[string]any, error) {
	var raw map[string]any
	if isYAML(path) {
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return nil, err
		}
	} else if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return raw, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
