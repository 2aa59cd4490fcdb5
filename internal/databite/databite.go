// Package databite reduces one column of a dataset to a single formatted
// statistic. It never fails: missing inputs, non-numeric cells and unknown
// functions degrade to an empty string.
package databite

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/bolt/v3"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/seenimoa/openviz/internal/logging"
	"github.com/seenimoa/openviz/pkg/models"
	"github.com/seenimoa/openviz/pkg/utils"
)

// Aggregator computes data bites. The zero value logs to the package default logger.
type Aggregator struct {
	log *bolt.Logger
}

// New creates an Aggregator that reports diagnostics to logger.
func New(logger *bolt.Logger) *Aggregator {
	return &Aggregator{log: logger}
}

func (a *Aggregator) logger() *bolt.Logger {
	if a == nil || a.log == nil {
		return logging.Get()
	}
	return a.log
}

// DataBite computes a data bite with the default logger.
func DataBite(ds models.Dataset, req models.AggregationRequest) string {
	return (*Aggregator)(nil).DataBite(ds, req)
}

// DataBite filters ds, extracts the numeric values of req.Column and renders
// req.Function over them with the request's precision and affixes.
//
// Results that are undefined (sum, mean, median, min, max or range over no
// numeric values) are NaN internally and render as "".
func (a *Aggregator) DataBite(ds models.Dataset, req models.AggregationRequest) string {
	if req.Column == "" || req.Function == "" {
		return ""
	}

	values := NumericValues(Filter(ds, req.FilterColumn, req.FilterValue), req.Column)

	switch req.Function {
	case models.FuncCount:
		// Counts are whole numbers; precision does not apply.
		return req.Prefix + strconv.Itoa(len(values)) + req.Suffix
	case models.FuncSum:
		return wrap(req, Sum(values))
	case models.FuncMean:
		return wrap(req, Mean(values))
	case models.FuncMedian:
		return wrap(req, Median(values))
	case models.FuncMin:
		return wrap(req, Min(values))
	case models.FuncMax:
		return wrap(req, Max(values))
	case models.FuncMode:
		modes := Mode(values)
		if len(modes) == 0 {
			return ""
		}
		parts := make([]string, len(modes))
		for i, m := range modes {
			parts[i] = utils.FormatNumber(m)
		}
		return req.Prefix + strings.Join(parts, ", ") + req.Suffix
	case models.FuncRange:
		lo, hi := Range(values)
		if math.IsNaN(lo) {
			return ""
		}
		return wrap(req, lo) + " - " + wrap(req, hi)
	}

	logging.With(a.logger().Warn(),
		logging.Function(string(req.Function)),
		logging.Column(req.Column),
	).Msg("data bite function not recognized")
	return ""
}

// Filter keeps rows whose filterColumn equals filterValue. The filter only
// applies when both are set; an empty-string value counts as unset.
func Filter(ds models.Dataset, filterColumn string, filterValue any) models.Dataset {
	if filterColumn == "" || filterValue == nil {
		return ds
	}
	if s, ok := filterValue.(string); ok && s == "" {
		return ds
	}

	out := make(models.Dataset, 0, len(ds))
	for _, row := range ds {
		if models.ValuesEqual(row[filterColumn], filterValue) {
			out = append(out, row)
		}
	}
	return out
}

// NumericValues returns the finite numeric values of column in row order.
// Cells that do not convert are dropped silently.
func NumericValues(ds models.Dataset, column string) []float64 {
	out := make([]float64, 0, len(ds))
	for _, row := range ds {
		if f, ok := models.ToNumber(row[column]); ok {
			out = append(out, f)
		}
	}
	return out
}

// format renders a numeric result with the request precision.
func format(req models.AggregationRequest, v float64) string {
	if req.Precision != nil && *req.Precision >= 0 {
		return utils.FormatFixed(v, *req.Precision)
	}
	return utils.FormatNumber(v)
}

// wrap formats v and applies prefix and suffix; NaN renders as "".
func wrap(req models.AggregationRequest, v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return req.Prefix + format(req, v) + req.Suffix
}

// Sum returns the arithmetic sum, or NaN for no values.
func Sum(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return floats.Sum(values)
}

// Mean returns the arithmetic mean, or NaN for no values.
func Mean(values []float64) float64 {
	switch len(values) {
	case 0:
		return math.NaN()
	case 1:
		return values[0]
	}
	return stat.Mean(values, nil)
}

// Median returns the middle value of the sorted values (mean of the two
// middle values for even counts), or NaN for no values.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}
	sorted := sortedCopy(values)
	mid := n / 2
	if n%2 != 0 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Min returns the smallest value, or NaN for no values.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return floats.Min(values)
}

// Max returns the largest value, or NaN for no values.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return floats.Max(values)
}

// Range returns the smallest and largest values, or NaN, NaN for no values.
func Range(values []float64) (float64, float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	sorted := sortedCopy(values)
	return sorted[0], sorted[len(sorted)-1]
}

// Mode returns every value tied for the highest frequency, in order of
// first occurrence.
func Mode(values []float64) []float64 {
	counts := make(map[float64]int, len(values))
	order := make([]float64, 0, len(values))
	best := 0
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
		if counts[v] > best {
			best = counts[v]
		}
	}

	var modes []float64
	for _, v := range order {
		if counts[v] == best {
			modes = append(modes, v)
		}
	}
	return modes
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}
