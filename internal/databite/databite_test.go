package databite

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/seenimoa/openviz/internal/logging"
	"github.com/seenimoa/openviz/pkg/models"
)

func intPtr(i int) *int { return &i }

// salesData mirrors a typical data-bite source with mixed cell types.
func salesData() models.Dataset {
	return models.Dataset{
		{"region": "north", "sales": 10.0},
		{"region": "south", "sales": 20.0},
		{"region": "north", "sales": "30"},
		{"region": "east", "sales": "bad"},
		{"region": "west", "sales": nil},
	}
}

func quiet() *Aggregator { return New(logging.Discard()) }

// ── Request handling ──

func TestDataBiteMissingColumnOrFunction(t *testing.T) {
	a := quiet()
	if got := a.DataBite(salesData(), models.AggregationRequest{Function: models.FuncSum}); got != "" {
		t.Errorf("missing column: got %q, want empty", got)
	}
	if got := a.DataBite(salesData(), models.AggregationRequest{Column: "sales"}); got != "" {
		t.Errorf("missing function: got %q, want empty", got)
	}
}

func TestDataBiteMeanWithPrecisionAndPrefix(t *testing.T) {
	req := models.AggregationRequest{
		Column:    "sales",
		Function:  models.FuncMean,
		Precision: intPtr(1),
		Prefix:    "$",
	}
	if got := quiet().DataBite(salesData(), req); got != "$20.0" {
		t.Errorf("mean: got %q, want %q", got, "$20.0")
	}
}

func TestDataBiteFunctions(t *testing.T) {
	ds := salesData()
	tests := []struct {
		fn   models.DataFunction
		want string
	}{
		{models.FuncCount, "3"},
		{models.FuncSum, "60"},
		{models.FuncMean, "20"},
		{models.FuncMedian, "20"},
		{models.FuncMin, "10"},
		{models.FuncMax, "30"},
		{models.FuncMode, "10, 20, 30"},
		{models.FuncRange, "10 - 30"},
	}

	for _, tt := range tests {
		t.Run(string(tt.fn), func(t *testing.T) {
			got := quiet().DataBite(ds, models.AggregationRequest{Column: "sales", Function: tt.fn})
			if got != tt.want {
				t.Errorf("%s: got %q, want %q", tt.fn, got, tt.want)
			}
		})
	}
}

func TestDataBiteRangeAffixesEachEnd(t *testing.T) {
	req := models.AggregationRequest{
		Column:    "sales",
		Function:  models.FuncRange,
		Prefix:    "$",
		Suffix:    "k",
		Precision: intPtr(2),
	}
	want := "$10.00k - $30.00k"
	if got := quiet().DataBite(salesData(), req); got != want {
		t.Errorf("range: got %q, want %q", got, want)
	}
}

func TestDataBiteRangeSortsNumerically(t *testing.T) {
	ds := models.Dataset{{"v": 9.0}, {"v": 100.0}, {"v": 25.0}}
	got := quiet().DataBite(ds, models.AggregationRequest{Column: "v", Function: models.FuncRange})
	if got != "9 - 100" {
		t.Errorf("range: got %q, want %q", got, "9 - 100")
	}
}

func TestDataBiteFilter(t *testing.T) {
	req := models.AggregationRequest{
		Column:       "sales",
		Function:     models.FuncSum,
		FilterColumn: "region",
		FilterValue:  "north",
	}
	if got := quiet().DataBite(salesData(), req); got != "40" {
		t.Errorf("filtered sum: got %q, want %q", got, "40")
	}

	// A filter column without a value is ignored.
	req.FilterValue = ""
	if got := quiet().DataBite(salesData(), req); got != "60" {
		t.Errorf("unfiltered sum: got %q, want %q", got, "60")
	}
}

func TestDataBiteEmptyNumericList(t *testing.T) {
	ds := models.Dataset{{"v": "n/a"}, {"v": nil}}
	for _, fn := range []models.DataFunction{
		models.FuncSum, models.FuncMean, models.FuncMedian,
		models.FuncMin, models.FuncMax, models.FuncRange, models.FuncMode,
	} {
		got := quiet().DataBite(ds, models.AggregationRequest{Column: "v", Function: fn, Prefix: "$"})
		if got != "" {
			t.Errorf("%s over no numbers: got %q, want empty", fn, got)
		}
	}
	got := quiet().DataBite(ds, models.AggregationRequest{Column: "v", Function: models.FuncCount})
	if got != "0" {
		t.Errorf("count over no numbers: got %q, want %q", got, "0")
	}
}

func TestDataBiteUnknownFunctionLogs(t *testing.T) {
	buf := &bytes.Buffer{}
	a := New(logging.New(logging.Config{Level: "warn", Format: "json", Output: buf}))

	got := a.DataBite(salesData(), models.AggregationRequest{Column: "sales", Function: "Variance"})
	if got != "" {
		t.Errorf("unknown function: got %q, want empty", got)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"function":"Variance"`)) {
		t.Errorf("expected diagnostic with function name, got %s", buf.String())
	}
}

func TestDataBitePackageFunction(t *testing.T) {
	got := DataBite(salesData(), models.AggregationRequest{Column: "sales", Function: models.FuncMax, Suffix: "%"})
	if got != "30%" {
		t.Errorf("DataBite: got %q, want %q", got, "30%")
	}
}

// ── Statistics ──

func TestMedianEvenAndOdd(t *testing.T) {
	if got := Median([]float64{3, 1, 2}); got != 2 {
		t.Errorf("odd median: got %v, want 2", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Errorf("even median: got %v, want 2.5", got)
	}
}

func TestMedianDoesNotReorderInput(t *testing.T) {
	in := []float64{3, 1, 2}
	Median(in)
	if in[0] != 3 || in[1] != 1 || in[2] != 2 {
		t.Errorf("input mutated: %v", in)
	}
}

func TestModeTies(t *testing.T) {
	got := Mode([]float64{1, 1, 2, 2, 3})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("Mode: got %v, want [1 2]", got)
	}
	got = Mode([]float64{5, 3, 3})
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("Mode: got %v, want [3]", got)
	}
}

func TestModeBite(t *testing.T) {
	ds := models.Dataset{{"v": 1.0}, {"v": 1.0}, {"v": 2.0}, {"v": 2.0}, {"v": 3.0}}
	got := quiet().DataBite(ds, models.AggregationRequest{Column: "v", Function: models.FuncMode})
	if got != "1, 2" {
		t.Errorf("mode bite: got %q, want %q", got, "1, 2")
	}
}

func TestEmptySentinels(t *testing.T) {
	if !math.IsNaN(Sum(nil)) || !math.IsNaN(Mean(nil)) || !math.IsNaN(Median(nil)) ||
		!math.IsNaN(Min(nil)) || !math.IsNaN(Max(nil)) {
		t.Error("empty statistics should be NaN")
	}
	lo, hi := Range(nil)
	if !math.IsNaN(lo) || !math.IsNaN(hi) {
		t.Error("empty range should be NaN, NaN")
	}
	if Mode(nil) != nil {
		t.Error("empty mode should be nil")
	}
}

func TestMeanSingleValue(t *testing.T) {
	if got := Mean([]float64{7.25}); got != 7.25 {
		t.Errorf("Mean single: got %v, want 7.25", got)
	}
}

// min <= median <= max and min <= mean <= max for random inputs.
func TestOrderingProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(50) + 1
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = rng.NormFloat64() * 100
		}
		lo, hi := Min(vals), Max(vals)
		med, mean := Median(vals), Mean(vals)
		const eps = 1e-9
		if med < lo-eps || med > hi+eps {
			t.Fatalf("median %v outside [%v, %v]", med, lo, hi)
		}
		if mean < lo-eps || mean > hi+eps {
			t.Fatalf("mean %v outside [%v, %v]", mean, lo, hi)
		}
	}
}

func TestCountIgnoresNonNumericRows(t *testing.T) {
	ds := models.Dataset{{"v": 1.0}, {"v": "x"}, {"v": ""}, {"v": "2.5"}, {"other": 3.0}}
	if got := len(NumericValues(ds, "v")); got != 2 {
		t.Errorf("NumericValues: got %d values, want 2", got)
	}
}

func TestCountIgnoresPrecision(t *testing.T) {
	places := 2
	req := models.AggregationRequest{Column: "v", Function: models.FuncCount, Precision: &places, Suffix: " rows"}
	ds := models.Dataset{{"v": 1.0}, {"v": 2.0}, {"v": 3.0}}
	if got := quiet().DataBite(ds, req); got != "3 rows" {
		t.Errorf("count with precision: got %q, want %q", got, "3 rows")
	}
}
