package widget

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/seenimoa/openviz/internal/logging"
	"github.com/seenimoa/openviz/pkg/models"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testEvaluator() *Evaluator {
	return NewEvaluator(nil, nil, logging.Discard())
}

const mapWidget = `{
  "type": "map",
  "title": "Rates",
  "columns": {"primary": {"name": "rate", "suffix": "%", "roundToPlace": "1"}},
  "legend": {"type": "equal-interval", "numberOfItems": 2, "specialClasses": ["NA"]},
  "filters": [{"columnName": "year", "label": "Year"}],
  "data": [
    {"state": "Ohio", "year": 2019, "rate": "10"},
    {"state": "Utah", "year": 2019, "rate": 20},
    {"state": "Iowa", "year": 2019, "rate": "NA"},
    {"state": "Ohio", "year": 2020, "rate": 30}
  ]
}`

// ── Loading ──

func TestLoadJSONMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "w.json", `{"type": "map", "columns": {"primary": {"name": "rate"}}, "data": [{"rate": 1}]}`)

	w, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if w.Legend.Type != models.LegendEqualNumber {
		t.Errorf("Legend.Type: got %q, want equalnumber", w.Legend.Type)
	}
	if w.Legend.NumberOfItems != 3 {
		t.Errorf("Legend.NumberOfItems: got %d, want 3", w.Legend.NumberOfItems)
	}
	if w.Color != "bluegreen" {
		t.Errorf("Color: got %q, want bluegreen", w.Color)
	}
	if w.Columns.Geo.Label != "Location" {
		t.Errorf("Columns.Geo.Label: got %q", w.Columns.Geo.Label)
	}
	if w.Runtime.UniqueID == "" || w.Runtime.Source != path {
		t.Errorf("Runtime: got %+v", w.Runtime)
	}

	again, _ := Load(path, nil)
	if again.Runtime.UniqueID == w.Runtime.UniqueID {
		t.Error("each load should get its own runtime id")
	}
}

func TestLoadYAMLWithDataFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.json", `[{"v": 10}, {"v": 20}, {"v": 30}]`)
	path := writeFile(t, dir, "bite.yaml", `
type: data-bite
title: Average
dataFile: data.json
dataColumn: v
dataFunction: Mean (Average)
prefix: "$"
roundToPlace: "1"
`)

	w, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(w.Data) != 3 {
		t.Fatalf("Data: got %d rows, want 3", len(w.Data))
	}

	res, err := testEvaluator().Evaluate(w)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if res.DataBite != "$20.0" {
		t.Errorf("DataBite: got %q, want %q", res.DataBite, "$20.0")
	}
	if res.Title != "Average" {
		t.Errorf("Title: got %q", res.Title)
	}
}

func TestLoadYAMLData(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "rows.yml", "- v: 1\n- v: 2\n- v: hello\n")
	ds, err := LoadData(path)
	if err != nil {
		t.Fatalf("LoadData error: %v", err)
	}
	if len(ds) != 3 || ds[2]["v"] != "hello" {
		t.Errorf("LoadData: got %v", ds)
	}
	if n, ok := models.ToNumber(ds[1]["v"]); !ok || n != 2 {
		t.Errorf("YAML ints should be numeric, got %v", ds[1]["v"])
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := Load(filepath.Join(dir, "missing.json"), nil); err == nil {
		t.Error("expected error for missing file")
	}

	bad := writeFile(t, dir, "bad.json", `{"type": "chart"}`)
	if _, err := Load(bad, nil); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}

	broken := writeFile(t, dir, "broken.json", `{"type": `)
	if _, err := Load(broken, nil); err == nil {
		t.Error("expected parse error")
	}

	noData := writeFile(t, dir, "nodata.json", `{"type": "data-bite", "dataFile": "nope.json"}`)
	if _, err := Load(noData, nil); err == nil {
		t.Error("expected error for missing data file")
	}
}

// ── Places ──

func TestPlacesUnmarshal(t *testing.T) {
	tests := []struct {
		in  string
		set bool
		n   int
	}{
		{`2`, true, 2},
		{`"3"`, true, 3},
		{`""`, false, 0},
		{`null`, false, 0},
		{`-1`, false, -1},
		{`"-1"`, false, -1},
		{`"None"`, false, 0},
		{`"two"`, false, 0},
	}
	for _, tt := range tests {
		var p Places
		if err := json.Unmarshal([]byte(tt.in), &p); err != nil {
			t.Errorf("%s: unexpected error %v", tt.in, err)
			continue
		}
		if p.Set != tt.set || (tt.set && p.N != tt.n) {
			t.Errorf("%s: got %+v", tt.in, p)
		}
	}

	var p Places
	if err := json.Unmarshal([]byte(`true`), &p); err == nil {
		t.Error("expected error for boolean places")
	}
	if p.Ptr() != nil {
		t.Error("unset places should give a nil pointer")
	}
}

func TestFromMapRoundToPlaceNone(t *testing.T) {
	raw := decodeJSON(t, mapWidget)
	raw["columns"].(map[string]any)["primary"].(map[string]any)["roundToPlace"] = "None"
	w, err := FromMap(raw, nil)
	if err != nil {
		t.Fatalf("FromMap error: %v", err)
	}
	if w.Columns.Primary.RoundToPlace.Set {
		t.Errorf("RoundToPlace: got %+v, want unset", w.Columns.Primary.RoundToPlace)
	}

	res, err := testEvaluator().Evaluate(w)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	for _, r := range res.Rows {
		if r.Row["state"] == "Ohio" && r.Display != "10%" {
			t.Errorf("Ohio display: got %q, want %q", r.Display, "10%")
		}
	}
}

// ── Evaluate ──

func TestEvaluateMap(t *testing.T) {
	w, err := FromMap(decodeJSON(t, mapWidget), nil)
	if err != nil {
		t.Fatalf("FromMap error: %v", err)
	}
	res, err := testEvaluator().Evaluate(w)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}

	if len(res.Filters) != 1 || res.Filters[0].Active != 2019.0 {
		t.Fatalf("Filters: got %+v", res.Filters)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("Rows: got %d, want 3 rows for 2019", len(res.Rows))
	}
	// One special class plus two ranges over [10, 20].
	if len(res.Legend) != 3 {
		t.Fatalf("Legend: got %d classes, want 3", len(res.Legend))
	}
	if res.Legend[0].Kind != models.ClassSpecial || res.Legend[2].Max != 20 {
		t.Errorf("Legend: got %+v", res.Legend)
	}

	byState := map[string]RenderedRow{}
	for _, r := range res.Rows {
		byState[r.Row["state"].(string)] = r
	}
	if got := byState["Ohio"].Display; got != "10.0%" {
		t.Errorf("Ohio display: got %q, want %q", got, "10.0%")
	}
	if got := byState["Iowa"].Display; got != "NA" {
		t.Errorf("special display should skip affixes, got %q", got)
	}
	if byState["Iowa"].Class != 0 || byState["Utah"].Class != 2 {
		t.Errorf("classes: Iowa %d, Utah %d", byState["Iowa"].Class, byState["Utah"].Class)
	}
	if len(byState["Utah"].Colors) != 3 {
		t.Errorf("colors: got %v", byState["Utah"].Colors)
	}
}

func TestEvaluateMapUnified(t *testing.T) {
	raw := decodeJSON(t, mapWidget)
	raw["legend"].(map[string]any)["unified"] = true
	w, err := FromMap(raw, nil)
	if err != nil {
		t.Fatalf("FromMap error: %v", err)
	}
	res, err := testEvaluator().Evaluate(w)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if got := res.Legend[len(res.Legend)-1].Max; got != 30 {
		t.Errorf("unified legend max: got %v, want 30", got)
	}
	if len(res.Rows) != 3 {
		t.Errorf("unified legend still renders the filtered rows, got %d", len(res.Rows))
	}
}

func TestEvaluateErrors(t *testing.T) {
	e := testEvaluator()
	if _, err := e.Evaluate(&Widget{Type: TypeDataBite}); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
	if _, err := e.Evaluate(&Widget{Type: "table", Data: models.Dataset{{}}}); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
	bad := &Widget{Type: TypeMap, Data: models.Dataset{{"rate": 1.0}}}
	if _, err := e.Evaluate(bad); err == nil {
		t.Error("expected legend config error for a map without a primary column")
	}
}

func TestEvaluateAllKeepsOrder(t *testing.T) {
	bite := func(title, fn string) *Widget {
		return &Widget{
			Type:         TypeDataBite,
			Title:        title,
			Data:         models.Dataset{{"v": 1.0}, {"v": 2.0}, {"v": 6.0}},
			DataColumn:   "v",
			DataFunction: fn,
		}
	}
	widgets := []*Widget{bite("a", "sum"), {Type: TypeDataBite, Title: "empty"}, bite("c", "max"), bite("d", "count")}

	results, err := testEvaluator().EvaluateAll(context.Background(), widgets, 2)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("expected joined ErrNoData, got %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("results: got %d, want 4", len(results))
	}

	want := []string{"9", "", "6", "3"}
	for i, w := range want {
		if results[i].DataBite != w {
			t.Errorf("result %d: got %q, want %q", i, results[i].DataBite, w)
		}
	}
	if results[1].Error == "" {
		t.Error("failed widget should carry its error")
	}
	if results[0].Title != "a" || results[3].Title != "d" {
		t.Error("results out of order")
	}
}

func TestEvaluateAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testEvaluator().EvaluateAll(ctx, []*Widget{{Type: TypeDataBite}}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", `{"type": "data-bite", "title": "A", "data": [{"v": 1}]}`)
	b := writeFile(t, dir, "b.yaml", "type: data-bite\ntitle: B\ndata:\n  - v: 2\n")

	widgets, err := LoadAll(context.Background(), []string{a, b}, nil, 1)
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if widgets[0].Title != "A" || widgets[1].Title != "B" {
		t.Errorf("LoadAll order: got %q, %q", widgets[0].Title, widgets[1].Title)
	}

	if _, err := LoadAll(context.Background(), []string{a, filepath.Join(dir, "nope.json")}, nil, 2); err == nil {
		t.Error("expected error when a file is missing")
	}
}

func decodeJSON(t *testing.T, s string) map[string]any {
	t.Helper()
	var raw map[string]any
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return raw
}
