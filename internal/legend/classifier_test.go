package legend

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/seenimoa/openviz/internal/infra"
	"github.com/seenimoa/openviz/internal/logging"
	"github.com/seenimoa/openviz/pkg/models"
)

func newTestClassifier(buf *bytes.Buffer) (*Classifier, *infra.Cache) {
	cache := infra.NewCache(time.Minute)
	log := logging.New(logging.Config{Level: "debug", Format: "json", Output: buf})
	return NewClassifier(WithCache(cache), WithLogger(log)), cache
}

// ── Memoization ──

func TestClassifierCacheHit(t *testing.T) {
	var buf bytes.Buffer
	cl, cache := newTestClassifier(&buf)
	ds := rowsOf(1.0, 2.0, 3.0)
	cfg := cfgFor(models.LegendEqualNumber, 2)

	first, err := cl.Classify(ds, cfg)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	second, err := cl.Classify(ds, cfg)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}

	if cache.Len() != 1 {
		t.Errorf("cache entries: got %d, want 1", cache.Len())
	}
	if first.Hash != second.Hash {
		t.Errorf("hash changed between identical calls: %s vs %s", first.Hash, second.Hash)
	}
	if !strings.Contains(buf.String(), "legend cache hit") {
		t.Errorf("expected cache hit log, got: %s", buf.String())
	}
}

func TestClassifierPruneAndReset(t *testing.T) {
	cache := infra.NewCache(time.Millisecond)
	cl := NewClassifier(WithCache(cache), WithLogger(logging.Discard()))
	if _, err := cl.Classify(rowsOf(1.0, 2.0), cfgFor(models.LegendEqualNumber, 2)); err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if got := cl.Prune(); got != 0 {
		t.Errorf("Prune: got %d entries left, want 0", got)
	}

	lasting, _ := newTestClassifier(&bytes.Buffer{})
	_, _ = lasting.Classify(rowsOf(1.0, 2.0), cfgFor(models.LegendEqualNumber, 2))
	if got := lasting.Prune(); got != 1 {
		t.Errorf("Prune: got %d entries left, want 1", got)
	}
	lasting.Reset()
	if got := lasting.Prune(); got != 0 {
		t.Errorf("after Reset: got %d entries, want 0", got)
	}

	uncached := NewClassifier(WithCache(nil))
	uncached.Reset()
	if got := uncached.Prune(); got != 0 {
		t.Errorf("uncached Prune: got %d, want 0", got)
	}
}

func TestClassifierRecomputesOnChange(t *testing.T) {
	var buf bytes.Buffer
	cl, cache := newTestClassifier(&buf)
	ds := rowsOf(1.0, 2.0, 3.0)
	cfg := cfgFor(models.LegendEqualNumber, 2)

	base, _ := cl.Classify(ds, cfg)

	changed := rowsOf(1.0, 2.0, 30.0)
	byData, _ := cl.Classify(changed, cfg)
	if byData.Hash == base.Hash {
		t.Error("changing a value should change the hash")
	}
	if byData.Classes[1].Max != 30 {
		t.Errorf("recomputed max: got %v, want 30", byData.Classes[1].Max)
	}

	cfg3 := cfgFor(models.LegendEqualNumber, 3)
	byConfig, _ := cl.Classify(ds, cfg3)
	if byConfig.Hash == base.Hash {
		t.Error("changing the config should change the hash")
	}
	if len(byConfig.Classes) != 3 {
		t.Errorf("classes after config change: got %d, want 3", len(byConfig.Classes))
	}

	if cache.Len() != 3 {
		t.Errorf("cache entries: got %d, want 3", cache.Len())
	}
}

func TestClassifierReturnsIndependentCopies(t *testing.T) {
	var buf bytes.Buffer
	cl, _ := newTestClassifier(&buf)
	ds := rowsOf(1.0, 2.0, 3.0)
	cfg := cfgFor(models.LegendEqualNumber, 3)

	first, _ := cl.Classify(ds, cfg)
	if err := first.Toggle(0); err != nil {
		t.Fatalf("Toggle error: %v", err)
	}
	first.Lookup["bogus"] = 1

	second, _ := cl.Classify(ds, cfg)
	if second.Classes[0].Disabled {
		t.Error("toggle on a returned result leaked into the cache")
	}
	if _, ok := second.Lookup["bogus"]; ok {
		t.Error("lookup edit on a returned result leaked into the cache")
	}
}

func TestClassifierWithoutCache(t *testing.T) {
	cl := NewClassifier(WithCache(nil), WithLogger(logging.Discard()))
	res, err := cl.Classify(rowsOf(1.0, 2.0), cfgFor(models.LegendEqualInterval, 2))
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if len(res.Classes) != 2 {
		t.Errorf("classes: got %d, want 2", len(res.Classes))
	}
}

func TestClassifierInvalidConfig(t *testing.T) {
	var buf bytes.Buffer
	cl, cache := newTestClassifier(&buf)
	_, err := cl.Classify(rowsOf(1.0), models.LegendConfig{PrimaryColumn: "rate", Type: "bogus", NumberOfItems: 3})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
	if cache.Len() != 0 {
		t.Error("invalid configs should not be cached")
	}
}

func TestClassifierLogsTruncation(t *testing.T) {
	var buf bytes.Buffer
	cl, _ := newTestClassifier(&buf)
	ds := rowsOf("a", "b", "c", "d", "e", "f", "g", "h", "i", "j")
	if _, err := cl.Classify(ds, cfgFor(models.LegendCategory, 9)); err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if !strings.Contains(buf.String(), `"dropped":1`) {
		t.Errorf("expected dropped count in log, got: %s", buf.String())
	}
}

func TestClassifierConcurrent(t *testing.T) {
	cl := NewClassifier(WithLogger(logging.Discard()))
	ds := rowsOf(1.0, 2.0, 3.0, 4.0, 5.0, 6.0)
	cfg := cfgFor(models.LegendEqualNumber, 3)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := cl.Classify(ds, cfg)
			if err != nil {
				t.Errorf("Classify error: %v", err)
				return
			}
			_ = res.Toggle(1)
		}()
	}
	wg.Wait()

	res, _ := cl.Classify(ds, cfg)
	for _, c := range res.Classes {
		if c.Disabled {
			t.Errorf("class %d disabled in cached result", c.Index)
		}
	}
}

// ── Unified view ──

func TestClassifyViewUnified(t *testing.T) {
	cl := NewClassifier(WithLogger(logging.Discard()))
	full := rowsOf(1.0, 50.0, 100.0)
	visible := full[:1]

	cfg := cfgFor(models.LegendEqualInterval, 2)
	cfg.Unified = true
	res, err := cl.ClassifyView(full, visible, cfg)
	if err != nil {
		t.Fatalf("ClassifyView error: %v", err)
	}
	if res.Classes[len(res.Classes)-1].Max != 100 {
		t.Errorf("unified legend should span the full dataset, got max %v", res.Classes[len(res.Classes)-1].Max)
	}

	cfg.Unified = false
	res, _ = cl.ClassifyView(full, visible, cfg)
	if len(res.Lookup) != 1 {
		t.Errorf("visible legend lookup: got %d rows, want 1", len(res.Lookup))
	}
}

// ── Result ──

func TestResultClassForAndColors(t *testing.T) {
	cfg := cfgFor(models.LegendEqualNumber, 2)
	cfg.SpecialClasses = []any{"NA"}
	ds := rowsOf("NA", 1.0, 2.0)
	res := mustClassify(t, ds, cfg)

	class, ok := res.ClassFor(ds[1])
	if !ok || class.Kind != models.ClassRange {
		t.Fatalf("ClassFor: got %+v, %v", class, ok)
	}

	colors := res.ColorsFor(ds[1])
	if len(colors) != 3 || colors[0] != class.Color {
		t.Errorf("ColorsFor: got %v, base should be %s", colors, class.Color)
	}

	missing := models.Row{"geo": "nowhere", "rate": 99.0}
	if _, ok := res.ClassFor(missing); ok {
		t.Error("unknown row should have no class")
	}
	if got := res.ColorsFor(missing); len(got) != 3 || got[0] != DefaultColor {
		t.Errorf("unknown row colors: got %v", got)
	}

	if err := res.Toggle(0); err != nil {
		t.Fatalf("Toggle error: %v", err)
	}
	if got := res.ColorsFor(ds[0]); got != nil {
		t.Errorf("disabled class should yield nil colors, got %v", got)
	}
	res.ResetToggles()
	if got := res.ColorsFor(ds[0]); got == nil {
		t.Error("reset should re-enable the class")
	}
}

func TestResultToggleOutOfRange(t *testing.T) {
	res := mustClassify(t, rowsOf(1.0), cfgFor(models.LegendEqualNumber, 1))
	if err := res.Toggle(5); err == nil {
		t.Error("expected error for out of range toggle")
	}
	if err := res.Toggle(-1); err == nil {
		t.Error("expected error for negative toggle")
	}
}
