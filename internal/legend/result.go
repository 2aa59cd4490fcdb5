package legend

import (
	"fmt"

	"github.com/seenimoa/openviz/pkg/models"
)

// Result is a computed legend plus the lookup from row fingerprints to classes.
type Result struct {
	Classes []models.LegendClass `json:"classes"`
	Lookup  models.RowBinLookup  `json:"lookup"`

	// Hash identifies the dataset and config the result was built from.
	Hash string `json:"hash"`

	// Truncated counts distinct categorical values beyond MaxCategories.
	Truncated int `json:"truncated,omitempty"`
}

// ClassFor returns the class a row was binned into. Rows with no class
// (undefined primary value, truncated category) report false.
func (r *Result) ClassFor(row models.Row) (models.LegendClass, bool) {
	idx, ok := r.Lookup[Fingerprint(row)]
	if !ok || idx < 0 || idx >= len(r.Classes) {
		return models.LegendClass{}, false
	}
	return r.Classes[idx], true
}

// ColorsFor returns the base, hover and active colors for a row.
// A row in a disabled class gets nil so the caller can hide it; a row with
// no class gets the default color triple.
func (r *Result) ColorsFor(row models.Row) []string {
	class, ok := r.ClassFor(row)
	if !ok {
		return Shades(DefaultColor, false)
	}
	if class.Disabled {
		return nil
	}
	return Shades(class.Color, class.Kind == models.ClassSpecial)
}

// Toggle flips the disabled state of class i.
func (r *Result) Toggle(i int) error {
	if i < 0 || i >= len(r.Classes) {
		return fmt.Errorf("legend class %d out of range [0, %d)", i, len(r.Classes))
	}
	r.Classes[i].Disabled = !r.Classes[i].Disabled
	return nil
}

// ResetToggles re-enables every class.
func (r *Result) ResetToggles() {
	for i := range r.Classes {
		r.Classes[i].Disabled = false
	}
}

// Clone returns a deep copy so callers can toggle classes without touching
// a cached result.
func (r *Result) Clone() *Result {
	out := &Result{
		Classes:   make([]models.LegendClass, len(r.Classes)),
		Lookup:    make(models.RowBinLookup, len(r.Lookup)),
		Hash:      r.Hash,
		Truncated: r.Truncated,
	}
	copy(out.Classes, r.Classes)
	for k, v := range r.Lookup {
		out.Lookup[k] = v
	}
	return out
}
