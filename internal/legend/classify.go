// Package legend partitions the primary column of a dataset into colored
// legend classes and builds a content-keyed lookup from rows to classes.
package legend

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/seenimoa/openviz/pkg/models"
	"github.com/seenimoa/openviz/pkg/utils"
)

// MaxCategories is the most distinct values a categorical legend shows.
// Rows holding further distinct values are left out of the legend.
const MaxCategories = 9

// ErrInvalidConfig is returned for legend configs that cannot be binned.
var ErrInvalidConfig = errors.New("invalid legend config")

// Validate checks the parts of cfg the classifier depends on.
func Validate(cfg models.LegendConfig) error {
	if cfg.PrimaryColumn == "" {
		return fmt.Errorf("%w: primary column is required", ErrInvalidConfig)
	}
	switch cfg.Type {
	case models.LegendEqualNumber, models.LegendEqualInterval, models.LegendCategory:
	default:
		return fmt.Errorf("%w: unknown legend type %q", ErrInvalidConfig, cfg.Type)
	}
	if cfg.NumberOfItems <= 0 || cfg.NumberOfItems > models.MaxLegendItems {
		return fmt.Errorf("%w: number of items must be between 1 and %d, got %d",
			ErrInvalidConfig, models.MaxLegendItems, cfg.NumberOfItems)
	}
	return nil
}

// entry is a row in the working set together with its primary value.
type entry struct {
	value any
	num   float64
	fp    string
}

// builder accumulates classes and lookup entries for one classification.
type builder struct {
	cfg       models.LegendConfig
	classes   []models.LegendClass
	lookup    models.RowBinLookup
	specials  int
	truncated int
}

func (b *builder) add(c models.LegendClass) int {
	c.Index = len(b.classes)
	b.classes = append(b.classes, c)
	return c.Index
}

func (b *builder) assign(e entry, idx int) {
	b.lookup[e.fp] = idx
}

// Classify bins ds according to cfg. It never mutates ds.
func Classify(ds models.Dataset, cfg models.LegendConfig) (*Result, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}

	b := &builder{cfg: cfg, lookup: make(models.RowBinLookup)}

	working := make([]entry, 0, len(ds))
	for _, row := range ds {
		v, ok := row.Value(cfg.PrimaryColumn)
		if !ok {
			continue
		}
		working = append(working, entry{value: v, fp: Fingerprint(row)})
	}

	working = b.extractSpecials(working)

	if cfg.Type == models.LegendCategory {
		b.categories(working)
	} else {
		numeric := working[:0:0]
		for _, e := range working {
			if n, ok := models.ToNumber(e.value); ok {
				e.num = n
				numeric = append(numeric, e)
			}
		}

		numeric, bins := b.separateZero(numeric, cfg.NumberOfItems)

		sort.SliceStable(numeric, func(i, j int) bool { return numeric[i].num < numeric[j].num })

		if cfg.Type == models.LegendEqualNumber {
			b.equalNumber(numeric, bins)
		} else {
			b.equalInterval(numeric, bins)
		}
	}

	b.colorize()

	return &Result{
		Classes:   b.classes,
		Lookup:    b.lookup,
		Hash:      CacheKey(ds, cfg),
		Truncated: b.truncated,
	}, nil
}

// extractSpecials pulls rows holding a special value into one class per
// distinct value, in first-encounter order, and returns the rest.
func (b *builder) extractSpecials(working []entry) []entry {
	if len(b.cfg.SpecialClasses) == 0 {
		return working
	}

	seen := make(map[string]int)
	rest := working[:0:0]
	for _, e := range working {
		if !models.ContainsValue(b.cfg.SpecialClasses, e.value) {
			rest = append(rest, e)
			continue
		}
		key := models.ValueKey(e.value)
		idx, ok := seen[key]
		if !ok {
			idx = b.add(models.LegendClass{Kind: models.ClassSpecial, Value: e.value})
			seen[key] = idx
			b.specials++
		}
		b.assign(e, idx)
	}
	return rest
}

// categories emits one class per distinct value, capped at MaxCategories.
func (b *builder) categories(working []entry) {
	var distinct []any
	members := make(map[string][]entry)
	dropped := make(map[string]bool)

	for _, e := range working {
		key := models.ValueKey(e.value)
		if dropped[key] {
			continue
		}
		if _, ok := members[key]; !ok {
			if len(distinct) == MaxCategories {
				dropped[key] = true
				b.truncated++
				continue
			}
			distinct = append(distinct, e.value)
		}
		members[key] = append(members[key], e)
	}

	orderCategories(distinct, b.cfg.CategoryValuesOrder)

	for _, v := range distinct {
		idx := b.add(models.LegendClass{Kind: models.ClassCategory, Value: v})
		for _, e := range members[models.ValueKey(v)] {
			b.assign(e, idx)
		}
	}
}

// orderCategories sorts values in place. With a configured order the listed
// values are rearranged among their own positions by rank and unlisted
// values stay where they are; otherwise the natural ascending order is used.
func orderCategories(values []any, configured []any) {
	if len(configured) == 0 {
		sort.SliceStable(values, func(i, j int) bool {
			return models.CompareValues(values[i], values[j]) < 0
		})
		return
	}

	rank := make(map[string]int, len(configured))
	for i, v := range configured {
		key := models.ValueKey(v)
		if _, dup := rank[key]; !dup {
			rank[key] = i
		}
	}

	var slots []int
	var listed []any
	for i, v := range values {
		if _, ok := rank[models.ValueKey(v)]; ok {
			slots = append(slots, i)
			listed = append(listed, v)
		}
	}
	sort.SliceStable(listed, func(i, j int) bool {
		return rank[models.ValueKey(listed[i])] < rank[models.ValueKey(listed[j])]
	})
	for i, slot := range slots {
		values[slot] = listed[i]
	}
}

// separateZero moves exact zeros into their own class when configured and
// returns the remaining entries and the number of bins left for them.
func (b *builder) separateZero(numeric []entry, bins int) ([]entry, int) {
	if !b.cfg.SeparateZero {
		return numeric, bins
	}

	var zeros, rest []entry
	for _, e := range numeric {
		if e.num == 0 {
			zeros = append(zeros, e)
		} else {
			rest = append(rest, e)
		}
	}
	if len(zeros) == 0 {
		return numeric, bins
	}

	idx := b.add(models.LegendClass{Kind: models.ClassZero, Min: 0, Max: 0})
	for _, e := range zeros {
		b.assign(e, idx)
	}
	bins--
	if bins < 1 && len(rest) > 0 {
		bins = 1
	}
	return rest, bins
}

// equalNumber splits sorted entries into bins chunks whose sizes differ by
// at most one, larger chunks first.
func (b *builder) equalNumber(sorted []entry, bins int) {
	remaining := len(sorted)
	for remaining > 0 {
		chunk := int(math.Ceil(float64(remaining) / float64(bins)))
		rows := sorted[:chunk]
		sorted = sorted[chunk:]

		idx := b.add(models.LegendClass{
			Kind: models.ClassRange,
			Min:  rows[0].num,
			Max:  rows[len(rows)-1].num,
		})
		for _, e := range rows {
			b.assign(e, idx)
		}

		remaining -= chunk
		if bins > 1 {
			bins--
		}
	}
}

// equalInterval splits [min, max] of the sorted entries into bins ranges
// of equal width. The last range ends exactly at the data maximum.
func (b *builder) equalInterval(sorted []entry, bins int) {
	if len(sorted) == 0 || bins <= 0 {
		return
	}
	dataMin := sorted[0].num
	dataMax := sorted[len(sorted)-1].num
	interval := (dataMax - dataMin) / float64(bins)

	pointer := 0
	for i := 0; i < bins; i++ {
		lo := dataMin + interval*float64(i)
		hi := lo + interval
		if i == bins-1 {
			hi = dataMax
		}

		idx := b.add(models.LegendClass{
			Kind: models.ClassRange,
			Min:  utils.Round2(lo),
			Max:  utils.Round2(hi),
		})
		for pointer < len(sorted) && sorted[pointer].num <= hi {
			b.assign(sorted[pointer], idx)
			pointer++
		}
	}
}

// colorize assigns palette colors once every class exists, since the
// distribution depends on the final class count.
func (b *builder) colorize() {
	paletteID, palette := resolvePalette(b.cfg.Color)
	grays := specialColors(b.specials)

	amt := len(b.classes) - b.specials
	if amt < 1 {
		amt = 1
	}
	if amt > models.MaxLegendItems {
		amt = models.MaxLegendItems
	}
	dist := colorDistributions[amt]

	for i := range b.classes {
		if b.classes[i].Kind == models.ClassSpecial {
			b.classes[i].Color = grays[i]
			continue
		}

		pos := i - b.specials
		if IsQualitative(paletteID) {
			b.classes[i].Color = palette[pos%len(palette)]
			continue
		}
		// Categories on a sequential palette spread over the
		// distribution table like numeric bins do.
		if pos >= len(dist) {
			pos = len(dist) - 1
		}
		b.classes[i].Color = palette[dist[pos]]
	}
}
