package legend

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/seenimoa/openviz/pkg/models"
)

// Fingerprint derives a lookup key from a row's content. Column order does
// not matter; two rows share a fingerprint iff they hold the same
// column/value pairs (up to 64-bit hash collisions).
func Fingerprint(row models.Row) string {
	d := xxhash.New()
	writeRow(d, row)
	return fmt.Sprintf("%016x", d.Sum64())
}

func writeRow(d *xxhash.Digest, row models.Row) {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		writeField(d, k)
		writeField(d, cellKey(row[k]))
	}
}

// writeField length-prefixes s so adjacent fields cannot run together.
func writeField(d *xxhash.Digest, s string) {
	_, _ = d.WriteString(strconv.Itoa(len(s)))
	_, _ = d.WriteString(":")
	_, _ = d.WriteString(s)
}

// cellKey extends models.ValueKey to nested JSON values.
func cellKey(v any) string {
	if k := models.ValueKey(v); k != "?" {
		return k
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("x:%v", v)
	}
	return "j:" + string(b)
}

// CacheKey hashes a dataset together with a legend config. Any change to
// either, including row order, yields a different key.
func CacheKey(ds models.Dataset, cfg models.LegendConfig) string {
	d := xxhash.New()
	for _, row := range ds {
		writeField(d, "row")
		writeRow(d, row)
	}
	writeField(d, "cfg")
	writeField(d, configKey(cfg))
	return fmt.Sprintf("%016x", d.Sum64())
}

func configKey(cfg models.LegendConfig) string {
	specials := make([]string, len(cfg.SpecialClasses))
	for i, v := range cfg.SpecialClasses {
		specials[i] = cellKey(v)
	}
	order := make([]string, len(cfg.CategoryValuesOrder))
	for i, v := range cfg.CategoryValuesOrder {
		order[i] = cellKey(v)
	}
	b, _ := json.Marshal(struct {
		Primary  string   `json:"p"`
		Type     string   `json:"t"`
		Items    int      `json:"n"`
		Specials []string `json:"s"`
		Zero     bool     `json:"z"`
		Order    []string `json:"o"`
		Unified  bool     `json:"u"`
		Color    string   `json:"c"`
	}{cfg.PrimaryColumn, string(cfg.Type), cfg.NumberOfItems, specials, cfg.SeparateZero, order, cfg.Unified, cfg.Color})
	return string(b)
}
