// Package models defines the core data structures shared by the legend
// classifier, the data-bite aggregator and the widget loader.
package models

import (
	"math"
	"strconv"
	"strings"
)

// Row is a single record of a tabular dataset, keyed by column name.
// Values are whatever encoding/json produces: string, float64, bool or nil.
type Row map[string]any

// Dataset is an ordered sequence of rows.
type Dataset []Row

// Value returns the value stored under column and whether it is defined.
// A present key holding nil counts as undefined.
func (r Row) Value(column string) (any, bool) {
	v, ok := r[column]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Column extracts the raw values of a column, skipping rows where it is undefined.
func (d Dataset) Column(column string) []any {
	out := make([]any, 0, len(d))
	for _, row := range d {
		if v, ok := row.Value(column); ok {
			out = append(out, v)
		}
	}
	return out
}

// ToNumber converts v to a finite float64.
// Numbers and numeric strings convert; nil, booleans, empty strings and
// anything that parses to NaN or ±Inf do not.
func ToNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// isNumber reports whether v holds a Go numeric type (not a numeric string).
func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// ValuesEqual compares two cell values with type awareness:
// the number 1 equals the number 1.0 but not the string "1".
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if isNumber(a) && isNumber(b) {
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return false
}

// toFloat converts a Go numeric type without the finiteness check.
func toFloat(v any) (float64, bool) {
	if !isNumber(v) {
		return 0, false
	}
	if f, ok := ToNumber(v); ok {
		return f, true
	}
	// NaN and ±Inf only reach here for float types.
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

// ValueKey returns a type-tagged string usable as a map key for a cell value.
// Two values have the same key iff ValuesEqual reports them equal.
func ValueKey(v any) string {
	if v == nil {
		return "null"
	}
	if isNumber(v) {
		f, _ := toFloat(v)
		return "n:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	switch t := v.(type) {
	case string:
		return "s:" + t
	case bool:
		return "b:" + strconv.FormatBool(t)
	}
	return "?"
}

// CompareValues orders values naturally: numbers first in numeric order,
// then strings lexicographically, then everything else.
func CompareValues(a, b any) int {
	ra, rb := valueRank(a), valueRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 1:
		return strings.Compare(a.(string), b.(string))
	}
	return 0
}

func valueRank(v any) int {
	if isNumber(v) {
		return 0
	}
	if _, ok := v.(string); ok {
		return 1
	}
	return 2
}

// ContainsValue reports whether v is ValuesEqual to any member of set.
func ContainsValue(set []any, v any) bool {
	for _, s := range set {
		if ValuesEqual(s, v) {
			return true
		}
	}
	return false
}
