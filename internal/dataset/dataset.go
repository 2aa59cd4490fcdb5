// Package dataset prepares widget data for display: runtime filters, the
// filtered view, and numeric normalization of the primary column.
package dataset

import (
	"strconv"

	"github.com/seenimoa/openviz/pkg/models"
)

// UniqueValues returns the distinct defined values of column in
// first-encounter order.
func UniqueValues(ds models.Dataset, column string) []any {
	seen := make(map[string]bool)
	var out []any
	for _, row := range ds {
		v, ok := row.Value(column)
		if !ok {
			continue
		}
		key := models.ValueKey(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// RuntimeFilters resolves configured filters against ds. Each filter gets
// the column's distinct values; Active keeps its configured value when that
// value exists and otherwise defaults to the first value found. Filters
// without a column are dropped.
func RuntimeFilters(ds models.Dataset, filters []models.Filter) []models.Filter {
	out := make([]models.Filter, 0, len(filters))
	for _, f := range filters {
		if f.ColumnName == "" {
			continue
		}
		f.Values = UniqueValues(ds, f.ColumnName)
		if f.Active == nil || !models.ContainsValue(f.Values, f.Active) {
			f.Active = nil
			if len(f.Values) > 0 {
				f.Active = f.Values[0]
			}
		}
		out = append(out, f)
	}
	return out
}

// Apply returns the rows of ds matching the active value of every filter.
// Filters with no active value do not restrict anything.
func Apply(ds models.Dataset, filters []models.Filter) models.Dataset {
	out := make(models.Dataset, 0, len(ds))
rows:
	for _, row := range ds {
		for _, f := range filters {
			if f.ColumnName == "" || f.Active == nil {
				continue
			}
			v, _ := row.Value(f.ColumnName)
			if !models.ValuesEqual(v, f.Active) {
				continue rows
			}
		}
		out = append(out, row)
	}
	return out
}

// NormalizeNumbers returns a copy of ds where string values of column that
// consist only of digits and dots, and parse as a number, become float64.
// Rows are copied only when they change.
func NormalizeNumbers(ds models.Dataset, column string) models.Dataset {
	out := make(models.Dataset, len(ds))
	for i, row := range ds {
		out[i] = row
		s, ok := row[column].(string)
		if !ok || !numericOnly(s) {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			continue
		}
		cp := make(models.Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		cp[column] = f
		out[i] = cp
	}
	return out
}

func numericOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return false
		}
	}
	return true
}
