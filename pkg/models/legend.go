package models

import (
	"fmt"
	"strconv"
	"strings"
)

// LegendType selects the binning strategy.
type LegendType string

const (
	LegendEqualNumber   LegendType = "equalnumber"
	LegendEqualInterval LegendType = "equalinterval"
	LegendCategory      LegendType = "category"
)

// MaxLegendItems is the largest number of classes a legend may request.
const MaxLegendItems = 9

// ParseLegendType accepts the canonical names plus the hyphenated and
// "categorical" spellings used by older configs.
func ParseLegendType(s string) (LegendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equalnumber", "equal-number", "equal_number":
		return LegendEqualNumber, nil
	case "equalinterval", "equal-interval", "equal_interval":
		return LegendEqualInterval, nil
	case "category", "categorical":
		return LegendCategory, nil
	}
	return "", fmt.Errorf("unknown legend type %q", s)
}

// LegendConfig is the declarative description of a legend.
type LegendConfig struct {
	PrimaryColumn       string     `json:"primaryColumn"       yaml:"primaryColumn"`
	Type                LegendType `json:"type"                yaml:"type"`
	NumberOfItems       int        `json:"numberOfItems"       yaml:"numberOfItems"`
	SpecialClasses      []any      `json:"specialClasses"      yaml:"specialClasses"`
	SeparateZero        bool       `json:"separateZero"        yaml:"separateZero"`
	CategoryValuesOrder []any      `json:"categoryValuesOrder" yaml:"categoryValuesOrder"`
	Unified             bool       `json:"unified"             yaml:"unified"`
	Color               string     `json:"color"               yaml:"color"` // palette id
}

// LegendClassKind tags what a legend class represents.
type LegendClassKind string

const (
	ClassSpecial  LegendClassKind = "special"
	ClassZero     LegendClassKind = "zero"
	ClassRange    LegendClassKind = "range"
	ClassCategory LegendClassKind = "category"
)

// LegendClass is one bin of a legend. Min/Max are meaningful for range and
// zero classes, Value for special and category classes.
type LegendClass struct {
	Index    int             `json:"index"`
	Kind     LegendClassKind `json:"kind"`
	Min      float64         `json:"min"`
	Max      float64         `json:"max"`
	Value    any             `json:"value,omitempty"`
	Color    string          `json:"color"`
	Disabled bool            `json:"disabled,omitempty"`
}

// Label renders the class the way a legend list shows it.
func (c LegendClass) Label() string {
	switch c.Kind {
	case ClassRange:
		if c.Min == c.Max {
			return strconv.FormatFloat(c.Min, 'f', -1, 64)
		}
		return strconv.FormatFloat(c.Min, 'f', -1, 64) + " - " + strconv.FormatFloat(c.Max, 'f', -1, 64)
	case ClassZero:
		return "0"
	}
	return fmt.Sprint(c.Value)
}

// RowBinLookup maps a row fingerprint to a legend class index.
type RowBinLookup map[string]int

// Filter restricts a dataset to rows whose ColumnName equals Active.
type Filter struct {
	ColumnName string `json:"columnName" yaml:"columnName"`
	Label      string `json:"label"      yaml:"label"`
	Active     any    `json:"active"     yaml:"active"`
	Values     []any  `json:"values,omitempty" yaml:"values,omitempty"`
}

// Column describes how a dataset column is labeled and formatted for display.
type Column struct {
	Name         string `json:"name"         yaml:"name"`
	Label        string `json:"label"        yaml:"label"`
	Prefix       string `json:"prefix"       yaml:"prefix"`
	Suffix       string `json:"suffix"       yaml:"suffix"`
	RoundToPlace *int   `json:"roundToPlace,omitempty" yaml:"roundToPlace,omitempty"`
	UseCommas    bool   `json:"useCommas"    yaml:"useCommas"`
	Tooltip      bool   `json:"tooltip"      yaml:"tooltip"`
}
