// Package utils provides value formatting shared by data bites, legends and
// tooltip text.
package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/seenimoa/openviz/pkg/models"
)

// FormatNumber renders a float the way the widgets print plain numbers:
// shortest round-trip digits, fixed notation for 1e-6 <= |v| < 1e21 and
// exponent notation (1e+21, 1.5e-7) outside that range.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case v == 0:
		return "0"
	}

	abs := math.Abs(v)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	// Go writes e-07 / e+21; drop the zero padding of the exponent.
	s := strconv.FormatFloat(v, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mant + "e" + sign + digits
}

// FormatFixed renders v with exactly places fractional digits, rounding
// half away from zero on the shortest decimal representation of v.
func FormatFixed(v float64, places int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return FormatNumber(v)
	}
	if places < 0 {
		return FormatNumber(v)
	}
	return decimal.NewFromFloat(v).StringFixed(int32(places))
}

// Round2 rounds v to two decimal places for legend display.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatWithCommas formats v with en-US thousands separators and at most
// three fractional digits, e.g. 1234567.891 → "1,234,567.891".
func FormatWithCommas(v float64) string {
	return groupThousands(decimal.NewFromFloat(v).Round(3).String())
}

// FormatRoundedWithCommas rounds v to places and then groups it like
// FormatWithCommas, so trailing zeros from the rounding are not kept:
// 1234.5 at 2 places → "1,234.5".
func FormatRoundedWithCommas(v float64, places int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return FormatNumber(v)
	}
	return FormatWithCommas(decimal.NewFromFloat(v).Round(int32(places)).InexactFloat64())
}

// groupThousands inserts commas into the integer part of a plain decimal string.
func groupThousands(s string) string {
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	result := b.String()
	if hasFrac {
		result += "." + frac
	}
	if negative {
		return "-" + result
	}
	return result
}

// DisplayValue formats a cell value for tooltips and data tables.
// Numeric values are rounded and comma-grouped per the column settings;
// prefix and suffix are added unless the value is one of the special classes.
func DisplayValue(value any, col models.Column, specials []any) string {
	if value == nil {
		return ""
	}

	formatted := fmt.Sprint(value)
	if n, ok := models.ToNumber(value); ok {
		formatted = FormatNumber(n)
		if _, isString := value.(string); isString {
			formatted = value.(string)
		}
		switch {
		case col.RoundToPlace != nil && *col.RoundToPlace >= 0 && col.UseCommas:
			formatted = FormatRoundedWithCommas(n, *col.RoundToPlace)
		case col.RoundToPlace != nil && *col.RoundToPlace >= 0:
			formatted = FormatFixed(n, *col.RoundToPlace)
		case col.UseCommas:
			formatted = FormatWithCommas(n)
		}
	}

	if models.ContainsValue(specials, value) {
		return formatted
	}
	return col.Prefix + formatted + col.Suffix
}
