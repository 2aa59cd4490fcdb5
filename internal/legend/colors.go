package legend

import (
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Gray ramp for special classes such as "No Data".
const (
	specialLight = "#D4D4D4"
	specialDark  = "#939393"
)

// DefaultColor is used for rows that have no legend class.
const DefaultColor = "#000000"

// Lab lightness step for darken/brighten and LCh chroma step for saturate,
// in go-colorful's 0..1 units.
const shadeStep = 0.18

// specialColors samples n colors evenly across the special gray ramp,
// endpoints included. A single class takes the midpoint.
func specialColors(n int) []string {
	if n <= 0 {
		return nil
	}
	light, _ := colorful.Hex(specialLight)
	dark, _ := colorful.Hex(specialDark)

	if n == 1 {
		return []string{light.BlendRgb(dark, 0.5).Hex()}
	}
	out := make([]string, n)
	for i := range out {
		t := float64(i) / float64(n-1)
		out[i] = light.BlendRgb(dark, t).Hex()
	}
	return out
}

// Shades returns the base, hover and active colors for a class color.
// Hover brightens special classes and saturates the rest; active darkens.
func Shades(hex string, special bool) []string {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(DefaultColor)
		hex = DefaultColor
	}

	var hover colorful.Color
	if special {
		hover = darken(c, -0.5)
	} else {
		hover = saturate(c, 1.3)
	}

	return []string{hex, hover.Clamped().Hex(), darken(c, 0.3).Clamped().Hex()}
}

func darken(c colorful.Color, amount float64) colorful.Color {
	l, a, b := c.Lab()
	return colorful.Lab(l-shadeStep*amount, a, b)
}

func saturate(c colorful.Color, amount float64) colorful.Color {
	h, chroma, l := c.Hcl()
	chroma += shadeStep * amount
	if chroma < 0 {
		chroma = 0
	}
	return colorful.Hcl(h, chroma, l)
}
