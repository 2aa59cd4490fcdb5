package legend

import (
	"sort"
	"strings"
)

// DefaultPalette is used when a config names a palette that does not exist.
const DefaultPalette = "bluegreen"

// Nine stops per palette so every entry of the distribution table resolves.
var sequentialPalettes = map[string][]string{
	"yelloworangered":   {"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#bd0026", "#800026"},
	"yelloworangebrown": {"#ffffe5", "#fff7bc", "#fee391", "#fec44f", "#fe9929", "#ec7014", "#cc4c02", "#993404", "#662506"},
	"pinkpurple":        {"#fff7f3", "#fde0dd", "#fcc5c0", "#fa9fb5", "#f768a1", "#dd3497", "#ae017e", "#7a0177", "#49006a"},
	"purplebluegreen":   {"#fff7fb", "#ece2f0", "#d0d1e6", "#a6bddb", "#67a9cf", "#3690c0", "#02818a", "#016c59", "#014636"},
	"bluegreen":         {"#f7fcf0", "#e0f3db", "#ccebc5", "#a8ddb5", "#7bccc4", "#4eb3d3", "#2b8cbe", "#0868ac", "#084081"},
	"orangered":         {"#fff7ec", "#fee8c8", "#fdd49e", "#fdbb84", "#fc8d59", "#ef6548", "#d7301f", "#b30000", "#7f0000"},
	"red":               {"#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#a50f15", "#67000d"},
	"green":             {"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b"},
	"blue":              {"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5", "#08519c", "#08306b"},
}

var qualitativePalettes = map[string][]string{
	"qualitative1": {"#e41a1c", "#377eb8", "#4daf4a", "#984ea3", "#ff7f00", "#ffff33", "#a65628", "#f781bf", "#999999"},
	"qualitative2": {"#1b9e77", "#d95f02", "#7570b3", "#e7298a", "#66a61e", "#e6ab02", "#a6761d", "#666666", "#1f78b4"},
	"qualitative3": {"#66c2a5", "#fc8d62", "#8da0cb", "#e78ac3", "#a6d854", "#ffd92f", "#e5c494", "#b3b3b3", "#8dd3c7"},
	"qualitative4": {"#a6cee3", "#1f78b4", "#b2df8a", "#33a02c", "#fb9a99", "#e31a1c", "#fdbf6f", "#ff7f00", "#cab2d6"},
}

// colorDistributions spreads n classes across a nine-stop sequential palette.
var colorDistributions = map[int][]int{
	1: {1},
	2: {1, 3},
	3: {1, 3, 5},
	4: {0, 2, 4, 6},
	5: {0, 2, 4, 6, 7},
	6: {0, 2, 3, 4, 5, 7},
	7: {0, 2, 3, 4, 5, 6, 7},
	8: {0, 2, 3, 4, 5, 6, 7, 8},
	9: {0, 1, 2, 3, 4, 5, 6, 7, 8},
}

// Palette returns the colors for id and whether id was found.
// Every sequential palette also exists reversed under "<id>reverse".
func Palette(id string) ([]string, bool) {
	if p, ok := qualitativePalettes[id]; ok {
		return p, true
	}
	if p, ok := sequentialPalettes[id]; ok {
		return p, true
	}
	if base, ok := strings.CutSuffix(id, "reverse"); ok {
		if p, ok := sequentialPalettes[base]; ok {
			return reversed(p), true
		}
	}
	return nil, false
}

// resolvePalette falls back to DefaultPalette for unknown ids.
func resolvePalette(id string) (string, []string) {
	if p, ok := Palette(id); ok {
		return id, p
	}
	p, _ := Palette(DefaultPalette)
	return DefaultPalette, p
}

// IsQualitative reports whether id names a categorical palette.
func IsQualitative(id string) bool {
	return strings.Contains(id, "qualitative")
}

// PaletteIDs lists every known palette id, sorted.
func PaletteIDs() []string {
	ids := make([]string, 0, len(sequentialPalettes)*2+len(qualitativePalettes))
	for id := range sequentialPalettes {
		ids = append(ids, id, id+"reverse")
	}
	for id := range qualitativePalettes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func reversed(p []string) []string {
	out := make([]string, len(p))
	for i, c := range p {
		out[len(p)-1-i] = c
	}
	return out
}
