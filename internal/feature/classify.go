package feature

import (
	"slices"
	"strings"
	"unicode/utf8"
)

// Groups is the display partition of a result set.
type Groups struct {
	Dimensions []Feature
	GDT        []Feature
}

// Len is the total number of features across both groups.
func (g Groups) Len() int { return len(g.Dimensions) + len(g.GDT) }

// Classify partitions features by type, keeping input order inside each
// group. Anything that is not GD&T lands in Dimensions so the partition is
// total even for records built outside Parse.
func Classify(features []Feature) Groups {
	var g Groups
	for _, f := range features {
		if f.IsGDT() {
			g.GDT = append(g.GDT, f)
			continue
		}
		g.Dimensions = append(g.Dimensions, f)
	}
	return g
}

// SortForDisplay returns a copy with dimensions first and GD&T second.
// Equal types keep their input order.
func SortForDisplay(features []Feature) []Feature {
	out := slices.Clone(features)
	slices.SortStableFunc(out, func(a, b Feature) int {
		return rank(a) - rank(b)
	})
	return out
}

func rank(f Feature) int {
	if f.IsGDT() {
		return 1
	}
	return 0
}

var symbols = map[string]string{
	"concentricity":      "◎",
	"position":           "⌖",
	"perpendicularity":   "⏊",
	"parallelism":        "∥",
	"flatness":           "⏥",
	"straightness":       "—",
	"cylindricity":       "⌭",
	"profile of surface": "⏦",
	"profile of a line":  "⌒",
	"circularity":        "○",
	"angularity":         "∠",
	"symmetry":           "⌯",
	"runout":             "↗",
	"total runout":       "⌰",
}

// SymbolFor maps a GD&T subtype to its characteristic symbol. Unknown
// subtypes fall back to their first character, and empty ones to "?".
func SymbolFor(subtype string) string {
	s := strings.TrimSpace(subtype)
	if s == "" {
		return "?"
	}
	if sym, ok := symbols[strings.ToLower(strings.Join(strings.Fields(s), " "))]; ok {
		return sym
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return "?"
	}
	return string(r)
}
