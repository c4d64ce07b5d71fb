package feature

import (
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Search filters features by a free-text query against the subtype, value
// and original text. Substring hits rank first, then near misses within a
// small edit distance. Ties keep input order; an empty query returns all.
func Search(features []Feature, query string) []Feature {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(features)
	}
	budget := max(1, len([]rune(q))/3)

	type hit struct {
		f     Feature
		score int
	}
	var hits []hit
	for _, f := range features {
		best := -1
		for _, field := range []string{f.Subtype, f.Value, f.OriginalText, f.Tolerance, f.Datum} {
			field = strings.ToLower(field)
			if field == "" {
				continue
			}
			if strings.Contains(field, q) {
				best = 0
				break
			}
			for _, tok := range strings.Fields(field) {
				d := levenshtein.ComputeDistance(q, tok)
				if d <= budget && (best < 0 || d < best) {
					best = d
				}
			}
		}
		if best >= 0 {
			hits = append(hits, hit{f: f, score: best})
		}
	}
	slices.SortStableFunc(hits, func(a, b hit) int { return a.score - b.score })
	out := make([]Feature, len(hits))
	for i, h := range hits {
		out[i] = h.f
	}
	return out
}
