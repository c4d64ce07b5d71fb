package feature

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind is the top-level classification reported by the backend.
type Kind string

const (
	KindDimension Kind = "Dimension"
	KindGDT       Kind = "GD&T"
)

// Feature is one extracted measurement or symbol record.
type Feature struct {
	Type             Kind    `json:"type"`
	Subtype          string  `json:"subtype"`
	Value            string  `json:"value"`
	Tolerance        string  `json:"tolerance,omitempty"`
	Datum            string  `json:"datum,omitempty"`
	Page             int     `json:"page"`
	OriginalText     string  `json:"original_text"`
	Box              *Region `json:"box_2d,omitempty"`
	CalculatedLimits string  `json:"calculated_limits,omitempty"`
}

// IsGDT reports whether the record is a GD&T annotation.
func (f Feature) IsGDT() bool { return f.Type == KindGDT }

// Limits returns the backend-calculated limits, falling back to the local
// ISO fit table for dimension tolerances such as "H7".
func (f Feature) Limits() string {
	if f.CalculatedLimits != "" {
		return f.CalculatedLimits
	}
	if f.Type != KindDimension {
		return ""
	}
	if l, ok := ISOLimits(f.Value, f.Tolerance); ok {
		return l
	}
	return ""
}

// ErrNoResults is returned when an upload response lacks the results array.
var ErrNoResults = errors.New("feature: response has no results")

// ParseResult is the outcome of Parse. Dropped counts records whose type was
// neither a dimension nor a GD&T annotation.
type ParseResult struct {
	Features []Feature
	Dropped  int
}

type wireFeature struct {
	Type             string          `json:"type"`
	Subtype          string          `json:"subtype"`
	Value            json.RawMessage `json:"value"`
	Tolerance        json.RawMessage `json:"tolerance"`
	Datum            json.RawMessage `json:"datum"`
	Page             json.RawMessage `json:"page"`
	OriginalText     string          `json:"original_text"`
	Box              json.RawMessage `json:"box_2d"`
	CalculatedLimits string          `json:"calculated_limits"`
}

// Parse decodes an upload response body of the form {"results": [...]}.
func Parse(body []byte) (ParseResult, error) {
	var envelope struct {
		Results *[]wireFeature `json:"results"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ParseResult{}, fmt.Errorf("feature: decode response: %w", err)
	}
	if envelope.Results == nil {
		return ParseResult{}, ErrNoResults
	}
	out := ParseResult{Features: make([]Feature, 0, len(*envelope.Results))}
	for _, w := range *envelope.Results {
		kind, ok := parseKind(w.Type)
		if !ok {
			out.Dropped++
			continue
		}
		f := Feature{
			Type:             kind,
			Subtype:          strings.TrimSpace(w.Subtype),
			Value:            looseString(w.Value),
			Tolerance:        looseString(w.Tolerance),
			Datum:            looseString(w.Datum),
			Page:             loosePage(w.Page),
			OriginalText:     w.OriginalText,
			CalculatedLimits: w.CalculatedLimits,
		}
		if r, ok := parseBox(w.Box); ok {
			f.Box = &r
		}
		out.Features = append(out.Features, f)
	}
	return out, nil
}

func parseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dimension":
		return KindDimension, true
	case "gd&t", "gdt":
		return KindGDT, true
	}
	return "", false
}

// looseString accepts strings, numbers and null; vision models are not
// consistent about quoting numeric values.
func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func loosePage(raw json.RawMessage) int {
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 1
		}
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%g", &n); err != nil {
			return 1
		}
	}
	if n < 1 {
		return 1
	}
	return int(n)
}

func parseBox(raw json.RawMessage) (Region, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Region{}, false
	}
	var vals []float64
	if err := json.Unmarshal(raw, &vals); err != nil || len(vals) != 4 {
		return Region{}, false
	}
	return NewRegion(vals[0], vals[1], vals[2], vals[3]), true
}
