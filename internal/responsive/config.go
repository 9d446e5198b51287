package responsive

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrConfig indicates a malformed responsive configuration. Parsing fails
// fast at startup rather than degrading to an empty table.
var ErrConfig = errors.New("responsive: malformed configuration")

// Breakpoint is a named maximum pixel width used as a responsive tier.
type Breakpoint struct {
	Key   string
	Label string
	Value int
}

// Ratio is a named width:height proportion. An entry whose value did not
// parse into two numeric components keeps Valid=false and resolves as 1:1.
type Ratio struct {
	Key    string
	Label  string
	WUnits float64
	HUnits float64
	Valid  bool
}

// BreakpointTable holds parsed breakpoints keyed for lookup, with insertion
// order preserved for display.
type BreakpointTable struct {
	DefaultKey string
	ByKey      map[string]Breakpoint
	Order      []string
}

// Default returns the table's default breakpoint.
func (t *BreakpointTable) Default() (Breakpoint, bool) {
	if t == nil || t.DefaultKey == "" {
		return Breakpoint{}, false
	}
	bp, ok := t.ByKey[t.DefaultKey]
	return bp, ok
}

// RatioTable holds parsed aspect ratios keyed for lookup, with insertion
// order preserved for display.
type RatioTable struct {
	DefaultKey string
	ByKey      map[string]Ratio
	Order      []string
}

// Default returns the table's default ratio.
func (t *RatioTable) Default() (Ratio, bool) {
	if t == nil || t.DefaultKey == "" {
		return Ratio{}, false
	}
	r, ok := t.ByKey[t.DefaultKey]
	return r, ok
}

// Fraction is a grid column fraction such as 1/2 or 2/3.
type Fraction struct {
	Num int
	Den int
}

// Whole reports whether the fraction spans the full width.
func (f Fraction) Whole() bool {
	return f.Num == f.Den
}

// entryLine is one parsed configuration line before value interpretation.
type entryLine struct {
	rawValue  string
	key       string
	label     string
	isDefault bool
}

// splitEntry breaks a single non-empty line into its value, key and label
// parts. Lines without "=" use the value as both key and label.
func splitEntry(line string) entryLine {
	var e entryLine
	if idx := strings.Index(line, "="); idx >= 0 {
		e.rawValue = strings.TrimSpace(line[:idx])
		line = strings.TrimSpace(line[idx+1:])
	} else {
		e.rawValue = line
	}
	if idx := strings.Index(line, "|"); idx >= 0 {
		e.key = strings.TrimSpace(line[:idx])
		e.label = strings.TrimSpace(line[idx+1:])
	} else {
		e.key = line
		e.label = ""
	}
	if strings.HasPrefix(e.key, "+") {
		e.isDefault = true
		e.key = e.key[1:]
		// Bare-value lines carry the marker in the value too.
		if e.rawValue == "+"+e.key {
			e.rawValue = e.key
		}
	}
	if e.label == "" {
		e.label = e.key
	}
	return e
}

// parseLines splits the config body into entry lines, skipping blanks.
func parseLines(body string) []entryLine {
	var entries []entryLine
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		entries = append(entries, splitEntry(line))
	}
	return entries
}

// ParseBreakpoints parses a breakpoint table. Duplicate keys overwrite
// earlier entries (last wins); without an explicit + marker the first parsed
// entry becomes the default.
func ParseBreakpoints(body string) (*BreakpointTable, error) {
	entries := parseLines(body)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no breakpoint entries", ErrConfig)
	}
	t := &BreakpointTable{ByKey: make(map[string]Breakpoint, len(entries))}
	for _, e := range entries {
		value, err := strconv.Atoi(e.rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: breakpoint %q: value %q is not an integer", ErrConfig, e.key, e.rawValue)
		}
		if _, seen := t.ByKey[e.key]; !seen {
			t.Order = append(t.Order, e.key)
		}
		t.ByKey[e.key] = Breakpoint{Key: e.key, Label: e.label, Value: value}
		if e.isDefault || t.DefaultKey == "" {
			t.DefaultKey = e.key
		}
	}
	return t, nil
}

// ParseRatios parses an aspect-ratio table. A value that does not split into
// two numeric components is kept with Valid=false and treated as 1:1 at
// resolution time rather than rejected here.
func ParseRatios(body string) (*RatioTable, error) {
	entries := parseLines(body)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no ratio entries", ErrConfig)
	}
	t := &RatioTable{ByKey: make(map[string]Ratio, len(entries))}
	for _, e := range entries {
		r := Ratio{Key: e.key, Label: e.label}
		parts := strings.Split(e.rawValue, ":")
		if len(parts) == 2 {
			w, werr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
			h, herr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
			if werr == nil && herr == nil {
				r.WUnits = w
				r.HUnits = h
				r.Valid = true
			}
		}
		if _, seen := t.ByKey[e.key]; !seen {
			t.Order = append(t.Order, e.key)
		}
		t.ByKey[e.key] = r
		if e.isDefault || t.DefaultKey == "" {
			t.DefaultKey = e.key
		}
	}
	return t, nil
}

// ParseFactors parses a comma-separated list of scale factors into an
// ascending slice. Factors must be positive reals.
func ParseFactors(body string) ([]float64, error) {
	var factors []float64
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: scale factor %q is not a number", ErrConfig, part)
		}
		if f <= 0 {
			return nil, fmt.Errorf("%w: scale factor %v must be positive", ErrConfig, f)
		}
		factors = append(factors, f)
	}
	if len(factors) == 0 {
		return nil, fmt.Errorf("%w: no scale factors", ErrConfig)
	}
	sort.Float64s(factors)
	return factors, nil
}

// ParseFractions parses a comma-separated list of column fractions such as
// "1/2, 1/3, 2/3, 1". A bare integer n is read as n/1.
func ParseFractions(body string) ([]Fraction, error) {
	var fractions []Fraction
	for _, part := range strings.Split(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		numStr, denStr := part, "1"
		if idx := strings.Index(part, "/"); idx >= 0 {
			numStr = strings.TrimSpace(part[:idx])
			denStr = strings.TrimSpace(part[idx+1:])
		}
		num, err := strconv.Atoi(numStr)
		if err != nil {
			return nil, fmt.Errorf("%w: fraction %q: numerator is not an integer", ErrConfig, part)
		}
		den, err := strconv.Atoi(denStr)
		if err != nil {
			return nil, fmt.Errorf("%w: fraction %q: denominator is not an integer", ErrConfig, part)
		}
		if num <= 0 || den <= 0 {
			return nil, fmt.Errorf("%w: fraction %q must be positive", ErrConfig, part)
		}
		fractions = append(fractions, Fraction{Num: num, Den: den})
	}
	if len(fractions) == 0 {
		return nil, fmt.Errorf("%w: no column fractions", ErrConfig)
	}
	return fractions, nil
}
