package responsive

import "math"

// FallbackMaxWidth bounds ratio-driven sizing when no breakpoint table is
// configured at all.
const FallbackMaxWidth = 1200

// Profile bundles the parsed tables a resolver works against. A nil table is
// tolerated; resolution then falls back to FallbackMaxWidth and 1:1.
type Profile struct {
	Breakpoints *BreakpointTable
	Ratios      *RatioTable
}

// Dimensions is the result of a Calculate call.
type Dimensions struct {
	Width    int
	Height   int
	MaxWidth int
	Ratio    float64
}

// maxWidthFor resolves the breakpoint ceiling: the named breakpoint if given,
// else the table default, else the hard fallback.
func (p *Profile) maxWidthFor(breakpointKey string) int {
	if p != nil && p.Breakpoints != nil {
		if breakpointKey != "" {
			if bp, ok := p.Breakpoints.ByKey[breakpointKey]; ok {
				return bp.Value
			}
		}
		if bp, ok := p.Breakpoints.Default(); ok {
			return bp.Value
		}
	}
	return FallbackMaxWidth
}

// ratioFor resolves the named ratio, or the table default, into a
// height-per-width multiplier. Entries without two numeric components and
// missing tables both come out as 1:1; a zero width unit is substituted
// with 1 to keep the division defined.
func (p *Profile) ratioFor(ratioKey string) float64 {
	entry := Ratio{}
	if p != nil && p.Ratios != nil {
		if ratioKey != "" {
			if r, ok := p.Ratios.ByKey[ratioKey]; ok {
				entry = r
			}
		}
		if entry.Key == "" {
			if r, ok := p.Ratios.Default(); ok {
				entry = r
			}
		}
	}
	if !entry.Valid {
		return 1
	}
	w := entry.WUnits
	if w == 0 {
		w = 1
	}
	return entry.HUnits / w
}

// Calculate resolves target dimensions. Ratio-driven sizing clamps the width
// to the breakpoint ceiling and always derives the height from the ratio;
// free-form sizing takes the requested dimensions as given and only fills in
// what is missing. The asymmetry is deliberate.
func (p *Profile) Calculate(width, height int, ratioKey, breakpointKey string) Dimensions {
	maxWidth := p.maxWidthFor(breakpointKey)
	ratio := p.ratioFor(ratioKey)

	var w, h int
	if ratioKey != "" {
		w = maxWidth
		if width > 0 && width < maxWidth {
			w = width
		}
		h = int(math.Ceil(float64(w) * ratio))
	} else {
		w = width
		if w == 0 {
			w = maxWidth
		}
		h = height
		if h == 0 {
			h = int(math.Ceil(float64(w) * ratio))
		}
	}

	return Dimensions{Width: w, Height: h, MaxWidth: maxWidth, Ratio: ratio}
}
