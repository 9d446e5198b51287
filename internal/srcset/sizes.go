package srcset

import (
	"fmt"
	"math"

	"variant-server/internal/logging"
	"variant-server/internal/responsive"
	"variant-server/internal/variant"
)

// RegisterNamedSizes populates the named-size table: every aspect ratio
// crossed with every column fraction, sized against the default breakpoint
// width. Whole fractions register under the bare ratio key, partial ones
// under "<ratio>-<num>-<den>".
func RegisterNamedSizes(sizes *variant.Sizes, profile *responsive.Profile, fractions []responsive.Fraction) {
	if profile == nil || profile.Ratios == nil {
		return
	}

	baseWidth := responsive.FallbackMaxWidth
	if bp, ok := profile.Breakpoints.Default(); ok {
		baseWidth = bp.Value
	}

	for _, ratioKey := range profile.Ratios.Order {
		for _, frac := range fractions {
			width := int(math.Ceil(float64(baseWidth) * float64(frac.Num) / float64(frac.Den)))
			dims := profile.Calculate(width, 0, ratioKey, "")

			name := ratioKey
			if !frac.Whole() {
				name = fmt.Sprintf("%s-%d-%d", ratioKey, frac.Num, frac.Den)
			}
			sizes.Register(name, variant.Size{Width: dims.Width, Height: dims.Height})
		}
	}
	logging.Debug("registered %d named sizes from %d ratios x %d fractions",
		sizes.Len(), len(profile.Ratios.Order), len(fractions))
}
