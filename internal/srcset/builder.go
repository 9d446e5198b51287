package srcset

import (
	"fmt"
	"html/template"
	"math"
	"sort"
	"strings"

	"variant-server/internal/responsive"
	"variant-server/internal/variant"
)

// SnapThreshold is the proximity, in pixels, at which a computed width
// snaps onto the source's native width instead of forcing a re-encode a
// few pixels away from it.
const SnapThreshold = 150

// ratioEpsilon bounds how far the target ratio may drift from the native
// one before a snapped width stops reusing the native height.
const ratioEpsilon = 0.01

// Deriver resolves one width/height pair into a servable derivative
// reference. The service layer implements it; tests stub it.
type Deriver interface {
	Derive(src variant.Source, width, height int, opts variant.Options) (string, error)
}

// Pair is one rung of the width ladder.
type Pair struct {
	Width  int
	Height int
}

// Builder computes width ladders from the configured scale factors.
type Builder struct {
	profile *responsive.Profile
	factors []float64
}

// NewBuilder wires a builder to the parsed responsive profile and factor
// list. factors are assumed ascending, as ParseFactors returns them.
func NewBuilder(profile *responsive.Profile, factors []float64) *Builder {
	return &Builder{profile: profile, factors: factors}
}

// base resolves the ladder's base dimensions: explicit baseWidth/baseHeight
// options first, then the request's own dimensions, then the source width
// capped at the default breakpoint.
func (b *Builder) base(src variant.Source, req variant.Request) (int, int) {
	width, height := req.Options.BaseWidth, req.Options.BaseHeight
	if width == 0 && height == 0 {
		width, height = req.Width, req.Height
	}
	if width == 0 && height == 0 {
		maxWidth := responsive.FallbackMaxWidth
		if b.profile != nil {
			if bp, ok := b.profile.Breakpoints.Default(); ok {
				maxWidth = bp.Value
			}
		}
		width = maxWidth
		if src.Width > 0 && src.Width < width {
			width = src.Width
		}
	}
	if width == 0 && height > 0 {
		// BaseHeight without BaseWidth: recover the width through the
		// native ratio so the ladder is not empty.
		if ratio := src.Ratio(); ratio > 0 {
			width = int(math.Round(float64(height) / ratio))
		}
	}
	if height == 0 {
		if ratio := src.Ratio(); ratio > 0 {
			height = int(math.Round(float64(width) * ratio))
		}
	}
	return width, height
}

// Pairs builds the deduplicated, width-ascending ladder for a request.
// A computed width within SnapThreshold of the source's native width snaps
// onto it; a snapped width whose target ratio matches the native ratio
// reuses the native height exactly, avoiding a rounding-induced off-by-one
// re-encode of the original size.
func (b *Builder) Pairs(src variant.Source, req variant.Request) []Pair {
	baseW, baseH := b.base(src, req)
	if baseW <= 0 {
		return nil
	}

	var targetRatio float64 // width per height unit
	if baseH > 0 {
		targetRatio = float64(baseW) / float64(baseH)
	}
	var nativeRatio float64
	if src.Height > 0 {
		nativeRatio = float64(src.Width) / float64(src.Height)
	}

	heights := make(map[int]int)
	for _, factor := range b.factors {
		w := int(math.Floor(float64(baseW) * factor))
		if w <= 0 {
			continue
		}
		if src.Width > 0 && w >= src.Width-SnapThreshold {
			w = src.Width
		}

		var h int
		switch {
		case w == src.Width && nativeRatio > 0 && targetRatio > 0 && math.Abs(targetRatio-nativeRatio) < ratioEpsilon:
			h = src.Height
		case targetRatio > 0:
			h = int(math.Round(float64(w) / targetRatio))
		}
		if _, seen := heights[w]; !seen {
			heights[w] = h
		}
	}

	widths := make([]int, 0, len(heights))
	for w := range heights {
		widths = append(widths, w)
	}
	sort.Ints(widths)

	pairs := make([]Pair, 0, len(widths))
	for _, w := range widths {
		pairs = append(pairs, Pair{Width: w, Height: heights[w]})
	}
	return pairs
}

// Srcset derives every rung of the ladder and joins them as
// "<url> <width>w" tokens.
func (b *Builder) Srcset(d Deriver, src variant.Source, req variant.Request) (string, error) {
	pairs := b.Pairs(src, req)
	tokens := make([]string, 0, len(pairs))
	for _, p := range pairs {
		url, err := d.Derive(src, p.Width, p.Height, req.Options)
		if err != nil {
			return "", fmt.Errorf("srcset: derive %dx%d: %w", p.Width, p.Height, err)
		}
		tokens = append(tokens, fmt.Sprintf("%s %dw", url, p.Width))
	}
	return strings.Join(tokens, ", "), nil
}

// Attrs is the attribute set for a responsive img element.
type Attrs struct {
	Src     string
	Srcset  string
	Sizes   string
	Width   int
	Height  int
	Class   string
	Style   string
	Loading string
}

// Attrs assembles the full attribute set: base derivative as src, the
// ladder as srcset, and the responsive metadata riding in the options.
// Images flagged isFirst load eagerly; everything else is lazy.
func (b *Builder) Attrs(d Deriver, src variant.Source, req variant.Request) (Attrs, error) {
	baseW, baseH := b.base(src, req)
	srcURL, err := d.Derive(src, baseW, baseH, req.Options)
	if err != nil {
		return Attrs{}, fmt.Errorf("srcset: derive base %dx%d: %w", baseW, baseH, err)
	}
	set, err := b.Srcset(d, src, req)
	if err != nil {
		return Attrs{}, err
	}

	sizes := req.Options.Sizes
	if sizes == "" {
		sizes = "100vw"
	}
	loading := "lazy"
	if req.Options.IsFirst {
		loading = "eager"
	}

	return Attrs{
		Src:     srcURL,
		Srcset:  set,
		Sizes:   sizes,
		Width:   baseW,
		Height:  baseH,
		Class:   strings.Join(req.Options.Classes, " "),
		Style:   strings.Join(req.Options.Styles, "; "),
		Loading: loading,
	}, nil
}

var imgTemplate = template.Must(template.New("img").Parse(
	`<img src="{{.Src}}"` +
		`{{if .Srcset}} srcset="{{.Srcset}}"{{end}}` +
		`{{if .Sizes}} sizes="{{.Sizes}}"{{end}}` +
		`{{if .Width}} width="{{.Width}}"{{end}}` +
		`{{if .Height}} height="{{.Height}}"{{end}}` +
		`{{if .Class}} class="{{.Class}}"{{end}}` +
		`{{if .Style}} style="{{.Style}}"{{end}}` +
		` loading="{{.Loading}}">`))

// ImgTag renders the attributes as a complete img element with proper
// attribute escaping.
func (a Attrs) ImgTag() (template.HTML, error) {
	var sb strings.Builder
	if err := imgTemplate.Execute(&sb, a); err != nil {
		return "", fmt.Errorf("srcset: render img: %w", err)
	}
	return template.HTML(sb.String()), nil
}
