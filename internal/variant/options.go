package variant

import (
	"fmt"
	"strings"
)

// Compass alignment shorthands accepted for cover-crops and watermark
// placement. CropCenter is the enabled default.
const (
	CropCenter   = "center"
	CropDisabled = "none"
)

var compassAliases = map[string]string{
	"n": "n", "north": "n",
	"ne": "ne", "northeast": "ne",
	"e": "e", "east": "e",
	"se": "se", "southeast": "se",
	"s": "s", "south": "s",
	"sw": "sw", "southwest": "sw",
	"w": "w", "west": "w",
	"nw": "nw", "northwest": "nw",
}

// Focus is a percentage-based point of interest used to bias cover-crop
// alignment. Top and Left are 0-100.
type Focus struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Insert describes a watermark overlay. Element is the watermark image
// path; it is emptied at resolve time when the file does not exist, which
// disables the overlay without failing the request.
type Insert struct {
	Element  string `json:"element,omitempty"`
	Position string `json:"position,omitempty"`
	OffsetX  int    `json:"x,omitempty"`
	OffsetY  int    `json:"y,omitempty"`
	Opacity  int    `json:"opacity,omitempty"`
}

// Options is the canonical option bag of a derivative request. Zero values
// mean "not requested"; merging overlays non-zero fields only. Unrecognized
// boundary keys ride along in Extra and never influence the cache path.
type Options struct {
	// Crop/resize strategy selection.
	Cropping  string `json:"cropping,omitempty"`
	Focus     *Focus `json:"focus,omitempty"`
	Upscaling bool   `json:"upscaling,omitempty"`

	// Output format and quality.
	Quality     int    `json:"quality,omitempty"`
	Format      string `json:"format,omitempty"`
	WebpAdd     bool   `json:"webpAdd,omitempty"`
	WebpOnly    bool   `json:"webpOnly,omitempty"`
	AvifAdd     bool   `json:"avifAdd,omitempty"`
	AvifOnly    bool   `json:"avifOnly,omitempty"`
	WebpQuality int    `json:"webpQuality,omitempty"`
	AvifQuality int    `json:"avifQuality,omitempty"`

	// Geometric pre-ops.
	Rotate int    `json:"rotate,omitempty"`
	Flip   string `json:"flip,omitempty"`
	HiDPI  bool   `json:"hidpi,omitempty"`

	// Tonal and effect ops.
	Sharpening string  `json:"sharpening,omitempty"`
	Brightness int     `json:"brightness,omitempty"`
	Contrast   int     `json:"contrast,omitempty"`
	Gamma      float64 `json:"gamma,omitempty"`
	Colorize   []int   `json:"colorize,omitempty"`
	Greyscale  bool    `json:"greyscale,omitempty"`
	Flop       bool    `json:"flop,omitempty"`
	Blur       int     `json:"blur,omitempty"`
	Sharpen    int     `json:"sharpen,omitempty"`
	Invert     bool    `json:"invert,omitempty"`
	Pixelate   int     `json:"pixelate,omitempty"`

	// Watermark.
	Insert *Insert `json:"insert,omitempty"`

	// Custom filename tags, sorted into the cache path.
	Suffix []string `json:"suffix,omitempty"`

	// Responsive markup metadata. No pixel effect, never path-encoded.
	IsFirst    bool     `json:"isFirst,omitempty"`
	Sizes      string   `json:"sizes,omitempty"`
	Classes    []string `json:"classes,omitempty"`
	Styles     []string `json:"styles,omitempty"`
	BaseWidth  int      `json:"baseWidth,omitempty"`
	BaseHeight int      `json:"baseHeight,omitempty"`

	// Generation strategy.
	Delayed bool `json:"delayed,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// DefaultOptions is the base every resolved request starts from before the
// site configuration and the per-call options overlay it.
func DefaultOptions() Options {
	return Options{
		Cropping:   CropCenter,
		Quality:    90,
		Sharpening: "soft",
	}
}

// overlay copies src's non-zero fields onto dst. Per-call options win over
// named-size seeds, which win over defaults.
func overlay(dst *Options, src Options) {
	if src.Cropping != "" {
		dst.Cropping = src.Cropping
	}
	if src.Focus != nil {
		dst.Focus = src.Focus
	}
	if src.Upscaling {
		dst.Upscaling = true
	}
	if src.Quality != 0 {
		dst.Quality = src.Quality
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.WebpAdd {
		dst.WebpAdd = true
	}
	if src.WebpOnly {
		dst.WebpOnly = true
	}
	if src.AvifAdd {
		dst.AvifAdd = true
	}
	if src.AvifOnly {
		dst.AvifOnly = true
	}
	if src.WebpQuality != 0 {
		dst.WebpQuality = src.WebpQuality
	}
	if src.AvifQuality != 0 {
		dst.AvifQuality = src.AvifQuality
	}
	if src.Rotate != 0 {
		dst.Rotate = src.Rotate
	}
	if src.Flip != "" {
		dst.Flip = src.Flip
	}
	if src.HiDPI {
		dst.HiDPI = true
	}
	if src.Sharpening != "" {
		dst.Sharpening = src.Sharpening
	}
	if src.Brightness != 0 {
		dst.Brightness = src.Brightness
	}
	if src.Contrast != 0 {
		dst.Contrast = src.Contrast
	}
	if src.Gamma != 0 {
		dst.Gamma = src.Gamma
	}
	if len(src.Colorize) > 0 {
		dst.Colorize = src.Colorize
	}
	if src.Greyscale {
		dst.Greyscale = true
	}
	if src.Flop {
		dst.Flop = true
	}
	if src.Blur != 0 {
		dst.Blur = src.Blur
	}
	if src.Sharpen != 0 {
		dst.Sharpen = src.Sharpen
	}
	if src.Invert {
		dst.Invert = true
	}
	if src.Pixelate != 0 {
		dst.Pixelate = src.Pixelate
	}
	if src.Insert != nil {
		dst.Insert = src.Insert
	}
	if len(src.Suffix) > 0 {
		dst.Suffix = src.Suffix
	}
	if src.IsFirst {
		dst.IsFirst = true
	}
	if src.Sizes != "" {
		dst.Sizes = src.Sizes
	}
	if len(src.Classes) > 0 {
		dst.Classes = src.Classes
	}
	if len(src.Styles) > 0 {
		dst.Styles = src.Styles
	}
	if src.BaseWidth != 0 {
		dst.BaseWidth = src.BaseWidth
	}
	if src.BaseHeight != 0 {
		dst.BaseHeight = src.BaseHeight
	}
	if src.Delayed {
		dst.Delayed = true
	}
	if len(src.Extra) > 0 {
		if dst.Extra == nil {
			dst.Extra = make(map[string]any, len(src.Extra))
		}
		for k, v := range src.Extra {
			dst.Extra[k] = v
		}
	}
}

// NormalizeCropping canonicalizes a cropping mode string. Enabled defaults
// become "center", disabling spellings become "none", compass names shrink
// to their shorthand, and explicit anchors ("x100y40") or two-element
// percent/pixel pairs ("30%,200") pass through trimmed.
func NormalizeCropping(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "center", "centre", "true", "1":
		return CropCenter, nil
	case "none", "false", "0", "off":
		return CropDisabled, nil
	}
	if short, ok := compassAliases[s]; ok {
		return short, nil
	}
	if _, _, ok := ParseCropCoords(s); ok {
		return s, nil
	}
	if _, ok := ParseCropPair(s); ok {
		parts := strings.SplitN(s, ",", 2)
		return strings.TrimSpace(parts[0]) + "," + strings.TrimSpace(parts[1]), nil
	}
	return "", fmt.Errorf("variant: unrecognized cropping mode %q", s)
}

// ParseCropCoords parses the "x<N>y<N>" anchor form.
func ParseCropCoords(s string) (x, y int, ok bool) {
	if len(s) < 4 || s[0] != 'x' {
		return 0, 0, false
	}
	yi := strings.IndexByte(s[1:], 'y')
	if yi < 1 {
		return 0, 0, false
	}
	yi++
	x, okX := atoi(s[1:yi])
	y, okY := atoi(s[yi+1:])
	if !okX || !okY {
		return 0, 0, false
	}
	return x, y, true
}

// CropUnit is one element of a two-element cropping pair: an absolute pixel
// offset or a percentage of the relevant dimension.
type CropUnit struct {
	Value   int
	Percent bool
}

// ParseCropPair parses the two-element "x,y" pair form where each element is
// either "<N>" pixels or "<N>%".
func ParseCropPair(s string) ([2]CropUnit, bool) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return [2]CropUnit{}, false
	}
	var pair [2]CropUnit
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if strings.HasSuffix(part, "%") {
			pair[i].Percent = true
			part = part[:len(part)-1]
		}
		v, ok := atoi(part)
		if !ok {
			return [2]CropUnit{}, false
		}
		pair[i].Value = v
	}
	return pair, true
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + int(r-'0')
	}
	return n, true
}

// FocusAlignment maps a focus point onto one of the nine crop alignment
// zones using thirds: below 33% is the low edge, above 66% the high edge,
// otherwise center.
func FocusAlignment(f Focus) string {
	var vert, horiz string
	switch {
	case f.Top < 33:
		vert = "n"
	case f.Top > 66:
		vert = "s"
	}
	switch {
	case f.Left < 33:
		horiz = "w"
	case f.Left > 66:
		horiz = "e"
	}
	if vert == "" && horiz == "" {
		return CropCenter
	}
	return vert + horiz
}
