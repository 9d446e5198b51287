package variant

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"variant-server/internal/filesystem"
	"variant-server/internal/mediatypes"
)

// Source identifies the image a request derives from, with its native pixel
// dimensions when known.
type Source struct {
	Path   string
	Width  int
	Height int
}

// Ratio returns native height over width, or 0 when dimensions are unknown.
func (s Source) Ratio() float64 {
	if s.Width <= 0 || s.Height <= 0 {
		return 0
	}
	return float64(s.Height) / float64(s.Width)
}

// Request is the canonical, fully-resolved unit of work. At most one of
// Width/Height is zero once the source ratio is known; both are zero only
// when nothing sized was requested, and downstream substitutes the default
// breakpoint width.
type Request struct {
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Options Options `json:"options"`
}

// Resolver turns loose call-site arguments into Requests. The defaults
// passed at construction are the site configuration already merged over
// DefaultOptions; per-call options overlay both.
type Resolver struct {
	defaults Options
	sizes    *Sizes
	root     string
}

// NewResolver builds a resolver. root anchors relative watermark element
// paths for the existence check; sizes may be nil when no named sizes are
// registered.
func NewResolver(defaults Options, sizes *Sizes, root string) *Resolver {
	base := DefaultOptions()
	overlay(&base, defaults)
	return &Resolver{defaults: base, sizes: sizes, root: root}
}

// Resolve normalizes a call's (width, height, options) arguments, each of
// which may arrive in several shapes:
//
//	width:   int, numeric string, or a named-size key
//	height:  int, numeric string, or an option map (height becomes 0)
//	options: Options, *Options, map, or shorthand scalar — a bare string is
//	         a cropping mode, a bare int a quality, a bare bool upscaling
//
// A matched named size seeds width/height/options before the caller's own
// options override them; a missing dimension is then filled from the
// source's native ratio.
func (r *Resolver) Resolve(widthArg, heightArg, optionsArg any, src Source) (Request, error) {
	out := r.defaults
	if out.Extra != nil {
		extra := make(map[string]any, len(out.Extra))
		for k, v := range out.Extra {
			extra[k] = v
		}
		out.Extra = extra
	}

	width, named, err := r.widthOf(widthArg)
	if err != nil {
		return Request{}, err
	}
	height := 0

	if named != nil {
		width, height = named.Width, named.Height
		overlay(&out, named.Options)
	}

	var caller Options
	switch v := heightArg.(type) {
	case nil:
	case map[string]any:
		if err := ApplyMap(&caller, v); err != nil {
			return Request{}, err
		}
	case Options:
		overlay(&caller, v)
	case *Options:
		if v != nil {
			overlay(&caller, *v)
		}
	default:
		h, ok := toInt(heightArg)
		if !ok {
			return Request{}, fmt.Errorf("variant: unusable height argument %v", heightArg)
		}
		if h > 0 {
			height = h
		}
	}

	switch v := optionsArg.(type) {
	case nil:
	case string:
		caller.Cropping = v
	case int:
		caller.Quality = v
	case float64:
		caller.Quality = int(v)
	case bool:
		caller.Upscaling = v
	case map[string]any:
		if err := ApplyMap(&caller, v); err != nil {
			return Request{}, err
		}
	case Options:
		overlay(&caller, v)
	case *Options:
		if v != nil {
			overlay(&caller, *v)
		}
	default:
		return Request{}, fmt.Errorf("variant: unusable options argument %v", optionsArg)
	}
	overlay(&out, caller)

	if err := r.normalize(&out); err != nil {
		return Request{}, err
	}

	// Fill the missing dimension from the native ratio.
	if ratio := src.Ratio(); ratio > 0 {
		if width > 0 && height == 0 {
			height = int(math.Round(float64(width) * ratio))
		} else if height > 0 && width == 0 {
			width = int(math.Round(float64(height) / ratio))
		}
	}

	return Request{Width: width, Height: height, Options: out}, nil
}

// widthOf interprets the width argument: a number is a pixel width, a
// non-numeric string is a named-size lookup.
func (r *Resolver) widthOf(widthArg any) (int, *Size, error) {
	switch v := widthArg.(type) {
	case nil:
		return 0, nil, nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return 0, nil, nil
		}
		if n, err := strconv.Atoi(v); err == nil {
			return max(n, 0), nil, nil
		}
		if r.sizes != nil {
			if size, ok := r.sizes.Lookup(v); ok {
				return 0, &size, nil
			}
		}
		return 0, nil, fmt.Errorf("variant: unknown size %q", v)
	default:
		n, ok := toInt(widthArg)
		if !ok {
			return 0, nil, fmt.Errorf("variant: unusable width argument %v", widthArg)
		}
		return max(n, 0), nil, nil
	}
}

// normalize canonicalizes the merged bag: crop mode and focus alignment,
// rotation into [0,360), flip to v/h, clamped qualities, validated
// sharpening and format, and the watermark insert descriptor.
func (r *Resolver) normalize(opts *Options) error {
	cropping, err := NormalizeCropping(opts.Cropping)
	if err != nil {
		return err
	}
	opts.Cropping = cropping

	// A focus point biases the default center alignment; explicit crop
	// modes outrank it.
	if opts.Focus != nil && opts.Cropping == CropCenter {
		opts.Cropping = FocusAlignment(*opts.Focus)
	}

	opts.Rotate = ((opts.Rotate % 360) + 360) % 360

	if opts.Flip != "" {
		if strings.HasPrefix(strings.ToLower(opts.Flip), "v") {
			opts.Flip = "v"
		} else {
			opts.Flip = "h"
		}
	}

	opts.Quality = clampQuality(opts.Quality)
	opts.WebpQuality = clampQuality(opts.WebpQuality)
	opts.AvifQuality = clampQuality(opts.AvifQuality)

	switch opts.Sharpening {
	case "", "none", "soft", "medium", "strong":
	default:
		return fmt.Errorf("variant: unknown sharpening level %q", opts.Sharpening)
	}

	if opts.Format != "" {
		ext := strings.TrimPrefix(strings.ToLower(opts.Format), ".")
		if !mediatypes.IsOutput("." + ext) {
			return fmt.Errorf("variant: unsupported format %q", opts.Format)
		}
		opts.Format = ext
	}

	if len(opts.Colorize) > 0 && len(opts.Colorize) != 3 {
		fixed := make([]int, 3)
		copy(fixed, opts.Colorize)
		opts.Colorize = fixed
	}

	opts.Insert = r.normalizeInsert(opts.Insert)
	return nil
}

// normalizeInsert fills watermark defaults and nulls the descriptor when
// the element file does not exist, disabling the overlay rather than
// failing the whole request.
func (r *Resolver) normalizeInsert(ins *Insert) *Insert {
	if ins == nil || strings.TrimSpace(ins.Element) == "" {
		return nil
	}
	norm := *ins
	norm.Element = filepath.ToSlash(strings.TrimSpace(norm.Element))

	abs := norm.Element
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(r.root, abs)
	}
	if !filesystem.Exists(abs) {
		return nil
	}

	norm.Position = strings.ToLower(strings.TrimSpace(norm.Position))
	if norm.Position == "" {
		norm.Position = "se"
	} else if short, ok := compassAliases[norm.Position]; ok {
		norm.Position = short
	} else if norm.Position != CropCenter && norm.Position != "centre" {
		norm.Position = "se"
	} else {
		norm.Position = CropCenter
	}
	if norm.Opacity <= 0 || norm.Opacity > 100 {
		norm.Opacity = 100
	}
	return &norm
}

// ElementPath resolves a watermark element path against the resolver root.
func (r *Resolver) ElementPath(element string) string {
	if filepath.IsAbs(element) {
		return element
	}
	return filepath.Join(r.root, element)
}

func clampQuality(q int) int {
	if q < 0 {
		return 0
	}
	if q > 100 {
		return 100
	}
	return q
}
