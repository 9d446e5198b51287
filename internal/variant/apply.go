package variant

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyMap overlays a loosely-shaped option map (decoded JSON, query
// parameters) onto opts. Recognized keys are coerced into their typed
// fields; anything else is kept opaquely in Extra. Keys are matched
// case-insensitively.
func ApplyMap(opts *Options, m map[string]any) error {
	var cropX, cropY int
	var haveCropX, haveCropY bool

	for key, raw := range m {
		switch strings.ToLower(key) {
		case "cropping", "crop":
			s, err := croppingString(raw)
			if err != nil {
				return err
			}
			opts.Cropping = s
		case "cropx":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			cropX, haveCropX = v, true
		case "cropy":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			cropY, haveCropY = v, true
		case "focus":
			f, err := toFocus(raw)
			if err != nil {
				return err
			}
			opts.Focus = f
		case "upscaling", "upscale":
			opts.Upscaling = toBool(raw)
		case "quality":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			opts.Quality = v
		case "format":
			opts.Format = strings.ToLower(strings.TrimSpace(toString(raw)))
		case "webpadd":
			opts.WebpAdd = toBool(raw)
		case "webponly", "webp":
			opts.WebpOnly = toBool(raw)
		case "avifadd":
			opts.AvifAdd = toBool(raw)
		case "avifonly", "avif":
			opts.AvifOnly = toBool(raw)
		case "webpquality":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			opts.WebpQuality = v
		case "avifquality":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			opts.AvifQuality = v
		case "rotate":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			opts.Rotate = v
		case "flip":
			opts.Flip = toString(raw)
		case "hidpi":
			opts.HiDPI = toBool(raw)
		case "sharpening":
			opts.Sharpening = strings.ToLower(strings.TrimSpace(toString(raw)))
		case "brightness":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			opts.Brightness = v
		case "contrast":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			opts.Contrast = v
		case "gamma":
			v, ok := toFloat(raw)
			if !ok {
				return badValue(key, raw)
			}
			opts.Gamma = v
		case "colorize":
			c, err := toColorize(raw)
			if err != nil {
				return err
			}
			opts.Colorize = c
		case "greyscale", "grayscale":
			opts.Greyscale = toBool(raw)
		case "flop":
			opts.Flop = toBool(raw)
		case "blur":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			opts.Blur = v
		case "sharpen":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			opts.Sharpen = v
		case "invert":
			opts.Invert = toBool(raw)
		case "pixelate":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			opts.Pixelate = v
		case "insert", "watermark":
			ins, err := toInsert(raw)
			if err != nil {
				return err
			}
			opts.Insert = ins
		case "suffix":
			opts.Suffix = toStringList(raw)
		case "isfirst":
			opts.IsFirst = toBool(raw)
		case "sizes":
			opts.Sizes = toString(raw)
		case "classes", "class":
			opts.Classes = toStringList(raw)
		case "styles", "style":
			opts.Styles = toStringList(raw)
		case "basewidth":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			opts.BaseWidth = v
		case "baseheight":
			v, ok := toInt(raw)
			if !ok {
				return badValue(key, raw)
			}
			opts.BaseHeight = v
		case "delayed", "deferred":
			opts.Delayed = toBool(raw)
		default:
			if opts.Extra == nil {
				opts.Extra = make(map[string]any)
			}
			opts.Extra[key] = raw
		}
	}

	// Explicit anchor coordinates collapse into the canonical string form
	// so one field drives both the pipeline and the cache path.
	if haveCropX || haveCropY {
		opts.Cropping = fmt.Sprintf("x%dy%d", cropX, cropY)
	}
	return nil
}

func badValue(key string, raw any) error {
	return fmt.Errorf("variant: option %q: unusable value %v", key, raw)
}

// croppingString accepts the union of cropping shapes: bool, string, or a
// two-element array of percent/pixel units.
func croppingString(raw any) (string, error) {
	switch v := raw.(type) {
	case bool:
		if v {
			return CropCenter, nil
		}
		return CropDisabled, nil
	case string:
		return v, nil
	case []any:
		if len(v) != 2 {
			return "", fmt.Errorf("variant: cropping array needs two elements, got %d", len(v))
		}
		return toString(v[0]) + "," + toString(v[1]), nil
	case []string:
		if len(v) != 2 {
			return "", fmt.Errorf("variant: cropping array needs two elements, got %d", len(v))
		}
		return v[0] + "," + v[1], nil
	}
	return "", fmt.Errorf("variant: cropping: unusable value %v", raw)
}

func toFocus(raw any) (*Focus, error) {
	switch v := raw.(type) {
	case []any:
		if len(v) != 2 {
			return nil, fmt.Errorf("variant: focus needs [top, left], got %d elements", len(v))
		}
		top, okT := toFloat(v[0])
		left, okL := toFloat(v[1])
		if !okT || !okL {
			return nil, fmt.Errorf("variant: focus: non-numeric point %v", v)
		}
		return &Focus{Top: top, Left: left}, nil
	case map[string]any:
		top, okT := toFloat(v["top"])
		left, okL := toFloat(v["left"])
		if !okT || !okL {
			return nil, fmt.Errorf("variant: focus: need top and left, got %v", v)
		}
		return &Focus{Top: top, Left: left}, nil
	}
	return nil, fmt.Errorf("variant: focus: unusable value %v", raw)
}

// toColorize normalizes the colorize shapes — "r,g,b" string, indexed
// triple, or named-channel map — into an (r, g, b) slice.
func toColorize(raw any) ([]int, error) {
	out := make([]int, 3)
	switch v := raw.(type) {
	case string:
		parts := strings.Split(v, ",")
		for i := 0; i < 3 && i < len(parts); i++ {
			n, ok := toInt(strings.TrimSpace(parts[i]))
			if !ok {
				return nil, fmt.Errorf("variant: colorize: non-numeric channel %q", parts[i])
			}
			out[i] = n
		}
	case []any:
		for i := 0; i < 3 && i < len(v); i++ {
			n, ok := toInt(v[i])
			if !ok {
				return nil, fmt.Errorf("variant: colorize: non-numeric channel %v", v[i])
			}
			out[i] = n
		}
	case []int:
		copy(out, v)
	case map[string]any:
		for name, idx := range map[string]int{"r": 0, "red": 0, "g": 1, "green": 1, "b": 2, "blue": 2} {
			if cv, present := v[name]; present {
				n, ok := toInt(cv)
				if !ok {
					return nil, fmt.Errorf("variant: colorize: non-numeric channel %q", name)
				}
				out[idx] = n
			}
		}
	default:
		return nil, fmt.Errorf("variant: colorize: unusable value %v", raw)
	}
	return out, nil
}

// toInsert accepts a watermark descriptor map or a bare element path.
func toInsert(raw any) (*Insert, error) {
	switch v := raw.(type) {
	case string:
		return &Insert{Element: v}, nil
	case map[string]any:
		ins := &Insert{}
		for key, val := range v {
			switch strings.ToLower(key) {
			case "element", "path", "file":
				ins.Element = toString(val)
			case "position", "pos":
				ins.Position = strings.ToLower(strings.TrimSpace(toString(val)))
			case "x", "offsetx":
				n, ok := toInt(val)
				if !ok {
					return nil, badValue("insert."+key, val)
				}
				ins.OffsetX = n
			case "y", "offsety":
				n, ok := toInt(val)
				if !ok {
					return nil, badValue("insert."+key, val)
				}
				ins.OffsetY = n
			case "opacity":
				n, ok := toInt(val)
				if !ok {
					return nil, badValue("insert."+key, val)
				}
				ins.Opacity = n
			}
		}
		return ins, nil
	case *Insert:
		return v, nil
	}
	return nil, fmt.Errorf("variant: insert: unusable value %v", raw)
}

func toInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toBool(raw any) bool {
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		}
	case int:
		return v != 0
	case float64:
		return v != 0
	}
	return false
}

func toString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	}
	return fmt.Sprintf("%v", raw)
}

func toStringList(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case string:
		var out []string
		for _, part := range strings.Split(v, " ") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, toString(item))
		}
		return out
	}
	return nil
}
