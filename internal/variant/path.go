package variant

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"variant-server/internal/mediatypes"
)

// VariationPath maps a resolved request onto its derivative path, beside
// the source: <basename>.<width>x<height>[-<tokens>].<ext>. The function is
// pure; equal requests always yield equal paths.
func VariationPath(sourcePath string, req Request) string {
	dir := filepath.Dir(sourcePath)
	base := filepath.Base(sourcePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	file := fmt.Sprintf("%s.%dx%d", name, req.Width, req.Height)
	if suffix := Suffix(req.Options); suffix != "" {
		file += "-" + suffix
	}
	file += "." + TargetExt(sourcePath, req.Options)
	return filepath.Join(dir, file)
}

// TargetExt picks the derivative extension: avif-forcing options outrank
// webp-forcing ones, an explicit format outranks the source's native
// extension.
func TargetExt(sourcePath string, opts Options) string {
	switch {
	case opts.AvifOnly, opts.AvifAdd, opts.Format == "avif":
		return "avif"
	case opts.WebpOnly, opts.WebpAdd, opts.Format == "webp":
		return "webp"
	case opts.Format != "":
		return opts.Format
	}
	ext := strings.TrimPrefix(mediatypes.Ext(sourcePath), ".")
	if ext == "" {
		ext = "jpg"
	}
	return ext
}

// Suffix encodes the pixel-affecting options as a dot-joined token list.
// The order is fixed by this function, never by option insertion order;
// reordering it would fork the cache.
func Suffix(opts Options) string {
	var tokens []string

	if len(opts.Suffix) > 0 {
		tags := make([]string, 0, len(opts.Suffix))
		for _, tag := range opts.Suffix {
			if tag = sanitizeToken(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		sort.Strings(tags)
		tokens = append(tokens, tags...)
	}

	if opts.Rotate != 0 {
		tokens = append(tokens, "rot"+strconv.Itoa(opts.Rotate))
	}
	if opts.Flip == "v" {
		tokens = append(tokens, "flipv")
	} else if opts.Flip != "" {
		tokens = append(tokens, "fliph")
	}
	if opts.HiDPI {
		tokens = append(tokens, "hidpi")
	}
	if opts.Cropping != "" && opts.Cropping != CropCenter {
		tokens = append(tokens, sanitizeToken(opts.Cropping))
	}
	if ins := opts.Insert; ins != nil && ins.Element != "" {
		sum := md5.Sum([]byte(ins.Element))
		tokens = append(tokens, fmt.Sprintf("wm%s-%s-%dx%d-%d",
			hex.EncodeToString(sum[:])[:8], ins.Position, ins.OffsetX, ins.OffsetY, ins.Opacity))
	}
	if opts.Gamma != 0 && opts.Gamma != 1 {
		g := strings.ReplaceAll(strconv.FormatFloat(opts.Gamma, 'f', -1, 64), ".", "_")
		tokens = append(tokens, "gam"+g)
	}
	if opts.Brightness != 0 {
		tokens = append(tokens, "bri"+strconv.Itoa(opts.Brightness))
	}
	if opts.Contrast != 0 {
		tokens = append(tokens, "con"+strconv.Itoa(opts.Contrast))
	}
	if len(opts.Colorize) == 3 && (opts.Colorize[0] != 0 || opts.Colorize[1] != 0 || opts.Colorize[2] != 0) {
		tokens = append(tokens, fmt.Sprintf("col%d-%d-%d", opts.Colorize[0], opts.Colorize[1], opts.Colorize[2]))
	}
	if opts.Greyscale {
		tokens = append(tokens, "grey")
	}
	if opts.Flop {
		tokens = append(tokens, "flop")
	}
	if opts.Blur > 0 {
		tokens = append(tokens, "blur"+strconv.Itoa(opts.Blur))
	}
	if opts.Sharpen > 0 {
		tokens = append(tokens, "sharp"+strconv.Itoa(opts.Sharpen))
	}
	if opts.Invert {
		tokens = append(tokens, "inv")
	}
	if opts.Pixelate > 0 {
		tokens = append(tokens, "pix"+strconv.Itoa(opts.Pixelate))
	}

	return strings.Join(tokens, ".")
}

// sanitizeToken makes a string safe for the filename token list: lowercase,
// percent becomes "p", commas become dashes, everything else outside
// [a-z0-9_-] is dropped.
func sanitizeToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == '%':
			b.WriteByte('p')
		case r == ',':
			b.WriteByte('-')
		}
	}
	return b.String()
}

// variationName matches derivative filenames produced by VariationPath,
// with or without a trailing queue marker.
var variationName = regexp.MustCompile(`^(.+)\.\d+x\d+(?:-[a-zA-Z0-9_.-]+)?\.[a-zA-Z0-9]+(?:\.queue)?$`)

// ParseVariationBase reports whether name looks like a derivative (or its
// queue descriptor) and returns the source basename without extension.
func ParseVariationBase(name string) (string, bool) {
	m := variationName.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}
