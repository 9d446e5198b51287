package transform

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"variant-server/internal/filesystem"
	"variant-server/internal/logging"
	"variant-server/internal/variant"

	"github.com/disintegration/imaging"
)

// Engine runs the full derivative pipeline for one request at a time.
// Instances are stateless and safe for concurrent use.
type Engine struct {
	root string
}

// NewEngine builds an engine. root anchors relative watermark element
// paths.
func NewEngine(root string) *Engine {
	return &Engine{root: root}
}

// Generate produces the encoded derivative for a resolved request. The
// context bounds the work between pipeline stages; a single encode is not
// interruptible.
func (e *Engine) Generate(ctx context.Context, sourcePath string, req variant.Request) ([]byte, error) {
	if !filesystem.Exists(sourcePath) {
		return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, sourcePath)
	}

	width, height := req.Width, req.Height
	if req.Options.HiDPI {
		width *= 2
		height *= 2
	}

	img, err := loadSource(sourcePath, needsExactLoad(req.Options))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrEncode, sourcePath, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img = preOps(img, req.Options)
	img = strategy(img, width, height, req.Options)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img = e.effects(img, req.Options)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := variant.TargetExt(sourcePath, req.Options)
	data, err := Encode(img, ext, req.Options)
	if err != nil {
		return nil, err
	}

	logging.Debug("generated %s %dx%d (%d bytes) from %s", ext, width, height, len(data), filepath.Base(sourcePath))
	return data, nil
}

// GenerateToFile runs Generate and atomically publishes the result, so a
// concurrent reader never observes a partial derivative.
func (e *Engine) GenerateToFile(ctx context.Context, sourcePath string, req variant.Request, destPath string) ([]byte, error) {
	data, err := e.Generate(ctx, sourcePath, req)
	if err != nil {
		return nil, err
	}
	if err := filesystem.WriteFileAtomic(destPath, data, 0644); err != nil {
		return nil, fmt.Errorf("publish %s: %w", destPath, err)
	}
	return data, nil
}

// needsExactLoad reports whether the crop anchors reference absolute source
// pixels, which rules out shrink-at-load.
func needsExactLoad(opts variant.Options) bool {
	if _, _, ok := variant.ParseCropCoords(opts.Cropping); ok {
		return true
	}
	if pair, ok := variant.ParseCropPair(opts.Cropping); ok {
		return !pair[0].Percent || !pair[1].Percent
	}
	return false
}

// preOps applies the geometric operations that run before any crop or
// resize: rotation, then flip.
func preOps(img image.Image, opts variant.Options) image.Image {
	if opts.Rotate != 0 {
		img = rotateClockwise(img, opts.Rotate)
	}
	switch opts.Flip {
	case "":
	case "v":
		img = imaging.FlipV(img)
	default:
		img = imaging.FlipH(img)
	}
	return img
}

// rotateClockwise rotates by the given clockwise degrees. The imaging
// primitives rotate counter-clockwise, so quarter turns map to their
// complements.
func rotateClockwise(img image.Image, degrees int) image.Image {
	switch degrees {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		return imaging.Rotate(img, -float64(degrees), color.Transparent)
	}
}

// strategy picks and applies the crop/resize step: explicit anchors first,
// then the aligned cover-crop, then proportional scaling. Upscaling is
// gated globally: without the flag, a cover-crop that would enlarge the
// source degrades to a downscale-only fit.
func strategy(img image.Image, width, height int, opts variant.Options) image.Image {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	if x, y, ok := variant.ParseCropCoords(opts.Cropping); ok {
		return cropAt(img, x, y, width, height)
	}
	if pair, ok := variant.ParseCropPair(opts.Cropping); ok {
		x := pair[0].Value
		if pair[0].Percent {
			x = srcW * pair[0].Value / 100
		}
		y := pair[1].Value
		if pair[1].Percent {
			y = srcH * pair[1].Value / 100
		}
		return cropAt(img, x, y, width, height)
	}

	if width > 0 && height > 0 && opts.Cropping != variant.CropDisabled {
		if !opts.Upscaling && (width > srcW || height > srcH) {
			return imaging.Fit(img, width, height, imaging.Lanczos)
		}
		return imaging.Fill(img, width, height, anchorFor(opts.Cropping), imaging.Lanczos)
	}

	switch {
	case width > 0 && height > 0:
		// Cropping disabled: scale to fit inside the box.
		if opts.Upscaling {
			scale := fitScale(srcW, srcH, width, height)
			if scale > 1 {
				return imaging.Resize(img, int(float64(srcW)*scale+0.5), 0, imaging.Lanczos)
			}
		}
		return imaging.Fit(img, width, height, imaging.Lanczos)
	case width > 0:
		if !opts.Upscaling && width >= srcW {
			return img
		}
		return imaging.Resize(img, width, 0, imaging.Lanczos)
	case height > 0:
		if !opts.Upscaling && height >= srcH {
			return img
		}
		return imaging.Resize(img, 0, height, imaging.Lanczos)
	}
	return img
}

func fitScale(srcW, srcH, width, height int) float64 {
	scaleW := float64(width) / float64(srcW)
	scaleH := float64(height) / float64(srcH)
	if scaleW < scaleH {
		return scaleW
	}
	return scaleH
}

// cropAt cuts a width x height window anchored at (x, y), clamped so the
// window stays inside the image.
func cropAt(img image.Image, x, y, width, height int) image.Image {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	if width <= 0 || width > srcW {
		width = srcW
	}
	if height <= 0 || height > srcH {
		height = srcH
	}
	if x > srcW-width {
		x = srcW - width
	}
	if y > srcH-height {
		y = srcH - height
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return imaging.Crop(img, image.Rect(b.Min.X+x, b.Min.Y+y, b.Min.X+x+width, b.Min.Y+y+height))
}

func anchorFor(mode string) imaging.Anchor {
	switch mode {
	case "n":
		return imaging.Top
	case "ne":
		return imaging.TopRight
	case "e":
		return imaging.Right
	case "se":
		return imaging.BottomRight
	case "s":
		return imaging.Bottom
	case "sw":
		return imaging.BottomLeft
	case "w":
		return imaging.Left
	case "nw":
		return imaging.TopLeft
	default:
		return imaging.Center
	}
}

// effects applies the tonal and effect chain in its fixed order.
func (e *Engine) effects(img image.Image, opts variant.Options) image.Image {
	if opts.Sharpen == 0 {
		if sigma := presetSigma(opts.Sharpening); sigma > 0 {
			img = imaging.Sharpen(img, sigma)
		}
	}
	if opts.Brightness != 0 {
		img = imaging.AdjustBrightness(img, float64(opts.Brightness))
	}
	if opts.Contrast != 0 {
		img = imaging.AdjustContrast(img, float64(opts.Contrast))
	}
	if opts.Gamma != 0 && opts.Gamma != 1 {
		img = imaging.AdjustGamma(img, opts.Gamma)
	}
	if len(opts.Colorize) == 3 && (opts.Colorize[0] != 0 || opts.Colorize[1] != 0 || opts.Colorize[2] != 0) {
		img = colorizeImage(img, opts.Colorize[0], opts.Colorize[1], opts.Colorize[2])
	}
	if opts.Greyscale {
		img = imaging.Grayscale(img)
	}
	if opts.Flop {
		img = imaging.FlipH(img)
	}
	if opts.Blur > 0 {
		img = imaging.Blur(img, float64(opts.Blur))
	}
	if opts.Sharpen > 0 {
		img = imaging.Sharpen(img, float64(opts.Sharpen)/20)
	}
	if opts.Invert {
		img = imaging.Invert(img)
	}
	if opts.Pixelate > 0 {
		img = pixelate(img, opts.Pixelate)
	}
	if opts.Insert != nil && opts.Insert.Element != "" {
		img = e.watermark(img, opts.Insert)
	}
	return img
}

// presetSigma maps a sharpening level to a blur-kernel sigma. An explicit
// sharpen amount suppresses the preset.
func presetSigma(level string) float64 {
	switch level {
	case "soft":
		return 0.5
	case "medium":
		return 1.0
	case "strong":
		return 2.0
	}
	return 0
}

func colorizeImage(img image.Image, r, g, b int) image.Image {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.R = clampChannel(int(c.R) + r)
		c.G = clampChannel(int(c.G) + g)
		c.B = clampChannel(int(c.B) + b)
		return c
	})
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// pixelate shrinks by the block size and scales back with nearest-neighbor
// sampling.
func pixelate(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if size <= 1 || w <= size || h <= size {
		return img
	}
	small := imaging.Resize(img, max(1, w/size), max(1, h/size), imaging.NearestNeighbor)
	return imaging.Resize(small, w, h, imaging.NearestNeighbor)
}

// watermark overlays the insert element. A vanished element file downgrades
// to a warning; the derivative still ships, just unmarked.
func (e *Engine) watermark(img image.Image, ins *variant.Insert) image.Image {
	path := ins.Element
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.root, path)
	}
	mark, err := imaging.Open(path)
	if err != nil {
		logging.Warn("watermark element %s unavailable: %v", ins.Element, err)
		return img
	}
	origin := watermarkOrigin(img.Bounds(), mark.Bounds(), ins)
	return imaging.Overlay(img, mark, origin, float64(ins.Opacity)/100)
}

// watermarkOrigin places the mark at its compass anchor, with offsets
// pushing inward from the anchored edges.
func watermarkOrigin(img, mark image.Rectangle, ins *variant.Insert) image.Point {
	iw, ih := img.Dx(), img.Dy()
	mw, mh := mark.Dx(), mark.Dy()

	var x, y int
	switch ins.Position {
	case "nw", "w", "sw":
		x = ins.OffsetX
	case "ne", "e", "se":
		x = iw - mw - ins.OffsetX
	default:
		x = (iw-mw)/2 + ins.OffsetX
	}
	switch ins.Position {
	case "nw", "n", "ne":
		y = ins.OffsetY
	case "sw", "s", "se":
		y = ih - mh - ins.OffsetY
	default:
		y = (ih-mh)/2 + ins.OffsetY
	}
	return image.Point{X: x, Y: y}
}
