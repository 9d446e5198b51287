package transform

import (
	"fmt"
	"image"
	"os"

	"variant-server/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// MaxSourceDimension is the largest width or height decoded in full.
	MaxSourceDimension = 8192

	// MaxSourcePixels caps total decoded pixels. 20MP uses ~80MB as RGBA;
	// larger sources get shrunk at load time.
	MaxSourcePixels = 20_000_000
)

// Dimensions holds a probed width and height.
type Dimensions struct {
	Width  int
	Height int
}

// Probe returns image dimensions without fully decoding the pixels.
func Probe(path string) (Dimensions, error) {
	file, err := os.Open(path)
	if err != nil {
		return Dimensions{}, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return Dimensions{}, fmt.Errorf("probe %s: %w", path, err)
	}
	return Dimensions{Width: config.Width, Height: config.Height}, nil
}

// loadSource opens the source for the pipeline. Oversized images are shrunk
// at load time to stay within the pixel budget, except when exact is set —
// absolute-pixel crop anchors reference source coordinates and must see the
// image at native size.
func loadSource(path string, exact bool) (image.Image, error) {
	if exact {
		return imaging.Open(path, imaging.AutoOrientation(true))
	}

	dims, err := Probe(path)
	if err != nil {
		logging.Debug("could not probe %s: %v, loading directly", path, err)
		return imaging.Open(path, imaging.AutoOrientation(true))
	}

	width, height := dims.Width, dims.Height
	pixels := width * height
	if width <= MaxSourceDimension && height <= MaxSourceDimension && pixels <= MaxSourcePixels {
		return imaging.Open(path, imaging.AutoOrientation(true))
	}

	targetWidth, targetHeight := width, height
	if width > MaxSourceDimension || height > MaxSourceDimension {
		if width > height {
			targetWidth = MaxSourceDimension
			targetHeight = height * MaxSourceDimension / width
		} else {
			targetHeight = MaxSourceDimension
			targetWidth = width * MaxSourceDimension / height
		}
	}
	if targetWidth*targetHeight > MaxSourcePixels {
		scale := float64(MaxSourcePixels) / float64(targetWidth*targetHeight)
		targetWidth = int(float64(targetWidth) * scale)
		targetHeight = int(float64(targetHeight) * scale)
	}

	logging.Info("constraining large source %s from %dx%d to %dx%d", path, width, height, targetWidth, targetHeight)

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	return imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos), nil
}
