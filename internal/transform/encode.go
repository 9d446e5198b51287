package transform

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"variant-server/internal/variant"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

// Encode serializes the processed image in the format implied by ext.
// webp and avif take a per-format quality override when configured, else
// the request's quality; png and gif carry no quality parameter; unknown
// extensions encode as jpeg at the resolved quality.
func Encode(img image.Image, ext string, opts variant.Options) ([]byte, error) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	quality := opts.Quality
	if quality <= 0 {
		quality = 90
	}

	var buf bytes.Buffer
	var err error
	switch ext {
	case "webp":
		q := opts.WebpQuality
		if q <= 0 {
			q = quality
		}
		return encodeVips(img, "webp", q)
	case "avif":
		q := opts.AvifQuality
		if q <= 0 {
			q = quality
		}
		return encodeVips(img, "avif", q)
	case "png":
		err = imaging.Encode(&buf, img, imaging.PNG)
	case "gif":
		err = imaging.Encode(&buf, img, imaging.GIF)
	case "bmp":
		err = imaging.Encode(&buf, img, imaging.BMP)
	case "tiff", "tif":
		err = imaging.Encode(&buf, img, imaging.TIFF)
	default:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncode, ext, err)
	}
	return buf.Bytes(), nil
}

// encodeVips hands the pipeline result to libvips through a lossless png
// bridge and exports it in the requested format.
func encodeVips(img image.Image, format string, quality int) ([]byte, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("%w: %s encoding requires libvips", ErrDriverUnavailable, format)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: png bridge: %v", ErrEncode, err)
	}
	ref, err := vips.NewImageFromBuffer(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: vips load: %v", ErrEncode, err)
	}
	defer ref.Close()

	switch format {
	case "webp":
		params := vips.NewWebpExportParams()
		params.Quality = quality
		data, _, err := ref.ExportWebp(params)
		if err != nil {
			return nil, fmt.Errorf("%w: webp: %v", ErrEncode, err)
		}
		return data, nil
	case "avif":
		params := vips.NewAvifExportParams()
		params.Quality = quality
		data, _, err := ref.ExportAvif(params)
		if err != nil {
			return nil, fmt.Errorf("%w: avif: %v", ErrEncode, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: unsupported vips format %q", ErrEncode, format)
}
