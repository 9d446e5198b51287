package mediatypes

import (
	"path/filepath"
	"strings"
)

// SourceExtensions maps file extensions to whether they are accepted as
// derivative sources. SVG and ICO are browsable image types but have no
// raster transform path, so they are deliberately absent.
var SourceExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
}

// OutputExtensions maps file extensions the transform engine can encode to.
// AVIF and WebP require the libvips backend; the rest are pure Go.
var OutputExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tif":  true,
	".webp": true,
	".avif": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".avif": "image/avif",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
}

// Ext returns the lowercase extension of path, including the leading dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// IsSource returns true if the file at path can serve as a derivative source.
func IsSource(path string) bool {
	return SourceExtensions[Ext(path)]
}

// IsOutput returns true if ext (lowercase, with leading dot) is an encodable
// output extension.
func IsOutput(ext string) bool {
	return OutputExtensions[ext]
}

// MimeType returns the MIME type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns "application/octet-stream" if the extension is not recognized.
func MimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}
