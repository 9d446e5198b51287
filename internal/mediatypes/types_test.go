package mediatypes

import "testing"

func TestExt(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"Lowercase", "photo.jpg", ".jpg"},
		{"Uppercase", "PHOTO.JPG", ".jpg"},
		{"Mixed", "scan.TiFf", ".tiff"},
		{"With directory", "/media/albums/photo.png", ".png"},
		{"Derivative name", "photo.800x450.webp", ".webp"},
		{"No extension", "README", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ext(tt.path); got != tt.want {
				t.Errorf("Ext(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestIsSource(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"photo.jpg", true},
		{"photo.jpeg", true},
		{"photo.png", true},
		{"anim.gif", true},
		{"scan.tif", true},
		{"pic.webp", true},
		{"icon.svg", false},
		{"favicon.ico", false},
		{"clip.mp4", false},
		{"notes.txt", false},
	}

	for _, tt := range tests {
		if got := IsSource(tt.path); got != tt.want {
			t.Errorf("IsSource(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{".jpg", "image/jpeg"},
		{".jpeg", "image/jpeg"},
		{".png", "image/png"},
		{".webp", "image/webp"},
		{".avif", "image/avif"},
		{".tiff", "image/tiff"},
		{".xyz", "application/octet-stream"},
		{"", "application/octet-stream"},
	}

	for _, tt := range tests {
		if got := MimeType(tt.ext); got != tt.want {
			t.Errorf("MimeType(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestOutputCoversSourceFormats(t *testing.T) {
	// Every source format must be encodable so that a derivative can keep
	// its source's native extension.
	for ext := range SourceExtensions {
		if !IsOutput(ext) {
			t.Errorf("source extension %q has no output path", ext)
		}
	}
}
