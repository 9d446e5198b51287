package variant

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testSource() Source {
	return Source{Path: "/img/photo.jpg", Width: 1600, Height: 900}
}

func TestResolveFillsMissingDimension(t *testing.T) {
	r := NewResolver(Options{}, nil, "")

	req, err := r.Resolve(nil, 600, nil, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Width != 1067 || req.Height != 600 {
		t.Errorf("resolved %dx%d, want 1067x600", req.Width, req.Height)
	}

	req, err = r.Resolve(800, nil, nil, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Width != 800 || req.Height != 450 {
		t.Errorf("resolved %dx%d, want 800x450", req.Width, req.Height)
	}
}

func TestResolveBothZeroStaysZero(t *testing.T) {
	r := NewResolver(Options{}, nil, "")
	req, err := r.Resolve(nil, nil, nil, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Width != 0 || req.Height != 0 {
		t.Errorf("resolved %dx%d, want 0x0 for a size-free request", req.Width, req.Height)
	}
}

func TestResolveShorthandScalars(t *testing.T) {
	r := NewResolver(Options{}, nil, "")

	req, err := r.Resolve(400, 300, "north", testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Options.Cropping != "n" {
		t.Errorf("string shorthand: Cropping = %q, want n", req.Options.Cropping)
	}

	req, err = r.Resolve(400, 300, 55, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Options.Quality != 55 {
		t.Errorf("int shorthand: Quality = %d, want 55", req.Options.Quality)
	}

	req, err = r.Resolve(400, 300, true, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !req.Options.Upscaling {
		t.Error("bool shorthand: Upscaling not set")
	}
}

func TestResolveHeightAsOptions(t *testing.T) {
	r := NewResolver(Options{}, nil, "")
	req, err := r.Resolve(800, map[string]any{"quality": 40, "greyscale": true}, nil, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// Height came in as an option map: merged, height filled from ratio.
	if req.Options.Quality != 40 || !req.Options.Greyscale {
		t.Errorf("options from height argument not merged: %+v", req.Options)
	}
	if req.Height != 450 {
		t.Errorf("height = %d, want 450 from native ratio", req.Height)
	}
}

func TestResolveNamedSize(t *testing.T) {
	sizes := NewSizes()
	sizes.Register("landscape", Size{
		Width:   1200,
		Height:  675,
		Options: Options{Cropping: "n", Quality: 80},
	})
	r := NewResolver(Options{}, sizes, "")

	req, err := r.Resolve("landscape", nil, nil, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Width != 1200 || req.Height != 675 {
		t.Errorf("resolved %dx%d, want seeded 1200x675", req.Width, req.Height)
	}
	if req.Options.Cropping != "n" || req.Options.Quality != 80 {
		t.Errorf("named-size options not seeded: %+v", req.Options)
	}

	// The caller's own options outrank the seed.
	req, err = r.Resolve("landscape", nil, map[string]any{"quality": 95}, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Options.Quality != 95 {
		t.Errorf("Quality = %d, want caller's 95 over seed", req.Options.Quality)
	}

	if _, err := r.Resolve("postcard", nil, nil, testSource()); err == nil {
		t.Error("unknown named size resolved without error")
	}
}

func TestResolveNumericStringWidth(t *testing.T) {
	r := NewResolver(Options{}, nil, "")
	req, err := r.Resolve("640", nil, nil, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Width != 640 {
		t.Errorf("width = %d, want 640", req.Width)
	}
}

func TestResolveDefaultsMerge(t *testing.T) {
	site := Options{Quality: 82, Upscaling: true}
	r := NewResolver(site, nil, "")

	req, err := r.Resolve(400, nil, nil, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Options.Quality != 82 {
		t.Errorf("Quality = %d, want site default 82", req.Options.Quality)
	}
	if !req.Options.Upscaling {
		t.Error("site default Upscaling lost")
	}
	if req.Options.Sharpening != "soft" {
		t.Errorf("Sharpening = %q, want built-in soft", req.Options.Sharpening)
	}
}

func TestResolveNormalization(t *testing.T) {
	r := NewResolver(Options{}, nil, "")
	req, err := r.Resolve(400, 300, Options{Rotate: -90, Flip: "vertical", Quality: 250}, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Options.Rotate != 270 {
		t.Errorf("Rotate = %d, want 270", req.Options.Rotate)
	}
	if req.Options.Flip != "v" {
		t.Errorf("Flip = %q, want v", req.Options.Flip)
	}
	if req.Options.Quality != 100 {
		t.Errorf("Quality = %d, want clamped 100", req.Options.Quality)
	}
}

func TestResolveFocusBecomesAlignment(t *testing.T) {
	r := NewResolver(Options{}, nil, "")
	req, err := r.Resolve(400, 300, Options{Focus: &Focus{Top: 10, Left: 80}}, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Options.Cropping != "ne" {
		t.Errorf("Cropping = %q, want ne from focus point", req.Options.Cropping)
	}

	// An explicit crop mode outranks the focus point.
	req, err = r.Resolve(400, 300, Options{Cropping: "sw", Focus: &Focus{Top: 10, Left: 80}}, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Options.Cropping != "sw" {
		t.Errorf("Cropping = %q, want explicit sw", req.Options.Cropping)
	}
}

func TestResolveInsertNormalization(t *testing.T) {
	dir := t.TempDir()
	mark := filepath.Join(dir, "mark.png")
	if err := os.WriteFile(mark, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(Options{}, nil, dir)

	req, err := r.Resolve(400, 300, Options{Insert: &Insert{Element: "mark.png"}}, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	ins := req.Options.Insert
	if ins == nil {
		t.Fatal("existing insert element was nulled")
	}
	if ins.Opacity != 100 {
		t.Errorf("Opacity = %d, want default 100", ins.Opacity)
	}
	if ins.Position != "se" {
		t.Errorf("Position = %q, want default se", ins.Position)
	}

	// A missing element file disables the overlay without failing.
	req, err = r.Resolve(400, 300, Options{Insert: &Insert{Element: "gone.png"}}, testSource())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if req.Options.Insert != nil {
		t.Errorf("Insert = %+v, want nil for missing element", req.Options.Insert)
	}
}

func TestResolveRejectsBadValues(t *testing.T) {
	r := NewResolver(Options{}, nil, "")
	cases := []struct {
		name                 string
		width, height, flags any
	}{
		{"bad cropping", 400, 300, "diagonal"},
		{"bad sharpening", 400, 300, Options{Sharpening: "extreme"}},
		{"bad format", 400, 300, Options{Format: "pdf"}},
		{"bad width", struct{}{}, 300, nil},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Resolve(tt.width, tt.height, tt.flags, testSource()); err == nil {
				t.Error("Resolve accepted invalid input")
			}
		})
	}
}

func TestResolveUnknownSizeErrorNamesKey(t *testing.T) {
	r := NewResolver(Options{}, NewSizes(), "")
	_, err := r.Resolve("hero", nil, nil, testSource())
	if err == nil || !strings.Contains(err.Error(), "hero") {
		t.Errorf("error = %v, want mention of the unknown key", err)
	}
}
