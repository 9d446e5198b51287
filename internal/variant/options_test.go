package variant

import "testing"

func TestNormalizeCropping(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", CropCenter, false},
		{"center", CropCenter, false},
		{"Centre", CropCenter, false},
		{"true", CropCenter, false},
		{"none", CropDisabled, false},
		{"false", CropDisabled, false},
		{"0", CropDisabled, false},
		{"north", "n", false},
		{"NorthWest", "nw", false},
		{"se", "se", false},
		{"x100y40", "x100y40", false},
		{"30%,200", "30%,200", false},
		{" 30% , 200 ", "30%,200", false},
		{"diagonal", "", true},
		{"x100", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeCropping(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NormalizeCropping(%q) = %q, want error", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeCropping(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeCropping(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseCropCoords(t *testing.T) {
	x, y, ok := ParseCropCoords("x100y40")
	if !ok || x != 100 || y != 40 {
		t.Errorf("ParseCropCoords(x100y40) = %d,%d,%v, want 100,40,true", x, y, ok)
	}
	for _, bad := range []string{"", "x", "xy", "x10", "y40x100", "x10y", "x1.5y2"} {
		if _, _, ok := ParseCropCoords(bad); ok {
			t.Errorf("ParseCropCoords(%q) accepted", bad)
		}
	}
}

func TestParseCropPair(t *testing.T) {
	pair, ok := ParseCropPair("30%,200")
	if !ok {
		t.Fatal("ParseCropPair(30%,200) rejected")
	}
	if !pair[0].Percent || pair[0].Value != 30 {
		t.Errorf("pair[0] = %+v, want 30%%", pair[0])
	}
	if pair[1].Percent || pair[1].Value != 200 {
		t.Errorf("pair[1] = %+v, want 200px", pair[1])
	}
	if _, ok := ParseCropPair("30%"); ok {
		t.Error("single-element pair accepted")
	}
}

func TestFocusAlignment(t *testing.T) {
	tests := []struct {
		top, left float64
		want      string
	}{
		{50, 50, CropCenter},
		{10, 50, "n"},
		{90, 50, "s"},
		{50, 10, "w"},
		{50, 90, "e"},
		{10, 10, "nw"},
		{10, 90, "ne"},
		{90, 10, "sw"},
		{90, 90, "se"},
		{33, 66, CropCenter}, // thirds boundaries are inclusive of center
	}
	for _, tt := range tests {
		if got := FocusAlignment(Focus{Top: tt.top, Left: tt.left}); got != tt.want {
			t.Errorf("FocusAlignment(%v, %v) = %q, want %q", tt.top, tt.left, got, tt.want)
		}
	}
}

func TestOverlayNonZeroWins(t *testing.T) {
	dst := DefaultOptions()
	overlay(&dst, Options{Quality: 60, Greyscale: true, Rotate: 90})

	if dst.Quality != 60 {
		t.Errorf("Quality = %d, want 60", dst.Quality)
	}
	if !dst.Greyscale || dst.Rotate != 90 {
		t.Errorf("overlay dropped fields: %+v", dst)
	}
	// Untouched fields keep their defaults.
	if dst.Sharpening != "soft" || dst.Cropping != CropCenter {
		t.Errorf("overlay clobbered defaults: %+v", dst)
	}
}

func TestApplyMapUnrecognizedKeysPassThrough(t *testing.T) {
	var opts Options
	err := ApplyMap(&opts, map[string]any{
		"quality":    float64(75), // JSON numbers decode as float64
		"greyscale":  true,
		"myCustom":   "opaque",
		"themeColor": []any{1, 2},
	})
	if err != nil {
		t.Fatalf("ApplyMap: %v", err)
	}
	if opts.Quality != 75 || !opts.Greyscale {
		t.Errorf("recognized keys not applied: %+v", opts)
	}
	if opts.Extra["myCustom"] != "opaque" {
		t.Errorf("Extra = %v, want passthrough of myCustom", opts.Extra)
	}
	if _, ok := opts.Extra["themeColor"]; !ok {
		t.Error("themeColor not passed through")
	}
}

func TestApplyMapCropShapes(t *testing.T) {
	var opts Options
	if err := ApplyMap(&opts, map[string]any{"cropping": []any{"30%", "200"}}); err != nil {
		t.Fatalf("ApplyMap array cropping: %v", err)
	}
	if opts.Cropping != "30%,200" {
		t.Errorf("Cropping = %q, want 30%%,200", opts.Cropping)
	}

	opts = Options{}
	if err := ApplyMap(&opts, map[string]any{"cropX": 120, "cropY": 80}); err != nil {
		t.Fatalf("ApplyMap cropX/cropY: %v", err)
	}
	if opts.Cropping != "x120y80" {
		t.Errorf("Cropping = %q, want x120y80", opts.Cropping)
	}

	opts = Options{}
	if err := ApplyMap(&opts, map[string]any{"cropping": false}); err != nil {
		t.Fatalf("ApplyMap bool cropping: %v", err)
	}
	if opts.Cropping != CropDisabled {
		t.Errorf("Cropping = %q, want disabled", opts.Cropping)
	}
}

func TestApplyMapColorizeShapes(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want [3]int
	}{
		{"comma string", "255,0,128", [3]int{255, 0, 128}},
		{"indexed triple", []any{float64(10), float64(20), float64(30)}, [3]int{10, 20, 30}},
		{"named channels", map[string]any{"red": 5, "blue": 9}, [3]int{5, 0, 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts Options
			if err := ApplyMap(&opts, map[string]any{"colorize": tt.in}); err != nil {
				t.Fatalf("ApplyMap: %v", err)
			}
			if len(opts.Colorize) != 3 {
				t.Fatalf("Colorize = %v, want 3 channels", opts.Colorize)
			}
			for i := range tt.want {
				if opts.Colorize[i] != tt.want[i] {
					t.Errorf("Colorize[%d] = %d, want %d", i, opts.Colorize[i], tt.want[i])
				}
			}
		})
	}
}
