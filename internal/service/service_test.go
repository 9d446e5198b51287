package service

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"variant-server/internal/queue"
	"variant-server/internal/responsive"
	"variant-server/internal/srcset"
	"variant-server/internal/transform"
	"variant-server/internal/variant"

	"github.com/disintegration/imaging"
)

func writeTestImage(t *testing.T, path string, width, height int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / max(width-1, 1)), G: 60, B: 120, A: 255})
		}
	}
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("writing test image %s: %v", path, err)
	}
}

func testProfile(t *testing.T) *responsive.Profile {
	t.Helper()
	breakpoints, err := responsive.ParseBreakpoints("1200=+l|Large\n600=s|Small")
	if err != nil {
		t.Fatal(err)
	}
	ratios, err := responsive.ParseRatios("16:9=+landscape\n1:1=square")
	if err != nil {
		t.Fatal(err)
	}
	return &responsive.Profile{Breakpoints: breakpoints, Ratios: ratios}
}

// newTestService builds the full stack over a temp media root.
func newTestService(t *testing.T, deferred bool) (*Service, string) {
	t.Helper()

	root := t.TempDir()
	profile := testProfile(t)
	fractions, err := responsive.ParseFractions("1, 1/2")
	if err != nil {
		t.Fatal(err)
	}

	sizes := variant.NewSizes()
	srcset.RegisterNamedSizes(sizes, profile, fractions)

	engine := transform.NewEngine(root)
	svc := New(Config{
		Root:      root,
		URLPrefix: "/media",
		Deferred:  deferred,
		Timeout:   30 * time.Second,
		Profile:   profile,
		Factors:   []float64{0.5, 1},
		Resolver:  variant.NewResolver(variant.Options{}, sizes, root),
		Engine:    engine,
		Queue:     queue.New(root, engine, 30*time.Second),
	})
	return svc, root
}

func TestResolveImmediateGeneratesFile(t *testing.T) {
	svc, root := newTestService(t, false)
	writeTestImage(t, filepath.Join(root, "photo.jpg"), 100, 50)

	d, err := svc.Resolve(context.Background(), "photo.jpg", 40, 40, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if d.Pending {
		t.Error("immediate mode should not return a pending reference")
	}
	if d.URL != "/media/photo.40x40.jpg" {
		t.Errorf("URL = %s, want /media/photo.40x40.jpg", d.URL)
	}
	if _, err := os.Stat(d.Path); err != nil {
		t.Errorf("derivative not on disk at %s: %v", d.Path, err)
	}
}

func TestResolveCacheHit(t *testing.T) {
	svc, root := newTestService(t, false)
	writeTestImage(t, filepath.Join(root, "photo.jpg"), 100, 50)

	first, err := svc.Resolve(context.Background(), "photo.jpg", 40, 40, nil)
	if err != nil {
		t.Fatal(err)
	}
	info1, err := os.Stat(first.Path)
	if err != nil {
		t.Fatal(err)
	}

	second, err := svc.Resolve(context.Background(), "photo.jpg", 40, 40, nil)
	if err != nil {
		t.Fatal(err)
	}
	if second.Path != first.Path {
		t.Errorf("hit resolved to %s, want %s", second.Path, first.Path)
	}

	// The existing file is served as-is, not regenerated.
	info2, err := os.Stat(first.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !info2.ModTime().Equal(info1.ModTime()) || info2.Size() != info1.Size() {
		t.Error("cache hit should not rewrite the derivative")
	}
}

func TestResolveDeferredFlow(t *testing.T) {
	svc, root := newTestService(t, true)
	writeTestImage(t, filepath.Join(root, "photo.jpg"), 100, 50)

	d, err := svc.Resolve(context.Background(), "photo.jpg", 40, 40, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if !d.Pending {
		t.Error("deferred mode should return a pending reference")
	}
	if _, err := os.Stat(d.Path); !os.IsNotExist(err) {
		t.Errorf("deferred mode should not generate eagerly, stat err = %v", err)
	}
	if !svc.IsPending("photo.40x40.jpg") {
		t.Error("descriptor should exist after the pending reference is returned")
	}

	res, err := svc.FulfillOnMiss(context.Background(), "photo.40x40.jpg")
	if err != nil {
		t.Fatalf("FulfillOnMiss: %v", err)
	}
	if res.MIME != "image/jpeg" {
		t.Errorf("MIME = %s, want image/jpeg", res.MIME)
	}
	if res.Length == 0 || len(res.Bytes) != res.Length {
		t.Errorf("result length %d does not match %d bytes", res.Length, len(res.Bytes))
	}
	if _, err := os.Stat(d.Path); err != nil {
		t.Errorf("fulfilled derivative missing: %v", err)
	}
	if svc.IsPending("photo.40x40.jpg") {
		t.Error("descriptor should be gone after fulfillment")
	}

	if _, err := svc.FulfillOnMiss(context.Background(), "photo.40x40.jpg"); !errors.Is(err, queue.ErrNotPending) {
		t.Errorf("second fulfillment err = %v, want ErrNotPending", err)
	}
}

func TestResolveDelayedOptionOverridesImmediate(t *testing.T) {
	svc, root := newTestService(t, false)
	writeTestImage(t, filepath.Join(root, "photo.jpg"), 100, 50)

	d, err := svc.Resolve(context.Background(), "photo.jpg", 40, 40, map[string]any{"delayed": true})
	if err != nil {
		t.Fatal(err)
	}
	if !d.Pending {
		t.Error("per-call delayed flag should defer even when the service default is immediate")
	}
}

func TestResolveSubstitutesDefaultBreakpoint(t *testing.T) {
	svc, root := newTestService(t, true)
	writeTestImage(t, filepath.Join(root, "wide.jpg"), 1600, 900)

	d, err := svc.Resolve(context.Background(), "wide.jpg", nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	// No size at all: the default breakpoint width wins, height follows the
	// native ratio.
	if d.Width != 1200 {
		t.Errorf("Width = %d, want default breakpoint 1200", d.Width)
	}
	if d.Height != 675 {
		t.Errorf("Height = %d, want 675 from the 16:9 source", d.Height)
	}
}

func TestResolveNamedSize(t *testing.T) {
	svc, root := newTestService(t, true)
	writeTestImage(t, filepath.Join(root, "photo.jpg"), 1600, 900)

	d, err := svc.Resolve(context.Background(), "photo.jpg", "square-1-2", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if d.Width != 600 || d.Height != 600 {
		t.Errorf("named size resolved to %dx%d, want 600x600", d.Width, d.Height)
	}
}

func TestResolveMissingSource(t *testing.T) {
	svc, _ := newTestService(t, false)

	_, err := svc.Resolve(context.Background(), "absent.jpg", 40, 40, nil)
	if !errors.Is(err, transform.ErrSourceNotFound) {
		t.Errorf("err = %v, want ErrSourceNotFound", err)
	}
}

func TestRemoveDerivatives(t *testing.T) {
	svc, root := newTestService(t, false)
	writeTestImage(t, filepath.Join(root, "photo.jpg"), 100, 50)
	writeTestImage(t, filepath.Join(root, "photo.png"), 100, 50)
	writeTestImage(t, filepath.Join(root, "photograph.jpg"), 100, 50)

	if _, err := svc.Resolve(context.Background(), "photo.jpg", 40, 40, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Resolve(context.Background(), "photo.jpg", 80, 40, nil); err != nil {
		t.Fatal(err)
	}
	// A pending descriptor counts as a derivative for cleanup purposes.
	if _, err := svc.Resolve(context.Background(), "photo.jpg", 60, 30, map[string]any{"delayed": true}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Resolve(context.Background(), "photograph.jpg", 40, 20, nil); err != nil {
		t.Fatal(err)
	}

	removed, err := svc.RemoveDerivatives("photo.jpg")
	if err != nil {
		t.Fatalf("RemoveDerivatives: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed %d files, want 3", removed)
	}

	if _, err := os.Stat(filepath.Join(root, "photo.jpg")); err != nil {
		t.Error("source must survive derivative cleanup")
	}
	if _, err := os.Stat(filepath.Join(root, "photo.png")); err != nil {
		t.Error("a same-base sibling source must survive derivative cleanup")
	}
	if _, err := os.Stat(filepath.Join(root, "photograph.40x20.jpg")); err != nil {
		t.Error("unrelated derivatives must survive cleanup")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if e.Name() == "photo.jpg" || e.Name() == "photo.png" {
			continue
		}
		if strings.HasPrefix(e.Name(), "photo.") {
			t.Errorf("leftover derivative %s after cleanup", e.Name())
		}
	}
}

func TestFulfillOnMissStaleSource(t *testing.T) {
	svc, root := newTestService(t, true)
	src := filepath.Join(root, "photo.jpg")
	writeTestImage(t, src, 100, 50)

	if _, err := svc.Resolve(context.Background(), "photo.jpg", 40, 40, nil); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(src); err != nil {
		t.Fatal(err)
	}

	_, err := svc.FulfillOnMiss(context.Background(), "photo.40x40.jpg")
	if !errors.Is(err, queue.ErrStaleSource) {
		t.Errorf("err = %v, want ErrStaleSource", err)
	}
	if svc.IsPending("photo.40x40.jpg") {
		t.Error("stale descriptor should be cleaned up")
	}
}
