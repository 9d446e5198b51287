package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestWriteFileExclusive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.800x450.jpg.queue")

	if err := WriteFileExclusive(path, []byte(`{"source":"photo.jpg"}`), 0644); err != nil {
		t.Fatalf("first WriteFileExclusive failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if string(data) != `{"source":"photo.jpg"}` {
		t.Errorf("content = %q, want descriptor JSON", data)
	}

	// Second writer must lose the race and leave the original untouched.
	err = WriteFileExclusive(path, []byte("other"), 0644)
	if !errors.Is(err, os.ErrExist) {
		t.Errorf("second write error = %v, want os.ErrExist", err)
	}

	data, _ = os.ReadFile(path)
	if string(data) != `{"source":"photo.jpg"}` {
		t.Errorf("content after losing write = %q, original was clobbered", data)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.400x300.jpg")

	if err := WriteFileAtomic(path, []byte("first"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}

	// Overwrite must succeed (last rename wins).
	if err := WriteFileAtomic(path, []byte("second"), 0644); err != nil {
		t.Fatalf("WriteFileAtomic overwrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory has %d entries %v, want only the published file", len(entries), names)
	}
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "photo.jpg")
	if err := WriteFileAtomic(path, []byte("x"), 0644); err == nil {
		t.Error("WriteFileAtomic into missing directory succeeded, want error")
	}
}

func TestSiblings(t *testing.T) {
	dir := t.TempDir()

	files := []string{
		"photo.jpg",                  // the source
		"photo.800x450.jpg",          // derivative
		"photo.800x450.webp",         // derivative, other format
		"photo.400x0-hidpi.jpg",      // derivative with suffix
		"photo.260x160.jpg.queue",    // pending descriptor
		"photo.png",                  // same base, different extension
		"photograph.jpg",             // different base
		"photograph.800x450.jpg",     // derivative of different base
		"unrelated.txt",              // unrelated
	}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Siblings(filepath.Join(dir, "photo.jpg"))
	if err != nil {
		t.Fatalf("Siblings: %v", err)
	}

	want := []string{
		filepath.Join(dir, "photo.260x160.jpg.queue"),
		filepath.Join(dir, "photo.400x0-hidpi.jpg"),
		filepath.Join(dir, "photo.800x450.jpg"),
		filepath.Join(dir, "photo.800x450.webp"),
		filepath.Join(dir, "photo.png"),
	}
	sort.Strings(got)
	sort.Strings(want)

	if len(got) != len(want) {
		t.Fatalf("Siblings returned %d paths %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Siblings[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestStatWithRetryNotExist(t *testing.T) {
	// Missing files must not be retried: the caller uses the result to
	// decide between "derivative exists" and "needs generation".
	_, err := StatWithRetry(filepath.Join(t.TempDir(), "nope.jpg"), DefaultRetryConfig())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("StatWithRetry error = %v, want os.ErrNotExist", err)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")

	if Exists(path) {
		t.Error("Exists(missing) = true")
	}
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Error("Exists(present) = false")
	}
}
