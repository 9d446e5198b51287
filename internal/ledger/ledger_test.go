package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestLedger(t testing.TB) *Ledger {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	l, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to open test ledger: %v", err)
	}
	t.Cleanup(func() {
		if err := l.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return l
}

func TestOpenCreatesDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "ledger.db")

	l, err := Open(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer l.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Ledger database file was not created")
	}

	if err := l.db.PingContext(context.Background()); err != nil {
		t.Errorf("Ledger ping failed: %v", err)
	}
}

func TestRecordAndStats(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	entries := []Entry{
		{Source: "albums/a.jpg", Path: "albums/a.800x450.jpg", Width: 800, Height: 450, Format: "jpg", Bytes: 1000, Duration: 120 * time.Millisecond},
		{Source: "albums/a.jpg", Path: "albums/a.800x450.webp", Width: 800, Height: 450, Format: "webp", Bytes: 600, Duration: 80 * time.Millisecond},
		{Source: "albums/b.jpg", Path: "albums/b.400x400.jpg", Width: 400, Height: 400, Format: "jpg", Bytes: 400, Duration: 40 * time.Millisecond},
	}
	for _, e := range entries {
		if err := l.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s): %v", e.Path, err)
		}
	}

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	if stats.Variations != 3 {
		t.Errorf("Variations = %d, want 3", stats.Variations)
	}
	if stats.Sources != 2 {
		t.Errorf("Sources = %d, want 2", stats.Sources)
	}
	if stats.Bytes != 2000 {
		t.Errorf("Bytes = %d, want 2000", stats.Bytes)
	}
	if stats.AvgDurationMS != 80 {
		t.Errorf("AvgDurationMS = %v, want 80", stats.AvgDurationMS)
	}
	if stats.LastRecorded.IsZero() {
		t.Error("LastRecorded should be set after recording")
	}
}

func TestRecordUpsert(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	e := Entry{Source: "a.jpg", Path: "a.800x450.jpg", Width: 800, Height: 450, Bytes: 1000}
	if err := l.Record(ctx, e); err != nil {
		t.Fatal(err)
	}

	// Regenerating the same derivative refreshes the row
	e.Bytes = 1200
	if err := l.Record(ctx, e); err != nil {
		t.Fatal(err)
	}

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Variations != 1 {
		t.Errorf("Variations = %d after upsert, want 1", stats.Variations)
	}
	if stats.Bytes != 1200 {
		t.Errorf("Bytes = %d after upsert, want 1200", stats.Bytes)
	}
}

func TestRemoveSource(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	for _, e := range []Entry{
		{Source: "a.jpg", Path: "a.800x450.jpg", Bytes: 10},
		{Source: "a.jpg", Path: "a.400x225.jpg", Bytes: 10},
		{Source: "b.jpg", Path: "b.800x450.jpg", Bytes: 10},
	} {
		if err := l.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := l.RemoveSource(ctx, "a.jpg")
	if err != nil {
		t.Fatalf("RemoveSource: %v", err)
	}
	if removed != 2 {
		t.Errorf("RemoveSource removed %d rows, want 2", removed)
	}

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Variations != 1 || stats.Sources != 1 {
		t.Errorf("after removal: variations=%d sources=%d, want 1/1", stats.Variations, stats.Sources)
	}
}

func TestRemoveSourceNoRows(t *testing.T) {
	l := setupTestLedger(t)

	removed, err := l.RemoveSource(context.Background(), "missing.jpg")
	if err != nil {
		t.Fatalf("RemoveSource: %v", err)
	}
	if removed != 0 {
		t.Errorf("RemoveSource removed %d rows for unknown source, want 0", removed)
	}
}

func TestRemovePath(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	if err := l.Record(ctx, Entry{Source: "a.jpg", Path: "a.800x450.jpg", Bytes: 10}); err != nil {
		t.Fatal(err)
	}
	if err := l.RemovePath(ctx, "a.800x450.jpg"); err != nil {
		t.Fatalf("RemovePath: %v", err)
	}

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Variations != 0 {
		t.Errorf("Variations = %d after RemovePath, want 0", stats.Variations)
	}
}

func TestStatsEmpty(t *testing.T) {
	l := setupTestLedger(t)

	stats, err := l.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats on empty ledger: %v", err)
	}
	if stats.Variations != 0 || stats.Sources != 0 || stats.Bytes != 0 {
		t.Errorf("empty ledger stats = %+v, want zeros", stats)
	}
	if !stats.LastRecorded.IsZero() {
		t.Errorf("LastRecorded = %v on empty ledger, want zero time", stats.LastRecorded)
	}
}

func TestGetStatsProvider(t *testing.T) {
	l := setupTestLedger(t)
	ctx := context.Background()

	if err := l.Record(ctx, Entry{Source: "a.jpg", Path: "a.800x450.jpg", Bytes: 512}); err != nil {
		t.Fatal(err)
	}

	got := l.GetStats()
	if got.Variations != 1 {
		t.Errorf("GetStats().Variations = %d, want 1", got.Variations)
	}
	if got.Bytes != 512 {
		t.Errorf("GetStats().Bytes = %d, want 512", got.Bytes)
	}
}

func TestVacuum(t *testing.T) {
	l := setupTestLedger(t)

	if err := l.Record(context.Background(), Entry{Source: "a.jpg", Path: "a.1x1.jpg"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Vacuum(); err != nil {
		t.Errorf("Vacuum: %v", err)
	}
}
