package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"variant-server/internal/logging"
	"variant-server/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Entry is one recorded variation.
type Entry struct {
	Source   string        `json:"source"`
	Path     string        `json:"path"`
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Format   string        `json:"format,omitempty"`
	Bytes    int64         `json:"bytes"`
	Duration time.Duration `json:"-"`
}

// Stats are the aggregate totals over all recorded variations.
type Stats struct {
	Variations    int64     `json:"variations"`
	Sources       int64     `json:"sources"`
	Bytes         int64     `json:"bytes"`
	AvgDurationMS float64   `json:"avgDurationMs"`
	LastRecorded  time.Time `json:"lastRecorded"`
}

// Ledger records generated variations in SQLite. It is bookkeeping only:
// the request path decides hit/miss/pending from the filesystem alone, so a
// failed ledger write never blocks serving. Callers log Record errors and
// move on.
type Ledger struct {
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the ledger database at dbPath.
// dbPath must be the full path to the database FILE and its parent
// directory must already exist and be writable.
func Open(ctx context.Context, dbPath string) (*Ledger, error) {
	logging.Info("Ledger path: %s", dbPath)

	// Use WAL mode and other optimizations
	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close ledger after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
	}

	// Writes arrive from request handlers and the queue; keep the pool small.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(time.Hour)

	l := &Ledger{
		db:     db,
		dbPath: dbPath,
	}

	if err := l.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close ledger after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	logging.Info("Ledger initialized at %s", dbPath)
	return l, nil
}

func (l *Ledger) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	CREATE TABLE IF NOT EXISTS variations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		path TEXT NOT NULL UNIQUE,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		format TEXT,
		size INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_variations_source ON variations(source);
	CREATE INDEX IF NOT EXISTS idx_variations_updated ON variations(updated_at);
	`

	_, err = l.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Record upserts one variation row, keyed by derivative path. Regenerating
// the same derivative refreshes the row instead of duplicating it.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("record", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	INSERT INTO variations (source, path, width, height, format, size, duration_ms, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, strftime('%s', 'now'))
	ON CONFLICT(path) DO UPDATE SET
		source = excluded.source,
		width = excluded.width,
		height = excluded.height,
		format = excluded.format,
		size = excluded.size,
		duration_ms = excluded.duration_ms,
		updated_at = strftime('%s', 'now')
	`

	_, err = l.db.ExecContext(ctx, query,
		e.Source,
		e.Path,
		e.Width,
		e.Height,
		e.Format,
		e.Bytes,
		e.Duration.Milliseconds(),
	)
	return err
}

// RemoveSource deletes every variation row belonging to source, returning
// the number of rows removed. Called when a source image disappears and its
// derivatives are swept.
func (l *Ledger) RemoveSource(ctx context.Context, source string) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("remove_source", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := l.db.ExecContext(ctx, "DELETE FROM variations WHERE source = ?", source)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RemovePath deletes a single variation row by derivative path.
func (l *Ledger) RemovePath(ctx context.Context, path string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("remove_path", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = l.db.ExecContext(ctx, "DELETE FROM variations WHERE path = ?", path)
	return err
}

// Stats returns the aggregate totals.
func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("stats", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `
	SELECT COUNT(*),
	       COUNT(DISTINCT source),
	       COALESCE(SUM(size), 0),
	       COALESCE(AVG(duration_ms), 0),
	       COALESCE(MAX(updated_at), 0)
	FROM variations
	`

	var s Stats
	var lastRecorded int64
	err = l.db.QueryRowContext(ctx, query).Scan(
		&s.Variations, &s.Sources, &s.Bytes, &s.AvgDurationMS, &lastRecorded,
	)
	if err != nil {
		return Stats{}, err
	}
	if lastRecorded > 0 {
		s.LastRecorded = time.Unix(lastRecorded, 0)
	}
	return s, nil
}

// GetStats implements metrics.StatsProvider for the collector. Errors are
// logged and reported as zero totals; gauges catch up on the next cycle.
func (l *Ledger) GetStats() metrics.Stats {
	stats, err := l.Stats(context.Background())
	if err != nil {
		logging.Warn("ledger stats collection failed: %v", err)
		return metrics.Stats{}
	}
	return metrics.Stats{
		Variations: stats.Variations,
		Sources:    stats.Sources,
		Bytes:      stats.Bytes,
	}
}

// Vacuum optimizes the database.
func (l *Ledger) Vacuum() error {
	start := time.Now()
	var err error
	defer func() { recordQuery("vacuum", start, err) }()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err = l.db.ExecContext(ctx, "VACUUM")
	return err
}

// UpdateDBMetrics updates database connection metrics
func (l *Ledger) UpdateDBMetrics() {
	stats := l.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}
