// Package ledger provides best-effort SQLite bookkeeping of generated
// variations.
//
// Each published derivative gets one row (source, path, dimensions, format,
// size, generation time) keyed by path, feeding the stats endpoint and the
// Prometheus library gauges. The ledger is never consulted when serving: the
// filesystem decides hit, miss, and pending. A write failure is logged by
// the caller and otherwise ignored.
//
// The database uses WAL mode for concurrent read performance and includes
// automatic schema initialization.
package ledger
