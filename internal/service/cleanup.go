package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"variant-server/internal/filesystem"
	"variant-server/internal/ledger"
	"variant-server/internal/logging"
	"variant-server/internal/metrics"
	"variant-server/internal/queue"
	"variant-server/internal/variant"
)

// FulfillOnMiss handles a request for a derivative path with no file behind
// it. The outcome translation is the caller's job: a Result streams as a 200
// with a long-lived cache header, ErrNotPending and ErrStaleSource both fall
// through to normal not-found handling.
func (s *Service) FulfillOnMiss(ctx context.Context, requestPath string) (*queue.Result, error) {
	dest := s.absolute(requestPath)
	start := time.Now()

	res, err := s.queue.FulfillOnMiss(ctx, dest)
	switch {
	case err == nil:
		took := time.Since(start)
		metrics.QueueFulfillmentsTotal.WithLabelValues("fulfilled").Inc()
		metrics.QueueFulfillDuration.Observe(took.Seconds())
		metrics.GenerationBytesWritten.Add(float64(res.Length))
		s.record(ledger.Entry{
			Source:   res.Source,
			Path:     s.relative(dest),
			Width:    res.Width,
			Height:   res.Height,
			Format:   strings.TrimPrefix(strings.ToLower(filepath.Ext(dest)), "."),
			Bytes:    int64(res.Length),
			Duration: took,
		})
		return res, nil
	case errors.Is(err, queue.ErrNotPending):
		metrics.QueueFulfillmentsTotal.WithLabelValues("not_pending").Inc()
	case errors.Is(err, queue.ErrStaleSource):
		metrics.QueueFulfillmentsTotal.WithLabelValues("stale").Inc()
	default:
		metrics.QueueFulfillmentsTotal.WithLabelValues("error").Inc()
	}
	return nil, err
}

// IsPending reports whether a queue descriptor exists for the path.
func (s *Service) IsPending(requestPath string) bool {
	return s.queue.IsPending(s.absolute(requestPath))
}

// RemoveDerivatives deletes every derivative and descriptor belonging to
// the source, leaving the source itself and unrelated files untouched.
// Returns the number of files removed.
func (s *Service) RemoveDerivatives(sourcePath string) (int, error) {
	abs := s.absolute(sourcePath)

	siblings, err := filesystem.Siblings(abs)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, p := range siblings {
		// Same-base files that are not variation-shaped stay: photo.png is
		// its own source, not a derivative of photo.jpg.
		if _, ok := variant.ParseVariationBase(filepath.Base(p)); !ok {
			continue
		}
		if err := os.Remove(p); err != nil {
			if !os.IsNotExist(err) {
				logging.Warn("failed to remove derivative %s: %v", p, err)
			}
			continue
		}
		removed++
	}

	if removed > 0 {
		metrics.DerivativesRemoved.Add(float64(removed))
		logging.Info("removed %d derivatives for %s", removed, sourcePath)
	}

	if s.ledger != nil {
		if _, err := s.ledger.RemoveSource(context.Background(), s.relative(abs)); err != nil {
			logging.Warn("ledger cleanup failed for %s: %v", sourcePath, err)
		}
	}
	return removed, nil
}
