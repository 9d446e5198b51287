package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"variant-server/internal/filesystem"
	"variant-server/internal/logging"
	"variant-server/internal/mediatypes"
	"variant-server/internal/transform"
	"variant-server/internal/variant"

	"golang.org/x/sync/singleflight"
)

// Suffix marks a pending work descriptor beside its destination path.
const Suffix = ".queue"

var (
	// ErrNotPending means no descriptor exists for the path; the caller
	// falls through to its normal not-found handling.
	ErrNotPending = errors.New("queue: no pending descriptor")

	// ErrStaleSource means the descriptor referenced a source that no
	// longer exists. The descriptor is already cleaned up; nothing was
	// generated.
	ErrStaleSource = errors.New("queue: stale descriptor, source gone")
)

// Descriptor is the persisted record of deferred work. Source is stored
// relative to the storage root so the tree can move between hosts.
type Descriptor struct {
	Source  string          `json:"source"`
	Width   int             `json:"width"`
	Height  int             `json:"height"`
	Options variant.Options `json:"options"`
}

// Result is a fulfilled generation, ready to stream as an HTTP response.
// Source and the requested dimensions ride along for caller bookkeeping.
type Result struct {
	Bytes  []byte
	MIME   string
	Length int
	Source string
	Width  int
	Height int
}

// Queue writes and consumes work descriptors.
type Queue struct {
	root    string
	engine  *transform.Engine
	timeout time.Duration
	group   singleflight.Group
}

// New builds a queue rooted at the storage directory. timeout bounds a
// single fulfillment's generation; zero means no bound.
func New(root string, engine *transform.Engine, timeout time.Duration) *Queue {
	return &Queue{root: root, engine: engine, timeout: timeout}
}

// Path returns the descriptor path for a destination.
func Path(destPath string) string {
	return destPath + Suffix
}

// IsPending reports whether a descriptor exists for the destination.
func (q *Queue) IsPending(destPath string) bool {
	return filesystem.Exists(Path(destPath))
}

// Enqueue persists the work descriptor beside destPath with an exclusive
// create. The write completes before the caller hands out the placeholder
// reference; losing the create race to a concurrent writer is success,
// since the work is queued either way.
func (q *Queue) Enqueue(sourcePath string, req variant.Request, destPath string) error {
	desc := Descriptor{
		Source:  q.relative(sourcePath),
		Width:   req.Width,
		Height:  req.Height,
		Options: req.Options,
	}
	data, err := json.Marshal(desc)
	if err != nil {
		return fmt.Errorf("queue: encode descriptor for %s: %w", destPath, err)
	}

	err = filesystem.WriteFileExclusive(Path(destPath), data, 0644)
	if errors.Is(err, fs.ErrExist) {
		logging.Debug("descriptor already queued: %s", Path(destPath))
		return nil
	}
	if err != nil {
		return fmt.Errorf("queue: write descriptor: %w", err)
	}
	logging.Debug("queued %dx%d for %s", req.Width, req.Height, filepath.Base(destPath))
	return nil
}

// FulfillOnMiss handles a request that targets destPath when no file exists
// there. Concurrent misses on the same path share one generation.
//
// Outcomes: a Result to stream with a long-lived cache header, ErrNotPending
// when no descriptor exists, or ErrStaleSource when the source vanished and
// the descriptor was cleaned up.
func (q *Queue) FulfillOnMiss(ctx context.Context, destPath string) (*Result, error) {
	v, err, _ := q.group.Do(destPath, func() (any, error) {
		return q.fulfill(ctx, destPath)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (q *Queue) fulfill(ctx context.Context, destPath string) (*Result, error) {
	queuePath := Path(destPath)

	data, err := os.ReadFile(queuePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotPending
		}
		return nil, fmt.Errorf("queue: read descriptor %s: %w", queuePath, err)
	}

	var desc Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		// An unreadable descriptor can never be fulfilled; drop it so the
		// path degrades to a plain 404 instead of failing forever.
		logging.Warn("corrupt descriptor %s: %v", queuePath, err)
		q.removeDescriptor(queuePath)
		return nil, ErrNotPending
	}

	sourcePath := q.absolute(desc.Source)
	if !filesystem.Exists(sourcePath) {
		logging.Info("cleaning stale descriptor %s (source %s gone)", queuePath, desc.Source)
		q.removeDescriptor(queuePath)
		return nil, ErrStaleSource
	}

	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	req := variant.Request{Width: desc.Width, Height: desc.Height, Options: desc.Options}
	bytes, err := q.engine.GenerateToFile(ctx, sourcePath, req, destPath)
	if err != nil {
		if errors.Is(err, transform.ErrSourceNotFound) {
			q.removeDescriptor(queuePath)
			return nil, ErrStaleSource
		}
		// Generation failed; the descriptor stays for a retry on the next
		// request to this path.
		logging.Error("fulfillment failed for %s (source %s, %dx%d): %v",
			destPath, desc.Source, desc.Width, desc.Height, err)
		return nil, err
	}

	q.removeDescriptor(queuePath)

	ext := strings.ToLower(filepath.Ext(destPath))
	return &Result{
		Bytes:  bytes,
		MIME:   mediatypes.MimeType(ext),
		Length: len(bytes),
		Source: desc.Source,
		Width:  desc.Width,
		Height: desc.Height,
	}, nil
}

func (q *Queue) removeDescriptor(queuePath string) {
	if err := os.Remove(queuePath); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove descriptor %s: %v", queuePath, err)
	}
}

// relative stores sources relative to the root when possible; paths outside
// the root stay absolute.
func (q *Queue) relative(sourcePath string) string {
	rel, err := filepath.Rel(q.root, sourcePath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return sourcePath
	}
	return filepath.ToSlash(rel)
}

func (q *Queue) absolute(source string) string {
	if filepath.IsAbs(source) {
		return source
	}
	return filepath.Join(q.root, filepath.FromSlash(source))
}
