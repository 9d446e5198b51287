package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"variant-server/internal/filesystem"
	"variant-server/internal/ledger"
	"variant-server/internal/logging"
	"variant-server/internal/metrics"
	"variant-server/internal/queue"
	"variant-server/internal/responsive"
	"variant-server/internal/srcset"
	"variant-server/internal/transform"
	"variant-server/internal/variant"
)

// Derivative is one resolved variant reference. In deferred mode the URL
// points at the final derivative path before the file exists; Pending marks
// that state for callers that care.
type Derivative struct {
	Path    string `json:"-"`
	URL     string `json:"url"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Pending bool   `json:"pending,omitempty"`
}

// Config wires the service to its collaborators. All fields except Ledger
// are required; a nil Ledger disables bookkeeping.
type Config struct {
	Root      string
	URLPrefix string
	Deferred  bool
	Timeout   time.Duration
	Profile   *responsive.Profile
	Factors   []float64
	Resolver  *variant.Resolver
	Engine    *transform.Engine
	Queue     *queue.Queue
	Ledger    *ledger.Ledger
}

// Service is the single entry point for derivative work: request resolution,
// cache-path computation, generation or deferral, miss fulfillment, srcset
// assembly, and derivative cleanup.
type Service struct {
	root      string
	urlPrefix string
	deferred  bool
	timeout   time.Duration
	profile   *responsive.Profile
	resolver  *variant.Resolver
	engine    *transform.Engine
	queue     *queue.Queue
	ledger    *ledger.Ledger
	builder   *srcset.Builder
}

// New builds the service from an immutable configuration value.
func New(cfg Config) *Service {
	return &Service{
		root:      cfg.Root,
		urlPrefix: strings.TrimSuffix(cfg.URLPrefix, "/"),
		deferred:  cfg.Deferred,
		timeout:   cfg.Timeout,
		profile:   cfg.Profile,
		resolver:  cfg.Resolver,
		engine:    cfg.Engine,
		queue:     cfg.Queue,
		ledger:    cfg.Ledger,
		builder:   srcset.NewBuilder(cfg.Profile, cfg.Factors),
	}
}

// Resolve turns a call-site request into a derivative reference.
//
// The path computation is pure; what happens next depends on the cache: an
// existing derivative is referenced as-is, otherwise immediate mode
// generates synchronously while deferred mode persists a work descriptor
// and returns a pending reference. The descriptor write completes before
// Resolve returns, so a racing miss handler always finds complete content.
func (s *Service) Resolve(ctx context.Context, sourcePath string, widthArg, heightArg, optionsArg any) (*Derivative, error) {
	src, err := s.source(sourcePath)
	if err != nil {
		return nil, err
	}

	req, err := s.resolver.Resolve(widthArg, heightArg, optionsArg, src)
	if err != nil {
		return nil, err
	}
	s.substituteDefault(&req, src)

	return s.materialize(ctx, src, req)
}

// source locates the file and probes its native dimensions.
func (s *Service) source(sourcePath string) (variant.Source, error) {
	abs := s.absolute(sourcePath)
	if !filesystem.Exists(abs) {
		return variant.Source{}, fmt.Errorf("%w: %s", transform.ErrSourceNotFound, sourcePath)
	}

	dims, err := transform.Probe(abs)
	if err != nil {
		return variant.Source{}, fmt.Errorf("probing %s: %w", sourcePath, err)
	}
	return variant.Source{Path: abs, Width: dims.Width, Height: dims.Height}, nil
}

// substituteDefault fills a request that carries no size at all with the
// default breakpoint width, height following the native ratio.
func (s *Service) substituteDefault(req *variant.Request, src variant.Source) {
	if req.Width != 0 || req.Height != 0 {
		return
	}

	width := responsive.FallbackMaxWidth
	if s.profile != nil {
		if bp, ok := s.profile.Breakpoints.Default(); ok {
			width = bp.Value
		}
	}
	req.Width = width
	if ratio := src.Ratio(); ratio > 0 {
		req.Height = int(math.Round(float64(width) * ratio))
	}
}

// materialize maps the resolved request onto the cache: serve, defer, or
// generate.
func (s *Service) materialize(ctx context.Context, src variant.Source, req variant.Request) (*Derivative, error) {
	dest := variant.VariationPath(src.Path, req)
	d := &Derivative{
		Path:   dest,
		URL:    s.url(dest),
		Width:  req.Width,
		Height: req.Height,
	}

	if filesystem.Exists(dest) {
		metrics.DerivativeCacheHits.Inc()
		return d, nil
	}
	metrics.DerivativeCacheMisses.Inc()

	if s.deferred || req.Options.Delayed {
		if err := s.queue.Enqueue(src.Path, req, dest); err != nil {
			return nil, err
		}
		metrics.QueueDescriptorsWritten.Inc()
		d.Pending = true
		return d, nil
	}

	if err := s.generate(ctx, src.Path, req, dest); err != nil {
		return nil, err
	}
	return d, nil
}

// generate runs the engine synchronously and records the outcome.
func (s *Service) generate(ctx context.Context, sourcePath string, req variant.Request, dest string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	format := variant.TargetExt(sourcePath, req.Options)
	start := time.Now()

	data, err := s.engine.GenerateToFile(ctx, sourcePath, req, dest)
	took := time.Since(start)

	metrics.GenerationDuration.WithLabelValues(format).Observe(took.Seconds())
	metrics.GenerationsTotal.WithLabelValues(format, generationStatus(err)).Inc()
	if err != nil {
		logging.Error("generation failed for %s (%dx%d): %v", sourcePath, req.Width, req.Height, err)
		return err
	}
	metrics.GenerationBytesWritten.Add(float64(len(data)))

	s.record(ledger.Entry{
		Source:   s.relative(sourcePath),
		Path:     s.relative(dest),
		Width:    req.Width,
		Height:   req.Height,
		Format:   format,
		Bytes:    int64(len(data)),
		Duration: took,
	})
	return nil
}

func generationStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, transform.ErrSourceNotFound):
		return "error_not_found"
	case errors.Is(err, transform.ErrEncode), errors.Is(err, transform.ErrDriverUnavailable):
		return "error_encode"
	default:
		return "error"
	}
}

// record writes the bookkeeping row. Failures are logged and dropped; the
// request already succeeded.
func (s *Service) record(e ledger.Entry) {
	if s.ledger == nil {
		return
	}
	if err := s.ledger.Record(context.Background(), e); err != nil {
		logging.Warn("ledger record failed for %s: %v", e.Path, err)
	}
}

// absolute resolves a root-relative reference; absolute paths pass through.
func (s *Service) absolute(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// relative inverts absolute for storage and URLs; paths outside the root
// stay as they are.
func (s *Service) relative(p string) string {
	rel, err := filepath.Rel(s.root, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return filepath.ToSlash(rel)
}

func (s *Service) url(p string) string {
	return s.urlPrefix + "/" + s.relative(p)
}
