package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"variant-server/internal/ledger"
	"variant-server/internal/mediatypes"
	"variant-server/internal/metrics"
	"variant-server/internal/queue"
	"variant-server/internal/variant"
	"variant-server/internal/workers"

	"golang.org/x/sync/errgroup"
)

// cmdPregenerate derives the responsive ladder for every source in the
// media tree, so first page loads never pay the generation cost.
func cmdPregenerate(ctx context.Context) bool {
	st, err := buildStack(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	defer st.close()

	start := time.Now()
	done, failed, err := runPregenerate(ctx, st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	fmt.Printf("Pregenerated ladders for %d source(s), %d failed, in %v\n",
		done, failed, time.Since(start).Round(time.Millisecond))
	return failed == 0
}

func runPregenerate(ctx context.Context, st *stack) (done, failed int, err error) {
	sources, err := walkSources(st.root)
	if err != nil {
		return 0, 0, err
	}

	var ok, bad atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForEncode(0))

	for _, rel := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			// The ladder request mirrors what the srcset endpoint serves;
			// existing rungs are cache hits and cost nothing.
			if _, err := st.svc.Srcset(rel, nil, nil, nil); err != nil {
				bad.Add(1)
				metrics.WorkerJobsTotal.WithLabelValues("error").Inc()
				fmt.Fprintf(os.Stderr, "  %s: %v\n", rel, err)
				return nil
			}
			ok.Add(1)
			metrics.WorkerJobsTotal.WithLabelValues("success").Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return int(ok.Load()), int(bad.Load()), err
	}
	return int(ok.Load()), int(bad.Load()), nil
}

// cmdFlush fulfills every pending descriptor in the tree, emptying the
// deferred-generation backlog.
func cmdFlush(ctx context.Context) bool {
	st, err := buildStack(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	defer st.close()

	start := time.Now()
	fulfilled, skipped, failed, err := runFlush(ctx, st)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	fmt.Printf("Fulfilled %d descriptor(s), %d skipped, %d failed, in %v\n",
		fulfilled, skipped, failed, time.Since(start).Round(time.Millisecond))
	return failed == 0
}

func runFlush(ctx context.Context, st *stack) (fulfilled, skipped, failed int, err error) {
	descriptors, err := walkDescriptors(st.root)
	if err != nil {
		return 0, 0, 0, err
	}

	var ok, skip, bad atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForEncode(0))

	for _, rel := range descriptors {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dest := strings.TrimSuffix(rel, queue.Suffix)
			_, err := st.svc.FulfillOnMiss(ctx, dest)
			switch {
			case err == nil:
				ok.Add(1)
				metrics.WorkerJobsTotal.WithLabelValues("success").Inc()
			case errors.Is(err, queue.ErrNotPending), errors.Is(err, queue.ErrStaleSource):
				// Raced with a request, or the source vanished and the
				// descriptor was pruned. Both are resolved states.
				skip.Add(1)
				metrics.WorkerJobsTotal.WithLabelValues("skipped").Inc()
			default:
				bad.Add(1)
				metrics.WorkerJobsTotal.WithLabelValues("error").Inc()
				fmt.Fprintf(os.Stderr, "  %s: %v\n", rel, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return int(ok.Load()), int(skip.Load()), int(bad.Load()), err
	}
	return int(ok.Load()), int(skip.Load()), int(bad.Load()), nil
}

// cmdCleanup removes derivatives and descriptors whose source no longer
// exists. Destructive, so it prompts unless -y was passed.
func cmdCleanup(ctx context.Context, assumeYes, vacuum bool) bool {
	st, err := buildStack(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	defer st.close()

	orphans, err := findOrphans(st.root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}
	if len(orphans) == 0 {
		fmt.Println("No orphaned derivatives found.")
		return true
	}

	fmt.Printf("Found %d orphaned derivative(s) under %s\n", len(orphans), st.root)
	if !assumeYes && !confirm(fmt.Sprintf("Remove %d file(s)?", len(orphans))) {
		fmt.Fprintln(os.Stderr, "Aborted.")
		return false
	}

	removed, err := runCleanup(ctx, st, orphans, vacuum)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	fmt.Printf("Removed %d orphaned derivative(s)\n", removed)
	return true
}

func runCleanup(ctx context.Context, st *stack, orphans []string, vacuum bool) (int, error) {
	removed := 0
	for _, rel := range orphans {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.Remove(filepath.Join(st.root, rel)); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			fmt.Fprintf(os.Stderr, "  %s: %v\n", rel, err)
			continue
		}
		removed++
		if st.ledger != nil {
			if err := st.ledger.RemovePath(ctx, filepath.ToSlash(rel)); err != nil {
				fmt.Fprintf(os.Stderr, "  ledger prune %s: %v\n", rel, err)
			}
		}
	}

	if vacuum && st.ledger != nil {
		if err := st.ledger.Vacuum(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ledger vacuum failed: %v\n", err)
		}
	}
	return removed, nil
}

// cmdStats prints the ledger totals.
func cmdStats(ctx context.Context) bool {
	ledgerDir := envOr("LEDGER_DIR", defaultLedgerDir)
	led, err := ledger.Open(ctx, filepath.Join(ledgerDir, "variations.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open ledger: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure LEDGER_DIR is set correctly (current: %s)\n", ledgerDir)
		return false
	}
	defer func() {
		if err := led.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close ledger: %v\n", err)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats, err := led.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return false
	}

	fmt.Printf("Variations:    %d\n", stats.Variations)
	fmt.Printf("Sources:       %d\n", stats.Sources)
	fmt.Printf("Bytes:         %d (%.1f MiB)\n", stats.Bytes, float64(stats.Bytes)/(1024*1024))
	fmt.Printf("Avg duration:  %.1f ms\n", stats.AvgDurationMS)
	if stats.LastRecorded.IsZero() {
		fmt.Println("Last recorded: never")
	} else {
		fmt.Printf("Last recorded: %s\n", stats.LastRecorded.Format(time.RFC3339))
	}
	return true
}

// walkSources lists root-relative source images, skipping hidden entries
// and anything already shaped like a derivative.
func walkSources(root string) ([]string, error) {
	var sources []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if _, isVariation := variant.ParseVariationBase(name); isVariation {
			return nil
		}
		if !mediatypes.IsSource(name) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sources = append(sources, rel)
		return nil
	})
	return sources, err
}

// walkDescriptors lists root-relative pending queue descriptors.
func walkDescriptors(root string) ([]string, error) {
	var descriptors []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, queue.Suffix) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		descriptors = append(descriptors, rel)
		return nil
	})
	return descriptors, err
}

// findOrphans lists root-relative variation files (descriptors included)
// left behind by a deleted source. A variation is live as long as any
// source file with its base name remains in the same directory.
func findOrphans(root string) ([]string, error) {
	type candidate struct {
		rel string
		key string
	}

	liveBases := make(map[string]bool)
	var candidates []candidate

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		dir := filepath.Dir(rel)
		if base, ok := variant.ParseVariationBase(name); ok {
			candidates = append(candidates, candidate{rel: rel, key: filepath.Join(dir, base)})
			return nil
		}
		if mediatypes.IsSource(name) {
			base := strings.TrimSuffix(name, filepath.Ext(name))
			liveBases[filepath.Join(dir, base)] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var orphans []string
	for _, c := range candidates {
		if !liveBases[c.key] {
			orphans = append(orphans, c.rel)
		}
	}
	return orphans, nil
}
