package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns the worker count for a generation pool. It respects
// container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for the workload: encoding pixels is CPU-bound
// (1.0), descriptor scans and derivative sweeps wait on the filesystem
// (2.0). The limit parameter caps the count to protect downstream
// resources; 0 means no cap.
//
// Can be overridden with the VARIANT_WORKERS environment variable.
func Count(multiplier float64, limit int) int {
	// Check for manual override first
	if override := os.Getenv("VARIANT_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForEncode returns the worker count for encode pools (1 per CPU).
// The limit parameter caps the maximum number of workers.
func ForEncode(limit int) int {
	return Count(1.0, limit)
}

// ForScan returns the worker count for filesystem-bound pools (2 per CPU).
// The limit parameter caps the maximum number of workers.
func ForScan(limit int) int {
	return Count(2.0, limit)
}
