// Package workers sizes worker pools from the CPUs actually available
// to the process. In containers, runtime.NumCPU() reports the host's
// core count; GOMAXPROCS reflects the cgroup limit (Go 1.19+), so pool
// sizes derive from that instead.
package workers

import (
	"os"
	"runtime"
	"strconv"
)

// Count returns the worker count for a task type, as a multiplier over
// the available CPUs:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks (hashing: read from disk, digest on CPU)
//
// limit caps the result; use 0 for no cap. The HASH_WORKERS environment
// variable overrides the calculation.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv("HASH_WORKERS"); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

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

// ForCPU returns the worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns the worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns the worker count for mixed tasks (1.5 per CPU).
// Content hashing is the main consumer.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}
