package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride is the environment variable that pins the worker count.
const EnvOverride = "PREVIEW_WORKERS"

// Count returns the number of workers for a task whose cost is dominated by
// the given multiplier of available CPUs (1.0 CPU-bound, 2.0 I/O-bound).
// limit caps the result; 0 means no cap. The result is never below 1.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			if limit > 0 && count > limit {
				return limit
			}
			return count
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForCPU returns a worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns a worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}
