package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"preview-fetcher/internal/logging"
)

// DefaultMemoryRatio is the share of the container limit given to the Go
// heap. The rest is left for libvips, ffmpeg and goroutine stacks.
const DefaultMemoryRatio = 0.80

var log = logging.With("memory")

// LimitResult describes how GOMEMLIMIT was resolved.
type LimitResult struct {
	Configured bool
	// Source is "GOMEMLIMIT", "MEMORY_LIMIT" or "none".
	Source         string
	ContainerLimit int64
	GoMemLimit     int64
	Ratio          float64
}

// ConfigureFromEnv sets GOMEMLIMIT from MEMORY_LIMIT (bytes, usually from the
// Kubernetes Downward API) times MEMORY_RATIO. An explicit GOMEMLIMIT wins.
// Call it early in main.
func ConfigureFromEnv() LimitResult {
	return configure(os.Getenv, debug.SetMemoryLimit)
}

func configure(getenv func(string) string, setLimit func(int64) int64) LimitResult {
	if v := getenv("GOMEMLIMIT"); v != "" {
		result := LimitResult{Source: "GOMEMLIMIT"}
		if limit := setLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		log.Info("GOMEMLIMIT set via environment: %s", v)
		return result
	}

	raw := getenv("MEMORY_LIMIT")
	if raw == "" {
		return LimitResult{Source: "none"}
	}
	containerLimit, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || containerLimit <= 0 {
		log.Warn("Ignoring MEMORY_LIMIT %q: not a positive byte count", raw)
		return LimitResult{Source: "none"}
	}

	ratio := DefaultMemoryRatio
	if r := getenv("MEMORY_RATIO"); r != "" {
		parsed, err := strconv.ParseFloat(r, 64)
		switch {
		case err != nil:
			log.Warn("Failed to parse MEMORY_RATIO %q, using %.2f", r, DefaultMemoryRatio)
		case parsed <= 0 || parsed > 1:
			log.Warn("MEMORY_RATIO %q out of range (0-1], using %.2f", r, DefaultMemoryRatio)
		default:
			ratio = parsed
		}
	}

	goMemLimit := int64(float64(containerLimit) * ratio)
	setLimit(goMemLimit)
	log.Info("Configured GOMEMLIMIT: %s (%.0f%% of %s)", formatBytes(goMemLimit), ratio*100, formatBytes(containerLimit))

	return LimitResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: containerLimit,
		GoMemLimit:     goMemLimit,
		Ratio:          ratio,
	}
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
