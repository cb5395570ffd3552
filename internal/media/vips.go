package media

import (
	"sync"

	"preview-fetcher/internal/logging"

	"github.com/cockroachdb/errors"
	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// InitVips initializes the libvips library.
// This should be called once at startup.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Configure vips logging BEFORE Startup() so LOG_LEVEL applies to libvips too
	vipsLogLevel, logHandler := vipsLogging(logging.GetLevel())
	vips.LoggingSettings(logHandler, vipsLogLevel)

	// Previews are small; keep libvips' cache modest
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// vipsLogging maps the application log level onto libvips' log level and
// returns a handler that forwards messages at or above it.
func vipsLogging(level logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	var threshold vips.LogLevel
	switch level {
	case logging.LevelDebug:
		threshold = vips.LogLevelInfo
	case logging.LevelInfo:
		threshold = vips.LogLevelWarning
	case logging.LevelWarn:
		threshold = vips.LogLevelError
	default:
		threshold = vips.LogLevelCritical
	}

	return threshold, func(domain string, l vips.LogLevel, msg string) {
		sev := vipsSeverity(l)
		if sev < vipsSeverity(threshold) {
			return
		}
		switch {
		case sev >= 3:
			logging.Error("[%s] %s", domain, msg)
		case sev == 2:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}
}

// vipsSeverity ranks libvips (GLib) levels; GLib's numeric values grow as
// severity drops, so they can't be compared directly.
func vipsSeverity(l vips.LogLevel) int {
	switch l {
	case vips.LogLevelError, vips.LogLevelCritical:
		return 3
	case vips.LogLevelWarning:
		return 2
	case vips.LogLevelMessage, vips.LogLevelInfo:
		return 1
	}
	return 0
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// previewWithVips decodes data with libvips, shrinking during decode where
// the format allows, and returns the finished preview JPEG.
func previewWithVips(data []byte, maxSize, quality int) ([]byte, error) {
	if !IsVipsAvailable() {
		return nil, errors.New("libvips not available")
	}

	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, errors.Wrap(err, "vips failed to load image")
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return nil, errors.Wrap(err, "vips auto-rotate failed")
	}
	if ref.Width() > maxSize || ref.Height() > maxSize {
		if err := ref.Thumbnail(maxSize, maxSize, vips.InterestingNone); err != nil {
			return nil, errors.Wrap(err, "vips resize failed")
		}
	}

	out, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        quality,
		StripMetadata:  true,
		OptimizeCoding: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "vips export failed")
	}
	return out, nil
}
