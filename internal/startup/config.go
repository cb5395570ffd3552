package startup

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/failure"
	"preview-fetcher/internal/logging"
)

// ConfigFileEnv names an optional YAML file layered under the environment.
const ConfigFileEnv = "PREVIEW_CONFIG"

// Config holds all application configuration
type Config struct {
	AssetDir        string
	CacheDir        string
	DatabaseDir     string
	Port            string
	MetricsEnabled  bool
	LogHealthChecks bool

	CatalogURL   string
	CatalogToken string
	CatalogRPS   float64
	CatalogBurst int

	PreviewMaxSize int
	PreviewQuality int
	FFmpegPath     string

	// Run holds the defaults for every batch run; API callers may override
	// individual fields per run.
	Run batch.RunConfig

	// Derived paths
	DatabasePath   string
	PlaceholderDir string
}

// envKeys maps viper keys to environment variables. The YAML file uses the
// same keys.
var envKeys = map[string]string{
	"asset_dir":           "ASSET_DIR",
	"cache_dir":           "CACHE_DIR",
	"database_dir":        "DATABASE_DIR",
	"port":                "PORT",
	"metrics_enabled":     "METRICS_ENABLED",
	"log_health_checks":   "LOG_HEALTH_CHECKS",
	"catalog_url":         "CATALOG_URL",
	"catalog_token":       "CATALOG_TOKEN",
	"catalog_rps":         "CATALOG_RPS",
	"catalog_burst":       "CATALOG_BURST",
	"preview_max_size":    "PREVIEW_MAX_SIZE",
	"preview_quality":     "PREVIEW_QUALITY",
	"ffmpeg_path":         "FFMPEG_PATH",
	"batch_size":          "BATCH_SIZE",
	"max_concurrency":     "MAX_CONCURRENCY",
	"metadata_timeout":    "METADATA_TIMEOUT",
	"preview_timeout":     "PREVIEW_TIMEOUT",
	"max_retries":         "MAX_RETRIES",
	"base_retry_delay":    "BASE_RETRY_DELAY",
	"backoff_multiplier":  "BACKOFF_MULTIPLIER",
	"inter_batch_delay":   "INTER_BATCH_DELAY",
	"stagger_delay":       "STAGGER_DELAY",
	"skip_video_previews": "SKIP_VIDEO_PREVIEWS",
	"filter":              "PREVIEW_FILTER",
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("asset_dir", "/models")
	v.SetDefault("cache_dir", "/cache")
	v.SetDefault("database_dir", "/database")
	v.SetDefault("port", "8080")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("log_health_checks", false)

	v.SetDefault("catalog_url", "http://localhost:8081/api/v1")
	v.SetDefault("catalog_rps", 2.0)
	v.SetDefault("catalog_burst", 2)

	v.SetDefault("preview_max_size", 512)
	v.SetDefault("preview_quality", 85)
	v.SetDefault("ffmpeg_path", "ffmpeg")

	run := batch.DefaultRunConfig()
	v.SetDefault("batch_size", run.BatchSize)
	v.SetDefault("max_concurrency", run.MaxConcurrency)
	v.SetDefault("metadata_timeout", run.MetadataTimeout)
	v.SetDefault("preview_timeout", run.PreviewTimeout)
	v.SetDefault("max_retries", run.MaxRetries)
	v.SetDefault("base_retry_delay", run.BaseRetryDelay)
	v.SetDefault("backoff_multiplier", run.BackoffMultiplier)
	v.SetDefault("inter_batch_delay", run.InterBatchDelay)
	v.SetDefault("stagger_delay", run.StaggerDelay)
	v.SetDefault("skip_video_previews", run.SkipVideoPreviews)
}

// newViper builds the viper instance: defaults, then the optional YAML file,
// then environment variables (highest precedence).
func newViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, errors.Wrapf(err, "binding %s", env)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", configFile)
		}
	}
	return v, nil
}

// ReadSettings resolves configuration from defaults, the PREVIEW_CONFIG file
// and the environment, and validates the run defaults. It does not touch the
// filesystem beyond reading the config file.
func ReadSettings(configFile string) (*Config, error) {
	v, err := newViper(configFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AssetDir:        v.GetString("asset_dir"),
		CacheDir:        v.GetString("cache_dir"),
		DatabaseDir:     v.GetString("database_dir"),
		Port:            v.GetString("port"),
		MetricsEnabled:  v.GetBool("metrics_enabled"),
		LogHealthChecks: v.GetBool("log_health_checks"),
		CatalogURL:      strings.TrimRight(v.GetString("catalog_url"), "/"),
		CatalogToken:    v.GetString("catalog_token"),
		CatalogRPS:      v.GetFloat64("catalog_rps"),
		CatalogBurst:    v.GetInt("catalog_burst"),
		PreviewMaxSize:  v.GetInt("preview_max_size"),
		PreviewQuality:  v.GetInt("preview_quality"),
		FFmpegPath:      v.GetString("ffmpeg_path"),
		Run: batch.RunConfig{
			BatchSize:         v.GetInt("batch_size"),
			MaxConcurrency:    v.GetInt("max_concurrency"),
			MetadataTimeout:   v.GetDuration("metadata_timeout"),
			PreviewTimeout:    v.GetDuration("preview_timeout"),
			MaxRetries:        v.GetInt("max_retries"),
			BaseRetryDelay:    v.GetDuration("base_retry_delay"),
			BackoffMultiplier: v.GetFloat64("backoff_multiplier"),
			InterBatchDelay:   v.GetDuration("inter_batch_delay"),
			StaggerDelay:      v.GetDuration("stagger_delay"),
			SkipVideoPreviews: v.GetBool("skip_video_previews"),
			Filter:            v.GetString("filter"),
		},
	}

	if cfg.CatalogURL == "" {
		return nil, errors.WithHint(
			errors.Mark(errors.New("catalog URL is empty"), failure.ErrInvalidInput),
			"set CATALOG_URL to the remote catalog API base")
	}
	if cfg.CatalogRPS < 0 {
		return nil, errors.Mark(errors.Newf("CATALOG_RPS must not be negative, got %v", cfg.CatalogRPS), failure.ErrInvalidInput)
	}
	if err := cfg.Run.Validate(); err != nil {
		return nil, err
	}

	for _, dir := range []*string{&cfg.AssetDir, &cfg.CacheDir, &cfg.DatabaseDir} {
		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to resolve %s", *dir)
		}
		*dir = abs
	}
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "previews.db")
	cfg.PlaceholderDir = filepath.Join(cfg.CacheDir, "placeholders")
	return cfg, nil
}

// Load reads settings, logs them and prepares the directories. Used by the
// CLI; the server goes through LoadConfig, which adds the banner.
func Load(configFile string) (*Config, error) {
	cfg, err := ReadSettings(configFile)
	if err != nil {
		return nil, err
	}

	logConfiguration(cfg, configFile)

	if err := setupDirectories(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func logConfiguration(cfg *Config, configFile string) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if configFile != "" {
		logging.Info("  Config file:         %s", configFile)
	}
	logging.Info("  ASSET_DIR:           %s", cfg.AssetDir)
	logging.Info("  CACHE_DIR:           %s", cfg.CacheDir)
	logging.Info("  DATABASE_DIR:        %s", cfg.DatabaseDir)
	logging.Info("  PORT:                %s", cfg.Port)
	logging.Info("  METRICS_ENABLED:     %v", cfg.MetricsEnabled)
	logging.Info("  CATALOG_URL:         %s", cfg.CatalogURL)
	logging.Info("  CATALOG_TOKEN:       %s", redact(cfg.CatalogToken))
	logging.Info("  CATALOG_RPS:         %v (burst %d)", cfg.CatalogRPS, cfg.CatalogBurst)
	logging.Info("  PREVIEW_MAX_SIZE:    %d", cfg.PreviewMaxSize)
	logging.Info("  BATCH_SIZE:          %d", cfg.Run.BatchSize)
	logging.Info("  MAX_CONCURRENCY:     %d", cfg.Run.MaxConcurrency)
	logging.Info("  METADATA_TIMEOUT:    %v", cfg.Run.MetadataTimeout)
	logging.Info("  PREVIEW_TIMEOUT:     %v", cfg.Run.PreviewTimeout)
	logging.Info("  MAX_RETRIES:         %d", cfg.Run.MaxRetries)
	logging.Info("  BASE_RETRY_DELAY:    %v (x%v)", cfg.Run.BaseRetryDelay, cfg.Run.BackoffMultiplier)
	logging.Info("  INTER_BATCH_DELAY:   %v", cfg.Run.InterBatchDelay)
	logging.Info("  STAGGER_DELAY:       %v", cfg.Run.StaggerDelay)
	logging.Info("  SKIP_VIDEO_PREVIEWS: %v", cfg.Run.SkipVideoPreviews)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
}

func setupDirectories(cfg *Config) error {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	// Assets are mounted, not created; previews are written next to them.
	if err := ensureDirectory(cfg.AssetDir, "asset"); err != nil {
		return errors.Wrap(err, "asset directory error")
	}
	if err := testWriteAccess(cfg.AssetDir); err != nil {
		logging.Warn("  Asset directory is not writable, previews cannot be saved: %v", err)
	} else {
		logging.Info("  [OK] Asset directory is writable")
	}

	if err := ensureDirectory(cfg.DatabaseDir, "database"); err != nil {
		return errors.Wrap(err, "database directory error")
	}
	if err := testWriteAccess(cfg.DatabaseDir); err != nil {
		return errors.Wrap(err, "database directory is not writable (required for database)")
	}
	logging.Info("  [OK] Database directory is writable")

	if err := ensureDirectory(cfg.PlaceholderDir, "placeholder"); err != nil {
		return errors.Wrap(err, "placeholder directory error")
	}
	if err := testWriteAccess(cfg.PlaceholderDir); err != nil {
		return errors.Wrap(err, "placeholder directory is not writable")
	}
	logging.Info("  [OK] Placeholder directory is writable")
	return nil
}

func redact(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "(set)"
}
