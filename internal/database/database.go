package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

var log = logging.With("database")

// Database stores preview records, run history and key/value metadata.
type Database struct {
	db      *sql.DB
	dbPath  string
	mu      sync.RWMutex
	stats   metrics.Stats
	statsMu sync.RWMutex
}

// New opens (or creates) the database at dbPath. The parent directory must
// already exist and be writable; startup.LoadConfig checks that.
func New(ctx context.Context, dbPath string) (*Database, error) {
	log.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		log.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout keeps concurrent writers from failing with "database is locked"
	connStr := dbPath + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, errors.Wrap(err, "failed to initialize database schema")
	}

	log.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS previews (
		asset_name TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		path TEXT NOT NULL,
		digest TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_previews_kind ON previews(kind);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0,
		report TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// RefreshStats recounts preview records and caches the result for GetStats.
// totalAssets comes from the latest asset scan.
func (d *Database) RefreshStats(ctx context.Context, totalAssets int) error {
	counts, err := d.CountPreviews(ctx)
	if err != nil {
		return err
	}

	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	d.stats = metrics.Stats{
		TotalAssets:       totalAssets,
		RealPreviews:      counts[KindReal],
		PlaceholderAssets: counts[KindPlaceholder],
	}
	return nil
}

// GetStats returns the statistics cached by RefreshStats.
func (d *Database) GetStats() metrics.Stats {
	d.statsMu.RLock()
	defer d.statsMu.RUnlock()
	return d.stats
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// UpdateDBMetrics updates connection and file size gauges.
func (d *Database) UpdateDBMetrics() {
	stats := d.db.Stats()
	metrics.DBConnectionsOpen.Set(float64(stats.OpenConnections))

	for label, path := range map[string]string{
		"main": d.dbPath,
		"wal":  d.dbPath + "-wal",
		"shm":  d.dbPath + "-shm",
	} {
		var size int64
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		metrics.DBSizeBytes.WithLabelValues(label).Set(float64(size))
	}
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return errors.Wrap(err, "cannot stat database directory")
	}

	log.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return errors.Wrap(err, "database directory not writable")
	}
	_ = os.Remove(testFile)

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		log.Debug("Database file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 != 0 {
			continue
		}
		log.Warn("%s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
		if path == dbPath {
			continue
		}
		if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
			log.Error("Failed to fix permissions on %s: %v", path, chmodErr)
		} else {
			log.Info("Fixed permissions on %s", path)
		}
	}

	return nil
}
