package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"preview-fetcher/internal/batch"
)

// DefaultRunHistory is how many runs ListRuns returns when limit <= 0.
const DefaultRunHistory = 20

const lastRunKey = "last_run"

// SaveRun stores a finished run report and updates the last run timestamp.
// Per-item outcomes are not persisted.
func (d *Database) SaveRun(ctx context.Context, report batch.RunReport) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("save_run", start, err) }()

	report.Outcomes = nil
	payload, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "encoding run report")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning run transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, mode, started_at, finished_at, cancelled, report)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			cancelled = excluded.cancelled,
			report = excluded.report
	`, report.RunID, string(report.Mode), report.StartedAt.UnixMilli(), report.FinishedAt.UnixMilli(),
		report.Cancelled, string(payload))
	if err != nil {
		return errors.Wrapf(err, "saving run %s", report.RunID)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, lastRunKey, report.FinishedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return errors.Wrap(err, "updating last run timestamp")
	}

	err = tx.Commit()
	return err
}

// ListRuns returns up to limit reports, newest first.
func (d *Database) ListRuns(ctx context.Context, limit int) ([]batch.RunReport, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_runs", start, err) }()

	if limit <= 0 {
		limit = DefaultRunHistory
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx,
		"SELECT report FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.Wrap(err, "listing runs")
	}
	defer rows.Close()

	reports := make([]batch.RunReport, 0, limit)
	for rows.Next() {
		var payload string
		if err = rows.Scan(&payload); err != nil {
			return nil, err
		}
		var r batch.RunReport
		if err = json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, errors.Wrap(err, "decoding run report")
		}
		reports = append(reports, r)
	}
	err = rows.Err()
	return reports, err
}

// GetRun returns a single run by id, or ErrRunNotFound.
func (d *Database) GetRun(ctx context.Context, id string) (*batch.RunReport, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_run", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var payload string
	err = d.db.QueryRowContext(ctx, "SELECT report FROM runs WHERE id = ?", id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}

	var r batch.RunReport
	if err = json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, errors.Wrap(err, "decoding run report")
	}
	return &r, nil
}

// ErrRunNotFound is returned by GetRun for unknown ids.
var ErrRunNotFound = errors.New("run not found")
