package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
)

// PreviewKind distinguishes real previews from placeholders.
type PreviewKind string

const (
	KindReal        PreviewKind = "real"
	KindPlaceholder PreviewKind = "placeholder"
)

// ErrNotFound is returned when an asset has no preview record.
var ErrNotFound = errors.New("preview record not found")

// Preview is the stored record for one asset.
type Preview struct {
	AssetName string      `json:"assetName"`
	Kind      PreviewKind `json:"kind"`
	Path      string      `json:"path"`
	Digest    string      `json:"digest,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// UpsertPreview inserts or replaces the record for p.AssetName. Last write wins.
func (d *Database) UpsertPreview(ctx context.Context, p Preview) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("upsert_preview", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO previews (asset_name, kind, path, digest, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(asset_name) DO UPDATE SET
			kind = excluded.kind,
			path = excluded.path,
			digest = excluded.digest,
			updated_at = excluded.updated_at
	`, p.AssetName, string(p.Kind), p.Path, p.Digest, updated.Unix())
	if err != nil {
		err = errors.Wrapf(err, "upserting preview for %s", p.AssetName)
	}
	return err
}

// GetPreview returns the record for name, or ErrNotFound.
func (d *Database) GetPreview(ctx context.Context, name string) (*Preview, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_preview", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var p Preview
	var kind string
	var updated int64
	err = d.db.QueryRowContext(ctx,
		"SELECT asset_name, kind, path, digest, updated_at FROM previews WHERE asset_name = ?", name,
	).Scan(&p.AssetName, &kind, &p.Path, &p.Digest, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		// not a query failure
		err = nil
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading preview for %s", name)
	}

	p.Kind = PreviewKind(kind)
	p.UpdatedAt = time.Unix(updated, 0)
	return &p, nil
}

// DeletePreview removes the record for name. Missing records are not an error.
func (d *Database) DeletePreview(ctx context.Context, name string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("delete_preview", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "DELETE FROM previews WHERE asset_name = ?", name)
	return err
}

// CountPreviews returns the number of records per kind.
func (d *Database) CountPreviews(ctx context.Context) (map[PreviewKind]int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count_previews", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM previews GROUP BY kind")
	if err != nil {
		return nil, errors.Wrap(err, "counting previews")
	}
	defer rows.Close()

	counts := make(map[PreviewKind]int)
	for rows.Next() {
		var kind string
		var n int
		if err = rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[PreviewKind(kind)] = n
	}
	err = rows.Err()
	return counts, err
}
