package storage

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/blake2b"

	"preview-fetcher/internal/database"
	"preview-fetcher/internal/failure"
	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/metrics"
)

// PreviewSuffix is appended to the asset name for real preview files.
const PreviewSuffix = ".preview.jpeg"

var log = logging.With("storage")

// Records is the subset of the database the store needs.
type Records interface {
	UpsertPreview(ctx context.Context, p database.Preview) error
	GetPreview(ctx context.Context, name string) (*database.Preview, error)
}

// Store writes preview files and answers availability queries. It implements
// media.PreviewSaver, batch.PlaceholderWriter and batch.AvailabilityIndex.
type Store struct {
	records  Records
	assetDir string
	cacheDir string
}

// New creates a store rooted at assetDir (real previews next to the assets)
// and cacheDir (placeholders).
func New(records Records, assetDir, cacheDir string) *Store {
	return &Store{
		records:  records,
		assetDir: assetDir,
		cacheDir: cacheDir,
	}
}

// PlaceholderDir is where placeholder images are written.
func (s *Store) PlaceholderDir() string {
	return filepath.Join(s.cacheDir, "placeholders")
}

// SavePreview writes <assetDir>/<subfolder>/<name>.preview.jpeg atomically
// and records it as a real preview.
func (s *Store) SavePreview(ctx context.Context, name, subfolder string, jpeg []byte) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if len(jpeg) == 0 {
		return "", errors.Mark(errors.Newf("empty preview for %s", name), failure.ErrInvalidInput)
	}

	dir, err := s.subdir(subfolder)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}

	path := filepath.Join(dir, name+PreviewSuffix)
	if err := writeFileAtomic(path, jpeg); err != nil {
		return "", err
	}
	metrics.PreviewBytesWritten.WithLabelValues(string(database.KindReal)).Add(float64(len(jpeg)))

	if err := s.records.UpsertPreview(ctx, database.Preview{
		AssetName: name,
		Kind:      database.KindReal,
		Path:      path,
		Digest:    digest(jpeg),
	}); err != nil {
		return "", err
	}

	log.Debug("Saved preview for %s (%d bytes) at %s", name, len(jpeg), path)
	return path, nil
}

// CreatePlaceholderPreview writes a generated placeholder image for name and
// records it. Identical content already on disk is not rewritten.
func (s *Store) CreatePlaceholderPreview(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}

	data, err := renderPlaceholder(name)
	if err != nil {
		return errors.Wrapf(err, "rendering placeholder for %s", name)
	}
	sum := digest(data)
	path := filepath.Join(s.PlaceholderDir(), name+".jpeg")

	existing, err := s.records.GetPreview(ctx, name)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return err
	}
	if existing != nil && existing.Kind == database.KindPlaceholder && existing.Digest == sum && fileExists(existing.Path) {
		log.Debug("Placeholder for %s unchanged", name)
		return nil
	}

	if err := os.MkdirAll(s.PlaceholderDir(), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", s.PlaceholderDir())
	}
	if err := writeFileAtomic(path, data); err != nil {
		return err
	}
	metrics.PreviewBytesWritten.WithLabelValues(string(database.KindPlaceholder)).Add(float64(len(data)))

	return s.records.UpsertPreview(ctx, database.Preview{
		AssetName: name,
		Kind:      database.KindPlaceholder,
		Path:      path,
		Digest:    sum,
	})
}

// HasRealPreview reports whether a real preview is recorded and still on disk.
func (s *Store) HasRealPreview(ctx context.Context, name string) (bool, error) {
	p, err := s.lookup(ctx, name)
	if err != nil || p == nil {
		return false, err
	}
	if p.Kind != database.KindReal {
		return false, nil
	}
	return fileExists(p.Path), nil
}

// HasPlaceholderPreview reports whether the asset's record is a placeholder.
func (s *Store) HasPlaceholderPreview(ctx context.Context, name string) (bool, error) {
	p, err := s.lookup(ctx, name)
	if err != nil || p == nil {
		return false, err
	}
	return p.Kind == database.KindPlaceholder, nil
}

func (s *Store) lookup(ctx context.Context, name string) (*database.Preview, error) {
	p, err := s.records.GetPreview(ctx, name)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// subdir resolves subfolder below the asset root, rejecting escapes.
func (s *Store) subdir(subfolder string) (string, error) {
	dir := filepath.Join(s.assetDir, filepath.FromSlash(subfolder))
	rel, err := filepath.Rel(s.assetDir, dir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Mark(errors.Newf("subfolder %q escapes the asset directory", subfolder), failure.ErrInvalidInput)
	}
	return dir, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return errors.Mark(errors.Newf("invalid asset name %q", name), failure.ErrInvalidInput)
	}
	return nil
}

func digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".preview-tmp-*")
	if err != nil {
		return errors.Wrapf(err, "create temp file for %s", path)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "write temp file for %s", path)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Wrapf(err, "chmod temp file for %s", path)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrapf(err, "close temp file for %s", path)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return errors.Wrapf(err, "replace %s", path)
	}
	return nil
}
