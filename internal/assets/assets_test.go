package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
)

func writeTree(t *testing.T, files ...string) string {
	t.Helper()

	root := t.TempDir()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestWalkFindsModelFiles(t *testing.T) {
	root := writeTree(t,
		"a.safetensors",
		"styles/anime/b.ckpt",
		"styles/anime/b.preview.jpeg",
		"styles/c.PT",
		"notes.txt",
		".hidden/d.safetensors",
		"styles/.e.safetensors",
	)

	got, err := NewWalker(root, WalkerConfig{NumWorkers: 2, SkipHidden: true}).Walk(context.Background())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	want := []struct{ name, subfolder string }{
		{"a", ""},
		{"b", "styles/anime"},
		{"c", "styles"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d assets (%v), want %d", len(got), got, len(want))
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Subfolder != w.subfolder {
			t.Errorf("asset %d = %+v, want name=%s subfolder=%q", i, got[i], w.name, w.subfolder)
		}
		if !filepath.IsAbs(got[i].Path) {
			t.Errorf("asset %d path %q is not absolute", i, got[i].Path)
		}
	}
}

func TestWalkIncludesHiddenWhenConfigured(t *testing.T) {
	root := writeTree(t, ".hidden/d.safetensors")

	got, err := NewWalker(root, WalkerConfig{NumWorkers: 1}).Walk(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Subfolder != ".hidden" {
		t.Errorf("got %v", got)
	}
}

func TestWalkMissingRoot(t *testing.T) {
	_, err := NewWalker(filepath.Join(t.TempDir(), "missing"), DefaultWalkerConfig()).Walk(context.Background())
	if !os.IsNotExist(err) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestWalkCancelled(t *testing.T) {
	root := writeTree(t, "a.safetensors", "b.safetensors")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWalker(root, DefaultWalkerConfig()).Walk(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWalkerStats(t *testing.T) {
	root := writeTree(t, "a.safetensors", "readme.md")
	w := NewWalker(root, WalkerConfig{NumWorkers: 1})
	if _, err := w.Walk(context.Background()); err != nil {
		t.Fatal(err)
	}

	files, found, errs := w.Stats()
	if files != 2 || found != 1 || errs != 0 {
		t.Errorf("Stats() = %d, %d, %d; want 2, 1, 0", files, found, errs)
	}
}

func TestCatalogDeduplicatesNames(t *testing.T) {
	root := writeTree(t, "a/model.safetensors", "b/model.ckpt", "other.pt")
	c := NewCatalog(root, WalkerConfig{NumWorkers: 2})

	got, err := c.Assets(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %v, want 2 assets", got)
	}
	if got[0].Name != "model" || got[0].Subfolder != "a" {
		t.Errorf("first asset = %+v, want model from a/", got[0])
	}

	cached, scanned := c.Cached()
	if len(cached) != 2 || scanned.IsZero() {
		t.Errorf("Cached() = %v, %v", cached, scanned)
	}
}

func TestCatalogRescans(t *testing.T) {
	root := writeTree(t, "a.safetensors")
	c := NewCatalog(root, WalkerConfig{NumWorkers: 1})
	ctx := context.Background()

	if got, _ := c.Assets(ctx); len(got) != 1 {
		t.Fatalf("first scan = %v", got)
	}
	if err := os.WriteFile(filepath.Join(root, "b.bin"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.Assets(ctx); len(got) != 2 {
		t.Errorf("second scan = %v, want 2 assets", got)
	}
}
