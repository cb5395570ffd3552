package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"preview-fetcher/internal/assets"
	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/database"
	"preview-fetcher/internal/metrics"
	"preview-fetcher/internal/startup"
)

func TestDatabaseIsStatsProvider(t *testing.T) {
	var _ metrics.StatsProvider = (*database.Database)(nil)
}

func TestBackgroundIntervals(t *testing.T) {
	t.Run("Stats interval is reasonable", func(t *testing.T) {
		if statsInterval < 10*time.Second || statsInterval > 10*time.Minute {
			t.Errorf("statsInterval = %v", statsInterval)
		}
	})

	t.Run("DB metrics interval is reasonable", func(t *testing.T) {
		if dbMetricsInterval < time.Second || dbMetricsInterval > 5*time.Minute {
			t.Errorf("dbMetricsInterval = %v", dbMetricsInterval)
		}
	})

	t.Run("Shutdown leaves time to save a cancelled run", func(t *testing.T) {
		if shutdownTimeout < 10*time.Second {
			t.Errorf("shutdownTimeout = %v, want at least 10s", shutdownTimeout)
		}
	})
}

func TestRefreshStatsAfterRun(t *testing.T) {
	ctx := context.Background()
	assetDir := t.TempDir()
	for _, name := range []string{"a.safetensors", "b.safetensors", "c.safetensors"} {
		if err := os.WriteFile(filepath.Join(assetDir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	db, err := database.New(ctx, filepath.Join(t.TempDir(), "previews.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.UpsertPreview(ctx, database.Preview{AssetName: "a", Kind: database.KindReal, Path: "a.preview.jpeg"}); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertPreview(ctx, database.Preview{AssetName: "b", Kind: database.KindPlaceholder, Path: "b.jpeg"}); err != nil {
		t.Fatal(err)
	}

	comps := &startup.Components{DB: db, Assets: assets.NewCatalog(assetDir, assets.DefaultWalkerConfig())}

	t.Run("Falls back to report total before a scan", func(t *testing.T) {
		refreshStatsAfterRun(comps)(batch.RunReport{Total: 7})
		if got := db.GetStats().TotalAssets; got != 7 {
			t.Errorf("TotalAssets = %d, want 7", got)
		}
	})

	t.Run("Uses the cached scan", func(t *testing.T) {
		if _, err := comps.Assets.Assets(ctx); err != nil {
			t.Fatal(err)
		}
		refreshStatsAfterRun(comps)(batch.RunReport{Total: 1})

		stats := db.GetStats()
		if stats.TotalAssets != 3 || stats.RealPreviews != 1 || stats.PlaceholderAssets != 1 {
			t.Errorf("stats = %+v", stats)
		}
	})
}
