package startup

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"preview-fetcher/internal/assets"
	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/catalog"
	"preview-fetcher/internal/database"
	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/media"
	"preview-fetcher/internal/memory"
	"preview-fetcher/internal/storage"
)

// Components holds the collaborators of a preview run, shared by the server
// and the CLI.
type Components struct {
	DB        *database.Database
	Catalog   *catalog.Client
	Store     *storage.Store
	Assets    *assets.Catalog
	Processor *media.Processor
	Gate      *memory.Gate
	Runner    *batch.Runner
}

// BuildComponents opens the database and wires the catalog client, preview
// processor, store and asset catalog into a batch.Runner. Close releases
// what it opened.
func BuildComponents(ctx context.Context, cfg *Config) (*Components, error) {
	dbStart := time.Now()
	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, errors.Wrap(err, "initializing database")
	}
	LogDatabaseInit(time.Since(dbStart))

	client, err := catalog.New(catalog.Config{
		BaseURL:   cfg.CatalogURL,
		Token:     cfg.CatalogToken,
		RPS:       cfg.CatalogRPS,
		Burst:     cfg.CatalogBurst,
		UserAgent: "preview-fetcher/" + Version,
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "initializing catalog client")
	}
	LogCatalogInit(cfg.CatalogURL, cfg.CatalogToken != "", cfg.CatalogRPS)

	vipsErr := media.InitVips()
	if vipsErr != nil {
		logging.Warn("  libvips unavailable, falling back to pure Go decoding: %v", vipsErr)
	}
	LogMediaInit(cfg.FFmpegPath, media.IsVipsAvailable())

	gate := memory.NewGate(memory.DefaultGateConfig())
	gate.Start()

	store := storage.New(db, cfg.AssetDir, cfg.CacheDir)
	processor := media.NewProcessor(client, store, media.Config{
		MaxSize:    cfg.PreviewMaxSize,
		Quality:    cfg.PreviewQuality,
		FFmpegPath: cfg.FFmpegPath,
		Gate:       gate,
	})
	assetCatalog := assets.NewCatalog(cfg.AssetDir, assets.DefaultWalkerConfig())

	runner := batch.NewRunner(batch.Dependencies{
		Fetcher:      client,
		Generator:    processor,
		Index:        store,
		Placeholders: store,
		Assets:       assetCatalog,
		Store:        db,
	})

	return &Components{
		DB:        db,
		Catalog:   client,
		Store:     store,
		Assets:    assetCatalog,
		Processor: processor,
		Gate:      gate,
		Runner:    runner,
	}, nil
}

// Close releases the database, the memory gate and libvips.
func (c *Components) Close() error {
	if c.Gate != nil {
		c.Gate.Stop()
	}
	media.ShutdownVips()
	return c.DB.Close()
}
