package media

import (
	"context"
	"image"
	"time"

	"preview-fetcher/internal/batch"
	"preview-fetcher/internal/failure"
	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/mediatypes"
	"preview-fetcher/internal/metrics"

	"github.com/cockroachdb/errors"
)

// Downloader fetches a media URL. catalog.Client implements it.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, string, error)
}

// PreviewSaver persists a finished preview. storage.Store implements it.
type PreviewSaver interface {
	SavePreview(ctx context.Context, name, subfolder string, jpeg []byte) (string, error)
}

// MemoryGate holds back decoding under memory pressure. memory.Gate
// implements it.
type MemoryGate interface {
	Wait(ctx context.Context) error
}

// Config configures a Processor.
type Config struct {
	// MaxSize bounds the longer edge of the preview in pixels.
	MaxSize int
	// Quality is the JPEG quality (1-100).
	Quality int
	// FFmpegPath is the ffmpeg binary; defaults to "ffmpeg" on PATH.
	FFmpegPath string
	// Gate is optional.
	Gate MemoryGate
}

// Processor implements batch.PreviewGenerator.
type Processor struct {
	downloader Downloader
	saver      PreviewSaver
	maxSize    int
	quality    int
	extract    frameExtractor
	gate       MemoryGate
	log        *logging.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(dl Downloader, saver PreviewSaver, cfg Config) *Processor {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 512
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 85
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &Processor{
		downloader: dl,
		saver:      saver,
		maxSize:    cfg.MaxSize,
		quality:    cfg.Quality,
		extract:    ffmpegExtractor(cfg.FFmpegPath),
		gate:       cfg.Gate,
		log:        logging.With("media"),
	}
}

// GeneratePreview builds a preview from the first usable media entry and
// saves it. An empty media list fails with failure.ErrInvalidInput; if no
// entry works the error is marked failure.ErrPreviewGeneration and wraps the
// last cause.
func (p *Processor) GeneratePreview(ctx context.Context, meta *batch.Metadata, name, subfolder string) (batch.PreviewResult, error) {
	if meta == nil || len(meta.Media) == 0 {
		return batch.PreviewResult{}, errors.Mark(errors.Newf("no media for %s", name), failure.ErrInvalidInput)
	}

	var lastErr error
	for i, entry := range meta.Media {
		if err := ctx.Err(); err != nil {
			// context.Canceled classifies as cancelled, DeadlineExceeded as timeout
			return batch.PreviewResult{}, errors.Wrapf(err, "generating preview for %s", name)
		}

		jpeg, mediaType, err := p.render(ctx, entry)
		if kind := failure.Classify(err); kind == failure.KindCancelled || (kind == failure.KindTimeout && ctx.Err() != nil) {
			return batch.PreviewResult{}, err
		}
		if err != nil {
			metrics.PreviewGenerationsTotal.WithLabelValues(mediaType, "error").Inc()
			p.log.Debug("%s: media %d (%s) unusable: %v", name, i, entry.URL, err)
			lastErr = err
			continue
		}

		start := time.Now()
		path, err := p.saver.SavePreview(ctx, name, subfolder, jpeg)
		metrics.PreviewPhaseDuration.WithLabelValues(mediaType, "save").Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.PreviewGenerationsTotal.WithLabelValues(mediaType, "error").Inc()
			return batch.PreviewResult{}, errors.Mark(errors.Wrapf(err, "saving preview for %s", name), failure.ErrPreviewGeneration)
		}
		metrics.PreviewGenerationsTotal.WithLabelValues(mediaType, "success").Inc()
		p.log.Debug("%s: preview from media %d saved to %s", name, i, path)
		return batch.PreviewResult{SavedCount: 1, Path: path}, nil
	}

	return batch.PreviewResult{}, errors.Mark(
		errors.Wrapf(lastErr, "no usable media for %s (%d tried)", name, len(meta.Media)),
		failure.ErrPreviewGeneration)
}

// render downloads one entry and returns the encoded preview and the media
// type label used for metrics.
func (p *Processor) render(ctx context.Context, entry batch.MediaEntry) ([]byte, string, error) {
	mediaType := "image"
	if entry.IsVideo() {
		mediaType = "video"
	}

	start := time.Now()
	data, contentType, err := p.downloader.Download(ctx, entry.URL)
	metrics.PreviewPhaseDuration.WithLabelValues(mediaType, "download").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, mediaType, err
	}
	if mediatypes.FromContentType(contentType) == mediatypes.FileTypeVideo {
		mediaType = "video"
	}

	if p.gate != nil {
		if err := p.gate.Wait(ctx); err != nil {
			return nil, mediaType, errors.Wrap(err, "waiting for memory")
		}
	}

	if mediaType == "image" && IsVipsAvailable() {
		start = time.Now()
		out, err := previewWithVips(data, p.maxSize, p.quality)
		metrics.PreviewPhaseDuration.WithLabelValues(mediaType, "resize").Observe(time.Since(start).Seconds())
		if err == nil {
			return out, mediaType, nil
		}
		p.log.Debug("vips could not handle %s: %v", entry.URL, err)
	}

	img, err := p.decode(ctx, data, mediaType == "video")
	if err != nil {
		return nil, mediaType, err
	}

	start = time.Now()
	out, err := fitAndEncode(img, p.maxSize, p.quality)
	metrics.PreviewPhaseDuration.WithLabelValues(mediaType, "encode").Observe(time.Since(start).Seconds())
	return out, mediaType, err
}

func (p *Processor) decode(ctx context.Context, data []byte, video bool) (image.Image, error) {
	label := "image"
	if video {
		label = "video"
	}
	start := time.Now()
	defer func() {
		metrics.PreviewPhaseDuration.WithLabelValues(label, "decode").Observe(time.Since(start).Seconds())
	}()

	if video {
		return p.extract(ctx, data, true)
	}
	img, _, err := decodeImage(data)
	if err == nil {
		return img, nil
	}
	p.log.Debug("standard decode failed: %v, trying ffmpeg", err)
	img, ferr := p.extract(ctx, data, false)
	if ferr != nil {
		return nil, errors.CombineErrors(err, ferr)
	}
	return img, nil
}
