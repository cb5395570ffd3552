package media

import (
	"bytes"
	"context"
	"image"
	"os"
	"os/exec"
	"time"

	"preview-fetcher/internal/logging"
	"preview-fetcher/internal/metrics"

	"github.com/cockroachdb/errors"
)

// frameExtractor turns media bytes into a single still image.
type frameExtractor func(ctx context.Context, data []byte, video bool) (image.Image, error)

// ffmpegExtractor returns a frameExtractor backed by the ffmpeg binary.
func ffmpegExtractor(binary string) frameExtractor {
	return func(ctx context.Context, data []byte, video bool) (image.Image, error) {
		return extractFrame(ctx, binary, data, video)
	}
}

// extractFrame writes data to a temp file (containers like MP4 are not
// seekable from a pipe) and asks ffmpeg for one PNG frame. For videos it
// first tries one second in, then the first frame for very short clips.
func extractFrame(ctx context.Context, binary string, data []byte, video bool) (image.Image, error) {
	ffmpegPath, err := exec.LookPath(binary)
	if err != nil {
		return nil, errors.Wrap(err, "ffmpeg not found")
	}

	tmp, err := os.CreateTemp("", "preview-src-*")
	if err != nil {
		return nil, errors.Wrap(err, "creating temp file")
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil {
			logging.Warn("failed to remove temp file %s: %v", tmp.Name(), err)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return nil, errors.Wrap(err, "writing temp file")
	}
	if err := tmp.Close(); err != nil {
		return nil, errors.Wrap(err, "closing temp file")
	}

	start := time.Now()
	defer func() { metrics.FFmpegDuration.Observe(time.Since(start).Seconds()) }()

	var out []byte
	if video {
		out, err = runFFmpeg(ctx, ffmpegPath, "-ss", "00:00:01", "-i", tmp.Name())
		if err != nil || len(out) == 0 {
			logging.Debug("FFmpeg seek attempt failed for %s: %v, retrying at first frame", tmp.Name(), err)
			out, err = runFFmpeg(ctx, ffmpegPath, "-i", tmp.Name())
		}
	} else {
		out, err = runFFmpeg(ctx, ffmpegPath, "-i", tmp.Name())
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("ffmpeg produced no output")
	}

	img, _, err := image.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, errors.Wrap(err, "decoding ffmpeg output")
	}
	return img, nil
}

func runFFmpeg(ctx context.Context, ffmpegPath string, input ...string) ([]byte, error) {
	args := append([]string{"-hide_banner", "-loglevel", "error"}, input...)
	args = append(args,
		"-vframes", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "ffmpeg failed: %s", bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.Bytes(), nil
}
