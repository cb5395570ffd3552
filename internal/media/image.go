package media

import (
	"bytes"
	"image"
	"image/jpeg"

	"preview-fetcher/internal/logging"

	// Image format decoders
	_ "image/gif"
	_ "image/png"

	"github.com/cockroachdb/errors"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // WebP format support
)

const (
	// MaxImageDimension is the maximum width or height we'll decode at full size.
	MaxImageDimension = 8192

	// MaxImagePixels is the maximum total pixels (width * height) we'll decode.
	// A 40MP image uses ~160MB in RGBA.
	MaxImagePixels = 40_000_000
)

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image.
func GetImageDimensions(data []byte) (*ImageDimensions, string, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	return &ImageDimensions{Width: config.Width, Height: config.Height}, format, nil
}

// decodeImage decodes an in-memory image, refusing images whose decoded size
// would exceed the pixel limits.
func decodeImage(data []byte) (image.Image, string, error) {
	dims, format, err := GetImageDimensions(data)
	if err != nil {
		return nil, "", errors.Wrap(err, "reading image header")
	}
	if dims.Width > MaxImageDimension || dims.Height > MaxImageDimension ||
		dims.Width*dims.Height > MaxImagePixels {
		return nil, format, errors.Newf("image too large: %dx%d", dims.Width, dims.Height)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, format, errors.Wrapf(err, "decoding %s", format)
	}
	logging.Debug("Decoded %s image %dx%d", format, dims.Width, dims.Height)
	return img, format, nil
}

// fitAndEncode scales img to fit within maxSize (never upscaling) and
// encodes it as JPEG.
func fitAndEncode(img image.Image, maxSize, quality int) ([]byte, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	b := img.Bounds()
	if b.Dx() > maxSize || b.Dy() > maxSize {
		img = imaging.Fit(img, maxSize, maxSize, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, errors.Wrap(err, "encoding preview")
	}
	return buf.Bytes(), nil
}
