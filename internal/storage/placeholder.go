package storage

import (
	"bytes"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/crypto/blake2b"
)

const placeholderSize = 256

// renderPlaceholder draws a muted two-tone tile tinted from the asset name so
// different assets are distinguishable at a glance. Output is deterministic.
func renderPlaceholder(name string) ([]byte, error) {
	sum := blake2b.Sum256([]byte(name))
	bg := color.NRGBA{R: 40 + sum[0]%48, G: 40 + sum[1]%48, B: 40 + sum[2]%48, A: 255}
	fg := color.NRGBA{R: bg.R + 64, G: bg.G + 64, B: bg.B + 64, A: 255}

	img := imaging.New(placeholderSize, placeholderSize, bg)
	inner := imaging.New(placeholderSize/2, placeholderSize/2, fg)
	img = imaging.Paste(img, inner, image.Pt(placeholderSize/4, placeholderSize/4))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
