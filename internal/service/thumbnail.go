package service

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// Thumbnailer downscales evidence photos for list and grid views.
type Thumbnailer struct {
	maxDim  int
	quality int
}

// NewThumbnailer creates a thumbnailer producing JPEGs bounded by maxDim on
// the longer side. Zero values fall back to 400px at quality 80.
func NewThumbnailer(maxDim, quality int) *Thumbnailer {
	if maxDim <= 0 {
		maxDim = 400
	}
	if quality <= 0 {
		quality = 80
	}
	return &Thumbnailer{maxDim: maxDim, quality: quality}
}

// Generate decodes the photo and returns a downscaled JPEG. Aspect ratio is
// preserved; images already within bounds are re-encoded unchanged in size.
func (t *Thumbnailer) Generate(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	thumb := imaging.Fit(img, t.maxDim, t.maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(t.quality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
