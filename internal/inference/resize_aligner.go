package inference

import (
	"context"
	"image"

	"github.com/access-system/face-recognition-enrollment/internal/imaging"
)

// ResizeAligner is an Aligner that only rescales the crop to a square of the
// embedder's input size. It is used when no landmark model is configured.
type ResizeAligner struct {
	Size int
}

// Align rescales img to Size×Size.
func (a ResizeAligner) Align(ctx context.Context, img image.Image) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img == nil || img.Bounds().Empty() {
		return nil, ErrNoResult
	}
	size := a.Size
	if size <= 0 {
		size = 112
	}
	return imaging.Resize(img, size, size), nil
}
