package imaging

import (
	"image"
	"time"
)

// Frame is one image read from the camera.
type Frame struct {
	Image    image.Image
	Sequence uint64
	Captured time.Time
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return f.Image == nil || f.Image.Bounds().Empty()
}

// Region is a face crop together with where it came from.
type Region struct {
	Image image.Image
	// Box is the crop rectangle in source frame coordinates.
	Box        image.Rectangle
	Confidence float64
	// FrameSequence is the Sequence of the frame the crop was taken from.
	FrameSequence uint64
}

// Empty reports whether the region carries no pixels.
func (r Region) Empty() bool {
	return r.Image == nil || r.Image.Bounds().Empty()
}

// WithImage returns a copy of r carrying img, keeping its provenance.
func (r Region) WithImage(img image.Image) Region {
	r.Image = img
	return r
}

// NormalizedBox is a bounding box expressed as fractions of the frame size.
type NormalizedBox struct {
	XMin   float64 `json:"xmin"`
	YMin   float64 `json:"ymin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ToPixels clamps every component of b to [0,1], scales it to a w×h frame and
// truncates to whole pixels. The second result is false when the resulting
// box has no area.
func (b NormalizedBox) ToPixels(w, h int) (image.Rectangle, bool) {
	x := int(clamp01(b.XMin) * float64(w))
	y := int(clamp01(b.YMin) * float64(h))
	bw := int(clamp01(b.Width) * float64(w))
	bh := int(clamp01(b.Height) * float64(h))
	if bw <= 0 || bh <= 0 {
		return image.Rectangle{}, false
	}
	return image.Rect(x, y, x+bw, y+bh), true
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
