// Package inferencetest provides scripted collaborators and images for
// pipeline tests.
package inferencetest

import (
	"context"
	"image"
	"image/color"
	"sync"

	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
)

// Models is a mutable fake implementing every collaborator interface. Fields
// may be changed while stages are running.
type Models struct {
	mu sync.Mutex

	Detections []inference.Detection
	DetectErr  error
	Pose       inference.Pose
	PoseErr    error
	AlignErr   error
	Vector     []float32
	EmbedErr   error

	detectCalls int
	poseCalls   int
	alignCalls  int
	embedCalls  int
	closed      int
}

// NewModels returns a fake that detects one centred face with a frontal pose
// and embeds it to a 512-value vector.
func NewModels() *Models {
	vec := make([]float32, 512)
	for i := range vec {
		vec[i] = float32(i%5) + 1
	}
	return &Models{
		Detections: []inference.Detection{{
			Confidence: 0.95,
			Box:        imaging.NormalizedBox{XMin: 0.25, YMin: 0.25, Width: 0.5, Height: 0.5},
		}},
		Vector: vec,
	}
}

// Update applies fn while holding the fake's lock.
func (m *Models) Update(fn func(*Models)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

func (m *Models) Detect(ctx context.Context, img image.Image) ([]inference.Detection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detectCalls++
	if m.DetectErr != nil {
		return nil, m.DetectErr
	}
	return append([]inference.Detection(nil), m.Detections...), nil
}

func (m *Models) EstimatePose(ctx context.Context, img image.Image) (inference.Pose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.poseCalls++
	return m.Pose, m.PoseErr
}

func (m *Models) Align(ctx context.Context, img image.Image) (image.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alignCalls++
	if m.AlignErr != nil {
		return nil, m.AlignErr
	}
	return imaging.Resize(img, 112, 112), nil
}

func (m *Models) Embed(ctx context.Context, img image.Image) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedCalls++
	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}
	return append([]float32(nil), m.Vector...), nil
}

// Close records that the owning stage released the fake.
func (m *Models) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// Calls reports how many times each collaborator method ran.
type Calls struct {
	Detect, Pose, Align, Embed, Closed int
}

// Calls returns a snapshot of the call counters.
func (m *Models) Calls() Calls {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Calls{Detect: m.detectCalls, Pose: m.poseCalls, Align: m.alignCalls, Embed: m.embedCalls, Closed: m.closed}
}

// Face returns a w×h image with a mid-tone skin colour and no glare.
func Face(w, h int) *image.RGBA {
	return Fill(w, h, color.RGBA{R: 170, G: 120, B: 100, A: 255})
}

// Glare returns a w×h image that is almost entirely blown-out white.
func Glare(w, h int) *image.RGBA {
	return Fill(w, h, color.RGBA{R: 252, G: 252, B: 252, A: 255})
}

// Fill returns a w×h image of a single colour.
func Fill(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// Frame wraps img as a camera frame with the given sequence number.
func Frame(img image.Image, seq uint64) imaging.Frame {
	return imaging.Frame{Image: img, Sequence: seq}
}
