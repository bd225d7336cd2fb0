package inference

import (
	"context"
	"errors"
	"image"

	"github.com/access-system/face-recognition-enrollment/internal/imaging"
)

// ErrNoResult reports that a collaborator ran successfully but produced no output.
var ErrNoResult = errors.New("no result")

// Detection is one face candidate.
type Detection struct {
	Confidence float64               `json:"confidence"`
	Box        imaging.NormalizedBox `json:"box"`
}

// Pose is a head orientation in degrees.
type Pose struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// Within reports whether every angle is strictly inside ±limit degrees.
func (p Pose) Within(limit float64) bool {
	return abs(p.Yaw) < limit && abs(p.Pitch) < limit && abs(p.Roll) < limit
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Embedding is a normalized vector tagged with the enrollment attempt it was
// computed for.
type Embedding struct {
	AttemptID string
	Vector    []float32
}

// Empty reports whether e holds no vector.
func (e Embedding) Empty() bool { return len(e.Vector) == 0 }

// Detector finds faces in a frame. An empty slice means no face.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// PoseEstimator estimates head pose for a face crop.
type PoseEstimator interface {
	EstimatePose(ctx context.Context, img image.Image) (Pose, error)
}

// Aligner produces a canonically aligned face from a crop.
type Aligner interface {
	Align(ctx context.Context, img image.Image) (image.Image, error)
}

// Embedder maps an aligned face to a feature vector.
type Embedder interface {
	Embed(ctx context.Context, img image.Image) ([]float32, error)
}

// Best returns the highest-confidence detection at or above minConfidence.
func Best(detections []Detection, minConfidence float64) (Detection, bool) {
	var best Detection
	found := false
	for _, d := range detections {
		if d.Confidence < minConfidence {
			continue
		}
		if !found || d.Confidence > best.Confidence {
			best = d
			found = true
		}
	}
	return best, found
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context, img image.Image) ([]Detection, error)

func (f DetectorFunc) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	return f(ctx, img)
}

// PoseEstimatorFunc adapts a function to PoseEstimator.
type PoseEstimatorFunc func(ctx context.Context, img image.Image) (Pose, error)

func (f PoseEstimatorFunc) EstimatePose(ctx context.Context, img image.Image) (Pose, error) {
	return f(ctx, img)
}

// AlignerFunc adapts a function to Aligner.
type AlignerFunc func(ctx context.Context, img image.Image) (image.Image, error)

func (f AlignerFunc) Align(ctx context.Context, img image.Image) (image.Image, error) {
	return f(ctx, img)
}

// EmbedderFunc adapts a function to Embedder.
type EmbedderFunc func(ctx context.Context, img image.Image) ([]float32, error)

func (f EmbedderFunc) Embed(ctx context.Context, img image.Image) ([]float32, error) {
	return f(ctx, img)
}
