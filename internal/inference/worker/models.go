package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
)

// Model roles understood by the worker command.
const (
	ModelDetect = "detect"
	ModelPose   = "pose"
	ModelAlign  = "align"
	ModelEmbed  = "embed"
)

func encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	var buf bytes.Buffer
	if err := imaging.EncodeJPEG(&buf, img, 95); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Detector runs face detection in a worker.
type Detector struct {
	Process *Process
}

func (d Detector) Detect(ctx context.Context, img image.Image) ([]inference.Detection, error) {
	data, err := encode(img)
	if err != nil {
		return nil, err
	}
	var result struct {
		Detections []inference.Detection `json:"detections"`
	}
	if err := d.Process.Call(ctx, ModelDetect, data, nil, &result); err != nil {
		return nil, err
	}
	return result.Detections, nil
}

func (d Detector) Close() error { return d.Process.Close() }

// PoseEstimator runs head pose estimation in a worker.
type PoseEstimator struct {
	Process *Process
}

func (p PoseEstimator) EstimatePose(ctx context.Context, img image.Image) (inference.Pose, error) {
	data, err := encode(img)
	if err != nil {
		return inference.Pose{}, err
	}
	var pose inference.Pose
	if err := p.Process.Call(ctx, ModelPose, data, nil, &pose); err != nil {
		return inference.Pose{}, err
	}
	return pose, nil
}

func (p PoseEstimator) Close() error { return p.Process.Close() }

// Aligner runs landmark-based face alignment in a worker.
type Aligner struct {
	Process *Process
	Size    int
}

func (a Aligner) Align(ctx context.Context, img image.Image) (image.Image, error) {
	data, err := encode(img)
	if err != nil {
		return nil, err
	}
	var result struct {
		Found bool   `json:"found"`
		Image []byte `json:"image"`
	}
	if err := a.Process.Call(ctx, ModelAlign, data, map[string]any{"size": a.Size}, &result); err != nil {
		return nil, err
	}
	if !result.Found || len(result.Image) == 0 {
		return nil, inference.ErrNoResult
	}
	aligned, err := jpeg.Decode(bytes.NewReader(result.Image))
	if err != nil {
		return nil, fmt.Errorf("decode aligned face: %w", err)
	}
	return aligned, nil
}

func (a Aligner) Close() error { return a.Process.Close() }

// Embedder computes face embeddings in a worker.
type Embedder struct {
	Process *Process
}

func (e Embedder) Embed(ctx context.Context, img image.Image) ([]float32, error) {
	data, err := encode(img)
	if err != nil {
		return nil, err
	}
	var result struct {
		Vector []float32 `json:"vector"`
	}
	if err := e.Process.Call(ctx, ModelEmbed, data, nil, &result); err != nil {
		return nil, err
	}
	return result.Vector, nil
}

func (e Embedder) Close() error { return e.Process.Close() }
