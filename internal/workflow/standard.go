package workflow

import (
	"github.com/access-system/face-recognition-enrollment/internal/alignment"
	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/camera"
	"github.com/access-system/face-recognition-enrollment/internal/capture"
	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/detection"
	"github.com/access-system/face-recognition-enrollment/internal/gate"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
	"github.com/access-system/face-recognition-enrollment/internal/recognition"
	"github.com/access-system/face-recognition-enrollment/internal/stage"
	"github.com/access-system/face-recognition-enrollment/internal/validation"
	"github.com/access-system/face-recognition-enrollment/internal/verification"
)

// Standard returns the enrollment pipeline registrations using the rates and
// thresholds in cfg.
func Standard(cfg *config.Config) []Registration {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	rates := cfg.Pipeline
	return []Registration{
		{
			Name:     capture.Name,
			Requires: []string{DepBoard, DepCamera},
			Rate:     rates.CaptureFPS,
			Build: func(d Deps) (stage.Stage, error) {
				board, err := Lookup[*blackboard.Board](d, DepBoard)
				if err != nil {
					return nil, err
				}
				source, err := Lookup[camera.Source](d, DepCamera)
				if err != nil {
					return nil, err
				}
				return capture.New(source, board), nil
			},
		},
		{
			Name:     detection.Name,
			Requires: []string{DepBoard, DepDetector},
			Rate:     rates.DetectFPS,
			Build: func(d Deps) (stage.Stage, error) {
				board, err := Lookup[*blackboard.Board](d, DepBoard)
				if err != nil {
					return nil, err
				}
				detector, err := Lookup[inference.Detector](d, DepDetector)
				if err != nil {
					return nil, err
				}
				return detection.New(detector, cfg.Detection.MinConfidence, board), nil
			},
		},
		{
			Name:     validation.Name,
			Requires: []string{DepBoard, DepGate, DepPoseEstimator},
			Rate:     rates.ValidateFPS,
			Build: func(d Deps) (stage.Stage, error) {
				board, err := Lookup[*blackboard.Board](d, DepBoard)
				if err != nil {
					return nil, err
				}
				g, err := Lookup[*gate.Gate](d, DepGate)
				if err != nil {
					return nil, err
				}
				pose, err := Lookup[inference.PoseEstimator](d, DepPoseEstimator)
				if err != nil {
					return nil, err
				}
				return validation.New(pose, validation.PolicyFromConfig(cfg.Validation), g, optionalRecorder(d), board), nil
			},
		},
		{
			Name:     alignment.Name,
			Requires: []string{DepBoard, DepAligner},
			Rate:     rates.AlignFPS,
			Build: func(d Deps) (stage.Stage, error) {
				board, err := Lookup[*blackboard.Board](d, DepBoard)
				if err != nil {
					return nil, err
				}
				aligner, err := Lookup[inference.Aligner](d, DepAligner)
				if err != nil {
					return nil, err
				}
				return alignment.New(aligner, board), nil
			},
		},
		{
			Name:     recognition.Name,
			Requires: []string{DepBoard, DepGate, DepEmbedder},
			Rate:     rates.RecognizeFPS,
			Build: func(d Deps) (stage.Stage, error) {
				board, err := Lookup[*blackboard.Board](d, DepBoard)
				if err != nil {
					return nil, err
				}
				g, err := Lookup[*gate.Gate](d, DepGate)
				if err != nil {
					return nil, err
				}
				embedder, err := Lookup[inference.Embedder](d, DepEmbedder)
				if err != nil {
					return nil, err
				}
				return recognition.New(embedder, cfg.Models.EmbeddingDim, g, board), nil
			},
		},
		{
			Name:     verification.Name,
			Requires: []string{DepBoard, DepGate, DepRegistry},
			Rate:     rates.VerifyFPS,
			Build: func(d Deps) (stage.Stage, error) {
				board, err := Lookup[*blackboard.Board](d, DepBoard)
				if err != nil {
					return nil, err
				}
				g, err := Lookup[*gate.Gate](d, DepGate)
				if err != nil {
					return nil, err
				}
				reg, err := Lookup[verification.Registry](d, DepRegistry)
				if err != nil {
					return nil, err
				}
				return verification.New(reg, g, optionalRecorder(d), board), nil
			},
		},
	}
}

func optionalRecorder(d Deps) history.Recorder {
	if r, err := Lookup[history.Recorder](d, DepRecorder); err == nil {
		return r
	}
	return nil
}
