package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/camera"
	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/gate"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
	"github.com/access-system/face-recognition-enrollment/internal/inference/worker"
	"github.com/access-system/face-recognition-enrollment/internal/services/registry"
	"github.com/access-system/face-recognition-enrollment/internal/verification"
	"github.com/access-system/face-recognition-enrollment/internal/workflow"
)

// Collaborators are the external resources one preview session owns.
type Collaborators struct {
	Camera   camera.Source
	Detector inference.Detector
	Pose     inference.PoseEstimator
	Aligner  inference.Aligner
	Embedder inference.Embedder
	Registry verification.Registry
}

// Factory opens the collaborators for a new session. ctx lives as long as
// the session.
type Factory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Collaborators, error)

// Close releases every collaborator that holds a resource.
func (c Collaborators) Close() error {
	var errs []error
	for _, v := range []any{c.Camera, c.Detector, c.Pose, c.Aligner, c.Embedder, c.Registry} {
		if closer, ok := v.(io.Closer); ok {
			errs = append(errs, closer.Close())
		}
	}
	return errors.Join(errs...)
}

func (c Collaborators) deps(board *blackboard.Board, g *gate.Gate, recorder history.Recorder) workflow.Deps {
	deps := workflow.Deps{
		workflow.DepBoard:    board,
		workflow.DepGate:     g,
		workflow.DepRecorder: recorder,
	}
	optional := map[string]any{
		workflow.DepCamera:        c.Camera,
		workflow.DepDetector:      c.Detector,
		workflow.DepPoseEstimator: c.Pose,
		workflow.DepAligner:       c.Aligner,
		workflow.DepEmbedder:      c.Embedder,
		workflow.DepRegistry:      c.Registry,
	}
	for name, v := range optional {
		if v != nil {
			deps[name] = v
		}
	}
	return deps
}

// DefaultFactory opens the configured camera, starts one model worker per
// inference stage, and connects to the registry.
func DefaultFactory(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Collaborators, error) {
	var out Collaborators
	fail := func(err error) (Collaborators, error) {
		_ = out.Close()
		return Collaborators{}, err
	}

	source, err := camera.Open(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	out.Camera = source

	start := func(model string) (*worker.Process, error) {
		return worker.Start(worker.Options{
			Command: cfg.Models.WorkerCommand,
			Args:    cfg.Models.WorkerArgs,
			Model:   model,
			Device:  cfg.Models.Device,
			Logger:  logger,
		})
	}

	detect, err := start(worker.ModelDetect)
	if err != nil {
		return fail(err)
	}
	out.Detector = worker.Detector{Process: detect}

	pose, err := start(worker.ModelPose)
	if err != nil {
		return fail(err)
	}
	out.Pose = worker.PoseEstimator{Process: pose}

	align, err := start(worker.ModelAlign)
	if err != nil {
		return fail(err)
	}
	out.Aligner = worker.Aligner{Process: align, Size: cfg.Models.AlignSize}

	embed, err := start(worker.ModelEmbed)
	if err != nil {
		return fail(err)
	}
	out.Embedder = worker.Embedder{Process: embed}

	client, err := registry.NewFromConfig(cfg)
	if err != nil {
		return fail(err)
	}
	out.Registry = client
	return out, nil
}
