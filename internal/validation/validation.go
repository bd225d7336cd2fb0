// Package validation implements the face quality stage.
//
// A detected face passes when it shows no glare and the head pose is within
// the configured angle on every axis. A failing face clears the stage output
// and closes the enrollment gate so the operator can reposition the subject.
// Pose estimator failures clear the output but leave the gate alone.
package validation

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/gate"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/services"
)

// Name is the stage name used in logs and status output.
const Name = "validate"

// Stage checks detected_region and publishes validated_region.
type Stage struct {
	pose     inference.PoseEstimator
	policy   Policy
	gate     *gate.Gate
	recorder history.Recorder

	detected  blackboard.Entry[imaging.Region]
	validated blackboard.Entry[imaging.Region]
	info      blackboard.Entry[string]
	errMsg    blackboard.Entry[string]
	logger    *slog.Logger
}

// New returns a validation stage. recorder may be nil.
func New(pose inference.PoseEstimator, policy Policy, g *gate.Gate, recorder history.Recorder, board *blackboard.Board) *Stage {
	if recorder == nil {
		recorder = history.Discard
	}
	entries := board.Entries()
	return &Stage{
		pose:      pose,
		policy:    policy,
		gate:      g,
		recorder:  recorder,
		detected:  entries.DetectedRegion,
		validated: entries.ValidatedRegion,
		info:      entries.LastInfoMsg,
		errMsg:    entries.LastErrorMsg,
		logger:    logging.NewNop(),
	}
}

func (s *Stage) Name() string { return Name }

func (s *Stage) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *Stage) Cycle(ctx context.Context) error {
	region, ok := s.detected.Get()
	if !ok || region.Empty() {
		s.validated.Reset()
		return nil
	}

	if reason := s.policy.GlareReason(region.Image); reason != "" {
		s.reject(ctx, reason)
		return nil
	}

	pose, err := s.pose.EstimatePose(ctx, region.Image)
	if err != nil {
		s.validated.Reset()
		s.errMsg.Set("pose estimation failed")
		return services.Wrap(services.ErrCollaborator, Name, "estimate pose", "pose estimator failed", err)
	}
	if reason := s.policy.PoseReason(pose); reason != "" {
		s.reject(ctx, reason)
		return nil
	}

	s.validated.Set(region)
	return nil
}

// reject clears the output and the gate. The attempt is recorded only by the
// caller that actually closed the gate.
func (s *Stage) reject(ctx context.Context, reason string) {
	s.validated.Reset()
	s.info.Set(reason)

	attempt, closed := s.gate.Clear()
	if !closed {
		return
	}
	ctx = services.WithAttemptID(ctx, attempt.ID)
	logger := logging.WithContext(ctx, s.logger)
	logger.Info("enrollment attempt rejected",
		logging.EventType("attempt_rejected"),
		logging.String("reason", reason),
	)
	entry := history.Entry{
		AttemptID: attempt.ID,
		Outcome:   history.OutcomeRejected,
		Message:   reason,
		Started:   attempt.Started,
		Finished:  time.Now().UTC(),
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		logging.WarnWithContext(logger, "failed to record attempt outcome", "history_record_failed",
			logging.Error(err),
			logging.Impact("attempt missing from history"),
		)
	}
}

// Close releases the pose estimator when it holds resources.
func (s *Stage) Close() error {
	if c, ok := s.pose.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
