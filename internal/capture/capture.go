// Package capture implements the stage that publishes camera frames.
package capture

import (
	"context"
	"errors"
	"log/slog"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/camera"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/services"
	"github.com/access-system/face-recognition-enrollment/internal/stage"
)

// Name is the stage name used in logs and status output.
const Name = "capture"

// Stage reads one frame per cycle and writes it to raw_frame.
type Stage struct {
	source camera.Source
	raw    blackboard.Entry[imaging.Frame]
	errMsg blackboard.Entry[string]
	logger *slog.Logger
}

// New returns a capture stage that owns source.
func New(source camera.Source, board *blackboard.Board) *Stage {
	entries := board.Entries()
	return &Stage{
		source: source,
		raw:    entries.RawFrame,
		errMsg: entries.LastErrorMsg,
		logger: logging.NewNop(),
	}
}

func (s *Stage) Name() string { return Name }

func (s *Stage) SetLogger(logger *slog.Logger) { s.logger = logger }

// Cycle publishes the next frame. A read failure leaves the previous frame in
// place; a closed source stops the stage.
func (s *Stage) Cycle(ctx context.Context) error {
	frame, err := s.source.Read(ctx)
	switch {
	case err == nil:
	case errors.Is(err, camera.ErrClosed):
		s.raw.Reset()
		s.errMsg.Set("camera feed closed")
		return services.Wrap(services.ErrFatal, Name, "read", "camera feed closed", err)
	case ctx.Err() != nil:
		return nil
	default:
		return services.Wrap(services.ErrTransient, Name, "read", "frame unavailable", err)
	}
	if frame.Empty() {
		return nil
	}
	s.raw.Set(frame)
	return nil
}

// Close releases the camera.
func (s *Stage) Close() error {
	return s.source.Close()
}

// HealthCheck reports whether a frame has been published.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if !s.raw.Has() {
		return stage.Unhealthy(Name, "no frame captured yet")
	}
	return stage.Healthy(Name)
}
