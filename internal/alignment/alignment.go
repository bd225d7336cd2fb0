// Package alignment implements the face alignment stage.
package alignment

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/services"
)

// Name is the stage name used in logs and status output.
const Name = "align"

// Stage turns validated_region into a canonically aligned aligned_region. It
// runs whether or not enrollment is active so the aligned face is ready the
// moment the gate opens.
type Stage struct {
	aligner   inference.Aligner
	validated blackboard.Entry[imaging.Region]
	aligned   blackboard.Entry[imaging.Region]
	errMsg    blackboard.Entry[string]
	logger    *slog.Logger
}

func New(aligner inference.Aligner, board *blackboard.Board) *Stage {
	entries := board.Entries()
	return &Stage{
		aligner:   aligner,
		validated: entries.ValidatedRegion,
		aligned:   entries.AlignedRegion,
		errMsg:    entries.LastErrorMsg,
		logger:    logging.NewNop(),
	}
}

func (s *Stage) Name() string { return Name }

func (s *Stage) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *Stage) Cycle(ctx context.Context) error {
	region, ok := s.validated.Get()
	if !ok || region.Empty() {
		s.aligned.Reset()
		return nil
	}
	img, err := s.aligner.Align(ctx, region.Image)
	switch {
	case errors.Is(err, inference.ErrNoResult):
		s.aligned.Reset()
		return nil
	case err != nil:
		s.aligned.Reset()
		s.errMsg.Set("face alignment failed")
		return services.Wrap(services.ErrCollaborator, Name, "align", "aligner failed", err)
	}
	out := region.WithImage(img)
	if out.Empty() {
		s.aligned.Reset()
		return nil
	}
	s.aligned.Set(out)
	return nil
}

func (s *Stage) Close() error {
	if c, ok := s.aligner.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
