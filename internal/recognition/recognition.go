// Package recognition implements the embedding stage.
package recognition

import (
	"context"
	"io"
	"log/slog"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/gate"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/services"
)

// Name is the stage name used in logs and status output.
const Name = "recognize"

// Stage embeds aligned_region into a unit-length vector while enrollment is
// active. Each vector carries the attempt it was computed for; a closed gate
// clears the entry.
type Stage struct {
	embedder  inference.Embedder
	dim       int
	gate      *gate.Gate
	aligned   blackboard.Entry[imaging.Region]
	embedding blackboard.Entry[inference.Embedding]
	errMsg    blackboard.Entry[string]
	logger    *slog.Logger
}

// New returns a recognition stage. A positive dim rejects vectors of any
// other length.
func New(embedder inference.Embedder, dim int, g *gate.Gate, board *blackboard.Board) *Stage {
	entries := board.Entries()
	return &Stage{
		embedder:  embedder,
		dim:       dim,
		gate:      g,
		aligned:   entries.AlignedRegion,
		embedding: entries.Embedding,
		errMsg:    entries.LastErrorMsg,
		logger:    logging.NewNop(),
	}
}

func (s *Stage) Name() string { return Name }

func (s *Stage) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *Stage) Cycle(ctx context.Context) error {
	attempt, open := s.gate.Current()
	if !open {
		s.embedding.Reset()
		return nil
	}
	region, ok := s.aligned.Get()
	if !ok || region.Empty() {
		s.embedding.Reset()
		return nil
	}
	raw, err := s.embedder.Embed(ctx, region.Image)
	if err != nil {
		s.embedding.Reset()
		s.errMsg.Set("face embedding failed")
		return services.Wrap(services.ErrCollaborator, Name, "embed", "embedder failed", err)
	}
	if s.dim > 0 && len(raw) != s.dim {
		s.embedding.Reset()
		return services.Wrap(services.ErrCollaborator, Name, "embed", "unexpected embedding length", nil)
	}
	vec, ok := inference.L2Normalize(raw)
	if !ok {
		s.embedding.Reset()
		s.logger.Debug("discarding zero-norm embedding")
		return nil
	}
	if current, ok := s.gate.Current(); !ok || current.ID != attempt.ID {
		s.embedding.Reset()
		s.logger.Debug("discarding embedding for a closed attempt",
			logging.AttemptID(attempt.ID),
		)
		return nil
	}
	s.embedding.Set(inference.Embedding{AttemptID: attempt.ID, Vector: vec})
	return nil
}

func (s *Stage) Close() error {
	if c, ok := s.embedder.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
