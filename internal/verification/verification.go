// Package verification implements the terminal enrollment stage.
//
// While the gate is open the stage takes the current embedding, asks the
// registry whether the face is already known, and adds it under a fresh random
// identifier when it is not. Whatever the result, the attempt ends: the gate
// closes, the embedding is cleared, and the outcome is recorded once. Registry
// calls are never retried within an attempt, and a stop request does not
// abort a commit already in progress; the registry client's timeout bounds it.
// Only embeddings tagged with the open attempt are submitted.
package verification

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/gate"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/services"
)

// Name is the stage name used in logs and status output.
const Name = "verify"

// Registry is the subset of the registry client the stage needs.
type Registry interface {
	Validate(ctx context.Context, vector []float32) (exists bool, message string, err error)
	Add(ctx context.Context, vector []float32, name string) (int, error)
}

// Option customizes a Stage.
type Option func(*Stage)

// WithIdentifier replaces the random identifier generator.
func WithIdentifier(fn func() (string, error)) Option {
	return func(s *Stage) { s.newID = fn }
}

// Stage commits embeddings to the registry.
type Stage struct {
	registry Registry
	gate     *gate.Gate
	recorder history.Recorder
	newID    func() (string, error)

	embedding blackboard.Entry[inference.Embedding]
	info      blackboard.Entry[string]
	errMsg    blackboard.Entry[string]
	logger    *slog.Logger
}

// New returns a verification stage. recorder may be nil.
func New(registry Registry, g *gate.Gate, recorder history.Recorder, board *blackboard.Board, opts ...Option) *Stage {
	if recorder == nil {
		recorder = history.Discard
	}
	entries := board.Entries()
	s := &Stage{
		registry:  registry,
		gate:      g,
		recorder:  recorder,
		newID:     NewIdentifier,
		embedding: entries.Embedding,
		info:      entries.LastInfoMsg,
		errMsg:    entries.LastErrorMsg,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewIdentifier returns 8 random bytes as 16 lowercase hex characters.
func NewIdentifier() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate identifier: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

func (s *Stage) Name() string { return Name }

func (s *Stage) SetLogger(logger *slog.Logger) { s.logger = logger }

type result struct {
	outcome    history.Outcome
	identifier string
	message    string
	err        error
}

func (s *Stage) Cycle(ctx context.Context) error {
	attempt, open := s.gate.Current()
	if !open {
		return nil
	}
	emb, ok := s.embedding.Get()
	if !ok || emb.Empty() {
		return nil
	}
	if emb.AttemptID != attempt.ID {
		s.logger.Debug("ignoring embedding from another attempt",
			logging.AttemptID(attempt.ID),
			logging.String("embedding_attempt_id", emb.AttemptID),
		)
		return nil
	}

	ctx = services.WithAttemptID(context.WithoutCancel(ctx), attempt.ID)
	res := s.commit(ctx, emb.Vector)
	s.finish(ctx, attempt, res)
	return res.err
}

func (s *Stage) commit(ctx context.Context, vector []float32) result {
	exists, registryMsg, err := s.registry.Validate(ctx, vector)
	if err != nil {
		return result{
			outcome: history.OutcomeFailed,
			message: "registry unavailable",
			err:     services.Wrap(services.ErrRegistry, Name, "validate", "duplicate check failed", err),
		}
	}
	if exists {
		logging.WithContext(ctx, s.logger).Info("registry reports face already enrolled",
			logging.EventType("registry_duplicate"),
			logging.String("registry_message", registryMsg),
		)
		return result{outcome: history.OutcomeDuplicate, message: "face already enrolled"}
	}

	id, err := s.newID()
	if err != nil {
		return result{
			outcome: history.OutcomeFailed,
			message: "could not generate identifier",
			err:     services.Wrap(services.ErrTransient, Name, "identifier", "", err),
		}
	}
	status, err := s.registry.Add(ctx, vector, id)
	if err != nil {
		return result{
			outcome:    history.OutcomeFailed,
			identifier: id,
			message:    "registry unavailable",
			err:        services.Wrap(services.ErrRegistry, Name, "add", "enrollment request failed", err),
		}
	}
	if status != http.StatusCreated {
		return result{
			outcome:    history.OutcomeFailed,
			identifier: id,
			message:    fmt.Sprintf("registry refused enrollment (status %d)", status),
			err:        services.Wrap(services.ErrRegistry, Name, "add", fmt.Sprintf("unexpected status %d", status), nil),
		}
	}
	return result{outcome: history.OutcomeRegistered, identifier: id, message: "enrolled as " + id}
}

// finish ends the attempt. The embedding is always cleared so the vector is
// never submitted twice; the outcome is recorded only if this attempt was
// still open, since an operator stop records its own outcome.
func (s *Stage) finish(ctx context.Context, attempt gate.Attempt, res result) {
	s.embedding.Reset()
	if res.outcome == history.OutcomeFailed {
		s.errMsg.Set(res.message)
	} else {
		s.info.Set(res.message)
	}

	logger := logging.WithContext(ctx, s.logger)
	if _, closed := s.gate.ClearAttempt(attempt.ID); !closed {
		logger.Info("attempt closed before registry call finished",
			logging.EventType("attempt_superseded"),
			logging.String("outcome", string(res.outcome)),
		)
		return
	}

	attrs := []logging.Attr{
		logging.EventType("attempt_" + string(res.outcome)),
		logging.String("outcome", string(res.outcome)),
		logging.Duration("elapsed", time.Since(attempt.Started)),
	}
	if res.identifier != "" {
		attrs = append(attrs, logging.String("identifier", res.identifier))
	}
	if res.err != nil {
		logging.WarnWithContext(logger, "enrollment attempt failed", "attempt_failed",
			append(attrs,
				logging.Error(res.err),
				logging.Hint("check registry connectivity and retry enrollment"),
				logging.Impact("face was not enrolled"),
			)...,
		)
	} else {
		logger.Info("enrollment attempt finished", logging.Args(attrs...)...)
	}

	entry := history.Entry{
		AttemptID:  attempt.ID,
		Outcome:    res.outcome,
		Identifier: res.identifier,
		Message:    res.message,
		Started:    attempt.Started,
		Finished:   time.Now().UTC(),
	}
	if err := s.recorder.Record(ctx, entry); err != nil {
		logging.WarnWithContext(logger, "failed to record attempt outcome", "history_record_failed",
			logging.Error(err),
			logging.Impact("attempt missing from history"),
		)
	}
}
