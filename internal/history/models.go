package history

import (
	"context"
	"errors"
	"time"
)

// Outcome is the terminal state of an enrollment attempt.
type Outcome string

const (
	// OutcomeRegistered means the embedding was added to the registry.
	OutcomeRegistered Outcome = "registered"
	// OutcomeDuplicate means the registry already knew the face.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeFailed means the registry could not be reached or refused the add.
	OutcomeFailed Outcome = "failed"
	// OutcomeRejected means the face failed quality checks.
	OutcomeRejected Outcome = "rejected"
	// OutcomeCancelled means the operator closed the gate or stopped the preview.
	OutcomeCancelled Outcome = "cancelled"
)

// Outcomes lists every outcome in display order.
var Outcomes = []Outcome{OutcomeRegistered, OutcomeDuplicate, OutcomeFailed, OutcomeRejected, OutcomeCancelled}

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	for _, known := range Outcomes {
		if o == known {
			return true
		}
	}
	return false
}

// Entry is one finished attempt.
type Entry struct {
	ID         int64     `json:"id"`
	AttemptID  string    `json:"attempt_id"`
	Outcome    Outcome   `json:"outcome"`
	Identifier string    `json:"identifier,omitempty"`
	Message    string    `json:"message,omitempty"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
}

// Duration returns how long the attempt was open.
func (e Entry) Duration() time.Duration {
	if e.Started.IsZero() || e.Finished.Before(e.Started) {
		return 0
	}
	return e.Finished.Sub(e.Started)
}

// ErrInvalidEntry is returned for entries missing an attempt id or outcome.
var ErrInvalidEntry = errors.New("invalid history entry")

// Recorder receives attempt outcomes.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, entry Entry) error

func (f RecorderFunc) Record(ctx context.Context, entry Entry) error {
	return f(ctx, entry)
}

// Discard is a Recorder that drops every entry.
var Discard Recorder = RecorderFunc(func(context.Context, Entry) error { return nil })

// Multi fans an entry out to every recorder and joins their errors.
func Multi(recorders ...Recorder) Recorder {
	return RecorderFunc(func(ctx context.Context, entry Entry) error {
		var errs []error
		for _, r := range recorders {
			if r == nil {
				continue
			}
			if err := r.Record(ctx, entry); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}
