package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/services"
)

// State is the lifecycle position of a Runner.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrAlreadyStarted is returned by Run on a runner that has already run.
var ErrAlreadyStarted = errors.New("stage runner already started")

// Status is a point-in-time view of a runner.
type Status struct {
	Name         string        `json:"name"`
	State        string        `json:"state"`
	RateHz       int           `json:"rate_hz"`
	Cycles       uint64        `json:"cycles"`
	Failures     uint64        `json:"failures"`
	Overruns     uint64        `json:"overruns"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	Fatal        string        `json:"fatal,omitempty"`
}

// Runner executes a Stage at a fixed rate until its context is cancelled or
// the stage reports a fatal error.
type Runner struct {
	stage  Stage
	rate   int
	period time.Duration
	logger *slog.Logger

	state        atomic.Int32
	cycles       atomic.Uint64
	failures     atomic.Uint64
	overruns     atomic.Uint64
	lastDuration atomic.Int64

	mu      sync.Mutex
	lastErr error
	fatal   error
}

// NewRunner wraps s so it runs rate times per second.
func NewRunner(s Stage, rate int, logger *slog.Logger) (*Runner, error) {
	if s == nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "runner", "stage is nil", nil)
	}
	if rate <= 0 {
		return nil, services.Wrap(services.ErrConfiguration, s.Name(), "runner", fmt.Sprintf("rate must be positive, got %d", rate), nil)
	}
	return &Runner{
		stage:  s,
		rate:   rate,
		period: time.Second / time.Duration(rate),
		logger: logging.NewComponentLogger(logger, "stage"),
	}, nil
}

// Name returns the wrapped stage name.
func (r *Runner) Name() string { return r.stage.Name() }

// Stage returns the wrapped stage.
func (r *Runner) Stage() Stage { return r.stage }

// Period returns the target cycle period.
func (r *Runner) Period() time.Duration { return r.period }

// State returns the current lifecycle state.
func (r *Runner) State() State { return State(r.state.Load()) }

// Run drives the stage on the calling goroutine until ctx is cancelled or a
// fatal error occurs. A normal stop returns nil; a fatal stop returns the
// fatal error. The stage is closed on exit when it implements io.Closer.
func (r *Runner) Run(ctx context.Context) error {
	if !r.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrAlreadyStarted
	}
	defer r.state.Store(int32(StateStopped))

	ctx = services.WithStage(ctx, r.stage.Name())
	logger := logging.WithContext(ctx, r.logger)
	if aware, ok := r.stage.(LoggerAware); ok {
		aware.SetLogger(logger)
	}
	defer r.closeStage(logger)

	logger.Info("stage started",
		logging.EventType("stage_start"),
		logging.Int("rate_hz", r.rate),
	)

	timer := time.NewTimer(r.period)
	timer.Stop()
	defer timer.Stop()

	var lastMessage string
	for {
		if err := ctx.Err(); err != nil {
			logger.Info("stage stopped",
				logging.EventType("stage_stop"),
				logging.Uint64("cycles", r.cycles.Load()),
			)
			return nil
		}

		started := time.Now()
		err := r.runCycle(ctx)
		elapsed := time.Since(started)
		r.cycles.Add(1)
		r.lastDuration.Store(int64(elapsed))

		if err != nil {
			r.failures.Add(1)
			r.setLastError(err)
			if services.IsFatal(err) {
				r.setFatal(err)
				logging.ErrorWithContext(logger, "stage stopped on fatal error", "stage_fatal",
					logging.Error(err),
					logging.Hint("check the resource the stage depends on, then restart the preview"),
				)
				return err
			}
			// Repeated identical failures are demoted to debug to keep 30 Hz loops from flooding the log.
			if msg := err.Error(); msg != lastMessage {
				logging.WarnWithContext(logger, "stage cycle failed", "stage_cycle_failed",
					logging.Error(err),
					logging.String("category", services.Category(err)),
					logging.Impact("stage output cleared for this cycle"),
				)
				lastMessage = msg
			} else {
				logger.Debug("stage cycle failed again", logging.Error(err))
			}
		} else {
			lastMessage = ""
		}

		wait := r.period - elapsed
		if wait <= 0 {
			r.overruns.Add(1)
			continue
		}
		timer.Reset(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (r *Runner) runCycle(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = services.Wrap(services.ErrCollaborator, r.stage.Name(), "cycle",
				fmt.Sprintf("panic: %v", rec), errors.New(string(debug.Stack())))
		}
	}()
	return r.stage.Cycle(ctx)
}

func (r *Runner) closeStage(logger *slog.Logger) {
	closer, ok := r.stage.(io.Closer)
	if !ok {
		return
	}
	if err := closer.Close(); err != nil {
		logging.WarnWithContext(logger, "stage close failed", "stage_close_failed",
			logging.Error(err),
			logging.Impact("collaborator resources may leak until process exit"),
		)
	}
}

func (r *Runner) setLastError(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

func (r *Runner) setFatal(err error) {
	r.mu.Lock()
	r.fatal = err
	r.mu.Unlock()
}

// Err returns the fatal error that stopped the runner, if any.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fatal
}

// Status reports counters and the last observed errors.
func (r *Runner) Status() Status {
	st := Status{
		Name:         r.stage.Name(),
		State:        r.State().String(),
		RateHz:       r.rate,
		Cycles:       r.cycles.Load(),
		Failures:     r.failures.Load(),
		Overruns:     r.overruns.Load(),
		LastDuration: time.Duration(r.lastDuration.Load()),
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastErr != nil {
		st.LastError = r.lastErr.Error()
	}
	if r.fatal != nil {
		st.Fatal = r.fatal.Error()
	}
	return st
}
