package stage

import (
	"context"
	"log/slog"
)

// Stage is one unit of pipeline work executed repeatedly by a Runner.
//
// Cycle performs a single pass: read inputs from the blackboard, compute, and
// write outputs. Returning an error marked services.ErrFatal stops the runner;
// any other error is logged and the next cycle proceeds on schedule.
type Stage interface {
	Name() string
	Cycle(ctx context.Context) error
}

// LoggerAware stages receive the runner's stage-scoped logger before the
// first cycle.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// HealthChecker stages can report readiness for status output.
type HealthChecker interface {
	HealthCheck(ctx context.Context) Health
}
