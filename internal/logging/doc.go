// Package logging assembles structured slog loggers and formatting helpers used
// across the enrollment daemon.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can automatically
// tag log lines with stage names, attempt IDs, and correlation IDs. An
// EventBuffer can be attached to keep the most recent records in memory for
// the status API. The package also provides a no-op logger for tests and
// wiring code that cannot fail.
package logging
