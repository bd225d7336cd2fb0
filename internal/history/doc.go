// Package history records the outcome of every enrollment attempt.
//
// An attempt begins when the enrollment gate opens and ends when a stage (or
// the operator) closes it. Outcomes are persisted to SQLite under the state
// directory so operators can audit registrations, duplicates and failures
// after the fact. Stages depend only on the Recorder interface; the daemon
// composes the SQLite store with notifications and logging.
package history
