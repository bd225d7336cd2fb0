// Package stage defines the contract every pipeline stage implements and the
// Runner that drives a stage at a fixed rate.
//
// A Runner owns exactly one goroutine. Each cycle runs to completion before
// the next begins, so a stage never has more than one cycle in flight. After a
// cycle the runner sleeps for whatever remains of the period; an overrunning
// cycle is followed immediately by the next one with no attempt to catch up.
// Cancellation of the run context is observed at the top of every cycle and
// during the sleep.
package stage
