// Package registry talks to the external embedding registry.
//
// The registry owns identity storage and similarity matching; this client only
// asks whether an embedding is already enrolled and submits new ones. Calls
// are never retried here: the verify stage decides what a failure means for
// the current enrollment attempt.
package registry
