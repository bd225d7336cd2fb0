// Package daemon hosts the enrollment pipeline behind a local HTTP control
// API.
//
// A Daemon holds the single-instance lock, the shared blackboard and gate,
// and at most one preview session. StartPreview opens the camera and model
// workers, builds the standard pipeline, and runs it until StopPreview, a
// fatal stage error, or camera removal. Every session ends the same way:
// the open attempt is recorded as cancelled and the blackboard is reset.
package daemon
