// Package workflow assembles and runs the enrollment pipeline.
//
// A pipeline is described by a list of Registrations. Each names a stage, the
// dependencies its constructor needs, and the rate its runner cycles at. The
// Manager checks every registration's requirements against the supplied Deps
// before building anything, so a missing camera or model is reported as a
// construction error instead of a runtime panic. Started stages run on their
// own goroutines under one errgroup: a fatal error in any stage cancels the
// rest, and Wait reports it.
//
// Standard returns the six-stage enrollment pipeline (capture, detect,
// validate, align, recognize, verify) wired to the configured rates.
package workflow
