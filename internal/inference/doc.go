// Package inference declares the model collaborators the pipeline stages
// depend on: face detection, head pose estimation, face alignment, and
// embedding.
//
// Every collaborator call returns a value and an error. "No face" is an empty
// result, not an error; a failed call is an error wrapped with
// services.ErrCollaborator. Aligners return ErrNoResult when the model found
// nothing to align.
//
// The worker subpackage implements these interfaces against an external model
// process; inferencetest provides scripted fakes.
package inference
