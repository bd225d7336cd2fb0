// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp stage names, enrollment attempt IDs, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that let the stage runner
//     tell collaborator failures, registry failures, and fatal resource loss
//     apart.
//
// Subpackages hold the clients for external services, such as the embedding
// registry.
package services
