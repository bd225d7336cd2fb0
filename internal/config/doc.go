// Package config loads, normalizes, and validates enrollment daemon settings.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the ENROLL_REGISTRY_URL
// environment override. The Config type centralizes every knob the daemon
// and CLI need: camera source, per-stage rates, quality thresholds, the
// model worker command, and the embedding registry endpoint.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
