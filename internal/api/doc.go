// Package api defines wire-format types, converters, and the HTTP client for
// the daemon control API.
//
// DTOs use camelCase JSON tags. Timestamps are RFC3339 with milliseconds.
// Client wraps the endpoints served by the daemon so the CLI never builds
// URLs by hand.
package api
