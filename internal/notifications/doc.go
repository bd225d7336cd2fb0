// Package notifications delivers enrollment events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when notifications are disabled.
// Recorder adapts a Service to the history.Recorder interface so finished
// enrollment attempts can be announced alongside the history store.
package notifications
