// Package preflight provides readiness checks for the filesystem paths,
// devices, binaries, and services the enrollment daemon depends on.
//
// The CLI "enroll preflight" command runs RunAll and renders the results.
// Checks for disabled features are skipped.
package preflight
