package preflight

import (
	"context"

	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	switch cfg.Camera.Source {
	case config.CameraSourceDevice:
		results = append(results, CheckCameraDevice(cfg.Camera.Device))
	case config.CameraSourceDirectory:
		results = append(results, CheckFrameDirectory(cfg.Camera.Directory))
	}

	results = append(results, CheckDependencies(deps.ForConfig(cfg))...)
	results = append(results, CheckRegistry(ctx, cfg.Registry.BaseURL, nil))
	return results
}

// Passed reports whether every result passed.
func Passed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}
