package deps

import (
	"github.com/access-system/face-recognition-enrollment/internal/config"
)

// ForConfig lists the binaries the configured daemon needs. FFmpeg is only
// required when frames come from a camera device.
func ForConfig(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	device := cfg.Camera.Source == config.CameraSourceDevice
	reqs := []Requirement{
		{
			Name:        "Model worker",
			Command:     cfg.Models.WorkerCommand,
			Description: "Runs detection, pose, alignment, and embedding models",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.FFmpegBinary(),
			Description: "Reads frames from the camera device",
			Optional:    !device,
		},
	}
	if device {
		reqs = append(reqs, Requirement{
			Name:        "v4l2-ctl",
			Command:     "v4l2-ctl",
			Description: "Lists camera formats when tuning capture settings",
			Optional:    true,
		})
	}
	return reqs
}
