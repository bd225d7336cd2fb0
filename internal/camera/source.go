package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
)

// ErrClosed is returned by Read once a source can no longer produce frames.
var ErrClosed = errors.New("camera source closed")

// Source yields decoded frames. Read blocks until the next frame is available.
type Source interface {
	Read(ctx context.Context) (imaging.Frame, error)
	Close() error
}

// Open builds the source selected by cfg.Camera.Source.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Source, error) {
	if cfg == nil {
		return nil, errors.New("camera: config is nil")
	}
	switch cfg.Camera.Source {
	case config.CameraSourceDirectory:
		return OpenDirectory(cfg.Camera.Directory)
	case config.CameraSourceDevice:
		return StartFFmpeg(ctx, FFmpegOptions{
			Binary:      cfg.FFmpegBinary(),
			Device:      cfg.Camera.Device,
			Width:       cfg.Camera.Width,
			Height:      cfg.Camera.Height,
			InputFormat: cfg.Camera.InputFormat,
			Logger:      logger,
		})
	default:
		return nil, fmt.Errorf("camera: unsupported source %q", cfg.Camera.Source)
	}
}
