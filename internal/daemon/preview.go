package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/camera"
	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/notifications"
	"github.com/access-system/face-recognition-enrollment/internal/workflow"
)

type session struct {
	manager  *workflow.Manager
	cancel   context.CancelFunc
	monitor  *camera.Monitor
	started  time.Time
	finished chan struct{}
	reason   string
}

// PreviewRunning reports whether a preview session is active.
func (d *Daemon) PreviewRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session != nil
}

// StartPreview opens the session collaborators, builds the standard pipeline
// and starts it. The session outlives ctx; it ends on StopPreview, daemon
// shutdown, or a fatal stage error.
func (d *Daemon) StartPreview(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrNotRunning
	}
	if d.session != nil {
		return ErrPreviewRunning
	}

	sessionCtx, cancel := context.WithCancel(d.ctx)
	collab, err := d.factory(sessionCtx, d.cfg, d.logger)
	if err != nil {
		cancel()
		return fmt.Errorf("open collaborators: %w", err)
	}

	d.board.ResetAll()
	manager := workflow.NewManager(d.logger, workflow.Standard(d.cfg)...)
	if err := manager.Build(collab.deps(d.board, d.gate, d.recorder)); err != nil {
		_ = collab.Close()
		cancel()
		return fmt.Errorf("build pipeline: %w", err)
	}
	if err := manager.Start(sessionCtx); err != nil {
		_ = collab.Close()
		cancel()
		return fmt.Errorf("start pipeline: %w", err)
	}

	s := &session{
		manager:  manager,
		cancel:   cancel,
		started:  time.Now().UTC(),
		finished: make(chan struct{}),
	}
	if d.cfg.Camera.Source == config.CameraSourceDevice && d.cfg.Camera.Hotplug {
		device := d.cfg.Camera.Device
		source := collab.Camera
		s.monitor = camera.NewMonitor(device, d.logger, func(dev string) {
			logging.WarnWithContext(d.logger, "camera removed; stopping preview", "camera_removed",
				logging.String("device", dev),
				logging.Hint("reconnect the camera and start the preview again"),
				logging.Impact("enrollment unavailable until preview restarts"),
			)
			d.publish(notifications.EventCameraLost, notifications.Payload{"device": dev})
			_ = source.Close()
		})
		if err := s.monitor.Start(sessionCtx); err != nil {
			d.logger.Warn("camera monitor unavailable", logging.Error(err))
		}
	}
	d.session = s
	go d.watch(s)

	d.logger.Info("preview started",
		logging.EventType("preview_started"),
		logging.String("camera", d.cameraLabel()),
	)
	d.publish(notifications.EventPipelineStarted, notifications.Payload{"camera": d.cameraLabel()})
	return nil
}

// StopPreview cancels the session and waits until every stage has stopped
// and the session has been torn down.
func (d *Daemon) StopPreview(ctx context.Context) error {
	d.mu.Lock()
	s := d.session
	if s != nil && s.reason == "" {
		s.reason = "stopped by operator"
	}
	d.mu.Unlock()
	if s == nil {
		return ErrPreviewNotRunning
	}

	s.cancel()
	select {
	case <-s.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// watch tears the session down once the pipeline has stopped for any reason.
func (d *Daemon) watch(s *session) {
	<-s.manager.Done()
	err := s.manager.Wait()
	s.cancel()
	s.monitor.Stop()

	summary := s.manager.Status(context.Background())
	reason := "preview stopped"
	d.mu.Lock()
	if s.reason != "" {
		reason = s.reason
	}
	d.mu.Unlock()
	if err != nil {
		reason = "pipeline failed: " + err.Error()
	}

	if attempt, ok := d.gate.Clear(); ok {
		d.recordCancelled(context.Background(), attempt, reason)
	}
	d.board.ResetAll()

	d.mu.Lock()
	if d.session == s {
		d.session = nil
	}
	d.lastSummary = summary
	d.lastErr = err
	d.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		logging.ErrorWithContext(d.logger, "preview ended on pipeline failure", "preview_failed",
			logging.Error(err),
			logging.Hint("check the camera and model workers, then start the preview again"),
		)
		d.publish(notifications.EventError, notifications.Payload{"context": "preview", "error": err})
	} else {
		d.logger.Info("preview stopped",
			logging.EventType("preview_stopped"),
			logging.String("reason", reason),
		)
	}
	d.publish(notifications.EventPipelineStopped, notifications.Payload{"reason": reason})
	close(s.finished)
}

func (d *Daemon) publish(event notifications.Event, payload notifications.Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.notifier.Publish(ctx, event, payload); err != nil {
		d.logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

func (d *Daemon) cameraLabel() string {
	if d.cfg.Camera.Source == config.CameraSourceDirectory {
		return d.cfg.Camera.Directory
	}
	return d.cfg.Camera.Device
}
