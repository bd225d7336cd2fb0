package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/daemon"
	"github.com/access-system/face-recognition-enrollment/internal/deps"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/notifications"
)

// PIDFileName is written under the log directory while the daemon runs.
const PIDFileName = "enroll.pid"

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	// NoPreview keeps the camera closed until a client starts the preview.
	NoPreview bool
	// Factory overrides collaborator construction. Nil uses the model workers.
	Factory daemon.Factory
}

// Run starts the enrollment daemon and blocks until ctx is cancelled or the
// process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("enroll-%s.log", runID))
	events := logging.NewEventBuffer(4096)

	level := cfg.Logging.Level
	if strings.TrimSpace(opts.LogLevel) != "" {
		level = opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
		Events:      events,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	logDependencySnapshot(logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update %s link: %v\n", logging.LogFileName, err)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Paths.LogDir, Pattern: "enroll-*.log", Exclude: []string{logPath}},
	)

	pidPath := filepath.Join(cfg.Paths.LogDir, PIDFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	store, err := history.Open(cfg)
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return err
	}
	pruneHistory(signalCtx, logger, store, cfg.Logging.RetentionDays)

	d, err := daemon.New(cfg, daemon.Options{
		Logger:   logger,
		Store:    store,
		Notifier: notifications.NewService(cfg),
		Events:   events,
		Factory:  opts.Factory,
	})
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		if errors.Is(err, daemon.ErrLocked) {
			return err
		}
		return fmt.Errorf("start daemon: %w", err)
	}

	if !opts.NoPreview {
		if err := d.StartPreview(signalCtx); err != nil {
			logging.WarnWithContext(logger, "preview start failed", "preview_start_failed",
				logging.Error(err),
				logging.Hint("check camera and model worker settings, then run enroll preview start"),
				logging.Impact("no frames are processed until the preview is started"),
			)
		}
	}

	<-signalCtx.Done()
	logger.Info("enroll daemon shutting down")
	d.Stop()
	return nil
}

func pruneHistory(ctx context.Context, logger *slog.Logger, store *history.Store, days int) {
	if days <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	removed, err := store.Prune(ctx, cutoff)
	if err != nil {
		logging.WarnWithContext(logger, "history prune failed", "history_prune_failed",
			logging.Error(err),
			logging.Impact("old attempts remain in the history database"),
		)
		return
	}
	if removed > 0 {
		logger.Info("pruned attempt history",
			logging.Int64("removed", removed),
			logging.Int("retention_days", days),
		)
	}
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, logging.LogFileName)
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.EventType("dependency_snapshot"),
		logging.String("camera_source", cfg.Camera.Source),
		logging.String("model_device", cfg.Models.Device),
		logging.String("registry_url", cfg.Registry.BaseURL),
		logging.Bool("ntfy_configured", strings.TrimSpace(cfg.Notifications.NtfyTopic) != ""),
		logging.Bool("api_token_set", cfg.Paths.APIToken != ""),
	}
	statuses := deps.CheckBinaries(deps.ForConfig(cfg))
	for _, st := range statuses {
		key := strings.ReplaceAll(strings.ToLower(st.Name), " ", "_")
		attrs = append(attrs,
			logging.Bool(key+"_available", st.Available),
			logging.String(key+"_binary", st.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
	for _, st := range deps.MissingRequired(statuses) {
		logging.WarnWithContext(logger, "required binary missing", "dependency_missing",
			logging.String("dependency", st.Name),
			logging.String("detail", st.Detail),
			logging.Hint("install "+st.Command+" or fix its path in the config"),
			logging.Impact("preview cannot start"),
		)
	}
}
