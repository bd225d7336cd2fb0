package daemon

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/gate"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/notifications"
	"github.com/access-system/face-recognition-enrollment/internal/workflow"
)

var (
	ErrAlreadyRunning     = errors.New("daemon already running")
	ErrNotRunning         = errors.New("daemon not running")
	ErrLocked             = errors.New("another enroll daemon instance is already running")
	ErrPreviewRunning     = errors.New("preview already running")
	ErrPreviewNotRunning  = errors.New("preview not running")
	ErrHistoryUnavailable = errors.New("history store unavailable")
	ErrNotificationsOff   = errors.New("ntfy topic not configured")
)

// Options supplies the daemon's optional collaborators.
type Options struct {
	Logger   *slog.Logger
	Store    *history.Store
	Notifier notifications.Service
	Events   *logging.EventBuffer
	// Factory opens session collaborators. Defaults to DefaultFactory.
	Factory Factory
}

// Daemon coordinates preview sessions and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	board    *blackboard.Board
	gate     *gate.Gate
	store    *history.Store
	recorder history.Recorder
	notifier notifications.Service
	events   *logging.EventBuffer
	factory  Factory

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	mu          sync.Mutex
	running     bool
	ctx         context.Context
	cancel      context.CancelFunc
	session     *session
	lastSummary workflow.StatusSummary
	lastErr     error
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Preview      bool
	PreviewSince time.Time
	Pipeline     workflow.StatusSummary
	Board        []blackboard.EntryState
	LastInfo     string
	LastError    string
	Counts       map[history.Outcome]int
	HistoryPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, opts Options) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	logger := logging.NewComponentLogger(opts.Logger, "daemon")
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	factory := opts.Factory
	if factory == nil {
		factory = DefaultFactory
	}

	recorders := []history.Recorder{notifications.NewRecorder(notifier, cfg.Notifications)}
	if opts.Store != nil {
		recorders = append([]history.Recorder{opts.Store}, recorders...)
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		board:    blackboard.New(),
		gate:     gate.New(),
		store:    opts.Store,
		recorder: history.Multi(recorders...),
		notifier: notifier,
		events:   opts.Events,
		factory:  factory,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and starts the API server. Preview sessions
// may only be started while the daemon is running.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return ErrAlreadyRunning
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrLocked
	}

	runCtx, cancel := context.WithCancel(ctx)
	api, err := newAPIServer(d.cfg, d, d.logger)
	if err == nil {
		err = api.start(runCtx)
	}
	if err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.ctx = runCtx
	d.cancel = cancel
	d.api = api
	d.running = true
	d.logger.Info("enroll daemon started",
		logging.EventType("daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("api", api.address()),
	)
	return nil
}

// Stop ends any preview session, stops the API server, and releases the lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	if err := d.StopPreview(context.Background()); err != nil && !errors.Is(err, ErrPreviewNotRunning) {
		d.logger.Warn("preview stop failed during shutdown", logging.Error(err))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.api = nil
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.Hint("remove "+d.lockPath+" if no daemon is running"),
		)
	}
	d.ctx = nil
	d.running = false
	d.logger.Info("enroll daemon stopped", logging.EventType("daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Running reports whether Start has succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Board exposes the shared blackboard.
func (d *Daemon) Board() *blackboard.Board { return d.board }

// Gate exposes the enrollment gate.
func (d *Daemon) Gate() *gate.Gate { return d.gate }

// APIAddress returns the address the control API listens on, or "" when
// the API is disabled or the daemon is stopped.
func (d *Daemon) APIAddress() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.api.address()
}

// Events returns the in-memory log buffer, if one was configured.
func (d *Daemon) Events() *logging.EventBuffer { return d.events }

// StartEnrollment opens the gate. It requires a running preview so an
// attempt always has frames to work with.
func (d *Daemon) StartEnrollment(ctx context.Context) (gate.Attempt, bool, error) {
	if !d.PreviewRunning() {
		return gate.Attempt{}, false, ErrPreviewNotRunning
	}
	attempt, changed := d.gate.Set()
	if changed {
		d.enrollmentStarted(attempt)
	}
	return attempt, changed, nil
}

// StopEnrollment closes the gate and records the open attempt as cancelled.
func (d *Daemon) StopEnrollment(ctx context.Context) (gate.Attempt, bool) {
	attempt, ok := d.gate.Clear()
	if !ok {
		return gate.Attempt{}, false
	}
	d.enrollmentStopped(ctx, attempt)
	return attempt, true
}

// ToggleEnrollment flips the gate and reports whether enrollment is now active.
func (d *Daemon) ToggleEnrollment(ctx context.Context) (bool, gate.Attempt, error) {
	if !d.gate.IsSet() && !d.PreviewRunning() {
		return false, gate.Attempt{}, ErrPreviewNotRunning
	}
	attempt, on := d.gate.Toggle()
	if on {
		d.enrollmentStarted(attempt)
	} else {
		d.enrollmentStopped(ctx, attempt)
	}
	return on, attempt, nil
}

// enrollmentStarted drops any embedding left from an earlier attempt so the
// new attempt only ever commits a vector computed after it opened.
func (d *Daemon) enrollmentStarted(attempt gate.Attempt) {
	entries := d.board.Entries()
	entries.Embedding.Reset()
	entries.LastErrorMsg.Reset()
	entries.LastInfoMsg.Set("Enrollment started")
	d.logger.Info("enrollment started",
		logging.EventType("enrollment_started"),
		logging.AttemptID(attempt.ID),
	)
}

func (d *Daemon) enrollmentStopped(ctx context.Context, attempt gate.Attempt) {
	entries := d.board.Entries()
	entries.Embedding.Reset()
	entries.LastInfoMsg.Set("Enrollment stopped")
	d.recordCancelled(ctx, attempt, "stopped by operator")
}

func (d *Daemon) recordCancelled(ctx context.Context, attempt gate.Attempt, reason string) {
	d.logger.Info("enrollment cancelled",
		logging.EventType("enrollment_cancelled"),
		logging.AttemptID(attempt.ID),
		logging.String("reason", reason),
	)
	entry := history.Entry{
		AttemptID: attempt.ID,
		Outcome:   history.OutcomeCancelled,
		Message:   reason,
		Started:   attempt.Started,
		Finished:  time.Now().UTC(),
	}
	if err := d.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		logging.WarnWithContext(d.logger, "failed to record cancelled attempt", "history_record_failed",
			logging.Error(err),
			logging.AttemptID(attempt.ID),
			logging.Impact("attempt missing from history"),
		)
	}
}

// Frame returns the frame to display: the annotated frame when present, else
// the raw camera frame. mirror flips it horizontally.
func (d *Daemon) Frame(mirror bool) (image.Image, bool) {
	entries := d.board.Entries()
	frame, ok := entries.ProcessedFrame.Get()
	if !ok || frame.Empty() {
		frame, ok = entries.RawFrame.Get()
	}
	if !ok || frame.Empty() {
		return nil, false
	}
	if mirror {
		return imaging.MirrorHorizontal(frame.Image), true
	}
	return frame.Image, true
}

// History lists recorded attempts, newest first.
func (d *Daemon) History(ctx context.Context, q history.Query) ([]history.Entry, error) {
	if d.store == nil {
		return nil, ErrHistoryUnavailable
	}
	return d.store.List(ctx, q)
}

// TestNotification sends a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) error {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return ErrNotificationsOff
	}
	return d.notifier.Publish(ctx, notifications.EventTest, nil)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	running := d.running
	s := d.session
	summary := d.lastSummary
	lastErr := d.lastErr
	d.mu.Unlock()

	status := Status{
		Running:      running,
		PID:          os.Getpid(),
		Board:        d.board.Snapshot(),
		LockFilePath: d.lockPath,
	}
	if s != nil {
		status.Preview = true
		status.PreviewSince = s.started
		summary = s.manager.Status(ctx)
	} else if lastErr != nil && summary.LastError == "" {
		summary.LastError = lastErr.Error()
	}
	status.Pipeline = summary

	entries := d.board.Entries()
	status.LastInfo, _ = entries.LastInfoMsg.Get()
	status.LastError, _ = entries.LastErrorMsg.Get()

	if d.store != nil {
		status.HistoryPath = d.store.Path()
		if counts, err := d.store.Counts(ctx); err == nil {
			status.Counts = counts
		} else {
			d.logger.Debug("history counts unavailable", logging.Error(err))
		}
	}
	return status
}
