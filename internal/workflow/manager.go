package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/services"
	"github.com/access-system/face-recognition-enrollment/internal/stage"
)

// ErrNotBuilt is returned by Start before a successful Build.
var ErrNotBuilt = errors.New("pipeline not built")

// ErrAlreadyRunning is returned by Build or Start on a started pipeline.
var ErrAlreadyRunning = errors.New("pipeline already started")

// ErrAlreadyBuilt is returned by a second Build. A manager owns one set of
// stages; build a new manager to get another.
var ErrAlreadyBuilt = errors.New("pipeline already built")

// Manager builds stages from registrations and runs them.
type Manager struct {
	logger        *slog.Logger
	registrations []Registration

	mu      sync.Mutex
	runners []*stage.Runner
	started bool
	cancel  context.CancelFunc
	group   *errgroup.Group
	done    chan struct{}
	err     error
}

// NewManager returns a manager for regs. Stages are built and started in the
// order given.
func NewManager(logger *slog.Logger, regs ...Registration) *Manager {
	return &Manager{
		logger:        logging.NewComponentLogger(logger, "workflow"),
		registrations: append([]Registration(nil), regs...),
	}
}

// Register appends registrations. It has no effect after Build.
func (m *Manager) Register(regs ...Registration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runners != nil {
		return
	}
	m.registrations = append(m.registrations, regs...)
}

// Build constructs every registered stage. All requirements are checked
// before any constructor runs; a missing dependency names the stage and the
// dependency. Stages built before a constructor failure are closed.
func (m *Manager) Build(deps Deps) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrAlreadyRunning
	}
	if m.runners != nil {
		return ErrAlreadyBuilt
	}
	if len(m.registrations) == 0 {
		return services.Wrap(services.ErrConfiguration, "workflow", "build", "no stages registered", nil)
	}

	seen := make(map[string]struct{}, len(m.registrations))
	for _, reg := range m.registrations {
		if strings.TrimSpace(reg.Name) == "" || reg.Build == nil {
			return services.Wrap(services.ErrConfiguration, "workflow", "build", "registration needs a name and constructor", nil)
		}
		if _, dup := seen[reg.Name]; dup {
			return services.Wrap(services.ErrConfiguration, "workflow", "build", "duplicate stage "+reg.Name, nil)
		}
		seen[reg.Name] = struct{}{}
		if missing := deps.Missing(reg.Requires); len(missing) > 0 {
			return services.Wrap(services.ErrConfiguration, reg.Name, "build",
				"missing dependency "+strings.Join(missing, ", "), nil)
		}
	}

	runners := make([]*stage.Runner, 0, len(m.registrations))
	for _, reg := range m.registrations {
		st, err := reg.Build(deps)
		if err == nil && st == nil {
			err = errors.New("constructor returned nil stage")
		}
		var runner *stage.Runner
		if err == nil {
			runner, err = stage.NewRunner(st, reg.Rate, m.logger)
			if err != nil {
				closeStage(st)
			}
		}
		if err != nil {
			for _, r := range runners {
				closeStage(r.Stage())
			}
			return services.Wrap(services.ErrConfiguration, reg.Name, "build", "construct stage", err)
		}
		runners = append(runners, runner)
	}
	m.runners = runners
	m.logger.Debug("pipeline built", logging.Int("stages", len(runners)))
	return nil
}

func closeStage(st stage.Stage) {
	if c, ok := st.(io.Closer); ok {
		_ = c.Close()
	}
}

// Start launches every built stage exactly once, in construction order. The
// pipeline runs until ctx is cancelled, Stop is called, or a stage fails
// fatally.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return ErrAlreadyRunning
	}
	if len(m.runners) == 0 {
		return ErrNotBuilt
	}
	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	for _, runner := range m.runners {
		group.Go(func() error {
			if err := runner.Run(groupCtx); err != nil {
				return fmt.Errorf("stage %s: %w", runner.Name(), err)
			}
			return nil
		})
	}
	m.started = true
	m.cancel = cancel
	m.group = group
	m.done = make(chan struct{})

	go func() {
		err := group.Wait()
		cancel()
		m.mu.Lock()
		m.err = err
		m.mu.Unlock()
		if err != nil {
			logging.ErrorWithContext(m.logger, "pipeline stopped on stage failure", "pipeline_failed",
				logging.Error(err),
				logging.Hint("fix the failing resource and restart the preview"),
			)
		}
		close(m.done)
	}()

	m.logger.Info("pipeline started",
		logging.EventType("pipeline_started"),
		logging.Int("stages", len(m.runners)),
	)
	return nil
}

// Wait blocks until every stage has stopped and returns the first fatal
// error, or nil after a normal stop.
func (m *Manager) Wait() error {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Done is closed once every stage has stopped. It is nil before Start.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}

// Stop cancels the pipeline and waits for every stage to finish its current
// cycle and release its collaborators.
func (m *Manager) Stop() error {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return m.Wait()
}

// Runners returns the built runners in construction order.
func (m *Manager) Runners() []*stage.Runner {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*stage.Runner(nil), m.runners...)
}
