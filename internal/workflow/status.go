package workflow

import (
	"context"

	"github.com/access-system/face-recognition-enrollment/internal/stage"
)

// StatusSummary is a snapshot of the pipeline for status output.
type StatusSummary struct {
	Running     bool                    `json:"running"`
	LastError   string                  `json:"last_error,omitempty"`
	Stages      []stage.Status          `json:"stages"`
	StageHealth map[string]stage.Health `json:"stage_health,omitempty"`
}

// Status reports runner counters and stage health.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.Lock()
	runners := append([]*stage.Runner(nil), m.runners...)
	started := m.started
	done := m.done
	lastErr := m.err
	m.mu.Unlock()

	running := started
	if done != nil {
		select {
		case <-done:
			running = false
		default:
		}
	}

	summary := StatusSummary{Running: running, Stages: make([]stage.Status, 0, len(runners))}
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	for _, r := range runners {
		summary.Stages = append(summary.Stages, r.Status())
		if checker, ok := r.Stage().(stage.HealthChecker); ok {
			if summary.StageHealth == nil {
				summary.StageHealth = make(map[string]stage.Health)
			}
			summary.StageHealth[r.Name()] = checker.HealthCheck(ctx)
		}
	}
	return summary
}
