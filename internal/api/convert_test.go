package api_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/access-system/face-recognition-enrollment/internal/api"
	"github.com/access-system/face-recognition-enrollment/internal/gate"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/stage"
	"github.com/access-system/face-recognition-enrollment/internal/workflow"
)

func TestFromStatusSummaryOrdersHealth(t *testing.T) {
	summary := workflow.StatusSummary{
		Running: true,
		Stages: []stage.Status{
			{Name: "capture", State: "running", RateHz: 30, Cycles: 10, LastDuration: 2500 * time.Microsecond},
		},
		StageHealth: map[string]stage.Health{
			"verify":  stage.Unhealthy("verify", "registry unreachable"),
			"capture": stage.Healthy("capture"),
		},
	}
	got := api.FromStatusSummary(summary)
	want := api.PipelineStatus{
		Running: true,
		Stages: []api.StageStatus{
			{Name: "capture", State: "running", RateHz: 30, Cycles: 10, LastDurationMs: 2.5},
		},
		StageHealth: []api.StageHealth{
			{Name: "capture", Ready: true},
			{Name: "verify", Ready: false, Detail: "registry unreachable"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FromStatusSummary mismatch (-want +got):\n%s", diff)
	}
}

func TestFromGate(t *testing.T) {
	g := gate.New()
	if got := api.FromGate(g); got.Active || got.AttemptID != "" {
		t.Fatalf("expected closed gate, got %+v", got)
	}
	attempt, _ := g.Set()
	got := api.FromGate(g)
	if !got.Active || got.AttemptID != attempt.ID || got.Opened != 1 {
		t.Fatalf("unexpected open gate status %+v", got)
	}
	if ts, ok := api.ParseTime(got.StartedAt); !ok || !ts.Equal(attempt.Started.Truncate(time.Millisecond)) {
		t.Fatalf("unexpected start time %q", got.StartedAt)
	}
	if got := api.FromGate(nil); got != (api.EnrollmentStatus{}) {
		t.Fatalf("nil gate should be zero, got %+v", got)
	}
}

func TestFromHistoryEntry(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := api.FromHistoryEntry(history.Entry{
		ID:         7,
		AttemptID:  "a-1",
		Outcome:    history.OutcomeRegistered,
		Identifier: "0011223344556677",
		Started:    started,
		Finished:   started.Add(1500 * time.Millisecond),
	})
	want := api.HistoryEntry{
		ID:         7,
		AttemptID:  "a-1",
		Outcome:    "registered",
		Identifier: "0011223344556677",
		StartedAt:  "2026-03-01T12:00:00.000Z",
		FinishedAt: "2026-03-01T12:00:01.500Z",
		DurationMs: 1500,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("FromHistoryEntry mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatTimeZero(t *testing.T) {
	if got := api.FormatTime(time.Time{}); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if _, ok := api.ParseTime("yesterday"); ok {
		t.Fatal("expected parse failure")
	}
}
