package api

import (
	"slices"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/gate"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/stage"
	"github.com/access-system/face-recognition-enrollment/internal/workflow"
)

// FromStatusSummary converts a workflow summary to its API representation.
func FromStatusSummary(summary workflow.StatusSummary) PipelineStatus {
	out := PipelineStatus{
		Running:     summary.Running,
		LastError:   summary.LastError,
		Stages:      make([]StageStatus, 0, len(summary.Stages)),
		StageHealth: StageHealthSlice(summary.StageHealth),
	}
	for _, s := range summary.Stages {
		out.Stages = append(out.Stages, FromStageStatus(s))
	}
	return out
}

// FromStageStatus converts runner counters.
func FromStageStatus(s stage.Status) StageStatus {
	return StageStatus{
		Name:           s.Name,
		State:          s.State,
		RateHz:         s.RateHz,
		Cycles:         s.Cycles,
		Failures:       s.Failures,
		Overruns:       s.Overruns,
		LastDurationMs: float64(s.LastDuration) / float64(time.Millisecond),
		LastError:      s.LastError,
		Fatal:          s.Fatal,
	}
}

// StageHealthSlice orders stage health by name.
func StageHealthSlice(health map[string]stage.Health) []StageHealth {
	if len(health) == 0 {
		return nil
	}
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	slices.Sort(names)

	out := make([]StageHealth, 0, len(names))
	for _, name := range names {
		h := health[name]
		out = append(out, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	return out
}

// FromBoardSnapshot converts blackboard slot states.
func FromBoardSnapshot(states []blackboard.EntryState) []BoardEntry {
	out := make([]BoardEntry, 0, len(states))
	for _, st := range states {
		out = append(out, BoardEntry{
			Key:       string(st.Key),
			Present:   st.Present,
			Writes:    st.Writes,
			UpdatedAt: FormatTime(st.Updated),
		})
	}
	return out
}

// FromGate describes the gate state.
func FromGate(g *gate.Gate) EnrollmentStatus {
	if g == nil {
		return EnrollmentStatus{}
	}
	opened, closed := g.Stats()
	out := EnrollmentStatus{Opened: opened, Closed: closed}
	if attempt, ok := g.Current(); ok {
		out.Active = true
		out.AttemptID = attempt.ID
		out.StartedAt = FormatTime(attempt.Started)
	}
	return out
}

// FromHistoryEntry converts a stored attempt.
func FromHistoryEntry(e history.Entry) HistoryEntry {
	return HistoryEntry{
		ID:         e.ID,
		AttemptID:  e.AttemptID,
		Outcome:    string(e.Outcome),
		Identifier: e.Identifier,
		Message:    e.Message,
		StartedAt:  FormatTime(e.Started),
		FinishedAt: FormatTime(e.Finished),
		DurationMs: float64(e.Duration()) / float64(time.Millisecond),
	}
}

// FromHistoryEntries converts a page of attempts.
func FromHistoryEntries(entries []history.Entry) []HistoryEntry {
	out := make([]HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromHistoryEntry(e))
	}
	return out
}

// FromLogEvents converts buffered log events.
func FromLogEvents(events []logging.Event) []LogEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]LogEvent, 0, len(events))
	for _, evt := range events {
		out = append(out, LogEvent{
			Sequence:  evt.Sequence,
			Timestamp: evt.Timestamp,
			Level:     evt.Level,
			Message:   evt.Message,
			Component: evt.Component,
			Stage:     evt.Stage,
			AttemptID: evt.AttemptID,
			Fields:    evt.Fields,
		})
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses a timestamp produced by FormatTime.
func ParseTime(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateTimeFormat, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
