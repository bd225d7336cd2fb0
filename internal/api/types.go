package api

import "time"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// StageStatus reports one runner's counters.
type StageStatus struct {
	Name           string  `json:"name"`
	State          string  `json:"state"`
	RateHz         int     `json:"rateHz"`
	Cycles         uint64  `json:"cycles"`
	Failures       uint64  `json:"failures"`
	Overruns       uint64  `json:"overruns"`
	LastDurationMs float64 `json:"lastDurationMs"`
	LastError      string  `json:"lastError,omitempty"`
	Fatal          string  `json:"fatal,omitempty"`
}

// StageHealth mirrors readiness reporting for pipeline stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// PipelineStatus summarizes the running preview session.
type PipelineStatus struct {
	Running     bool          `json:"running"`
	LastError   string        `json:"lastError,omitempty"`
	Stages      []StageStatus `json:"stages"`
	StageHealth []StageHealth `json:"stageHealth"`
}

// BoardEntry describes one blackboard slot.
type BoardEntry struct {
	Key       string `json:"key"`
	Present   bool   `json:"present"`
	Writes    uint64 `json:"writes"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// EnrollmentStatus describes the gate.
type EnrollmentStatus struct {
	Active    bool   `json:"active"`
	AttemptID string `json:"attemptId,omitempty"`
	StartedAt string `json:"startedAt,omitempty"`
	Opened    uint64 `json:"opened"`
	Closed    uint64 `json:"closed"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool             `json:"running"`
	PID           int              `json:"pid"`
	Preview       bool             `json:"preview"`
	PreviewSince  string           `json:"previewSince,omitempty"`
	Enrollment    EnrollmentStatus `json:"enrollment"`
	LastInfo      string           `json:"lastInfo,omitempty"`
	LastError     string           `json:"lastError,omitempty"`
	Pipeline      PipelineStatus   `json:"pipeline"`
	Board         []BoardEntry     `json:"board"`
	HistoryPath   string           `json:"historyPath,omitempty"`
	LockFilePath  string           `json:"lockFilePath"`
	OutcomeCounts map[string]int   `json:"outcomeCounts,omitempty"`
	CameraSource  string           `json:"cameraSource"`
	RegistryURL   string           `json:"registryUrl"`
}

// HistoryEntry is one finished enrollment attempt.
type HistoryEntry struct {
	ID         int64   `json:"id"`
	AttemptID  string  `json:"attemptId"`
	Outcome    string  `json:"outcome"`
	Identifier string  `json:"identifier,omitempty"`
	Message    string  `json:"message,omitempty"`
	StartedAt  string  `json:"startedAt,omitempty"`
	FinishedAt string  `json:"finishedAt,omitempty"`
	DurationMs float64 `json:"durationMs"`
}

// HistoryResponse wraps a page of attempts.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// ActionResponse reports the result of a control request.
type ActionResponse struct {
	Changed    bool             `json:"changed"`
	Message    string           `json:"message"`
	Enrollment EnrollmentStatus `json:"enrollment"`
	Preview    bool             `json:"preview"`
}

// LogEvent is a structured log record.
type LogEvent struct {
	Sequence  uint64            `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	Stage     string            `json:"stage,omitempty"`
	AttemptID string            `json:"attemptId,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// LogStreamResponse wraps log events and the cursor for the next request.
type LogStreamResponse struct {
	Events []LogEvent `json:"events"`
	Next   uint64     `json:"next"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}
