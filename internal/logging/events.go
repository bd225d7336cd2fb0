package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Event is a log record captured for the status API.
type Event struct {
	Sequence  uint64            `json:"seq"`
	Timestamp time.Time         `json:"ts"`
	Level     string            `json:"level"`
	Message   string            `json:"msg"`
	Component string            `json:"component,omitempty"`
	Stage     string            `json:"stage,omitempty"`
	AttemptID string            `json:"attempt_id,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// EventBuffer keeps the most recent log events in a bounded ring.
type EventBuffer struct {
	mu       sync.Mutex
	capacity int
	buffer   []Event
	nextSeq  uint64
}

// NewEventBuffer constructs a buffer holding at most capacity events.
func NewEventBuffer(capacity int) *EventBuffer {
	if capacity <= 0 {
		capacity = 256
	}
	return &EventBuffer{capacity: capacity}
}

// Publish appends evt, evicting the oldest event when full.
func (b *EventBuffer) Publish(evt Event) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSeq++
	evt.Sequence = b.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(b.buffer) == b.capacity {
		copy(b.buffer, b.buffer[1:])
		b.buffer = b.buffer[:b.capacity-1]
	}
	b.buffer = append(b.buffer, evt)
}

// Since returns up to limit events with a sequence greater than since, oldest first.
func (b *EventBuffer) Since(since uint64, limit int) []Event {
	if b == nil {
		return nil
	}
	if limit <= 0 || limit > b.capacity {
		limit = b.capacity
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, 0, limit)
	for _, evt := range b.buffer {
		if evt.Sequence <= since {
			continue
		}
		out = append(out, evt)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Tail returns the most recent limit events, oldest first.
func (b *EventBuffer) Tail(limit int) []Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > len(b.buffer) {
		limit = len(b.buffer)
	}
	out := make([]Event, limit)
	copy(out, b.buffer[len(b.buffer)-limit:])
	return out
}

// Handler returns a slog handler that publishes records at or above level.
func (b *EventBuffer) Handler(level slog.Leveler) slog.Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &eventHandler{buffer: b, level: level}
}

type eventHandler struct {
	buffer *EventBuffer
	level  slog.Leveler
	attrs  []slog.Attr
}

func (h *eventHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *eventHandler) Handle(_ context.Context, record slog.Record) error {
	evt := Event{
		Timestamp: record.Time.UTC(),
		Level:     strings.ToUpper(record.Level.String()),
		Message:   strings.TrimSpace(record.Message),
	}
	apply := func(attr slog.Attr) {
		key := strings.TrimSpace(attr.Key)
		switch key {
		case "":
		case FieldComponent:
			evt.Component = attrString(attr.Value)
		case FieldStage:
			evt.Stage = attrString(attr.Value)
		case FieldAttemptID:
			evt.AttemptID = attrString(attr.Value)
		default:
			if evt.Fields == nil {
				evt.Fields = make(map[string]string)
			}
			evt.Fields[key] = attrString(attr.Value)
		}
	}
	for _, attr := range h.attrs {
		apply(attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		apply(attr)
		return true
	})
	h.buffer.Publish(evt)
	return nil
}

func (h *eventHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &eventHandler{buffer: h.buffer, level: h.level, attrs: merged}
}

func (h *eventHandler) WithGroup(string) slog.Handler {
	return h
}
