package logging_test

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/access-system/face-recognition-enrollment/internal/logging"
)

func TestEventBufferEvictsOldest(t *testing.T) {
	buf := logging.NewEventBuffer(3)
	for i := 0; i < 5; i++ {
		buf.Publish(logging.Event{Message: fmt.Sprintf("m%d", i)})
	}
	tail := buf.Tail(0)
	if len(tail) != 3 {
		t.Fatalf("expected 3 events, got %d", len(tail))
	}
	if tail[0].Message != "m2" || tail[2].Message != "m4" {
		t.Fatalf("unexpected order: %+v", tail)
	}
	if tail[2].Sequence != 5 {
		t.Fatalf("expected sequence 5, got %d", tail[2].Sequence)
	}
}

func TestEventBufferSince(t *testing.T) {
	buf := logging.NewEventBuffer(10)
	for i := 0; i < 4; i++ {
		buf.Publish(logging.Event{Message: fmt.Sprintf("m%d", i)})
	}
	got := buf.Since(2, 0)
	if len(got) != 2 || got[0].Sequence != 3 {
		t.Fatalf("unexpected events since 2: %+v", got)
	}
	if got := buf.Since(1, 1); len(got) != 1 || got[0].Sequence != 2 {
		t.Fatalf("expected limit to apply, got %+v", got)
	}
}

func TestEventHandlerRespectsLevelAndAttrs(t *testing.T) {
	buf := logging.NewEventBuffer(10)
	logger := slog.New(buf.Handler(slog.LevelInfo)).With(logging.String(logging.FieldComponent, "capture"))

	logger.Debug("dropped")
	logger.Info("frame read", logging.Int("width", 640))

	tail := buf.Tail(0)
	if len(tail) != 1 {
		t.Fatalf("expected debug record to be filtered, got %d events", len(tail))
	}
	if tail[0].Component != "capture" {
		t.Fatalf("expected component from With, got %q", tail[0].Component)
	}
	if tail[0].Fields["width"] != "640" {
		t.Fatalf("unexpected fields: %v", tail[0].Fields)
	}
}
