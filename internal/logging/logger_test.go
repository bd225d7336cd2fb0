package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/services"
)

func noColor() *bool {
	v := false
	return &v
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("daemon started")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, logging.LogFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "daemon started") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-info.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
		Color:       noColor(),
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "detect").Info("message without caller", logging.String("key", "two words"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
	if !strings.Contains(line, "INFO detect: message without caller") {
		t.Fatalf("expected component prefix, got %q", line)
	}
	if !strings.Contains(line, `key="two words"`) {
		t.Fatalf("expected quoted value, got %q", line)
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("expected no ANSI codes in file output, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "debug",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestJSONLoggerUsesStableKeys(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Warn("registry slow", logging.Duration("elapsed", 2*time.Second))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(content, &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["level"] != "warn" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsStageAndAttempt(t *testing.T) {
	events := logging.NewEventBuffer(8)
	logger, err := logging.New(logging.Options{
		Format:      "console",
		OutputPaths: []string{filepath.Join(t.TempDir(), "ctx.log")},
		Events:      events,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	ctx := services.WithStage(context.Background(), "verify")
	ctx = services.WithAttemptID(ctx, "attempt-7")
	logging.WithContext(ctx, logger).Info("committed")

	tail := events.Tail(1)
	if len(tail) != 1 {
		t.Fatalf("expected one captured event, got %d", len(tail))
	}
	if tail[0].Stage != "verify" || tail[0].AttemptID != "attempt-7" {
		t.Fatalf("unexpected event fields: %+v", tail[0])
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	events := logging.NewEventBuffer(4)
	logger := slog.New(events.Handler(slog.LevelDebug))

	logging.WarnWithContext(logger, "camera lost", "camera_lost", logging.Error(errors.New("eof")))

	evt := events.Tail(1)[0]
	for _, key := range []string{logging.FieldEventType, logging.FieldErrorHint, logging.FieldImpact, "error"} {
		if _, ok := evt.Fields[key]; !ok {
			t.Fatalf("expected %q in fields, got %v", key, evt.Fields)
		}
	}
	if evt.Fields[logging.FieldEventType] != "camera_lost" {
		t.Fatalf("unexpected event type: %q", evt.Fields[logging.FieldEventType])
	}
}

func TestWarnWithContextKeepsCallerHint(t *testing.T) {
	events := logging.NewEventBuffer(4)
	logger := slog.New(events.Handler(slog.LevelDebug))

	logging.WarnWithContext(logger, "registry slow", "registry_slow",
		logging.Hint("check the registry host"),
		logging.AttemptID("attempt-9"),
	)

	evt := events.Tail(1)[0]
	if evt.Fields[logging.FieldErrorHint] != "check the registry host" {
		t.Fatalf("caller hint replaced: %q", evt.Fields[logging.FieldErrorHint])
	}
	if evt.AttemptID != "attempt-9" {
		t.Fatalf("unexpected attempt id: %+v", evt)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected nop logger to be disabled")
	}
	logging.NewComponentLogger(nil, "x").Info("ignored")
}
