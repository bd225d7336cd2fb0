package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/config"
)

const userAgent = "Enroll-Go/0.1.0"

// Event names a notification the daemon can publish.
type Event string

const (
	EventEnrolled        Event = "enrolled"
	EventDuplicate       Event = "duplicate"
	EventEnrollFailed    Event = "enroll_failed"
	EventPipelineStarted Event = "pipeline_started"
	EventPipelineStopped Event = "pipeline_stopped"
	EventCameraLost      Event = "camera_lost"
	EventError           Event = "error"
	EventTest            Event = "test"
)

// Payload carries event-specific values keyed by name.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventEnrolled:
		return message{
			title: "Enroll - Registered",
			body:  fmt.Sprintf("✅ New face registered as %s", text(payload, "identifier", "unknown")),
			tags:  []string{"enroll", "registered"},
		}, true
	case EventDuplicate:
		return message{
			title: "Enroll - Already Registered",
			body:  "👤 Face already present in the registry",
			tags:  []string{"enroll", "duplicate"},
		}, true
	case EventEnrollFailed:
		return message{
			title:    "Enroll - Failed",
			body:     fmt.Sprintf("❌ Enrollment failed: %s", text(payload, "message", "unknown error")),
			tags:     []string{"enroll", "failed"},
			priority: "high",
		}, true
	case EventPipelineStarted:
		return message{
			title: "Enroll - Preview Started",
			body:  fmt.Sprintf("📷 Preview running on %s", text(payload, "camera", "camera")),
			tags:  []string{"enroll", "preview", "started"},
		}, true
	case EventPipelineStopped:
		return message{
			title: "Enroll - Preview Stopped",
			body:  fmt.Sprintf("Preview stopped: %s", text(payload, "reason", "requested")),
			tags:  []string{"enroll", "preview", "stopped"},
		}, true
	case EventCameraLost:
		return message{
			title:    "Enroll - Camera Lost",
			body:     fmt.Sprintf("🔌 Camera disconnected: %s", text(payload, "device", "unknown")),
			tags:     []string{"enroll", "camera", "alert"},
			priority: "high",
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := text(payload, "context", ""); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		b.WriteString(text(payload, "error", "unknown"))
		return message{
			title:    "Enroll - Error",
			body:     b.String(),
			tags:     []string{"enroll", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Enroll - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"enroll", "test"},
			priority: "low",
		}, true
	default:
		return message{}, false
	}
}

func text(payload Payload, key, fallback string) string {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return fallback
	}
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case error:
		s = v.Error()
	default:
		s = fmt.Sprint(v)
	}
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
