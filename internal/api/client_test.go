package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/access-system/face-recognition-enrollment/internal/api"
)

func TestNewClientRequiresBind(t *testing.T) {
	if _, err := api.NewClient("  ", nil); !errors.Is(err, api.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientRoutesRequests(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.RequestURI())
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/status":
			_ = json.NewEncoder(w).Encode(api.DaemonStatus{Running: true, Preview: true})
		case "/api/history":
			_ = json.NewEncoder(w).Encode(api.HistoryResponse{Entries: []api.HistoryEntry{{AttemptID: "a", Outcome: "duplicate"}}})
		case "/api/frame":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte{0xFF, 0xD8, 0xFF, 0xD9})
		default:
			_ = json.NewEncoder(w).Encode(api.ActionResponse{Changed: true, Message: "ok"})
		}
	}))
	defer srv.Close()

	client, err := api.NewClient(strings.TrimPrefix(srv.URL, "http://"), nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()

	status, err := client.Status(ctx)
	if err != nil || !status.Running || !status.Preview {
		t.Fatalf("Status: %+v %v", status, err)
	}
	if resp, err := client.ToggleEnrollment(ctx); err != nil || !resp.Changed {
		t.Fatalf("ToggleEnrollment: %+v %v", resp, err)
	}
	if _, err := client.StopPreview(ctx); err != nil {
		t.Fatalf("StopPreview: %v", err)
	}
	hist, err := client.History(ctx, api.HistoryQuery{Outcome: "duplicate", Limit: 5})
	if err != nil || len(hist.Entries) != 1 {
		t.Fatalf("History: %+v %v", hist, err)
	}
	frame, err := client.Frame(ctx, true)
	if err != nil || len(frame) != 4 {
		t.Fatalf("Frame: %v %v", frame, err)
	}

	want := []string{
		"GET /api/status",
		"POST /api/enrollment/toggle",
		"POST /api/preview/stop",
		"GET /api/history?limit=5&outcome=duplicate",
		"GET /api/frame?mirror=1",
	}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(seen, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected requests:\n%s", strings.Join(seen, "\n"))
	}
}

func TestClientDecodesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("X-Request-ID", "req-1")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "preview not running"})
	}))
	defer srv.Close()

	client, err := api.NewClient(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.WithToken(" secret ")
	_, err = client.StartEnrollment(context.Background())
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.Error, got %v", err)
	}
	if apiErr.Status != http.StatusConflict || apiErr.Message != "preview not running" || apiErr.RequestID != "req-1" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}
