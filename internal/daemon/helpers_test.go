package daemon_test

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/camera"
	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/daemon"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/inference/inferencetest"
	"github.com/access-system/face-recognition-enrollment/internal/services/registry/registrytest"
	"github.com/access-system/face-recognition-enrollment/internal/testsupport"
)

type harness struct {
	cfg      *config.Config
	store    *history.Store
	models   *inferencetest.Models
	registry *registrytest.Server
	daemon   *daemon.Daemon

	mu      sync.Mutex
	sources []camera.Source
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	reg := registrytest.NewServer(t)
	opts = append([]testsupport.ConfigOption{
		testsupport.WithAPIBind(""),
		testsupport.WithRegistryURL(reg.BaseURL()),
	}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	for i := range 3 {
		testsupport.WriteJPEG(t, filepath.Join(cfg.Camera.Directory, fmt.Sprintf("frame-%02d.jpg", i)), inferencetest.Face(64, 64))
	}

	h := &harness{
		cfg:      cfg,
		store:    testsupport.MustOpenHistory(t, cfg),
		models:   inferencetest.NewModels(),
		registry: reg,
	}
	d, err := daemon.New(cfg, daemon.Options{Store: h.store, Factory: h.factory(t)})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	h.daemon = d
	t.Cleanup(func() { _ = d.Close() })
	return h
}

func (h *harness) factory(t *testing.T) daemon.Factory {
	return func(ctx context.Context, cfg *config.Config, _ *slog.Logger) (daemon.Collaborators, error) {
		source, err := camera.OpenDirectory(cfg.Camera.Directory)
		if err != nil {
			return daemon.Collaborators{}, err
		}
		h.mu.Lock()
		h.sources = append(h.sources, source)
		h.mu.Unlock()
		return daemon.Collaborators{
			Camera:   source,
			Detector: h.models,
			Pose:     h.models,
			Aligner:  h.models,
			Embedder: h.models,
			Registry: h.registry.NewClient(t),
		}, nil
	}
}

func (h *harness) lastSource() camera.Source {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sources) == 0 {
		return nil
	}
	return h.sources[len(h.sources)-1]
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.daemon.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func (h *harness) history(t *testing.T) []history.Entry {
	t.Helper()
	entries, err := h.store.List(context.Background(), history.Query{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return entries
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
