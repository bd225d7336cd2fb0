package workflow_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/camera"
	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/gate"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference/inferencetest"
	"github.com/access-system/face-recognition-enrollment/internal/services/registry/registrytest"
	"github.com/access-system/face-recognition-enrollment/internal/workflow"
)

// stillCamera returns the same frame until closed.
type stillCamera struct {
	frame  imaging.Frame
	seq    atomic.Uint64
	closed atomic.Bool
}

func newStillCamera() *stillCamera {
	return &stillCamera{frame: inferencetest.Frame(inferencetest.Face(64, 64), 0)}
}

func (c *stillCamera) Read(ctx context.Context) (imaging.Frame, error) {
	if c.closed.Load() {
		return imaging.Frame{}, camera.ErrClosed
	}
	f := c.frame
	f.Sequence = c.seq.Add(1)
	return f, nil
}

func (c *stillCamera) Close() error {
	c.closed.Store(true)
	return nil
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (r *memoryRecorder) Record(_ context.Context, e history.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *memoryRecorder) Entries() []history.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]history.Entry(nil), r.entries...)
}

type env struct {
	cfg      *config.Config
	board    *blackboard.Board
	gate     *gate.Gate
	camera   *stillCamera
	models   *inferencetest.Models
	registry *registrytest.Server
	recorder *memoryRecorder
	deps     workflow.Deps
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cfg := config.Default()
	cfg.Pipeline = config.Pipeline{CaptureFPS: 200, DetectFPS: 200, ValidateFPS: 200, AlignFPS: 200, RecognizeFPS: 200, VerifyFPS: 200}
	e := &env{
		cfg:      &cfg,
		board:    blackboard.New(),
		gate:     gate.New(),
		camera:   newStillCamera(),
		models:   inferencetest.NewModels(),
		registry: registrytest.NewServer(t),
		recorder: &memoryRecorder{},
	}
	e.deps = workflow.Deps{
		workflow.DepBoard:         e.board,
		workflow.DepGate:          e.gate,
		workflow.DepCamera:        camera.Source(e.camera),
		workflow.DepDetector:      e.models,
		workflow.DepPoseEstimator: e.models,
		workflow.DepAligner:       e.models,
		workflow.DepEmbedder:      e.models,
		workflow.DepRegistry:      e.registry.NewClient(t),
		workflow.DepRecorder:      history.Recorder(e.recorder),
	}
	return e
}

// sweep runs one cycle of every stage in pipeline order.
func sweep(t *testing.T, m *workflow.Manager) {
	t.Helper()
	for _, r := range m.Runners() {
		if err := r.Stage().Cycle(context.Background()); err != nil {
			t.Logf("stage %s: %v", r.Name(), err)
		}
	}
}

// sweepUntilVerify runs every stage but the last.
func sweepUntilVerify(t *testing.T, m *workflow.Manager) {
	t.Helper()
	runners := m.Runners()
	for _, r := range runners[:len(runners)-1] {
		if err := r.Stage().Cycle(context.Background()); err != nil {
			t.Fatalf("stage %s: %v", r.Name(), err)
		}
	}
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
