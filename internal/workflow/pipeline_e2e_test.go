package workflow_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
	"github.com/access-system/face-recognition-enrollment/internal/inference/inferencetest"
	"github.com/access-system/face-recognition-enrollment/internal/workflow"
)

func buildStandard(t *testing.T, e *env) *workflow.Manager {
	t.Helper()
	m := workflow.NewManager(nil, workflow.Standard(e.cfg)...)
	if err := m.Build(e.deps); err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestScenarioCenteredFaceReachesRegistryOnce(t *testing.T) {
	e := newEnv(t)
	m := buildStandard(t, e)
	e.gate.Set()

	sweepUntilVerify(t, m)
	if emb, ok := e.board.Entries().Embedding.Get(); !ok || len(emb.Vector) != 512 {
		t.Fatalf("expected embedding after one sweep, got len=%d ok=%v", len(emb.Vector), ok)
	}

	verify := m.Runners()[len(m.Runners())-1].Stage()
	if err := verify.Cycle(context.Background()); err != nil {
		t.Fatalf("verify: %v", err)
	}
	validates, adds := e.registry.Counts()
	if validates != 1 || adds != 1 {
		t.Fatalf("expected exactly one validate and add, got %d/%d", validates, adds)
	}
	if e.gate.IsSet() {
		t.Fatal("expected gate cleared after commit")
	}
	entries := e.recorder.Entries()
	if len(entries) != 1 || entries[0].Outcome != history.OutcomeRegistered {
		t.Fatalf("unexpected outcomes %+v", entries)
	}
}

func TestScenarioDuplicateNeverAdds(t *testing.T) {
	e := newEnv(t)
	vec, _ := inference.L2Normalize(e.models.Vector)
	e.registry.Seed("known", vec)
	m := buildStandard(t, e)
	e.gate.Set()

	sweep(t, m)
	if _, adds := e.registry.Counts(); adds != 0 {
		t.Fatalf("duplicate must not be added, got %d adds", adds)
	}
	if e.gate.IsSet() {
		t.Fatal("expected gate false after duplicate")
	}
	if got := e.recorder.Entries(); len(got) != 1 || got[0].Outcome != history.OutcomeDuplicate {
		t.Fatalf("unexpected outcomes %+v", got)
	}
}

func TestScenarioRejectedAddDoesNotRetry(t *testing.T) {
	e := newEnv(t)
	e.registry.SetAddStatus(http.StatusBadRequest)
	m := buildStandard(t, e)
	e.gate.Set()

	sweep(t, m)
	sweep(t, m)
	validates, adds := e.registry.Counts()
	if validates != 1 || adds != 1 {
		t.Fatalf("expected a single validate/add with no retry, got %d/%d", validates, adds)
	}
	if e.gate.IsSet() {
		t.Fatal("expected gate false after failed add")
	}
	if msg, _ := e.board.Entries().LastErrorMsg.Get(); msg == "" {
		t.Fatal("expected error message recorded")
	}
	if got := e.recorder.Entries(); len(got) != 1 || got[0].Outcome != history.OutcomeFailed {
		t.Fatalf("unexpected outcomes %+v", got)
	}
}

func TestScenarioTurnedHeadClearsGate(t *testing.T) {
	e := newEnv(t)
	e.models.Update(func(m *inferencetest.Models) { m.Pose = inference.Pose{Yaw: 45} })
	m := buildStandard(t, e)
	e.board.Entries().ValidatedRegion.Set(imaging.Region{Image: inferencetest.Face(8, 8)})
	e.gate.Set()

	sweep(t, m)
	if e.board.Has(blackboard.ValidatedRegion) {
		t.Fatal("expected validated region empty")
	}
	if e.gate.IsSet() {
		t.Fatal("expected gate false after pose rejection")
	}
	if v, a := e.registry.Counts(); v+a != 0 {
		t.Fatalf("registry must not be called, got %d/%d", v, a)
	}
	if got := e.recorder.Entries(); len(got) != 1 || got[0].Outcome != history.OutcomeRejected {
		t.Fatalf("unexpected outcomes %+v", got)
	}
}

func TestRejectedAttemptEmbeddingNeverReachesNextAttempt(t *testing.T) {
	e := newEnv(t)
	m := buildStandard(t, e)
	e.gate.Set()
	sweepUntilVerify(t, m)
	if !e.board.Has(blackboard.Embedding) {
		t.Fatal("expected embedding after first sweep")
	}

	// The head turns away: validate rejects and closes the gate.
	e.models.Update(func(m *inferencetest.Models) { m.Pose = inference.Pose{Yaw: 45} })
	sweepUntilVerify(t, m)
	if e.gate.IsSet() {
		t.Fatal("expected gate closed after pose rejection")
	}

	// Nobody is in front of the camera when the operator re-arms.
	e.models.Update(func(m *inferencetest.Models) { m.Detections = nil })
	sweepUntilVerify(t, m)
	e.gate.Set()

	verify := m.Runners()[len(m.Runners())-1].Stage()
	if err := verify.Cycle(context.Background()); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v, a := e.registry.Counts(); v+a != 0 {
		t.Fatalf("registry must not see the rejected face, got %d validates %d adds", v, a)
	}
	if !e.gate.IsSet() {
		t.Fatal("new attempt must stay open while no face is present")
	}
	if got := e.recorder.Entries(); len(got) != 1 || got[0].Outcome != history.OutcomeRejected {
		t.Fatalf("unexpected outcomes %+v", got)
	}
}

func TestEmptinessPropagatesThroughPipeline(t *testing.T) {
	e := newEnv(t)
	m := buildStandard(t, e)
	e.gate.Set()
	sweepUntilVerify(t, m)
	if !e.board.Has(blackboard.AlignedRegion) {
		t.Fatal("expected aligned region after first sweep")
	}

	// The face leaves the frame.
	e.models.Update(func(m *inferencetest.Models) { m.Detections = nil })
	sweepUntilVerify(t, m)
	for _, key := range []blackboard.Key{blackboard.DetectedRegion, blackboard.ValidatedRegion, blackboard.AlignedRegion, blackboard.Embedding} {
		if e.board.Has(key) {
			t.Fatalf("expected %s cleared once the face is gone", key)
		}
	}
	if !e.gate.IsSet() {
		t.Fatal("losing the face must not clear the gate")
	}
}

func TestConcurrentPipelineCompletesAttempt(t *testing.T) {
	e := newEnv(t)
	m := buildStandard(t, e)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = m.Stop() })

	waitFor(t, 2*time.Second, func() bool { return e.board.Has(blackboard.AlignedRegion) })
	attempt, _ := e.gate.Set()
	waitFor(t, 3*time.Second, func() bool { return !e.gate.IsSet() })

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, adds := e.registry.Counts(); adds != 1 {
		t.Fatalf("expected exactly one add, got %d", adds)
	}
	entries := e.recorder.Entries()
	if len(entries) != 1 || entries[0].AttemptID != attempt.ID || entries[0].Outcome != history.OutcomeRegistered {
		t.Fatalf("unexpected outcomes %+v", entries)
	}
	summary := m.Status(context.Background())
	if summary.Running {
		t.Fatal("expected pipeline stopped")
	}
	for _, s := range summary.Stages {
		if s.Cycles == 0 {
			t.Fatalf("stage %s never ran", s.Name)
		}
	}
}

func TestCameraLossStopsPipeline(t *testing.T) {
	e := newEnv(t)
	m := buildStandard(t, e)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, 2*time.Second, func() bool { return e.board.Has(blackboard.RawFrame) })
	_ = e.camera.Close()

	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline kept running after camera loss")
	}
	if err := m.Wait(); err == nil {
		t.Fatal("expected fatal error from capture")
	}
}
