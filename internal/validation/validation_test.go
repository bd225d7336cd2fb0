package validation_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/gate"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
	"github.com/access-system/face-recognition-enrollment/internal/inference/inferencetest"
	"github.com/access-system/face-recognition-enrollment/internal/services"
	"github.com/access-system/face-recognition-enrollment/internal/validation"
)

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

type fixture struct {
	board    *blackboard.Board
	gate     *gate.Gate
	models   *inferencetest.Models
	recorder *memoryRecorder
	stage    *validation.Stage
}

func newFixture() fixture {
	f := fixture{
		board:    blackboard.New(),
		gate:     gate.New(),
		models:   inferencetest.NewModels(),
		recorder: &memoryRecorder{},
	}
	f.stage = validation.New(f.models, validation.DefaultPolicy(), f.gate, f.recorder, f.board)
	return f
}

func (f fixture) detect(img *imaging.Region) {
	f.board.Entries().DetectedRegion.Set(*img)
}

func TestValidateClearsOutputWhenInputEmpty(t *testing.T) {
	f := newFixture()
	f.board.Entries().ValidatedRegion.Set(imaging.Region{Image: inferencetest.Face(4, 4)})
	f.gate.Set()

	if err := f.stage.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if f.board.Has(blackboard.ValidatedRegion) {
		t.Fatal("expected validated region cleared")
	}
	if !f.gate.IsSet() {
		t.Fatal("empty input must not touch the gate")
	}
}

func TestValidatePassesCleanFrontalFace(t *testing.T) {
	f := newFixture()
	f.models.Update(func(m *inferencetest.Models) { m.Pose = inference.Pose{Yaw: 29.9, Pitch: -29.9, Roll: 5} })
	f.detect(&imaging.Region{Image: inferencetest.Face(32, 32), FrameSequence: 3})
	f.gate.Set()

	if err := f.stage.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	region, ok := f.board.Entries().ValidatedRegion.Get()
	if !ok || region.FrameSequence != 3 {
		t.Fatalf("expected region to pass unchanged, got %+v ok=%v", region, ok)
	}
	if !f.gate.IsSet() {
		t.Fatal("passing face must leave the gate set")
	}
}

func TestValidateRejectsPoseAtLimit(t *testing.T) {
	f := newFixture()
	f.models.Update(func(m *inferencetest.Models) { m.Pose = inference.Pose{Yaw: 30} })
	f.detect(&imaging.Region{Image: inferencetest.Face(32, 32)})
	attempt, _ := f.gate.Set()

	if err := f.stage.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if f.board.Has(blackboard.ValidatedRegion) {
		t.Fatal("expected rejected face to be cleared")
	}
	if f.gate.IsSet() {
		t.Fatal("expected gate cleared on rejection")
	}
	if len(f.recorder.entries) != 1 {
		t.Fatalf("expected one recorded outcome, got %d", len(f.recorder.entries))
	}
	got := f.recorder.entries[0]
	if got.AttemptID != attempt.ID || got.Outcome != history.OutcomeRejected {
		t.Fatalf("unexpected entry %+v", got)
	}
	if msg, _ := f.board.Entries().LastInfoMsg.Get(); !strings.Contains(msg, "not frontal") {
		t.Fatalf("unexpected info message %q", msg)
	}
}

func TestValidateRejectsGlareWithoutCallingPose(t *testing.T) {
	f := newFixture()
	f.detect(&imaging.Region{Image: inferencetest.Glare(32, 32)})
	f.gate.Set()

	if err := f.stage.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if f.gate.IsSet() || f.board.Has(blackboard.ValidatedRegion) {
		t.Fatal("expected glare to clear output and gate")
	}
	if f.models.Calls().Pose != 0 {
		t.Fatal("pose estimator should be skipped once glare is found")
	}
	if msg, _ := f.board.Entries().LastInfoMsg.Get(); !strings.Contains(msg, "glare") {
		t.Fatalf("unexpected info message %q", msg)
	}
}

func TestValidateRejectionWithGateClosedRecordsNothing(t *testing.T) {
	f := newFixture()
	f.detect(&imaging.Region{Image: inferencetest.Glare(16, 16)})

	if err := f.stage.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if len(f.recorder.entries) != 0 {
		t.Fatalf("expected no outcome without an open attempt, got %+v", f.recorder.entries)
	}
}

func TestValidatePoseFailureKeepsGate(t *testing.T) {
	f := newFixture()
	f.models.Update(func(m *inferencetest.Models) { m.PoseErr = errors.New("model unavailable") })
	f.detect(&imaging.Region{Image: inferencetest.Face(32, 32)})
	f.board.Entries().ValidatedRegion.Set(imaging.Region{Image: inferencetest.Face(4, 4)})
	f.gate.Set()

	err := f.stage.Cycle(context.Background())
	if !errors.Is(err, services.ErrCollaborator) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
	if f.board.Has(blackboard.ValidatedRegion) {
		t.Fatal("expected output cleared on pose failure")
	}
	if !f.gate.IsSet() {
		t.Fatal("collaborator failure must not clear the gate")
	}
}

func TestPolicyFromConfigUsesThresholds(t *testing.T) {
	p := validation.DefaultPolicy()
	if p.MaxAngle != 30 || p.Glare.Luma != 230 || p.HotspotRatio != 0.05 || p.SpecularRatio != 0.03 {
		t.Fatalf("unexpected default policy %+v", p)
	}
	if p.GlareReason(inferencetest.Face(8, 8)) != "" {
		t.Fatal("clean face should have no glare")
	}
}
