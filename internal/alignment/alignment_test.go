package alignment_test

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/access-system/face-recognition-enrollment/internal/alignment"
	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
	"github.com/access-system/face-recognition-enrollment/internal/inference/inferencetest"
	"github.com/access-system/face-recognition-enrollment/internal/services"
)

func TestAlignClearsWhenInputEmpty(t *testing.T) {
	board := blackboard.New()
	board.Entries().AlignedRegion.Set(imaging.Region{Image: inferencetest.Face(4, 4)})
	st := alignment.New(inference.ResizeAligner{Size: 112}, board)
	if err := st.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if board.Has(blackboard.AlignedRegion) {
		t.Fatal("expected aligned region cleared")
	}
}

func TestAlignPublishesAlignedFace(t *testing.T) {
	board := blackboard.New()
	board.Entries().ValidatedRegion.Set(imaging.Region{Image: inferencetest.Face(40, 60), FrameSequence: 12, Confidence: 0.8})
	st := alignment.New(inference.ResizeAligner{Size: 112}, board)
	if err := st.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	region, ok := board.Entries().AlignedRegion.Get()
	if !ok {
		t.Fatal("expected aligned region")
	}
	if region.Image.Bounds() != image.Rect(0, 0, 112, 112) {
		t.Fatalf("unexpected aligned bounds %v", region.Image.Bounds())
	}
	if region.FrameSequence != 12 || region.Confidence != 0.8 {
		t.Fatalf("provenance lost: %+v", region)
	}
}

func TestAlignNoResultClearsWithoutError(t *testing.T) {
	board := blackboard.New()
	board.Entries().ValidatedRegion.Set(imaging.Region{Image: inferencetest.Face(8, 8)})
	board.Entries().AlignedRegion.Set(imaging.Region{Image: inferencetest.Face(4, 4)})
	none := inference.AlignerFunc(func(context.Context, image.Image) (image.Image, error) {
		return nil, inference.ErrNoResult
	})
	st := alignment.New(none, board)
	if err := st.Cycle(context.Background()); err != nil {
		t.Fatalf("Cycle: %v", err)
	}
	if board.Has(blackboard.AlignedRegion) {
		t.Fatal("expected aligned region cleared")
	}
}

func TestAlignFailureIsCollaboratorError(t *testing.T) {
	board := blackboard.New()
	models := inferencetest.NewModels()
	models.Update(func(m *inferencetest.Models) { m.AlignErr = errors.New("landmarks failed") })
	board.Entries().ValidatedRegion.Set(imaging.Region{Image: inferencetest.Face(8, 8)})
	board.Entries().AlignedRegion.Set(imaging.Region{Image: inferencetest.Face(4, 4)})

	st := alignment.New(models, board)
	if err := st.Cycle(context.Background()); !errors.Is(err, services.ErrCollaborator) {
		t.Fatalf("expected collaborator error, got %v", err)
	}
	if board.Has(blackboard.AlignedRegion) {
		t.Fatal("expected aligned region cleared")
	}
	if err := st.Close(); err != nil || models.Calls().Closed != 1 {
		t.Fatalf("expected aligner closed, err=%v", err)
	}
}
