package inference_test

import (
	"context"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
)

func TestL2Normalize(t *testing.T) {
	v := []float32{3, 4}
	out, ok := inference.L2Normalize(v)
	if !ok {
		t.Fatal("expected normalization to succeed")
	}
	if math.Abs(float64(out[0])-0.6) > 1e-6 || math.Abs(float64(out[1])-0.8) > 1e-6 {
		t.Fatalf("unexpected result: %v", out)
	}
	if v[0] != 3 {
		t.Fatal("input must not be modified")
	}

	long := make([]float32, 512)
	for i := range long {
		long[i] = float32(i%7) - 3
	}
	out, ok = inference.L2Normalize(long)
	if !ok {
		t.Fatal("expected normalization to succeed")
	}
	var sum float64
	for _, x := range out {
		sum += float64(x) * float64(x)
	}
	if math.Abs(math.Sqrt(sum)-1) > 1e-5 {
		t.Fatalf("expected unit norm, got %v", math.Sqrt(sum))
	}
}

func TestL2NormalizeRejectsDegenerate(t *testing.T) {
	for _, v := range [][]float32{nil, {0, 0, 0}, {float32(math.NaN()), 1}, {float32(math.Inf(1))}} {
		if _, ok := inference.L2Normalize(v); ok {
			t.Fatalf("expected %v to be rejected", v)
		}
	}
}

func TestBestPicksHighestAboveThreshold(t *testing.T) {
	dets := []inference.Detection{
		{Confidence: 0.4, Box: imaging.NormalizedBox{Width: 0.1, Height: 0.1}},
		{Confidence: 0.9, Box: imaging.NormalizedBox{XMin: 0.5, Width: 0.2, Height: 0.2}},
		{Confidence: 0.7},
	}
	best, ok := inference.Best(dets, 0.5)
	if !ok || best.Confidence != 0.9 {
		t.Fatalf("unexpected best: %+v %v", best, ok)
	}
	if _, ok := inference.Best(dets, 0.95); ok {
		t.Fatal("expected no detection above 0.95")
	}
	if _, ok := inference.Best(nil, 0); ok {
		t.Fatal("expected no detection from empty input")
	}
}

func TestPoseWithin(t *testing.T) {
	if !(inference.Pose{Yaw: 29.9, Pitch: -29.9, Roll: 0}).Within(30) {
		t.Fatal("expected pose inside tolerance")
	}
	if (inference.Pose{Yaw: 30}).Within(30) {
		t.Fatal("boundary angle must be rejected")
	}
	if (inference.Pose{Roll: -45}).Within(30) {
		t.Fatal("expected roll outside tolerance")
	}
}

func TestResizeAligner(t *testing.T) {
	a := inference.ResizeAligner{Size: 112}
	out, err := a.Align(context.Background(), image.NewRGBA(image.Rect(0, 0, 40, 60)))
	if err != nil {
		t.Fatalf("Align: %v", err)
	}
	if out.Bounds() != image.Rect(0, 0, 112, 112) {
		t.Fatalf("unexpected bounds: %v", out.Bounds())
	}
	if _, err := a.Align(context.Background(), nil); !errors.Is(err, inference.ErrNoResult) {
		t.Fatalf("expected ErrNoResult, got %v", err)
	}
}
