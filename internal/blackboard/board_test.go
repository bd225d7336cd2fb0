package blackboard_test

import (
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/access-system/face-recognition-enrollment/internal/blackboard"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
)

func TestSetGetHasReset(t *testing.T) {
	b := blackboard.New()
	if b.Has(blackboard.LastInfoMsg) {
		t.Fatal("new board must start empty")
	}
	if err := b.Set(blackboard.LastInfoMsg, "hello"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok := b.Get(blackboard.LastInfoMsg)
	if !ok || v.(string) != "hello" {
		t.Fatalf("unexpected value: %v %v", v, ok)
	}
	if err := b.Set(blackboard.LastInfoMsg, "again"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, _ := b.Get(blackboard.LastInfoMsg); v.(string) != "again" {
		t.Fatalf("expected last write to win, got %v", v)
	}
	b.Reset(blackboard.LastInfoMsg)
	if b.Has(blackboard.LastInfoMsg) {
		t.Fatal("expected entry cleared after Reset")
	}
}

func TestSetNilClears(t *testing.T) {
	b := blackboard.New()
	_ = b.Set(blackboard.LastErrorMsg, "boom")
	if err := b.Set(blackboard.LastErrorMsg, nil); err != nil {
		t.Fatalf("Set nil: %v", err)
	}
	if b.Has(blackboard.LastErrorMsg) {
		t.Fatal("expected nil write to clear entry")
	}
}

func TestUnknownKeys(t *testing.T) {
	b := blackboard.New()
	if err := b.Set("nope", 1); !errors.Is(err, blackboard.ErrUnknownKey) {
		t.Fatalf("expected ErrUnknownKey, got %v", err)
	}
	if v, ok := b.Get("nope"); ok || v != nil {
		t.Fatalf("expected unknown key to read empty, got %v %v", v, ok)
	}
	b.Reset("nope")
}

func TestTypeMismatchRejected(t *testing.T) {
	b := blackboard.New()
	if err := b.Set(blackboard.Embedding, "not a vector"); !errors.Is(err, blackboard.ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}
	if b.Has(blackboard.Embedding) {
		t.Fatal("rejected write must not change the entry")
	}
}

func TestResetAllIsIdempotent(t *testing.T) {
	b := blackboard.New()
	e := b.Entries()
	e.RawFrame.Set(imaging.Frame{Image: image.NewRGBA(image.Rect(0, 0, 2, 2)), Sequence: 1})
	e.Embedding.Set(inference.Embedding{AttemptID: "a", Vector: []float32{1, 0}})
	e.LastInfoMsg.Set("x")

	b.ResetAll()
	first := b.Snapshot()
	b.ResetAll()
	second := b.Snapshot()

	for i, st := range second {
		if st.Present {
			t.Fatalf("expected %s empty after ResetAll", st.Key)
		}
		if st != first[i] {
			t.Fatalf("second ResetAll changed state: %+v vs %+v", first[i], st)
		}
	}
	if len(b.Keys()) != 8 {
		t.Fatalf("expected 8 declared keys, got %v", b.Keys())
	}
}

func TestTypedEntries(t *testing.T) {
	b := blackboard.New()
	e := b.Entries()

	if _, ok := e.DetectedRegion.Get(); ok {
		t.Fatal("expected empty region")
	}
	region := imaging.Region{Image: image.NewRGBA(image.Rect(0, 0, 4, 4)), Box: image.Rect(1, 1, 5, 5), Confidence: 0.9}
	e.DetectedRegion.Set(region)
	got, ok := e.DetectedRegion.Get()
	if !ok || got.Box != region.Box || got.Confidence != 0.9 {
		t.Fatalf("unexpected region: %+v %v", got, ok)
	}
	if e.ValidatedRegion.Has() {
		t.Fatal("writing one key must not affect another")
	}
	e.DetectedRegion.Reset()
	if e.DetectedRegion.Has() {
		t.Fatal("expected region cleared")
	}
	if e.Embedding.Key() != blackboard.Embedding {
		t.Fatalf("unexpected key: %s", e.Embedding.Key())
	}
}

func TestSnapshotCountsWrites(t *testing.T) {
	b := blackboard.New()
	e := b.Entries()
	e.LastInfoMsg.Set("a")
	e.LastInfoMsg.Set("b")
	for _, st := range b.Snapshot() {
		if st.Key != blackboard.LastInfoMsg {
			continue
		}
		if st.Writes != 2 || !st.Present || st.Updated.IsZero() {
			t.Fatalf("unexpected state: %+v", st)
		}
		return
	}
	t.Fatal("last_info_msg missing from snapshot")
}

func TestConcurrentAccess(t *testing.T) {
	b := blackboard.New()
	e := b.Entries()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				e.Embedding.Set(inference.Embedding{Vector: []float32{float32(i), float32(j)}})
				if j%50 == 0 {
					b.ResetAll()
				}
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if v, ok := e.Embedding.Get(); ok && len(v.Vector) != 2 {
					t.Errorf("torn read: %v", v)
				}
			}
		}()
	}
	wg.Wait()
}
