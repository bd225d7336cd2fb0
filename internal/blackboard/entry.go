package blackboard

import (
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
)

// Entry is a typed view of one blackboard key.
type Entry[T any] struct {
	board *Board
	key   Key
}

// Key returns the entry's key.
func (e Entry[T]) Key() Key { return e.key }

// Get returns the current value and whether it is present.
func (e Entry[T]) Get() (T, bool) {
	var zero T
	v, ok := e.board.Get(e.key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Set stores value. Declared entries always accept their own type.
func (e Entry[T]) Set(value T) {
	_ = e.board.Set(e.key, value)
}

// Has reports whether the entry holds a value.
func (e Entry[T]) Has() bool { return e.board.Has(e.key) }

// Reset clears the entry.
func (e Entry[T]) Reset() { e.board.Reset(e.key) }

// Entries bundles typed accessors for every declared key.
type Entries struct {
	RawFrame        Entry[imaging.Frame]
	ProcessedFrame  Entry[imaging.Frame]
	DetectedRegion  Entry[imaging.Region]
	ValidatedRegion Entry[imaging.Region]
	AlignedRegion   Entry[imaging.Region]
	Embedding       Entry[inference.Embedding]
	LastInfoMsg     Entry[string]
	LastErrorMsg    Entry[string]
}

// Entries returns the typed accessors for b.
func (b *Board) Entries() Entries {
	return Entries{
		RawFrame:        Entry[imaging.Frame]{board: b, key: RawFrame},
		ProcessedFrame:  Entry[imaging.Frame]{board: b, key: ProcessedFrame},
		DetectedRegion:  Entry[imaging.Region]{board: b, key: DetectedRegion},
		ValidatedRegion: Entry[imaging.Region]{board: b, key: ValidatedRegion},
		AlignedRegion:   Entry[imaging.Region]{board: b, key: AlignedRegion},
		Embedding:       Entry[inference.Embedding]{board: b, key: Embedding},
		LastInfoMsg:     Entry[string]{board: b, key: LastInfoMsg},
		LastErrorMsg:    Entry[string]{board: b, key: LastErrorMsg},
	}
}
