package blackboard

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/inference"
)

// Key names a blackboard entry.
type Key string

// Declared entries.
const (
	RawFrame        Key = "raw_frame"
	ProcessedFrame  Key = "processed_frame"
	DetectedRegion  Key = "detected_region"
	ValidatedRegion Key = "validated_region"
	AlignedRegion   Key = "aligned_region"
	Embedding       Key = "embedding"
	LastInfoMsg     Key = "last_info_msg"
	LastErrorMsg    Key = "last_error_msg"
)

var (
	// ErrUnknownKey is returned when writing a key the board does not declare.
	ErrUnknownKey = errors.New("unknown blackboard key")
	// ErrTypeMismatch is returned when a value does not match the key's declared type.
	ErrTypeMismatch = errors.New("blackboard value type mismatch")
)

type slot struct {
	value   any
	present bool
	writes  uint64
	updated time.Time
	accepts func(any) bool
}

// Board is a mutex-guarded store of declared entries. The zero value is not
// usable; construct with New.
type Board struct {
	mu    sync.Mutex
	slots map[Key]*slot
	now   func() time.Time
}

// New returns a board declaring the standard pipeline entries.
func New() *Board {
	b := &Board{slots: make(map[Key]*slot), now: time.Now}
	declare[imaging.Frame](b, RawFrame)
	declare[imaging.Frame](b, ProcessedFrame)
	declare[imaging.Region](b, DetectedRegion)
	declare[imaging.Region](b, ValidatedRegion)
	declare[imaging.Region](b, AlignedRegion)
	declare[inference.Embedding](b, Embedding)
	declare[string](b, LastInfoMsg)
	declare[string](b, LastErrorMsg)
	return b
}

func declare[T any](b *Board, key Key) {
	b.slots[key] = &slot{accepts: func(v any) bool {
		_, ok := v.(T)
		return ok
	}}
}

// Set stores value under key. A nil value clears the entry.
func (b *Board) Set(key Key, value any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.slots[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}
	if value == nil {
		s.clear()
		return nil
	}
	if !s.accepts(value) {
		return fmt.Errorf("%w: %q cannot hold %T", ErrTypeMismatch, key, value)
	}
	s.value = value
	s.present = true
	s.writes++
	s.updated = b.now()
	return nil
}

// Get returns the current value of key and whether it is present. Unknown
// keys read as empty.
func (b *Board) Get(key Key) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.slots[key]
	if !ok || !s.present {
		return nil, false
	}
	return s.value, true
}

// Has reports whether key currently holds a value.
func (b *Board) Has(key Key) bool {
	_, ok := b.Get(key)
	return ok
}

// Reset clears key. Unknown keys are ignored.
func (b *Board) Reset(key Key) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.slots[key]; ok {
		s.clear()
	}
}

// ResetAll clears every entry. Calling it on an empty board is a no-op.
func (b *Board) ResetAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.slots {
		s.clear()
	}
}

// Keys returns the declared keys in lexical order.
func (b *Board) Keys() []Key {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]Key, 0, len(b.slots))
	for k := range b.slots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// EntryState describes one entry for status reporting.
type EntryState struct {
	Key     Key       `json:"key"`
	Present bool      `json:"present"`
	Writes  uint64    `json:"writes"`
	Updated time.Time `json:"updated,omitzero"`
}

// Snapshot reports presence and write counts for every declared key without
// copying values.
func (b *Board) Snapshot() []EntryState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]EntryState, 0, len(b.slots))
	for k, s := range b.slots {
		out = append(out, EntryState{Key: k, Present: s.present, Writes: s.writes, Updated: s.updated})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (s *slot) clear() {
	s.value = nil
	s.present = false
}
