package reverb

import (
	"math"
	"sync/atomic"
)

// Store holds the raw value of every public parameter. It is written from the
// control thread and drained on the audio thread without locks: each value is
// an atomic float bit pattern and a dirty mask records ids awaiting mapping.
type Store struct {
	values [ParamCount]atomic.Uint32
	dirty  atomic.Uint32
	flush  atomic.Bool
}

// Get returns the last value written for id, or 0 for unknown ids.
func (s *Store) Get(id ParamID) float32 {
	if !id.Valid() {
		return 0
	}
	return math.Float32frombits(s.values[id].Load())
}

// Set stores v unconditionally and marks id for mapping. Unknown ids are
// ignored.
func (s *Store) Set(id ParamID, v float32) {
	if !id.Valid() {
		return
	}
	s.values[id].Store(math.Float32bits(v))
	s.dirty.Or(1 << id)
}

// Snapshot copies the current values.
func (s *Store) Snapshot() Params {
	var p Params
	for id := range p {
		p[id] = math.Float32frombits(s.values[id].Load())
	}
	return p
}

// MarkAll flags every parameter for mapping.
func (s *Store) MarkAll() {
	s.dirty.Or(1<<ParamCount - 1)
}

// TakeDirty returns the pending dirty ids as a bitmask and clears them.
func (s *Store) TakeDirty() uint32 {
	return s.dirty.Swap(0)
}

// RequestFlush asks the audio thread to flush all collaborators before the
// next chunk.
func (s *Store) RequestFlush() {
	s.flush.Store(true)
}

// TakeFlush reports and clears a pending flush request.
func (s *Store) TakeFlush() bool {
	return s.flush.Swap(false)
}
