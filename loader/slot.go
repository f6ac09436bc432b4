package loader

import (
	"sync/atomic"

	"github.com/wippyai/wasm-loader/engine"
)

// State of a cache slot.
type State int

const (
	Empty State = iota
	Filled
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Filled:
		return "filled"
	default:
		return "unknown"
	}
}

// Slot holds at most one compiled module. It starts empty or pre-seeded,
// is filled at most once and is never cleared.
type Slot struct {
	mod atomic.Pointer[engine.Module]
}

// NewSlot returns a slot holding seed, or an empty slot if seed is nil.
func NewSlot(seed *engine.Module) *Slot {
	s := &Slot{}
	if seed != nil {
		s.mod.Store(seed)
	}
	return s
}

// Load returns the cached module and whether the slot is filled.
func (s *Slot) Load() (*engine.Module, bool) {
	m := s.mod.Load()
	return m, m != nil
}

// Fill stores m if the slot is empty. It reports whether m was stored; the
// first writer wins and later writers leave the slot unchanged.
func (s *Slot) Fill(m *engine.Module) bool {
	if m == nil {
		return false
	}
	return s.mod.CompareAndSwap(nil, m)
}

// State reports whether the slot holds a module.
func (s *Slot) State() State {
	if s.mod.Load() == nil {
		return Empty
	}
	return Filled
}
