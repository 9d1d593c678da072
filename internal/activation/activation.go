// Package activation implements weakly held activation sets.
//
// Callers that keep a model alive acquire a Handle from a Table and pass it
// to the model. The model only stores the handle, never the caller. When the
// caller goes away it releases the handle; the table bumps the slot
// generation so the stale handle stops counting as a member of every set
// that still records it.
package activation

import (
	"fmt"
	"sync"
)

// Handle is an opaque, comparable reference to an activation source.
type Handle struct {
	index      uint32
	generation uint32
}

// IsZero reports whether h is the zero Handle, which is never valid.
func (h Handle) IsZero() bool {
	return h.generation == 0
}

func (h Handle) String() string {
	return fmt.Sprintf("source#%d.%d", h.index, h.generation)
}

type slot struct {
	generation uint32
	live       bool
	label      string
}

// Table issues and invalidates handles.
type Table struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
}

// NewTable creates an empty handle table.
func NewTable() *Table {
	return &Table{}
}

// Default is the process-wide table used when a model is not given one.
var Default = NewTable()

// Acquire issues a new live handle. label is used for debugging only.
func (t *Table) Acquire(label string) Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, slot{})
	}
	s := &t.slots[idx]
	s.generation++
	s.live = true
	s.label = label
	return Handle{index: idx, generation: s.generation}
}

// Release invalidates h and recycles its slot. It reports whether h was live.
func (t *Table) Release(h Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.validLocked(h) {
		return false
	}
	s := &t.slots[h.index]
	s.live = false
	s.label = ""
	t.free = append(t.free, h.index)
	return true
}

// Valid reports whether h is live.
func (t *Table) Valid(h Handle) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.validLocked(h)
}

// Label returns the debug label of a live handle.
func (t *Table) Label(h Handle) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.validLocked(h) {
		return ""
	}
	return t.slots[h.index].label
}

func (t *Table) validLocked(h Handle) bool {
	if h.IsZero() || int(h.index) >= len(t.slots) {
		return false
	}
	s := t.slots[h.index]
	return s.live && s.generation == h.generation
}

// Set is an identity set of handles whose membership does not keep the
// referenced source alive. Set is not safe for concurrent use; its owner
// guards it.
type Set struct {
	table   *Table
	members map[Handle]struct{}
}

// NewSet creates a set validated against table.
func NewSet(table *Table) *Set {
	if table == nil {
		table = Default
	}
	return &Set{table: table, members: make(map[Handle]struct{})}
}

// prune drops members whose handle has been released.
func (s *Set) prune() {
	for h := range s.members {
		if !s.table.Valid(h) {
			delete(s.members, h)
		}
	}
}

// Add records h. It reports whether the set was empty before the call, i.e.
// whether this is the first member of a new episode. Invalid handles are
// ignored and report false.
func (s *Set) Add(h Handle) (wasEmpty bool) {
	s.prune()
	if !s.table.Valid(h) {
		return false
	}
	wasEmpty = len(s.members) == 0
	s.members[h] = struct{}{}
	return wasEmpty
}

// Remove drops h. It reports whether the set became empty because of this
// call. Removing an absent handle reports false.
func (s *Set) Remove(h Handle) (nowEmpty bool) {
	if _, ok := s.members[h]; !ok {
		s.prune()
		return false
	}
	delete(s.members, h)
	s.prune()
	return len(s.members) == 0
}

// Contains reports whether h is a live member.
func (s *Set) Contains(h Handle) bool {
	_, ok := s.members[h]
	return ok && s.table.Valid(h)
}

// Len returns the number of live members.
func (s *Set) Len() int {
	s.prune()
	return len(s.members)
}

// Drain clears the set and reports whether it had live members.
func (s *Set) Drain() (hadMembers bool) {
	s.prune()
	hadMembers = len(s.members) > 0
	s.members = make(map[Handle]struct{})
	return hadMembers
}
