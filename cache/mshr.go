package cache

import "github.com/sarchlab/blockcache/message"

// MSHREntry is the state a missing request carries across the memory
// round trip (spec.md §3, §4.5).
type MSHREntry struct {
	Type   message.RequestType
	Opaque uint64
	Addr   uint64
	Len    int
	Data   uint64
	// ReplWay is the way selected (by the replacement policy, or the
	// already-known hit way for an AMO) to receive the refill.
	ReplWay int
	// AmoHit records whether the AMO's target line was resident when the
	// AMO was issued (surfaced to the processor as CacheResp.Test).
	AmoHit bool
}

// MSHR is the cache's single miss-status holding register: a one-entry
// buffer across a memory round trip (spec.md §4.5). There is no queue and
// no heap state — exactly a single Option<Entry>-shaped slot, per spec.md's
// design notes (§9).
type MSHR struct {
	full  bool
	entry MSHREntry
}

// Full reports whether a miss is currently outstanding.
func (m *MSHR) Full() bool { return m.full }

// Empty reports the complement of Full.
func (m *MSHR) Empty() bool { return !m.full }

// Alloc records a new outstanding miss. Allocating while full is a
// programmer/controller error: the stall network must prevent it
// (spec.md §7), so this panics rather than silently overwriting state.
func (m *MSHR) Alloc(entry MSHREntry) {
	if m.full {
		panic("cache: MSHR alloc while full")
	}
	m.entry = entry
	m.full = true
}

// Dealloc clears the outstanding miss and returns the entry that was
// stored, for replay.
func (m *MSHR) Dealloc() MSHREntry {
	if !m.full {
		panic("cache: MSHR dealloc while empty")
	}
	e := m.entry
	m.full = false
	m.entry = MSHREntry{}
	return e
}

// Peek returns the stored entry without deallocating, for inspection by
// the controller while computing this tick's combinational state.
func (m *MSHR) Peek() MSHREntry {
	return m.entry
}
