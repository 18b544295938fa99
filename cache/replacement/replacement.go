// Package replacement provides pluggable replacement-victim policies for
// the cache's tag array (spec.md §4.6). The controller only ever needs two
// operations — next_victim(index) and update(index, way, hit) — so the
// policy is expressed as a small capability interface rather than a class
// hierarchy, per spec.md's design notes (§9).
package replacement

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Policy selects and tracks replacement victims for one cache.
type Policy interface {
	// NextVictim returns which way should be evicted/filled next at index.
	NextVictim(index int) int
	// Update records that way was accessed at index, with hit indicating
	// whether the access was a hit (vs. an install after a miss).
	Update(index, way int, hit bool)
}

// None is the A=1 policy: there is only one way, so the victim is always
// way 0 and there is nothing to update.
type None struct{}

// NewNone constructs the direct-mapped (A=1) replacement policy.
func NewNone() Policy { return None{} }

// NextVictim always returns way 0.
func (None) NextVictim(int) int { return 0 }

// Update is a no-op: a single way never needs replacement bookkeeping.
func (None) Update(int, int, bool) {}

// PLRU1Bit is the A=2 policy mandated by spec.md §4.2/§4.6: a single
// pseudo-LRU bit per index, naming the way to evict next, toggled on every
// hit or install. This matches the register-file shape the original
// PyMTL3 source uses (one bit per index, not per way) — see
// UpdateTagArrayUnit.py in original_source/.
type PLRU1Bit struct {
	bit []bool // one per index; bit[i] names the way to evict next
}

// NewPLRU1Bit constructs the 2-way pseudo-LRU policy for numSets indices.
func NewPLRU1Bit(numSets int) Policy {
	return &PLRU1Bit{bit: make([]bool, numSets)}
}

// NextVictim returns the way the per-index bit currently points at.
func (p *PLRU1Bit) NextVictim(index int) int {
	if p.bit[index] {
		return 1
	}
	return 0
}

// Update flips the bit to point at the *other* way, so the way just
// touched is not the next victim.
func (p *PLRU1Bit) Update(index, way int, _ bool) {
	p.bit[index] = way == 0
}

// GeneralLRU is the policy for associativity greater than 2. spec.md §4.6
// allows "a standard tree-PLRU or true-LRU" for general A; this
// implementation reuses the teacher's (sarchlab/m2sim, timing/cache.go)
// akita-backed directory+LRU-victim-finder exactly as it is already wired
// there, as a shadow structure that tracks access order only — it is not
// the cache's authoritative tag/dirty state, which stays in cache.TagArray.
type GeneralLRU struct {
	shadow        *akitacache.DirectoryImpl
	lineBytes     int
	associativity int
}

// NewGeneralLRU constructs a shadow LRU directory with the same
// {numSets, associativity, lineBytes} geometry as the real cache, purely
// to drive victim selection for A>2.
func NewGeneralLRU(numSets, associativity, lineBytes int) Policy {
	return &GeneralLRU{
		shadow:        akitacache.NewDirectory(numSets, associativity, lineBytes, akitacache.NewLRUVictimFinder()),
		lineBytes:     lineBytes,
		associativity: associativity,
	}
}

// shadowAddr maps an index back to the block-aligned address the shadow
// directory expects, exactly as the teacher's Cache.Read/Write compute
// blockAddr from a real address: addr/lineBytes gives back index directly
// when addr = index*lineBytes, so the shadow's own (addr/lineBytes)%numSets
// hashing reproduces index.
func (g *GeneralLRU) shadowAddr(index int) uint64 {
	return uint64(index) * uint64(g.lineBytes)
}

// NextVictim asks the shadow directory's LRU victim finder which way to
// evict at index.
func (g *GeneralLRU) NextVictim(index int) int {
	victim := g.shadow.FindVictim(g.shadowAddr(index))
	if victim == nil {
		return 0
	}
	return victim.WayID
}

// Update marks {index, way} as the most recently used block in the shadow
// directory.
func (g *GeneralLRU) Update(index, way int, _ bool) {
	sets := g.shadow.GetSets()
	if index >= len(sets) || way >= len(sets[index].Blocks) {
		return
	}
	block := sets[index].Blocks[way]
	block.IsValid = true
	block.Tag = g.shadowAddr(index)
	g.shadow.Visit(block)
}

// New constructs the spec-mandated policy for the given associativity:
// None for A=1, PLRU1Bit for A=2, and GeneralLRU for A>2.
func New(associativity, numSets, lineBytes int) Policy {
	switch {
	case associativity <= 1:
		return NewNone()
	case associativity == 2:
		return NewPLRU1Bit(numSets)
	default:
		return NewGeneralLRU(numSets, associativity, lineBytes)
	}
}
