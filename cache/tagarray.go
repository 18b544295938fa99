package cache

// TagArray is the two-dimensional {way, index} TagEntry store (spec.md §4.2).
//
// A real issue(way, index, type, wdata, wben) port has a registered read:
// the entry issued at tick T is visible only at tick T+1. This
// implementation keeps the array itself purely combinational (ReadSet is
// synchronous) and relies on the M0→M1 pipeline register to supply that
// one-cycle delay, exactly as the teacher's IF/ID register delays a fetched
// instruction word to the decode stage rather than the instruction memory
// delaying it internally.
type TagArray struct {
	numSets       int
	associativity int
	entries       [][]TagEntry // [index][way]
}

// NewTagArray allocates a tag array with every entry zeroed (invalid).
func NewTagArray(numSets, associativity int) *TagArray {
	entries := make([][]TagEntry, numSets)
	for i := range entries {
		entries[i] = make([]TagEntry, associativity)
	}
	return &TagArray{
		numSets:       numSets,
		associativity: associativity,
		entries:       entries,
	}
}

// NumSets returns the number of indices.
func (a *TagArray) NumSets() int { return a.numSets }

// Associativity returns the number of ways.
func (a *TagArray) Associativity() int { return a.associativity }

// ReadSet returns the TagEntry for every way at index. The returned slice
// is a copy; mutating it does not affect the array.
func (a *TagArray) ReadSet(index int) []TagEntry {
	out := make([]TagEntry, a.associativity)
	copy(out, a.entries[index])
	return out
}

// ReadWay returns the TagEntry at {way, index}.
func (a *TagArray) ReadWay(index, way int) TagEntry {
	return a.entries[index][way]
}

// WriteWay replaces the entry at {way, index} wholesale. Used by CACHE_INIT
// (clearing) and by refill-install (setting valid/tag, clearing dirty).
func (a *TagArray) WriteWay(index, way int, entry TagEntry) {
	a.entries[index][way] = entry
}

// SetDirtyBit sets or clears a single word's dirty bit at {way, index}
// without disturbing Valid or Tag. Used by the CLEAN_HIT bypass, which
// updates only the dirty bit before the data write proceeds.
func (a *TagArray) SetDirtyBit(index, way, word int, dirty bool) {
	a.entries[index][way].SetWordDirty(word, dirty)
}

// ClearValid clears the valid bit at {way, index} without touching Dirty or
// Tag. Used by INV, which must leave dirty bits intact for a later FLUSH.
func (a *TagArray) ClearValid(index, way int) {
	a.entries[index][way].Valid = false
}
