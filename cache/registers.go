package cache

import "github.com/sarchlab/blockcache/message"

// M0Reg holds what M0 decided this tick, for M1 to consume next tick —
// the same role the teacher's IFIDRegister plays between Fetch and Decode.
type M0Reg struct {
	Valid  bool
	State  CtrlState
	Req    message.CacheReq
	Fields addrFields
}

// Clear resets the register to its bubble value.
func (r *M0Reg) Clear() { *r = M0Reg{} }

// M1Reg holds what M1 decided this tick, for M2 to consume next tick —
// the same role the teacher's EXMEMRegister plays between Execute and
// Memory.
type M1Reg struct {
	Valid bool
	// State is normally the State forwarded unchanged from M0Reg, except
	// M1 overrides it to CleanHit when it detects a WRITE hit on a
	// clean word.
	State CtrlState
	Req   message.CacheReq
	Fields addrFields

	Way   int
	Hit   bool
	Entry TagEntry

	IsEvict    bool
	EvictEntry TagEntry
	EvictWay   int

	// AmoHit records whether an AMO's target line was resident at issue
	// time (spec.md: CacheResp.Test == 2).
	AmoHit bool

	// ReadLine is the data array's current contents at {Way, Index},
	// captured for a hit response, an evict's payload, or an AMO's
	// pre-op word.
	ReadLine []byte

	// WriteByteEnable / ReplicatedData are the M1-computed write mask
	// and replicated write data for a WRITE hit's data-array commit.
	WriteByteEnable []byte
	ReplicatedData  []byte
}

// Clear resets the register to its bubble value.
func (r *M1Reg) Clear() { *r = M1Reg{} }
