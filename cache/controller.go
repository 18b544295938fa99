package cache

import "github.com/sarchlab/blockcache/message"

// FrontEndState gates what M0 is allowed to do this tick (spec.md §4.1).
type FrontEndState uint8

const (
	// FEInit is the cold-reset state: the front end walks the tag array,
	// clearing every {way, index}.
	FEInit FrontEndState = iota
	// FEReady is normal operation: accept a processor request, a
	// replay, or a refill.
	FEReady
	// FEReplay is a single-cycle detour to drive a stored WRITE-miss
	// replay from the MSHR.
	FEReplay
)

// CtrlState is CTRL_STATE_M0 / CTRL_STATE_M2 — the nine named per-tick
// pipeline states of spec.md §4.1. M0 decides this tick's state; M1
// registers it forward unchanged (except for the CLEAN_HIT override) so M2
// can read "the M1 state registered forward."
type CtrlState uint8

const (
	// Invalid is the bubble state: nothing useful is happening this tick.
	Invalid CtrlState = iota
	// CacheInit is the cold-reset tag-array walk.
	CacheInit
	// Refill writes fetched memory data into the data/tag arrays for an
	// outstanding WRITE miss (the first of its two replay ticks).
	Refill
	// ReplayRead re-presents a completed READ miss to the processor.
	ReplayRead
	// ReplayWrite re-presents a completed WRITE miss's write to the data
	// array (the second of its two replay ticks).
	ReplayWrite
	// CleanHit is the WRITE-hit-with-clean-word bypass: the tag array's
	// dirty bit is set this tick and the original write is replayed next
	// tick as an ordinary WRITE_REQ.
	CleanHit
	// InitReq is a processor-driven unconditional line install.
	InitReq
	// ReadReq is a new READ (or AMO/INV/FLUSH) request being looked up.
	ReadReq
	// WriteReq is a new WRITE request being looked up.
	WriteReq
)

// String renders the control state name for test failure messages.
func (s CtrlState) String() string {
	switch s {
	case Invalid:
		return "INVALID"
	case CacheInit:
		return "CACHE_INIT"
	case Refill:
		return "REFILL"
	case ReplayRead:
		return "REPLAY_READ"
	case ReplayWrite:
		return "REPLAY_WRITE"
	case CleanHit:
		return "CLEAN_HIT"
	case InitReq:
		return "INIT_REQ"
	case ReadReq:
		return "READ_REQ"
	case WriteReq:
		return "WRITE_REQ"
	default:
		return "UNKNOWN"
	}
}

// decodeM0Inputs bundles everything decodeM0 needs so the function itself
// stays a pure table lookup, mirroring the teacher's HazardUnit.ComputeStalls
// taking plain booleans rather than reaching into pipeline state itself.
type decodeM0Inputs struct {
	FrontEnd FrontEndState

	MSHRFull bool
	MSHRType message.RequestType

	// Blocked additionally covers mid-eviction / mid-flush sub-sequences,
	// which hold M0 back exactly like a full MSHR even though they are
	// controller-internal extensions of the base table (spec.md §4.1's
	// "AMO, INV, FLUSH extend this table").
	Blocked bool

	MemRespValid     bool
	MemRespForMSHR   bool
	CleanHitPending  bool
	ReqValid         bool
	ReqType          message.RequestType
}

// decodeM0 implements the priority table of spec.md §4.1 verbatim.
func decodeM0(in decodeM0Inputs) CtrlState {
	// 1. CACHE_INIT whenever front-end FSM = INIT.
	if in.FrontEnd == FEInit {
		return CacheInit
	}

	// 2. CLEAN_HIT bypass takes priority over everything except CACHE_INIT.
	if in.CleanHitPending {
		return CleanHit
	}

	// 3. FSM = REPLAY: a WRITE miss's stored replay.
	if in.FrontEnd == FEReplay {
		if in.MSHRFull && in.MSHRType == message.WRITE {
			return ReplayWrite
		}
	}

	// 4. FSM = READY with a matching memory response outstanding.
	if in.FrontEnd == FEReady && in.MemRespValid && in.MemRespForMSHR {
		if in.MSHRType == message.WRITE {
			return Refill
		}
		return ReplayRead
	}

	// 5. MSHR empty (and no in-progress evict/flush) with a ready request.
	if !in.MSHRFull && !in.Blocked && in.ReqValid {
		switch in.ReqType {
		case message.WriteInit:
			return InitReq
		case message.WRITE:
			return WriteReq
		default:
			// READ and every AMO_*/INV/FLUSH type share the read-lookup
			// bucket; M1/M2 special-case the request type where its
			// behavior diverges from a plain read (spec.md §4.1: "AMO,
			// INV, FLUSH extend this table").
			return ReadReq
		}
	}

	// 6. Nothing to do.
	return Invalid
}

// m2Decision is one row of the M2 decision table (spec.md §4.1).
type m2Decision struct {
	MemReqType   message.RequestType
	MemReqEn     bool
	CacheRespEn  bool
	DataArrayMux bool // true: response/refill data comes from the data array
	SizeMuxEn    bool
}

// decodeM2 implements the base M2 decision table. hit/isEvict/portsReady are
// the only additional facts M2 needs beyond the registered CtrlState; AMO
// and FLUSH paths are resolved by the caller before consulting this table
// (they always force the memory round trip, which this table already
// expresses via ReadReq/WriteReq-miss rows once the caller treats them as
// misses).
func decodeM2(state CtrlState, hit, isEvict, portsReady bool) m2Decision {
	if !portsReady {
		return m2Decision{}
	}

	switch state {
	case Invalid, CacheInit, CleanHit:
		return m2Decision{}
	case ReplayRead:
		// The response is sourced from the replayed memory data, not the
		// data array.
		return m2Decision{CacheRespEn: true, SizeMuxEn: true}
	case ReplayWrite:
		return m2Decision{CacheRespEn: true}
	case InitReq:
		return m2Decision{CacheRespEn: true}
	case ReadReq:
		if isEvict {
			return m2Decision{MemReqType: message.WRITE, MemReqEn: true, DataArrayMux: true}
		}
		if hit {
			return m2Decision{CacheRespEn: true, DataArrayMux: true, SizeMuxEn: true}
		}
		return m2Decision{MemReqType: message.READ, MemReqEn: true}
	case WriteReq:
		if isEvict {
			return m2Decision{MemReqType: message.WRITE, MemReqEn: true, DataArrayMux: true}
		}
		if hit {
			return m2Decision{CacheRespEn: true}
		}
		return m2Decision{MemReqType: message.READ, MemReqEn: true}
	default:
		return m2Decision{}
	}
}
