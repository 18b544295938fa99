// Package cache implements a parameterizable, pipelined, write-back/
// write-allocate blocking cache: a memory-side component that sits between
// a processor-side cachereq/cacheresp port pair and a downstream memory-side
// memreq/memresp port pair. See spec.md for the full behavioral contract.
//
// Construction-time parameters live in Config; Tick advances the cache by
// one synchronous clock cycle, mirroring the teacher pipeline's two-phase
// (combinational-then-commit) tick model.
package cache

import (
	"fmt"

	"github.com/sarchlab/blockcache/cache/replacement"
	"github.com/sarchlab/blockcache/message"
)

// Cache is the pipelined blocking cache core.
type Cache struct {
	cfg     Config
	derived Derived

	tags *TagArray
	data *DataArray
	repl replacement.Policy
	mshr *MSHR

	fe      FrontEndState
	initIdx int // CACHE_INIT walk counter, counts down to 0

	// m0/m1 are the pipeline registers between M0→M1 and M1→M2. Only the
	// "accept a new request" path (INIT_REQ/READ_REQ/WRITE_REQ) and its
	// resolved hit outcome flow through them; the CACHE_INIT walk,
	// CLEAN_HIT bypass, and the memresp-driven REFILL/REPLAY_READ/
	// REPLAY_WRITE states are serviced directly each tick by dedicated
	// handlers (stepCacheInit, the clean-hit injector, stepMemResp) since
	// spec.md §4.1 already describes them as direct FSM/MSHR-driven
	// events rather than ordinary hit/miss pipeline flow.
	m0 M0Reg
	m1 M1Reg

	// heldM1 holds a fully-computed M1Reg whose cacheresp (and data-array
	// write) could not be pushed out this tick because cacheresp_rdy (or
	// memreq_rdy, for a hit that is never the case, but kept symmetric for
	// the evict path) was false. While set, M1 and M0 do not advance —
	// the stall network of spec.md §4.1: "A downstream stall prevents
	// upstream register-enable."
	heldM1 *M1Reg

	cleanHit cleanHitState
	evict    *evictJob
	roundTrip *roundTripJob
	flush    *flushJob

	// exclusive blocks new-request acceptance from the moment a FLUSH is
	// accepted until its drain completes and its response is emitted, so
	// nothing can race ahead of it in the pipe.
	exclusive bool

	memOpaqueSeq     uint64
	pendingMemOpaque uint64
	haveMemOpaque    bool

	CacheReqIn   InPort[message.CacheReq]
	CacheRespOut OutPort[message.CacheResp]
	MemReqOut    OutPort[message.MemReq]
	MemRespIn    InPort[message.MemResp]
}

type cleanHitState struct {
	pending bool
	req     message.CacheReq
	fields  addrFields
	way     int
	word    int
}

// Option configures a Cache at construction time, in the same spirit as the
// teacher's PipelineOption/WithSyscallHandler functional options passed to
// its New* constructors.
type Option func(*Cache)

// WithReplacementPolicy overrides the associativity-mandated default
// replacement policy (spec.md §4.6 allows "a standard tree-PLRU or
// true-LRU" for general A; this lets a caller plug one in instead of the
// package default for A>2).
func WithReplacementPolicy(p replacement.Policy) Option {
	return func(c *Cache) { c.repl = p }
}

// New constructs a Cache from cfg, validating its geometry (spec.md §3) and
// starting the front-end FSM in CACHE_INIT (spec.md §4.1).
func New(cfg Config, opts ...Option) (*Cache, error) {
	derived, err := cfg.Derive()
	if err != nil {
		return nil, err
	}

	numSets := derived.LinesPerWay
	c := &Cache{
		cfg:     cfg,
		derived: derived,
		tags:    NewTagArray(numSets, cfg.Associativity),
		data:    NewDataArray(numSets, cfg.Associativity, derived.LineBytes),
		repl:    replacement.New(cfg.Associativity, numSets, derived.LineBytes),
		mshr:    &MSHR{},
		fe:      FEInit,
		initIdx: numSets*cfg.Associativity - 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the cache's construction-time configuration.
func (c *Cache) Config() Config { return c.cfg }

// Derived returns the cache's derived address/line geometry.
func (c *Cache) Derived() Derived { return c.derived }

// CacheReqReady reports cachereq_rdy (spec.md §4.1): deasserted under
// stall, whenever the front-end FSM is in CACHE_INIT, or whenever the MSHR
// is full/non-empty (including mid-eviction/mid-flush, both of which are
// extensions riding on the same "memory round trip outstanding" concept).
func (c *Cache) CacheReqReady() bool {
	return c.fe != FEInit &&
		c.heldM1 == nil &&
		!c.mshr.Full() &&
		c.evict == nil &&
		c.roundTrip == nil &&
		!c.exclusive &&
		c.CacheReqIn.Ready()
}

func (c *Cache) nextMemOpaque() uint64 {
	c.memOpaqueSeq++
	return c.memOpaqueSeq
}

func (c *Cache) fatalf(format string, args ...any) {
	panic(fmt.Sprintf("cache: "+format, args...))
}

// Tick advances the cache by one synchronous clock cycle (spec.md §5): a
// combinational phase (computed here, stage by stage, M2 down to M0 so
// every stage reads only state committed by the *previous* tick) followed
// by an implicit commit as each step writes directly into the register
// it owns. Side sequences that are not part of the base 3-stage hit/miss
// path (CACHE_INIT's walk, an in-flight eviction's writeback, a miss's own
// memory round trip, and FLUSH's drain) are serviced first each tick since
// they compete for the same single-slot memreq port the base path's M2
// stage also uses.
func (c *Cache) Tick() {
	c.stepCacheInit()
	c.stepFlush()
	c.stepEvict()
	c.stepRoundTrip()
	c.stepMemResp()

	stalled := c.heldM1 != nil
	if stalled {
		c.retryHeldM2()
	} else {
		c.stepM2()
	}
	if !stalled {
		c.stepM1()
	}
	c.stepM0(stalled)
}
