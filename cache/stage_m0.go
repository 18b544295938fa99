package cache

import "github.com/sarchlab/blockcache/message"

// stepCacheInit runs one step of the cold-reset tag-array walk while the
// front-end FSM is FEInit, clearing one {way, index} per tick (spec.md
// §4.1: "CACHE_INIT... M0 drives a counter through every {way, index}").
// Walking one cell per tick rather than the whole array in one shot keeps
// CACHE_INIT a real multi-tick sequence a test bench can observe, matching
// the teacher's own preference for counter-driven sequencing over a single
// combinational burst (timing/cache.go's Reset walks its directory the same
// way).
func (c *Cache) stepCacheInit() {
	if c.fe != FEInit {
		return
	}

	numSets := c.tags.NumSets()
	way := c.initIdx / numSets
	index := c.initIdx % numSets
	c.tags.WriteWay(index, way, TagEntry{})

	if c.initIdx == 0 {
		c.fe = FEReady
		return
	}
	c.initIdx--
}

// stepM0 decides this tick's M0Reg: the CLEAN_HIT replay injection takes
// priority, then a brand-new request is accepted from the processor-side
// port if nothing is blocking the pipe. Every other CtrlState (CACHE_INIT,
// REFILL, REPLAY_READ, REPLAY_WRITE) is resolved by a dedicated handler
// elsewhere in Tick and never touches M0Reg.
func (c *Cache) stepM0(stalled bool) {
	if c.fe == FEInit {
		c.m0.Clear()
		return
	}

	if c.cleanHit.pending {
		c.tags.SetDirtyBit(c.cleanHit.fields.Index, c.cleanHit.way, c.cleanHit.word, true)
		c.m0 = M0Reg{Valid: true, State: WriteReq, Req: c.cleanHit.req, Fields: c.cleanHit.fields}
		c.cleanHit = cleanHitState{}
		return
	}

	if stalled {
		// M2 is retrying a held response; M0 keeps its register unchanged.
		return
	}

	blocked := stalled || c.mshr.Full() || c.evict != nil || c.roundTrip != nil || c.exclusive
	peeked, havePeek := c.CacheReqIn.Peek()

	mshrType := message.READ
	if c.mshr.Full() {
		mshrType = c.mshr.Peek().Type
	}
	state := decodeM0(decodeM0Inputs{
		FrontEnd: c.fe,
		MSHRFull: c.mshr.Full(),
		MSHRType: mshrType,
		Blocked:  blocked,
		ReqValid: havePeek,
		ReqType:  peeked.Type,
	})

	if state != InitReq && state != ReadReq && state != WriteReq {
		c.m0.Clear()
		return
	}

	req, ok := c.CacheReqIn.Pop()
	if !ok {
		c.fatalf("stepM0 decided %v to accept a request but the port is empty", state)
	}
	fields := decodeAddr(req.Addr, c.derived)
	c.m0 = M0Reg{Valid: true, State: state, Req: req, Fields: fields}
}
