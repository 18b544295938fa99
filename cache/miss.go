package cache

import "github.com/sarchlab/blockcache/message"

// evictJob is an in-progress writeback of a dirty victim, blocking the
// pipeline until the memreq port accepts it (spec.md §4.1: "M1 stalls on
// evict... because evict and refill share M2/memreq"). Once the writeback
// is accepted, next holds everything needed to continue straight into the
// memory round trip the following tick.
type evictJob struct {
	way, index int
	addr       uint64
	data       []byte
	wrMask     []byte
	next       roundTripJob
}

// roundTripJob is a miss's own memory request (a refill read, a
// write-allocate fetch, or an AMO) waiting for the memreq port.
type roundTripJob struct {
	typ     message.RequestType
	addr    uint64
	way     int
	req     message.CacheReq
	fields  addrFields
	amoHit  bool
}

// flushEntry names one dirty or inval-hit {way, index} FLUSH must drain.
type flushEntry struct{ way, index int }

// flushJob drains every entry in queue, one evict-style MemReq per tick,
// then emits a single CacheResp.
type flushJob struct {
	queue  []flushEntry
	opaque uint64
}

// beginMiss is the single entry point stage_m1.go uses for every request
// that cannot complete as an ordinary hit: a plain READ/WRITE miss, or an
// AMO (which always takes this path, hit or not, per spec.md §9). If
// hitWay is >= 0 the request already knows its way (an AMO hit); otherwise
// a victim is chosen from the replacement policy. A dirty victim is
// written back first; otherwise the round trip is queued directly.
func (c *Cache) beginMiss(m0 M0Reg, reqType message.RequestType, hit bool, hitWay int) {
	way := hitWay
	if !hit {
		way = c.repl.NextVictim(m0.Fields.Index)
	}
	victim := c.tags.ReadWay(m0.Fields.Index, way)

	rt := roundTripJob{
		typ:    reqType,
		addr:   m0.Req.Addr &^ uint64(c.derived.LineBytes-1),
		way:    way,
		req:    m0.Req,
		fields: m0.Fields,
		amoHit: hit,
	}

	if victim.Valid && victim.AnyDirty() {
		c.evict = &evictJob{
			way:    way,
			index:  m0.Fields.Index,
			addr:   blockAddr(victim.Tag, m0.Fields.Index, c.derived),
			data:   c.data.ReadLine(way, m0.Fields.Index),
			wrMask: dirtyWordsToByteMask(victim.Dirty, c.derived.WordsPerLine, c.cfg.DataWidth/8, c.derived.LineBytes),
			next:   rt,
		}
		return
	}

	c.beginRoundTrip(rt)
}

// beginRoundTrip allocates the MSHR and queues the round trip's own memreq,
// once any required writeback is out of the way.
func (c *Cache) beginRoundTrip(rt roundTripJob) {
	c.mshr.Alloc(MSHREntry{
		Type:    rt.typ,
		Opaque:  rt.req.Opaque,
		Addr:    rt.req.Addr,
		Len:     rt.req.Len,
		Data:    rt.req.Data,
		ReplWay: rt.way,
		AmoHit:  rt.amoHit,
	})
	c.roundTrip = &rt
}

// stepEvict retries pushing the in-progress eviction's writeback MemReq
// each tick until the memreq port accepts it, then clears the victim's
// dirty bits (the writeback is now authoritative in memory) and starts the
// round trip it was blocking.
func (c *Cache) stepEvict() {
	job := c.evict
	if job == nil {
		return
	}

	opaque := c.nextMemOpaque()
	ok := c.MemReqOut.Push(message.MemReq{
		Type:   message.WRITE,
		Opaque: opaque,
		Addr:   job.addr,
		Len:    len(job.data),
		Data:   job.data,
		WrMask: job.wrMask,
	})
	if !ok {
		return
	}

	c.tags.WriteWay(job.index, job.way, TagEntry{Valid: false})
	c.evict = nil
	c.beginRoundTrip(job.next)
}

// stepRoundTrip retries pushing a miss's own memreq each tick until the
// port accepts it. AMO requests carry their literal type on the wire so
// memory knows to treat it as a read-modify-write; READ/WRITE misses carry
// message.READ (a write-allocate always fetches first).
func (c *Cache) stepRoundTrip() {
	job := c.roundTrip
	if job == nil {
		return
	}

	memType := message.READ
	if job.typ.IsAMO() {
		memType = job.typ
	}

	ok := c.MemReqOut.Push(message.MemReq{
		Type:   memType,
		Opaque: job.req.Opaque,
		Addr:   job.addr,
		Len:    c.derived.LineBytes,
		Data:   nil,
		WrMask: nil,
	})
	if !ok {
		return
	}
	c.haveMemOpaque = true
	c.pendingMemOpaque = job.req.Opaque
	c.roundTrip = nil
}

// stepFlush drains one dirty/inval-hit entry per tick, writing it back via
// the memreq port, then emits FLUSH's single CacheResp once the queue is
// empty (spec.md §9). Holding c.exclusive for the whole sequence keeps new
// requests from being accepted until the drain and its response are both
// done.
func (c *Cache) stepFlush() {
	job := c.flush
	if job == nil {
		return
	}

	if len(job.queue) > 0 {
		e := job.queue[0]
		entry := c.tags.ReadWay(e.index, e.way)
		ok := c.MemReqOut.Push(message.MemReq{
			Type:   message.WRITE,
			Opaque: c.nextMemOpaque(),
			Addr:   blockAddr(entry.Tag, e.index, c.derived),
			Len:    c.derived.LineBytes,
			Data:   c.data.ReadLine(e.way, e.index),
			WrMask: dirtyWordsToByteMask(entry.Dirty, c.derived.WordsPerLine, c.cfg.DataWidth/8, c.derived.LineBytes),
		})
		if !ok {
			return
		}
		entry.Dirty = 0
		c.tags.WriteWay(e.index, e.way, entry)
		job.queue = job.queue[1:]
		return
	}

	ok := c.CacheRespOut.Push(message.CacheResp{Type: message.FLUSH, Opaque: job.opaque, Test: message.TestMiss})
	if !ok {
		return
	}
	c.flush = nil
	c.exclusive = false
}

// stepMemResp services a memory response matching the outstanding MSHR
// entry, installing the fetched line and completing the original request
// (spec.md §4.1 priority rows 3-4: REFILL/REPLAY_READ/REPLAY_WRITE). This
// runs every tick regardless of m0/m1/m2 register occupancy since it is
// driven purely by the FSM and the MSHR, not by anything riding through
// the 3-stage pipe.
func (c *Cache) stepMemResp() {
	if !c.mshr.Full() {
		return
	}

	resp, ok := c.MemRespIn.Peek()
	if ok {
		switch {
		case c.fe == FEReplay:
			c.fatalf("unexpected memresp (opaque %d) while replaying a deferred write", resp.Opaque)
		case !c.haveMemOpaque:
			c.fatalf("unexpected memresp (opaque %d) with no outstanding memory request", resp.Opaque)
		case resp.Opaque != c.pendingMemOpaque:
			c.fatalf("memresp opaque %d does not match the in-flight MSHR entry (opaque %d)",
				resp.Opaque, c.pendingMemOpaque)
		}
	}

	entry := c.mshr.Peek()

	switch {
	case c.fe == FEReplay:
		c.stepReplayWrite(entry)
	case ok && c.haveMemOpaque:
		if entry.Type == message.WRITE {
			c.MemRespIn.Pop()
			c.haveMemOpaque = false
			c.stepRefill(entry, resp)
		} else if c.stepReplayRead(entry, resp) {
			// The memresp stays queued until the response is out, so a
			// cacheresp backpressure tick retries instead of losing it.
			c.MemRespIn.Pop()
			c.haveMemOpaque = false
		}
	}
}

// stepRefill installs a fetched line for a WRITE miss (spec.md §4.1
// REFILL), then detours the FSM to FEReplay for one tick so the write
// itself can land on the next tick (stepReplayWrite). The fetched line is
// written unmasked; the replayed write's own word is overwritten again a
// tick later regardless, so restricting REFILL's mask buys no
// processor-visible difference (documented in DESIGN.md).
func (c *Cache) stepRefill(entry MSHREntry, resp message.MemResp) {
	fields := decodeAddr(entry.Addr, c.derived)
	c.data.WriteLine(entry.ReplWay, fields.Index, resp.Data, allOnesMask(c.derived.LineBytes))
	c.tags.WriteWay(fields.Index, entry.ReplWay, TagEntry{Valid: true, Tag: fields.Tag})
	c.repl.Update(fields.Index, entry.ReplWay, false)
	c.fe = FEReplay
}

// stepReplayWrite performs the deferred write (spec.md §4.1 REPLAY_WRITE),
// deallocates the MSHR, and responds.
func (c *Cache) stepReplayWrite(entry MSHREntry) {
	fields := decodeAddr(entry.Addr, c.derived)
	dataWidthBytes := c.cfg.DataWidth / 8
	wben := writeByteEnable(entry.Len, fields.Offset, dataWidthBytes, c.derived.LineBytes)
	wdata := replicate(entry.Data, entry.Len, dataWidthBytes, c.derived.LineBytes)
	c.data.WriteLine(entry.ReplWay, fields.Index, wdata, wben)

	word := wordIndexOf(fields.Offset, dataWidthBytes)
	c.tags.SetDirtyBit(fields.Index, entry.ReplWay, word, true)
	c.repl.Update(fields.Index, entry.ReplWay, false)

	if !c.CacheRespOut.Push(message.CacheResp{Type: message.WRITE, Opaque: entry.Opaque, Test: message.TestMiss}) {
		return
	}
	c.mshr.Dealloc()
	c.fe = FEReady
}

// stepReplayRead completes a READ miss or an AMO (spec.md §4.1
// REPLAY_READ, §9 "AMO round trip shape"): the fetched line is installed
// clean; an AMO additionally splices its computed post-op word into the
// installed line before it lands and marks that word dirty, and the
// processor sees the pre-op word. It reports false, changing nothing, when
// the cacheresp port is not ready.
func (c *Cache) stepReplayRead(entry MSHREntry, resp message.MemResp) bool {
	fields := decodeAddr(entry.Addr, c.derived)
	dataWidthBytes := c.cfg.DataWidth / 8
	dataWidthBits := c.cfg.DataWidth

	line := make([]byte, len(resp.Data))
	copy(line, resp.Data)

	var respData uint64
	var test message.HitTest
	if entry.Type.IsAMO() {
		preOp := extractSubword(line, fields.Offset, dataWidthBytes, dataWidthBytes)
		postOp := applyAMO(entry.Type, preOp, entry.Data, dataWidthBits)
		for i := 0; i < dataWidthBytes && fields.Offset+i < len(line); i++ {
			line[fields.Offset+i] = byte(postOp >> uint(8*i))
		}
		respData = preOp
		if entry.AmoHit {
			test = message.TestAmoHit
		}
	} else {
		respData = extractSubword(line, fields.Offset, entry.Len, dataWidthBytes)
	}

	if !c.CacheRespOut.Push(message.CacheResp{
		Type:   entry.Type,
		Opaque: entry.Opaque,
		Test:   test,
		Len:    entry.Len,
		Data:   respData,
	}) {
		return false
	}

	c.data.WriteLine(entry.ReplWay, fields.Index, line, allOnesMask(c.derived.LineBytes))
	installed := TagEntry{Valid: true, Tag: fields.Tag}
	if entry.Type.IsAMO() {
		// The post-op word just spliced into line differs from what memory
		// holds (only the pre-op value was ever fetched), so it must be
		// marked dirty or a later eviction would drop it silently.
		installed.SetWordDirty(wordIndexOf(fields.Offset, dataWidthBytes), true)
	}
	c.tags.WriteWay(fields.Index, entry.ReplWay, installed)
	c.repl.Update(fields.Index, entry.ReplWay, entry.AmoHit)
	c.mshr.Dealloc()
	return true
}
