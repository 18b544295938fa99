package cache

import "github.com/sarchlab/blockcache/message"

// stepM1 computes the next M1Reg from the M0Reg committed last tick: the
// tag compare, hit/miss/evict-needed determination, and the INV/AMO
// special cases spec.md §4.1 layers on top of the base table. A genuine
// miss (or an AMO that must write back a resident dirty line first) is not
// registered forward into M1Reg at all — instead it kicks off the evict/
// round-trip side sequence (miss.go) and M1Reg is left a bubble, since
// from here on the memory round trip is driven by the MSHR and the FSM,
// not by anything riding through the 3-stage register pipe.
func (c *Cache) stepM1() {
	m0 := c.m0
	c.m0.Clear()

	if !m0.Valid {
		c.m1.Clear()
		return
	}

	switch {
	case m0.Req.Type == message.INV:
		c.stepM1Inv(m0)
		return
	case m0.Req.Type == message.FLUSH:
		c.stepM1Flush(m0)
		return
	case m0.Req.Type.IsAMO():
		c.stepM1Amo(m0)
		return
	}

	set := c.tags.ReadSet(m0.Fields.Index)
	hitWay, hit := -1, false
	for way, e := range set {
		if e.MatchTag(m0.Fields.Tag) {
			hitWay, hit = way, true
			break
		}
	}

	switch m0.State {
	case InitReq:
		c.stepM1Init(m0, hitWay, hit)
	case ReadReq:
		c.stepM1Read(m0, hitWay, hit)
	case WriteReq:
		c.stepM1Write(m0, hitWay, hit)
	default:
		c.fatalf("stepM1 saw unexpected M0Reg state %v", m0.State)
	}
}

// stepM1Init handles a WRITE_INIT: it always installs, never missing to
// memory. The tag compare only picks the way: the way already holding the
// tag if there is one, otherwise the replacement victim. A resident dirty
// victim at that way is simply overwritten — no writeback — which is the
// documented, sanctioned behavior for this request type.
func (c *Cache) stepM1Init(m0 M0Reg, hitWay int, hit bool) {
	way := hitWay
	if !hit {
		way = c.repl.NextVictim(m0.Fields.Index)
	}

	word := wordIndexOf(m0.Fields.Offset, c.cfg.DataWidth/8)
	entry := TagEntry{Valid: true, Tag: m0.Fields.Tag}
	entry.SetWordDirty(word, true)
	c.tags.WriteWay(m0.Fields.Index, way, entry)

	c.m1 = M1Reg{
		Valid:           true,
		State:           InitReq,
		Req:             m0.Req,
		Fields:          m0.Fields,
		Way:             way,
		Hit:             true,
		WriteByteEnable: writeByteEnable(m0.Req.Len, m0.Fields.Offset, c.cfg.DataWidth/8, c.derived.LineBytes),
		ReplicatedData:  replicate(m0.Req.Data, m0.Req.Len, c.cfg.DataWidth/8, c.derived.LineBytes),
	}
	c.repl.Update(m0.Fields.Index, way, hit)
}

func (c *Cache) stepM1Read(m0 M0Reg, hitWay int, hit bool) {
	if hit {
		c.m1 = M1Reg{
			Valid:    true,
			State:    ReadReq,
			Req:      m0.Req,
			Fields:   m0.Fields,
			Way:      hitWay,
			Hit:      true,
			Entry:    c.tags.ReadWay(m0.Fields.Index, hitWay),
			ReadLine: c.data.ReadLine(hitWay, m0.Fields.Index),
		}
		c.repl.Update(m0.Fields.Index, hitWay, true)
		return
	}

	c.beginMiss(m0, message.READ, false, -1)
	c.m1.Clear()
}

func (c *Cache) stepM1Write(m0 M0Reg, hitWay int, hit bool) {
	if hit {
		word := wordIndexOf(m0.Fields.Offset, c.cfg.DataWidth/8)
		entry := c.tags.ReadWay(m0.Fields.Index, hitWay)
		if !entry.WordDirty(word) {
			// CLEAN_HIT bypass (spec.md §4.1): set the dirty bit this tick,
			// replay the original write as an ordinary hit next tick.
			c.cleanHit = cleanHitState{
				pending: true,
				req:     m0.Req,
				fields:  m0.Fields,
				way:     hitWay,
				word:    word,
			}
			c.m1 = M1Reg{Valid: true, State: CleanHit}
			return
		}

		c.m1 = M1Reg{
			Valid:           true,
			State:           WriteReq,
			Req:             m0.Req,
			Fields:          m0.Fields,
			Way:             hitWay,
			Hit:             true,
			Entry:           entry,
			WriteByteEnable: writeByteEnable(m0.Req.Len, m0.Fields.Offset, c.cfg.DataWidth/8, c.derived.LineBytes),
			ReplicatedData:  replicate(m0.Req.Data, m0.Req.Len, c.cfg.DataWidth/8, c.derived.LineBytes),
		}
		c.repl.Update(m0.Fields.Index, hitWay, true)
		return
	}

	c.beginMiss(m0, message.WRITE, false, -1)
	c.m1.Clear()
}

// stepM1Amo always forces the memory round trip (spec.md §9: "AMOs always
// force a full memory round trip, even on a tag hit"), recording whether
// the line was actually resident for CacheResp.Test.
func (c *Cache) stepM1Amo(m0 M0Reg) {
	set := c.tags.ReadSet(m0.Fields.Index)
	hitWay, hit := -1, false
	for way, e := range set {
		if e.MatchTag(m0.Fields.Tag) {
			hitWay, hit = way, true
			break
		}
	}

	c.beginMiss(m0, m0.Req.Type, hit, hitWay)
	c.m1.Clear()
}

// stepM1Inv clears every valid bit in the tag array in a single tick
// (spec.md §4.1/§9), leaving dirty bits intact so a later FLUSH can still
// surface an "inval-hit" line, then completes with a plain response.
func (c *Cache) stepM1Inv(m0 M0Reg) {
	for index := 0; index < c.tags.NumSets(); index++ {
		for way := 0; way < c.tags.Associativity(); way++ {
			c.tags.ClearValid(index, way)
		}
	}
	c.m1 = M1Reg{Valid: true, State: ReadReq, Req: m0.Req, Fields: m0.Fields, Hit: true}
}

// stepM1Flush builds the drain queue of every dirty or inval-hit
// {way, index} and hands off to the multi-tick flush sequence (miss.go);
// M0 is held back (c.exclusive) until the drain and its single response
// complete.
func (c *Cache) stepM1Flush(m0 M0Reg) {
	var queue []flushEntry
	for index := 0; index < c.tags.NumSets(); index++ {
		for way := 0; way < c.tags.Associativity(); way++ {
			e := c.tags.ReadWay(index, way)
			if e.AnyDirty() {
				queue = append(queue, flushEntry{way: way, index: index})
			}
		}
	}

	c.exclusive = true
	c.flush = &flushJob{queue: queue, opaque: m0.Req.Opaque}
	c.m1.Clear()
}
