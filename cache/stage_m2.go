package cache

import "github.com/sarchlab/blockcache/message"

// stepM2 completes the M1Reg committed last tick: a hit's data-array
// commit and response, an unconditional INIT_REQ install, a plain INV
// passthrough response, or nothing at all for the CLEAN_HIT bubble marker.
// A genuine miss, an AMO, or a FLUSH is never seen here — stage_m1.go
// diverts them to the evict/round-trip/flush side sequences before they
// would ever reach M1Reg.
func (c *Cache) stepM2() {
	m1 := c.m1
	c.m1.Clear()
	if !m1.Valid {
		return
	}
	c.completeM1(m1)
}

// retryHeldM2 re-attempts a response that could not be pushed out on a
// prior tick because cacheresp_rdy was false (spec.md §4.1's stall
// network). M1 and M0 do not advance while this is outstanding.
func (c *Cache) retryHeldM2() {
	held := *c.heldM1
	c.heldM1 = nil
	c.completeM1(held)
}

// completeM1 pushes m1's response and, only once that push succeeds,
// commits the corresponding data-array write — keeping a failed push
// idempotent to retry (spec.md §4.7: "the cache must not drop data").
func (c *Cache) completeM1(m1 M1Reg) {
	switch m1.State {
	case CleanHit:
		return

	case InitReq:
		if !c.CacheRespOut.Push(message.CacheResp{Type: m1.Req.Type, Opaque: m1.Req.Opaque}) {
			c.heldM1 = &m1
			return
		}
		c.data.WriteLine(m1.Way, m1.Fields.Index, m1.ReplicatedData, m1.WriteByteEnable)

	case ReadReq:
		if m1.Req.Type == message.INV {
			if !c.CacheRespOut.Push(message.CacheResp{Type: message.INV, Opaque: m1.Req.Opaque}) {
				c.heldM1 = &m1
			}
			return
		}
		dataWidthBytes := c.cfg.DataWidth / 8
		data := extractSubword(m1.ReadLine, m1.Fields.Offset, m1.Req.Len, dataWidthBytes)
		if !c.CacheRespOut.Push(message.CacheResp{
			Type:   message.READ,
			Opaque: m1.Req.Opaque,
			Test:   message.TestHit,
			Len:    m1.Req.Len,
			Data:   data,
		}) {
			c.heldM1 = &m1
		}

	case WriteReq:
		if !c.CacheRespOut.Push(message.CacheResp{Type: message.WRITE, Opaque: m1.Req.Opaque, Test: message.TestHit}) {
			c.heldM1 = &m1
			return
		}
		c.data.WriteLine(m1.Way, m1.Fields.Index, m1.ReplicatedData, m1.WriteByteEnable)

	default:
		c.fatalf("stepM2 saw unexpected M1Reg state %v", m1.State)
	}
}
