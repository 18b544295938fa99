package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/blockcache/message"
)

var _ = Describe("decodeM0", func() {
	base := func() decodeM0Inputs {
		return decodeM0Inputs{FrontEnd: FEReady}
	}

	It("returns CACHE_INIT whenever the front end is in INIT, regardless of anything else", func() {
		in := base()
		in.FrontEnd = FEInit
		in.ReqValid = true
		in.MemRespValid = true
		Expect(decodeM0(in)).To(Equal(CacheInit))
	})

	It("prioritizes CLEAN_HIT over a pending request", func() {
		in := base()
		in.CleanHitPending = true
		in.ReqValid = true
		in.ReqType = message.WRITE
		Expect(decodeM0(in)).To(Equal(CleanHit))
	})

	It("returns REPLAY_WRITE when the FSM is REPLAY and the MSHR holds a WRITE", func() {
		in := base()
		in.FrontEnd = FEReplay
		in.MSHRFull = true
		in.MSHRType = message.WRITE
		Expect(decodeM0(in)).To(Equal(ReplayWrite))
	})

	It("returns INVALID when the FSM is REPLAY but the MSHR type is not WRITE", func() {
		in := base()
		in.FrontEnd = FEReplay
		in.MSHRFull = true
		in.MSHRType = message.READ
		Expect(decodeM0(in)).To(Equal(Invalid))
	})

	It("returns REFILL for a matching memresp against a WRITE-type MSHR entry", func() {
		in := base()
		in.MSHRFull = true
		in.MSHRType = message.WRITE
		in.MemRespValid = true
		in.MemRespForMSHR = true
		Expect(decodeM0(in)).To(Equal(Refill))
	})

	It("returns REPLAY_READ for a matching memresp against a non-WRITE MSHR entry", func() {
		in := base()
		in.MSHRFull = true
		in.MSHRType = message.READ
		in.MemRespValid = true
		in.MemRespForMSHR = true
		Expect(decodeM0(in)).To(Equal(ReplayRead))
	})

	It("returns WRITE_REQ for a fresh WRITE with the MSHR empty and nothing blocked", func() {
		in := base()
		in.ReqValid = true
		in.ReqType = message.WRITE
		Expect(decodeM0(in)).To(Equal(WriteReq))
	})

	It("returns INIT_REQ for a fresh WRITE_INIT", func() {
		in := base()
		in.ReqValid = true
		in.ReqType = message.WriteInit
		Expect(decodeM0(in)).To(Equal(InitReq))
	})

	It("buckets READ, every AMO, INV and FLUSH under READ_REQ", func() {
		for _, t := range []message.RequestType{
			message.READ, message.AmoAdd, message.AmoSwap, message.AmoXor, message.INV, message.FLUSH,
		} {
			in := base()
			in.ReqValid = true
			in.ReqType = t
			Expect(decodeM0(in)).To(Equal(ReadReq), "request type %s", t)
		}
	})

	It("returns INVALID when the MSHR is full even with a pending request", func() {
		in := base()
		in.MSHRFull = true
		in.ReqValid = true
		in.ReqType = message.READ
		Expect(decodeM0(in)).To(Equal(Invalid))
	})

	It("returns INVALID while Blocked (mid-eviction/mid-flush), even with an empty MSHR", func() {
		in := base()
		in.Blocked = true
		in.ReqValid = true
		in.ReqType = message.READ
		Expect(decodeM0(in)).To(Equal(Invalid))
	})

	It("returns INVALID when there is nothing to do", func() {
		Expect(decodeM0(base())).To(Equal(Invalid))
	})
})

var _ = Describe("decodeM2", func() {
	It("returns the zero decision whenever ports are not ready", func() {
		Expect(decodeM2(ReadReq, true, false, false)).To(Equal(m2Decision{}))
	})

	DescribeTable("bubble states never drive a memreq or cacheresp",
		func(state CtrlState) {
			Expect(decodeM2(state, false, false, true)).To(Equal(m2Decision{}))
		},
		Entry("INVALID", Invalid),
		Entry("CACHE_INIT", CacheInit),
		Entry("CLEAN_HIT", CleanHit),
	)

	It("REPLAY_READ drives a cacheresp sourced from the replayed memory data with the size mux enabled", func() {
		got := decodeM2(ReplayRead, false, false, true)
		Expect(got).To(Equal(m2Decision{CacheRespEn: true, SizeMuxEn: true}))
	})

	It("REPLAY_WRITE drives only a cacheresp", func() {
		got := decodeM2(ReplayWrite, false, false, true)
		Expect(got).To(Equal(m2Decision{CacheRespEn: true}))
	})

	It("INIT_REQ drives only a cacheresp", func() {
		got := decodeM2(InitReq, false, false, true)
		Expect(got).To(Equal(m2Decision{CacheRespEn: true}))
	})

	It("READ_REQ on an evict issues a WRITE memreq sourced from the data array", func() {
		got := decodeM2(ReadReq, false, true, true)
		Expect(got).To(Equal(m2Decision{MemReqType: message.WRITE, MemReqEn: true, DataArrayMux: true}))
	})

	It("READ_REQ on a hit drives a cacheresp with the size mux enabled", func() {
		got := decodeM2(ReadReq, true, false, true)
		Expect(got).To(Equal(m2Decision{CacheRespEn: true, DataArrayMux: true, SizeMuxEn: true}))
	})

	It("READ_REQ on a clean miss issues a READ memreq", func() {
		got := decodeM2(ReadReq, false, false, true)
		Expect(got).To(Equal(m2Decision{MemReqType: message.READ, MemReqEn: true}))
	})

	It("WRITE_REQ on a hit drives only a cacheresp (no size mux: full word only)", func() {
		got := decodeM2(WriteReq, true, false, true)
		Expect(got).To(Equal(m2Decision{CacheRespEn: true}))
	})

	It("WRITE_REQ on an evict issues a WRITE memreq sourced from the data array", func() {
		got := decodeM2(WriteReq, false, true, true)
		Expect(got).To(Equal(m2Decision{MemReqType: message.WRITE, MemReqEn: true, DataArrayMux: true}))
	})

	It("WRITE_REQ on a clean miss issues a READ memreq (write-allocate fetches first)", func() {
		got := decodeM2(WriteReq, false, false, true)
		Expect(got).To(Equal(m2Decision{MemReqType: message.READ, MemReqEn: true}))
	})
})
