package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/blockcache/cache"
	"github.com/sarchlab/blockcache/message"
)

var _ = Describe("FunctionalCache", func() {
	var f *cache.FunctionalCache

	BeforeEach(func() {
		var err error
		f, err = cache.NewFunctional(cache.DefaultDirectMappedConfig())
		Expect(err).NotTo(HaveOccurred())
	})

	It("misses a cold read and returns the backing memory's word", func() {
		f.PokeMem(0x100, []byte{0x01, 0x02, 0x03, 0x04})
		resp := f.Do(message.CacheReq{Type: message.READ, Opaque: 1, Addr: 0x100})
		Expect(resp.Test).To(Equal(message.TestMiss))
		Expect(resp.Data).To(Equal(uint64(0x04030201)))
	})

	It("hits a line written by an earlier WRITE", func() {
		f.Do(message.CacheReq{Type: message.WRITE, Opaque: 1, Addr: 0x200, Data: 0xDEADBEEF})
		resp := f.Do(message.CacheReq{Type: message.READ, Opaque: 2, Addr: 0x200})
		Expect(resp.Test).To(Equal(message.TestHit))
		Expect(resp.Data).To(Equal(uint64(0xDEADBEEF)))
	})

	It("writes back a dirty victim on a conflicting-tag eviction", func() {
		const addr1, addr2 = uint64(0x000), uint64(0x400)
		f.Do(message.CacheReq{Type: message.WRITE, Opaque: 1, Addr: addr1, Data: 0xAAAA5555})
		f.Do(message.CacheReq{Type: message.WRITE, Opaque: 2, Addr: addr2, Data: 0x12345678})

		resp := f.Do(message.CacheReq{Type: message.READ, Opaque: 3, Addr: addr1})
		Expect(resp.Test).To(Equal(message.TestMiss))
		Expect(resp.Data).To(Equal(uint64(0xAAAA5555)))
	})

	It("completes an AMO_ADD, returning the pre-op value", func() {
		f.PokeMem(0x500, []byte{10, 0, 0, 0})
		resp := f.Do(message.CacheReq{Type: message.AmoAdd, Opaque: 1, Addr: 0x500, Data: 5})
		Expect(resp.Test).To(Equal(message.TestMiss))
		Expect(resp.Data).To(Equal(uint64(10)))

		resp2 := f.Do(message.CacheReq{Type: message.READ, Opaque: 2, Addr: 0x500})
		Expect(resp2.Test).To(Equal(message.TestHit))
		Expect(resp2.Data).To(Equal(uint64(15)))
	})

	It("reports AMO test=amo-hit when the target line was already resident", func() {
		f.Do(message.CacheReq{Type: message.WRITE, Opaque: 1, Addr: 0x600, Data: 1})
		resp := f.Do(message.CacheReq{Type: message.AmoAdd, Opaque: 2, Addr: 0x600, Data: 1})
		Expect(resp.Test).To(Equal(message.TestAmoHit))
		Expect(resp.Data).To(Equal(uint64(1)))
	})

	It("INV then READ observes a miss at the memory-visible value", func() {
		f.Do(message.CacheReq{Type: message.WRITE, Opaque: 1, Addr: 0x700, Data: 42})
		f.Do(message.CacheReq{Type: message.INV, Opaque: 2})
		resp := f.Do(message.CacheReq{Type: message.READ, Opaque: 3, Addr: 0x700})
		Expect(resp.Test).To(Equal(message.TestMiss))
		Expect(resp.Data).To(Equal(uint64(0)))
	})

	It("FLUSH writes every dirty line back to memory without disturbing residency", func() {
		f.Do(message.CacheReq{Type: message.WRITE, Opaque: 1, Addr: 0x800, Data: 0x99})
		f.Do(message.CacheReq{Type: message.FLUSH, Opaque: 2})

		resp := f.Do(message.CacheReq{Type: message.READ, Opaque: 3, Addr: 0x800})
		Expect(resp.Test).To(Equal(message.TestHit))
		Expect(resp.Data).To(Equal(uint64(0x99)))
	})

	It("subword WRITE_INIT installs unconditionally, bypassing tag compare", func() {
		resp := f.Do(message.CacheReq{Type: message.WriteInit, Opaque: 1, Addr: 0x280, Data: 0x7, Len: 4})
		Expect(resp.Type).To(Equal(message.WriteInit))
		got := f.Do(message.CacheReq{Type: message.READ, Opaque: 2, Addr: 0x280})
		Expect(got.Test).To(Equal(message.TestHit))
		Expect(got.Data).To(Equal(uint64(0x7)))
	})
})

// These request sequences are replayed through both the pipelined Cache and
// the FunctionalCache oracle, checking the processor-visible response stream
// agrees byte for byte — the cache's own functional-equivalence invariant.
var _ = Describe("Cache vs FunctionalCache", func() {
	type step struct {
		req    message.CacheReq
		seedAt uint64
		seed   []byte
	}

	run := func(steps []step) (pipelined, functional []message.CacheResp) {
		c, err := cache.New(cache.DefaultDirectMappedConfig())
		Expect(err).NotTo(HaveOccurred())
		f, err := cache.NewFunctional(cache.DefaultDirectMappedConfig())
		Expect(err).NotTo(HaveOccurred())
		mem := newFakeMemory()

		for _, s := range steps {
			if s.seed != nil {
				mem.poke(s.seedAt, s.seed)
				f.PokeMem(s.seedAt, s.seed)
			}
			pipelined = append(pipelined, submit(c, mem, s.req))
			functional = append(functional, f.Do(s.req))
		}
		return
	}

	It("agrees on a cold-miss / hit / evict / AMO / INV / FLUSH sequence", func() {
		steps := []step{
			{req: message.CacheReq{Type: message.READ, Opaque: 1, Addr: 0x100}, seedAt: 0x100, seed: []byte{1, 2, 3, 4}},
			{req: message.CacheReq{Type: message.WRITE, Opaque: 2, Addr: 0x200, Data: 0xCAFEF00D}},
			{req: message.CacheReq{Type: message.READ, Opaque: 3, Addr: 0x200}},
			{req: message.CacheReq{Type: message.WRITE, Opaque: 4, Addr: 0x000, Data: 0x11111111}},
			{req: message.CacheReq{Type: message.WRITE, Opaque: 5, Addr: 0x400, Data: 0x22222222}},
			{req: message.CacheReq{Type: message.READ, Opaque: 6, Addr: 0x000}},
			{req: message.CacheReq{Type: message.AmoAdd, Opaque: 7, Addr: 0x600, Data: 1}, seedAt: 0x600, seed: []byte{5, 0, 0, 0}},
			{req: message.CacheReq{Type: message.AmoAdd, Opaque: 8, Addr: 0x600, Data: 1}},
			{req: message.CacheReq{Type: message.INV, Opaque: 9}},
			{req: message.CacheReq{Type: message.READ, Opaque: 10, Addr: 0x600}},
			{req: message.CacheReq{Type: message.WRITE, Opaque: 11, Addr: 0x800, Data: 7}},
			{req: message.CacheReq{Type: message.FLUSH, Opaque: 12}},
			{req: message.CacheReq{Type: message.READ, Opaque: 13, Addr: 0x800}},
		}

		pipelined, functional := run(steps)
		Expect(pipelined).To(HaveLen(len(functional)))
		for i := range pipelined {
			Expect(pipelined[i].Type).To(Equal(functional[i].Type), "step %d", i)
			Expect(pipelined[i].Test).To(Equal(functional[i].Test), "step %d", i)
			Expect(pipelined[i].Data).To(Equal(functional[i].Data), "step %d", i)
		}
	})
})
