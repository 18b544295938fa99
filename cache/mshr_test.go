package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/blockcache/message"
)

var _ = Describe("MSHR", func() {
	var m *MSHR

	BeforeEach(func() {
		m = &MSHR{}
	})

	It("starts empty", func() {
		Expect(m.Full()).To(BeFalse())
		Expect(m.Empty()).To(BeTrue())
	})

	It("becomes full after Alloc and returns the stored entry from Peek", func() {
		m.Alloc(MSHREntry{Type: message.READ, Opaque: 7, Addr: 0x40})
		Expect(m.Full()).To(BeTrue())
		Expect(m.Peek().Opaque).To(Equal(uint64(7)))
		Expect(m.Peek().Addr).To(Equal(uint64(0x40)))
	})

	It("returns to empty and hands back the entry on Dealloc", func() {
		m.Alloc(MSHREntry{Type: message.WRITE, Opaque: 3})
		e := m.Dealloc()
		Expect(e.Opaque).To(Equal(uint64(3)))
		Expect(m.Full()).To(BeFalse())
	})

	It("panics if allocated while already full", func() {
		m.Alloc(MSHREntry{Opaque: 1})
		Expect(func() { m.Alloc(MSHREntry{Opaque: 2}) }).To(Panic())
	})

	It("panics if deallocated while already empty", func() {
		Expect(func() { m.Dealloc() }).To(Panic())
	})
})
