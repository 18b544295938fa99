package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config.Derive", func() {
	It("derives the direct-mapped default's geometry", func() {
		d, err := DefaultDirectMappedConfig().Derive()
		Expect(err).NotTo(HaveOccurred())
		Expect(d.LineBytes).To(Equal(16))
		Expect(d.OffsetBits).To(Equal(4))
		Expect(d.LinesPerWay).To(Equal(64))
		Expect(d.IndexBits).To(Equal(6))
		Expect(d.WordsPerLine).To(Equal(4))
		Expect(d.TagBits).To(Equal(32 - 6 - 4))
	})

	It("derives the set-associative default's geometry with halved lines-per-way", func() {
		d, err := DefaultSetAssociativeConfig().Derive()
		Expect(err).NotTo(HaveOccurred())
		Expect(d.LinesPerWay).To(Equal(32))
		Expect(d.IndexBits).To(Equal(5))
	})

	It("accepts the L1 and L2 presets", func() {
		_, err := DefaultL1Config().Derive()
		Expect(err).NotTo(HaveOccurred())
		_, err = DefaultL2Config().Derive()
		Expect(err).NotTo(HaveOccurred())
	})

	It("rejects a line width that is not byte-aligned", func() {
		cfg := DefaultDirectMappedConfig()
		cfg.LineWidth = 20
		_, err := cfg.Derive()
		Expect(err).To(HaveOccurred())
	})

	It("rejects a line size that is not a power of two", func() {
		cfg := DefaultDirectMappedConfig()
		cfg.LineWidth = 24 * 8
		_, err := cfg.Derive()
		Expect(err).To(HaveOccurred())
	})

	It("rejects an associativity that is neither 1 nor a power of two", func() {
		cfg := DefaultDirectMappedConfig()
		cfg.Associativity = 3
		_, err := cfg.Derive()
		Expect(err).To(HaveOccurred())
	})

	It("rejects a line width that isn't a multiple of the data width", func() {
		cfg := DefaultDirectMappedConfig()
		cfg.LineWidth = 16 // 2B lines: byte-aligned and a power of two, but narrower than a 32-bit word
		_, err := cfg.Derive()
		Expect(err).To(HaveOccurred())
	})

	It("rejects a size that does not divide evenly across ways", func() {
		cfg := DefaultDirectMappedConfig()
		cfg.SizeBytes = 1000
		_, err := cfg.Derive()
		Expect(err).To(HaveOccurred())
	})

	It("rejects a lines-per-way that is not a power of two", func() {
		cfg := DefaultDirectMappedConfig()
		cfg.SizeBytes = 48 * 16 // 48 lines per way, not a power of two
		_, err := cfg.Derive()
		Expect(err).To(HaveOccurred())
	})

	It("rejects an address width too small for the derived index/offset bits", func() {
		cfg := DefaultDirectMappedConfig()
		cfg.AddrWidth = 8
		_, err := cfg.Derive()
		Expect(err).To(HaveOccurred())
	})

	It("allows zero index bits for a single-set cache", func() {
		cfg := DefaultDirectMappedConfig()
		cfg.SizeBytes = 16 // one line, one set, one way
		d, err := cfg.Derive()
		Expect(err).NotTo(HaveOccurred())
		Expect(d.LinesPerWay).To(Equal(1))
		Expect(d.IndexBits).To(Equal(0))
	})
})
