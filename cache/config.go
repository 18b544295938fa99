package cache

import (
	"fmt"
	"math/bits"
)

// Config holds the cache's construction-time parameters (spec.md §3).
type Config struct {
	// AddrWidth is the address width (abw) in bits, typically 32.
	AddrWidth int
	// DataWidth is the processor-side data word width (dbw) in bits,
	// typically 32.
	DataWidth int
	// OpaqueWidth is the opaque/id width (obw) in bits, typically 8.
	OpaqueWidth int
	// LineWidth is the cacheline width (clw) in bits: 64, 128, or 256.
	LineWidth int
	// SizeBytes is the total cache capacity in bytes.
	SizeBytes int
	// Associativity is the number of ways (A): 1 or a power of two.
	Associativity int
}

// DefaultDirectMappedConfig returns a small, direct-mapped (A=1)
// configuration suitable as a baseline for unit tests: 32-bit addresses,
// 32-bit words, 128-bit (16B) lines, 1KB capacity.
func DefaultDirectMappedConfig() Config {
	return Config{
		AddrWidth:     32,
		DataWidth:     32,
		OpaqueWidth:   8,
		LineWidth:     128,
		SizeBytes:     1024,
		Associativity: 1,
	}
}

// DefaultSetAssociativeConfig returns a 2-way set-associative configuration
// with the same geometry as DefaultDirectMappedConfig otherwise.
func DefaultSetAssociativeConfig() Config {
	cfg := DefaultDirectMappedConfig()
	cfg.Associativity = 2
	return cfg
}

// DefaultL1Config returns an L1-like preset: 32-bit addresses/words, 64B
// (512-bit) lines, 32KB capacity, 4-way — geometry in the same spirit as
// the teacher's timing/cache.DefaultL1DConfig, scaled down to keep unit
// tests fast.
func DefaultL1Config() Config {
	return Config{
		AddrWidth:     32,
		DataWidth:     32,
		OpaqueWidth:   8,
		LineWidth:     512,
		SizeBytes:     32 * 1024,
		Associativity: 4,
	}
}

// DefaultL2Config returns an L2-like preset: wider lines, higher
// associativity, larger capacity, in the same spirit as the teacher's
// timing/cache.DefaultL2Config.
func DefaultL2Config() Config {
	return Config{
		AddrWidth:     32,
		DataWidth:     32,
		OpaqueWidth:   8,
		LineWidth:     1024,
		SizeBytes:     256 * 1024,
		Associativity: 8,
	}
}

// Derived holds the address/line geometry derived from a Config.
type Derived struct {
	// OffsetBits (ofw) is log2(clw/8).
	OffsetBits int
	// IndexBits (ixw) is log2(N), N = lines per way.
	IndexBits int
	// TagBits (tgw) is abw - ixw - ofw.
	TagBits int
	// LinesPerWay (N) is SizeBytes / (Associativity * clw/8).
	LinesPerWay int
	// WordsPerLine (D) is clw/dbw: the number of per-word dirty bits.
	WordsPerLine int
	// LineBytes is clw/8.
	LineBytes int
}

// Derive computes the address/line geometry implied by c, validating the
// construction-time preconditions spec.md §3 assumes (power-of-two widths,
// an associativity that divides evenly into the capacity, and at least one
// set and one word per line).
func (c Config) Derive() (Derived, error) {
	var d Derived

	if c.LineWidth%8 != 0 {
		return d, fmt.Errorf("cache: line width %d bits is not byte-aligned", c.LineWidth)
	}
	d.LineBytes = c.LineWidth / 8
	if !isPowerOfTwo(d.LineBytes) {
		return d, fmt.Errorf("cache: line size %dB is not a power of two", d.LineBytes)
	}
	d.OffsetBits = bits.Len(uint(d.LineBytes)) - 1

	if c.Associativity < 1 || !isPowerOfTwo(c.Associativity) {
		return d, fmt.Errorf("cache: associativity %d must be 1 or a power of two", c.Associativity)
	}
	if c.DataWidth <= 0 || c.LineWidth%c.DataWidth != 0 {
		return d, fmt.Errorf("cache: line width %d is not a multiple of data width %d", c.LineWidth, c.DataWidth)
	}
	d.WordsPerLine = c.LineWidth / c.DataWidth

	bytesPerWay := c.Associativity * d.LineBytes
	if bytesPerWay == 0 || c.SizeBytes%bytesPerWay != 0 {
		return d, fmt.Errorf("cache: size %dB does not divide evenly across %d ways of %dB lines",
			c.SizeBytes, c.Associativity, d.LineBytes)
	}
	d.LinesPerWay = c.SizeBytes / bytesPerWay
	if !isPowerOfTwo(d.LinesPerWay) {
		return d, fmt.Errorf("cache: lines per way %d is not a power of two", d.LinesPerWay)
	}
	if d.LinesPerWay > 1 {
		d.IndexBits = bits.Len(uint(d.LinesPerWay)) - 1
	}

	d.TagBits = c.AddrWidth - d.IndexBits - d.OffsetBits
	if d.TagBits <= 0 {
		return d, fmt.Errorf("cache: address width %d too small for %d index bits + %d offset bits",
			c.AddrWidth, d.IndexBits, d.OffsetBits)
	}

	return d, nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
