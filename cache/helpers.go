package cache

// Address/word helper functions (spec.md §4.4): pure combinational
// transforms with no register state, mirroring the teacher's ExecuteStage
// ALU switch (stages.go) in that each is a small, table-driven function of
// its inputs only.

// addrFields is the {offset, index, tag} split of an address (GLOSSARY).
type addrFields struct {
	Offset int
	Index  int
	Tag    uint64
}

// decodeAddr splits addr into offset/index/tag fields per the derived
// geometry.
func decodeAddr(addr uint64, d Derived) addrFields {
	offsetMask := uint64(d.LineBytes - 1)
	offset := int(addr & offsetMask)

	index := 0
	if d.IndexBits > 0 {
		indexMask := uint64((1 << uint(d.IndexBits)) - 1)
		index = int((addr >> uint(d.OffsetBits)) & indexMask)
	}

	tag := addr >> uint(d.OffsetBits+d.IndexBits)
	return addrFields{Offset: offset, Index: index, Tag: tag}
}

// lenByteMask returns the len-dependent byte mask before offset shifting,
// one entry per line byte with 0xFF marking an enabled byte: the first
// dataWidthBytes bytes for a full dbw word (len=0), the first len bytes for
// a byte/half-word/word, or every byte for a full-line (len=clw/8) transfer.
func lenByteMask(len, dataWidthBytes, lineBytes int) []byte {
	n := lineBytes
	mask := make([]byte, n)
	switch {
	case len == 0:
		for i := 0; i < dataWidthBytes && i < n; i++ {
			mask[i] = 0xFF
		}
	case len == lineBytes:
		for i := range mask {
			mask[i] = 0xFF
		}
	default:
		for i := 0; i < len && i < n; i++ {
			mask[i] = 0xFF
		}
	}
	return mask
}

// writeByteEnable builds the data-array write-byte-enable for a WRITE
// request: the len-dependent mask left-shifted (byte-wise) by offset so it
// aligns to the target subword (spec.md §4.1, M1 stage).
func writeByteEnable(reqLen, offset, dataWidthBytes, lineBytes int) []byte {
	base := lenByteMask(reqLen, dataWidthBytes, lineBytes)
	shifted := make([]byte, lineBytes)
	for i, b := range base {
		if b == 0 {
			continue
		}
		j := i + offset
		if j < lineBytes {
			shifted[j] = 0xFF
		}
	}
	return shifted
}

// allOnesMask returns a lineBytes-wide all-ones mask, used for REFILL and
// REPLAY_READ line installs. The mask is applied as is; no dirty-word
// bitmap restricts it.
func allOnesMask(lineBytes int) []byte {
	m := make([]byte, lineBytes)
	for i := range m {
		m[i] = 0xFF
	}
	return m
}

// replicate produces a clw-wide value (as a byte slice) from a dbw/subword
// write so that, combined with writeByteEnable, the word lands at the
// correct offset. For len=0 (full word) the dbw-wide value is replicated
// starting at every dataWidthBytes boundary; for len=1/2 the byte/half-word
// is replicated across the line. Combined with the byte-enable mask, only
// the bytes at the true offset are ever committed, so replication beyond
// the target subword is inert — it exists so a single masked write covers
// the line uniformly regardless of where offset lands.
func replicate(data uint64, reqLen, dataWidthBytes, lineBytes int) []byte {
	out := make([]byte, lineBytes)
	unit := reqLen
	if unit == 0 {
		unit = dataWidthBytes
	}
	word := make([]byte, unit)
	for i := 0; i < unit; i++ {
		word[i] = byte(data >> uint(8*i))
	}
	for i := 0; i < lineBytes; i += unit {
		copy(out[i:], word)
	}
	return out
}

// extractSubword extracts a len-sized (or dataWidthBytes-sized, if len==0)
// subword from a full line read at offset, zero-extended into a uint64
// (spec.md §4.4, M2 data-size mux).
func extractSubword(line []byte, offset, reqLen, dataWidthBytes int) uint64 {
	n := reqLen
	if n == 0 {
		n = dataWidthBytes
	}
	var v uint64
	for i := 0; i < n && offset+i < len(line); i++ {
		v |= uint64(line[offset+i]) << uint(8*i)
	}
	return v
}

// dirtyWordsToByteMask expands a per-word dirty bitmap to a per-byte mask
// at cacheline granularity, used for the MemReq.WrMask of evict and FLUSH
// writebacks. REFILL does not use it: a refill installs the fetched line
// unmasked.
func dirtyWordsToByteMask(dirty uint64, wordsPerLine, dataWidthBytes, lineBytes int) []byte {
	m := make([]byte, lineBytes)
	for w := 0; w < wordsPerLine; w++ {
		if dirty&(1<<uint(w)) == 0 {
			continue
		}
		start := w * dataWidthBytes
		for i := 0; i < dataWidthBytes && start+i < lineBytes; i++ {
			m[start+i] = 0xFF
		}
	}
	return m
}

// wordIndexOf returns which dbw-wide word within a line the given byte
// offset falls in.
func wordIndexOf(offset, dataWidthBytes int) int {
	return offset / dataWidthBytes
}

// blockAddr reassembles a block-aligned address from a tag and index, the
// inverse of decodeAddr's {tag, index} half (offset is always 0 for a
// memory-side line request). Used to rebuild the address for an evict or
// flush writeback, where only the tag array's {way, index} are at hand.
func blockAddr(tag uint64, index int, d Derived) uint64 {
	return (tag << uint(d.OffsetBits+d.IndexBits)) | (uint64(index) << uint(d.OffsetBits))
}
