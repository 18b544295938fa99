package cache

import (
	"github.com/sarchlab/blockcache/cache/replacement"
	"github.com/sarchlab/blockcache/message"
)

// FunctionalCache is the byte-accurate reference model: a write-back cache
// over a simulated byte-addressed RAM that produces the expected response
// stream. It answers one request at a time with no ports, no ticks, and no
// memory round-trip latency — its own tag/dirty/data bookkeeping is private
// to this file rather than reusing TagArray/DataArray/Cache, so a test
// comparing the two implementations exercises two independent renditions
// of the cache's state handling.
//
// Config/Derived and the message wire types are shared, as are the pure
// address/data-path helpers (helpers.go), applyAMO, and the replacement
// policy: the two models differ in their bookkeeping, not in those
// functions.
type FunctionalCache struct {
	cfg     Config
	derived Derived
	repl    replacement.Policy

	valid [][]bool
	dirty [][]uint64 // per-word bitmap, [index][way]
	tag   [][]uint64
	data  [][][]byte // [index][way] -> line bytes

	mem map[uint64]byte // the simulated backing RAM, addressed byte by byte
}

// NewFunctional constructs a FunctionalCache with the same geometry cfg
// would give a pipelined Cache.
func NewFunctional(cfg Config) (*FunctionalCache, error) {
	derived, err := cfg.Derive()
	if err != nil {
		return nil, err
	}

	numSets := derived.LinesPerWay
	valid := make([][]bool, numSets)
	dirty := make([][]uint64, numSets)
	tag := make([][]uint64, numSets)
	data := make([][][]byte, numSets)
	for i := 0; i < numSets; i++ {
		valid[i] = make([]bool, cfg.Associativity)
		dirty[i] = make([]uint64, cfg.Associativity)
		tag[i] = make([]uint64, cfg.Associativity)
		data[i] = make([][]byte, cfg.Associativity)
		for w := range data[i] {
			data[i][w] = make([]byte, derived.LineBytes)
		}
	}

	return &FunctionalCache{
		cfg:     cfg,
		derived: derived,
		repl:    replacement.New(cfg.Associativity, numSets, derived.LineBytes),
		valid:   valid,
		dirty:   dirty,
		tag:     tag,
		data:    data,
		mem:     make(map[uint64]byte),
	}, nil
}

// PokeMem seeds the simulated backing RAM at addr, for tests that need to
// arrange the state memory held before a cold miss.
func (f *FunctionalCache) PokeMem(addr uint64, b []byte) {
	for i, v := range b {
		f.mem[addr+uint64(i)] = v
	}
}

func (f *FunctionalCache) lineFromMem(addr uint64) []byte {
	line := make([]byte, f.derived.LineBytes)
	base := addr &^ uint64(f.derived.LineBytes-1)
	for i := range line {
		line[i] = f.mem[base+uint64(i)]
	}
	return line
}

func (f *FunctionalCache) writeLineToMem(addr uint64, line []byte) {
	base := addr &^ uint64(f.derived.LineBytes-1)
	for i, b := range line {
		f.mem[base+uint64(i)] = b
	}
}

func (f *FunctionalCache) lookup(fields addrFields) (way int, hit bool) {
	for w := 0; w < f.cfg.Associativity; w++ {
		if f.valid[fields.Index][w] && f.tag[fields.Index][w] == fields.Tag {
			return w, true
		}
	}
	return -1, false
}

// evictIfDirty writes way's current line back to memory if it is valid and
// holds dirty data, per the same write-back discipline the pipelined model
// follows: a line whose valid bit was cleared by INV is not written back.
func (f *FunctionalCache) evictIfDirty(index, way int) {
	if !f.valid[index][way] || f.dirty[index][way] == 0 {
		return
	}
	victimAddr := blockAddr(f.tag[index][way], index, f.derived)
	f.writeLineToMem(victimAddr, f.data[index][way])
	f.dirty[index][way] = 0
}

// install brings addr's line into way, fetching from memory (write-allocate
// on a READ/WRITE miss).
func (f *FunctionalCache) install(index, way int, addr uint64, tag uint64) {
	line := f.lineFromMem(addr)
	f.data[index][way] = line
	f.valid[index][way] = true
	f.tag[index][way] = tag
	f.dirty[index][way] = 0
}

func (f *FunctionalCache) dataWidthBytes() int { return f.cfg.DataWidth / 8 }

// Do answers one request synchronously, returning exactly the CacheResp a
// correct pipelined Cache must eventually produce for the same request
// sequence (spec.md §8 invariant 3, "functional equivalence to an idealized
// memory").
func (f *FunctionalCache) Do(req message.CacheReq) message.CacheResp {
	switch {
	case req.Type == message.INV:
		return f.doInv(req)
	case req.Type == message.FLUSH:
		return f.doFlush(req)
	case req.Type == message.WriteInit:
		return f.doInit(req)
	case req.Type.IsAMO():
		return f.doAmo(req)
	case req.Type == message.WRITE:
		return f.doWrite(req)
	default:
		return f.doRead(req)
	}
}

func (f *FunctionalCache) doRead(req message.CacheReq) message.CacheResp {
	fields := decodeAddr(req.Addr, f.derived)
	way, hit := f.lookup(fields)
	test := message.TestMiss
	if !hit {
		way = f.repl.NextVictim(fields.Index)
		f.evictIfDirty(fields.Index, way)
		f.install(fields.Index, way, req.Addr, fields.Tag)
	} else {
		test = message.TestHit
	}
	f.repl.Update(fields.Index, way, hit)

	data := extractSubword(f.data[fields.Index][way], fields.Offset, req.Len, f.dataWidthBytes())
	return message.CacheResp{Type: message.READ, Opaque: req.Opaque, Test: test, Len: req.Len, Data: data}
}

func (f *FunctionalCache) doWrite(req message.CacheReq) message.CacheResp {
	fields := decodeAddr(req.Addr, f.derived)
	way, hit := f.lookup(fields)
	test := message.TestMiss
	if !hit {
		way = f.repl.NextVictim(fields.Index)
		f.evictIfDirty(fields.Index, way)
		f.install(fields.Index, way, req.Addr, fields.Tag)
	} else {
		test = message.TestHit
	}
	f.repl.Update(fields.Index, way, true)

	dataWidthBytes := f.dataWidthBytes()
	wben := writeByteEnable(req.Len, fields.Offset, dataWidthBytes, f.derived.LineBytes)
	wdata := replicate(req.Data, req.Len, dataWidthBytes, f.derived.LineBytes)
	for i, m := range wben {
		if m != 0 {
			f.data[fields.Index][way][i] = wdata[i]
		}
	}
	f.dirty[fields.Index][way] |= wordDirtyMask(fields.Offset, req.Len, dataWidthBytes, f.derived.WordsPerLine)

	return message.CacheResp{Type: message.WRITE, Opaque: req.Opaque, Test: test}
}

// wordDirtyMask returns the per-word dirty bits a write of reqLen bytes at
// offset touches (covering more than one word for a full-line WRITE_INIT,
// which this helper also serves).
func wordDirtyMask(offset, reqLen, dataWidthBytes, wordsPerLine int) uint64 {
	n := reqLen
	if n == 0 {
		n = dataWidthBytes
	}
	first := offset / dataWidthBytes
	last := (offset + n - 1) / dataWidthBytes
	var mask uint64
	for w := first; w <= last && w < wordsPerLine; w++ {
		mask |= 1 << uint(w)
	}
	return mask
}

func (f *FunctionalCache) doInit(req message.CacheReq) message.CacheResp {
	fields := decodeAddr(req.Addr, f.derived)
	way, hit := f.lookup(fields)
	if !hit {
		way = f.repl.NextVictim(fields.Index)
	}

	dataWidthBytes := f.dataWidthBytes()
	wben := writeByteEnable(req.Len, fields.Offset, dataWidthBytes, f.derived.LineBytes)
	wdata := replicate(req.Data, req.Len, dataWidthBytes, f.derived.LineBytes)
	for i, m := range wben {
		if m != 0 {
			f.data[fields.Index][way][i] = wdata[i]
		}
	}
	f.valid[fields.Index][way] = true
	f.tag[fields.Index][way] = fields.Tag
	f.dirty[fields.Index][way] = wordDirtyMask(fields.Offset, req.Len, dataWidthBytes, f.derived.WordsPerLine)
	f.repl.Update(fields.Index, way, hit)

	return message.CacheResp{Type: message.WriteInit, Opaque: req.Opaque}
}

func (f *FunctionalCache) doAmo(req message.CacheReq) message.CacheResp {
	fields := decodeAddr(req.Addr, f.derived)
	way, hit := f.lookup(fields)
	if !hit {
		way = f.repl.NextVictim(fields.Index)
		f.evictIfDirty(fields.Index, way)
		f.install(fields.Index, way, req.Addr, fields.Tag)
	}
	f.repl.Update(fields.Index, way, hit)

	dataWidthBytes := f.dataWidthBytes()
	line := f.data[fields.Index][way]
	preOp := extractSubword(line, fields.Offset, dataWidthBytes, dataWidthBytes)
	postOp := applyAMO(req.Type, preOp, req.Data, f.cfg.DataWidth)
	for i := 0; i < dataWidthBytes && fields.Offset+i < len(line); i++ {
		line[fields.Offset+i] = byte(postOp >> uint(8*i))
	}
	word := wordIndexOf(fields.Offset, dataWidthBytes)
	f.dirty[fields.Index][way] |= 1 << uint(word)

	test := message.TestMiss
	if hit {
		test = message.TestAmoHit
	}
	return message.CacheResp{Type: req.Type, Opaque: req.Opaque, Test: test, Data: preOp}
}

func (f *FunctionalCache) doInv(req message.CacheReq) message.CacheResp {
	for index := range f.valid {
		for way := range f.valid[index] {
			f.valid[index][way] = false
		}
	}
	return message.CacheResp{Type: message.INV, Opaque: req.Opaque}
}

func (f *FunctionalCache) doFlush(req message.CacheReq) message.CacheResp {
	for index := range f.dirty {
		for way := range f.dirty[index] {
			if f.dirty[index][way] == 0 {
				continue
			}
			addr := blockAddr(f.tag[index][way], index, f.derived)
			f.writeLineToMem(addr, f.data[index][way])
			f.dirty[index][way] = 0
		}
	}
	return message.CacheResp{Type: message.FLUSH, Opaque: req.Opaque}
}
