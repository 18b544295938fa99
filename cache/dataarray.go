package cache

// DataArray stores one cacheline per {way, index} cell, indexed the same
// way the teacher's timing/cache.Cache indexed its dataStore:
// way*linesPerWay + index (spec.md §4.3).
type DataArray struct {
	linesPerWay int
	lineBytes   int
	cells       [][]byte
}

// NewDataArray allocates a zeroed data array.
func NewDataArray(linesPerWay, associativity, lineBytes int) *DataArray {
	cells := make([][]byte, linesPerWay*associativity)
	for i := range cells {
		cells[i] = make([]byte, lineBytes)
	}
	return &DataArray{
		linesPerWay: linesPerWay,
		lineBytes:   lineBytes,
		cells:       cells,
	}
}

func (d *DataArray) cellIndex(way, index int) int {
	return way*d.linesPerWay + index
}

// ReadLine returns a copy of the full cacheline at {way, index}.
func (d *DataArray) ReadLine(way, index int) []byte {
	out := make([]byte, d.lineBytes)
	copy(out, d.cells[d.cellIndex(way, index)])
	return out
}

// WriteLine writes data into the cell at {way, index}, honoring wmask byte
// by byte: a cell byte is overwritten only where wmask[i] is non-zero.
// len(data) and len(wmask) must equal the line size.
func (d *DataArray) WriteLine(way, index int, data, wmask []byte) {
	cell := d.cells[d.cellIndex(way, index)]
	for i, m := range wmask {
		if m != 0 {
			cell[i] = data[i]
		}
	}
}

// LineBytes returns the cacheline size in bytes.
func (d *DataArray) LineBytes() int { return d.lineBytes }
