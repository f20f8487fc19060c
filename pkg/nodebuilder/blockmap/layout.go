package blockmap

import (
	"encoding/binary"
	"math"
)

// Terminator ends every cell list in a Layout.
const Terminator = -1

// Layout is the flat form of a blockmap: a row-major table with one offset
// per cell into Lists, where each cell's linedefs follow in ascending order
// up to a Terminator.
type Layout struct {
	OriginX  float64
	OriginY  float64
	CellSize float64
	Width    int32
	Height   int32
	Offsets  []int32
	Lists    []int32
}

// Flatten lays the blockmap out for consumers that want a single buffer.
// Cells with identical lists are not shared.
func (bm *Blockmap) Flatten() Layout {
	l := Layout{
		OriginX:  bm.OriginX,
		OriginY:  bm.OriginY,
		CellSize: bm.CellSize,
		Width:    int32(bm.Width),
		Height:   int32(bm.Height),
		Offsets:  make([]int32, len(bm.cells)),
	}

	for i, lines := range bm.cells {
		l.Offsets[i] = int32(len(l.Lists))
		for _, ld := range lines {
			l.Lists = append(l.Lists, int32(ld))
		}
		l.Lists = append(l.Lists, Terminator)
	}

	return l
}

// Cell reads the list of cell (cx, cy) back out of the layout.
func (l Layout) Cell(cx, cy int) []int32 {
	if cx < 0 || cy < 0 || cx >= int(l.Width) || cy >= int(l.Height) {
		return nil
	}

	var lines []int32
	for _, v := range l.Lists[l.Offsets[cy*int(l.Width)+cx]:] {
		if v == Terminator {
			break
		}
		lines = append(lines, v)
	}
	return lines
}

// MarshalBinary encodes the layout in little endian: origin x, origin y
// and cell size as float64, width, height, the offset count and the list
// length as int32, then the offsets and the lists.
func (l Layout) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 8*3+4*4+4*(len(l.Offsets)+len(l.Lists)))

	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(l.OriginX))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(l.OriginY))
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(l.CellSize))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(l.Width))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(l.Height))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(l.Offsets)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(l.Lists)))

	for _, v := range l.Offsets {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
	}
	for _, v := range l.Lists {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
	}

	return buf, nil
}
