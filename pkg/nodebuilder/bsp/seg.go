// Package bsp compiles a level snapshot into a binary space partition of
// convex subsectors.
package bsp

import (
	"math"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/snapshot"
)

// NoVertex marks a seg endpoint that was created by a split and has not been
// numbered yet.
const NoVertex = -1

// NoSeg marks a seg without a partner.
const NoSeg = -1

// Seg is a directed piece of one side of a linedef. The sector it belongs to
// lies in front of it.
type Seg struct {
	Start geom.Vec2
	End   geom.Vec2

	// Indices into Tree.Vertices.
	StartVertex int
	EndVertex   int

	Linedef  int
	Side     snapshot.Side
	Sector   int
	TwoSided bool
	SelfRef  bool

	// Direction in radians, counter-clockwise from +x.
	Angle float64

	// Distance from the start of the linedef side to Start.
	Offset float64

	// Index into Tree.Segs of the seg covering the same stretch of the
	// linedef from the other side, NoSeg if there is none.
	Partner int

	// set once the seg's line has partitioned the branch holding it
	used bool
}

// Line returns the infinite line through the seg.
func (s *Seg) Line() geom.Line {
	return geom.LineThrough(s.Start, s.End)
}

// Length returns the seg length.
func (s *Seg) Length() float64 {
	return s.End.Sub(s.Start).Len()
}

// makeSegs turns every linedef into one seg per sidedef, front first.
// Zero length linedefs enclose nothing and are left out.
func makeSegs(snap *snapshot.Snapshot) []Seg {
	segs := make([]Seg, 0, snap.NumLinedefs()*2)

	for i := 0; i < snap.NumLinedefs(); i++ {
		if snap.ZeroLength(i) {
			continue
		}

		ld := snap.Linedef(i)
		p1, p2 := snap.LineEnds(i)
		twoSided := snap.TwoSided(i)
		selfRef := snap.SelfReferencing(i)

		segs = append(segs, Seg{
			Start:       p1,
			End:         p2,
			StartVertex: ld.Start,
			EndVertex:   ld.End,
			Linedef:     i,
			Side:        snapshot.FrontSide,
			Sector:      snap.SectorOf(i, snapshot.FrontSide),
			TwoSided:    twoSided,
			SelfRef:     selfRef,
			Angle:       angle(p1, p2),
			Partner:     NoSeg,
		})

		if twoSided {
			segs = append(segs, Seg{
				Start:       p2,
				End:         p1,
				StartVertex: ld.End,
				EndVertex:   ld.Start,
				Linedef:     i,
				Side:        snapshot.BackSide,
				Sector:      snap.SectorOf(i, snapshot.BackSide),
				TwoSided:    twoSided,
				SelfRef:     selfRef,
				Angle:       angle(p2, p1),
				Partner:     NoSeg,
			})
		}
	}

	return segs
}

func angle(a, b geom.Vec2) float64 {
	d := b.Sub(a)
	return math.Atan2(d[1], d[0])
}

// unused counts the segs that can still be chosen as a partition.
func unused(segs []Seg) int {
	n := 0
	for i := range segs {
		if !segs[i].used {
			n++
		}
	}
	return n
}
