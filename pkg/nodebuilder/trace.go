package nodebuilder

import (
	"math"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/bsp"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
)

// Trace captures the result of a line trace.
type Trace struct {
	// Fraction of the way to the destination the trace got, 1 when nothing
	// was in the way.
	Fraction float64
	EndPos   geom.Vec2

	// The wall that stopped the trace, -1 if none did.
	Linedef int
	// The leaf the wall is in, -1 if none.
	Leaf int
}

// lineTrace is the state shared by one TraceLine descent.
type lineTrace struct {
	origin      geom.Vec2
	destination geom.Vec2

	eps float64
	// eps as a fraction of the trace length
	pad float64

	out *Trace
}

// IsVisible returns true if destination can be seen from origin. Only
// one-sided walls block sight.
func (c *Compiled) IsVisible(origin, destination geom.Vec2) bool {
	return c.TraceLine(origin, destination).Fraction >= 1
}

// TraceLine follows the line from origin to destination through the BSP
// tree, nearest leaves first, and stops at the first one-sided wall. Walls
// are Epsilon thick: passing that close to the end of a wall, or running
// along a wall, counts as touching it.
func (c *Compiled) TraceLine(origin, destination geom.Vec2) *Trace {
	out := &Trace{
		Fraction: 1,
		Linedef:  -1,
		Leaf:     -1,
	}

	length := destination.Sub(origin).Len()
	if length == 0 {
		out.EndPos = destination
		return out
	}

	eps := c.Config.Epsilon
	if eps <= 0 {
		eps = geom.DefaultEpsilon
	}

	lt := &lineTrace{
		origin:      origin,
		destination: destination,
		eps:         eps,
		pad:         eps / length,
		out:         out,
	}

	c.traceNode(c.Tree.Root, 0, 1, origin, destination, lt)

	if out.Fraction < 1 {
		out.EndPos = geom.Lerp(origin, destination, out.Fraction)
	} else {
		out.EndPos = destination
	}

	return out
}

func (c *Compiled) traceNode(child bsp.Child, startFraction, endFraction float64,
	start, end geom.Vec2, lt *lineTrace,
) {
	if lt.out.Fraction < startFraction-lt.pad {
		return
	}

	if child.IsLeaf() {
		c.traceLeaf(child.Index(), startFraction, endFraction, start, end, lt)
		return
	}

	node := &c.Tree.Nodes[child]

	startDistance := node.Line.Distance(start)
	endDistance := node.Line.Distance(end)

	near, far := node.Front, node.Back
	if startDistance < 0 {
		near, far = far, near
	}

	switch {
	case startDistance >= lt.eps && endDistance >= lt.eps:
		c.traceNode(node.Front, startFraction, endFraction, start, end, lt)
	case startDistance <= -lt.eps && endDistance <= -lt.eps:
		c.traceNode(node.Back, startFraction, endFraction, start, end, lt)
	case math.Abs(startDistance) >= lt.eps && math.Abs(endDistance) >= lt.eps:
		fraction := startDistance / (startDistance - endDistance)
		fractionMiddle := startFraction + (endFraction-startFraction)*fraction
		middle := geom.Lerp(start, end, fraction)

		c.traceNode(near, startFraction, fractionMiddle, start, middle, lt)
		c.traceNode(far, fractionMiddle, endFraction, middle, end, lt)
	default:
		// an end within eps of the line, walls on it may sit on either side
		c.traceNode(near, startFraction, endFraction, start, end, lt)
		c.traceNode(far, startFraction, endFraction, start, end, lt)
	}
}

// traceLeaf tests the leaf's walls against the whole trace line and keeps
// contacts inside the part of the trace that crosses this leaf.
func (c *Compiled) traceLeaf(index int, startFraction, endFraction float64,
	start, end geom.Vec2, lt *lineTrace,
) {
	leaf := &c.Tree.Leaves[index]

	if !geom.SegmentIntersectsBox(start, end.Sub(start), leaf.BBox.Inflate(lt.eps)).Hit {
		return
	}

	from := math.Max(startFraction-lt.pad, 0)
	to := math.Min(endFraction+lt.pad, 1)

	for i := range leaf.Segs {
		seg := &leaf.Segs[i]
		if seg.TwoSided {
			continue
		}

		lo, hi, ok := geom.LineContact(lt.origin, lt.destination, seg.Start, seg.End, lt.eps)
		if !ok || hi < from || lo > to {
			continue
		}

		fraction := math.Max(lo, from)
		if fraction < lt.out.Fraction {
			lt.out.Fraction = fraction
			lt.out.Linedef = seg.Linedef
			lt.out.Leaf = index
		}
	}
}
