package bsp

import (
	"math"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
)

// Class is where a seg ends up relative to a partition line.
type Class int

const (
	ClassFront Class = iota
	ClassBack
	// On the partition line, facing the same way.
	ClassCollinearFront
	// On the partition line, facing the other way.
	ClassCollinearBack
	// Crosses the line and has to be cut in two.
	ClassSplit
)

func (c Class) String() string {
	switch c {
	case ClassFront:
		return "front"
	case ClassBack:
		return "back"
	case ClassCollinearFront:
		return "collinear front"
	case ClassCollinearBack:
		return "collinear back"
	case ClassSplit:
		return "split"
	default:
		return "unknown"
	}
}

// Front reports whether a seg of this class belongs entirely to the front set.
func (c Class) Front() bool {
	return c == ClassFront || c == ClassCollinearFront
}

// Collinear reports whether the seg lies on the partition line.
func (c Class) Collinear() bool {
	return c == ClassCollinearFront || c == ClassCollinearBack
}

// Classify places s against the partition. For ClassSplit it also returns
// the fraction along s at which the partition crosses it.
func Classify(partition geom.Line, s *Seg, eps float64) (Class, float64) {
	ds := partition.Distance(s.Start)
	de := partition.Distance(s.End)

	onStart := math.Abs(ds) <= eps
	onEnd := math.Abs(de) <= eps

	switch {
	case onStart && onEnd:
		if s.End.Sub(s.Start).Dot(partition.Dir) > 0 {
			return ClassCollinearFront, 0
		}
		return ClassCollinearBack, 0
	case ds >= -eps && de >= -eps:
		return ClassFront, 0
	case ds <= eps && de <= eps:
		return ClassBack, 0
	}

	t := ds / (ds - de)
	p := geom.Lerp(s.Start, s.End, t)

	// a crossing this close to an endpoint would leave a zero length piece
	if geom.Equal(p, s.Start, eps) || geom.Equal(p, s.End, eps) {
		far := ds
		if math.Abs(de) > math.Abs(ds) {
			far = de
		}
		if far > 0 {
			return ClassFront, 0
		}
		return ClassBack, 0
	}

	return ClassSplit, t
}

// Split classifies s and, when the partition crosses it, cuts it at the
// crossing point. Both pieces share that exact point. For every other class
// the whole seg is returned on its side and the other result is the zero Seg.
func Split(partition geom.Line, s Seg, eps float64) (c Class, front, back Seg) {
	c, t := Classify(partition, &s, eps)

	switch c {
	case ClassFront, ClassCollinearFront:
		return c, s, back
	case ClassBack, ClassCollinearBack:
		return c, front, s
	}

	p := geom.Lerp(s.Start, s.End, t)

	first, second := s, s
	first.End = p
	first.EndVertex = NoVertex
	second.Start = p
	second.StartVertex = NoVertex
	second.Offset = s.Offset + p.Sub(s.Start).Len()

	if partition.Distance(s.Start) > 0 {
		return c, first, second
	}
	return c, second, first
}
