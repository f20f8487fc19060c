package geom

import "math"

// Side is the classification of a point against a Line.
type Side int

const (
	On Side = iota
	Front
	Back
)

func (s Side) String() string {
	switch s {
	case Front:
		return "front"
	case Back:
		return "back"
	default:
		return "on"
	}
}

// Line is an infinite directed line. The front is the right-hand side when
// looking along Dir, matching the side a linedef's front sidedef faces.
type Line struct {
	Origin Vec2
	Dir    Vec2
}

// LineThrough returns the line from a towards b.
func LineThrough(a, b Vec2) Line {
	return Line{Origin: a, Dir: b.Sub(a)}
}

// Degenerate reports whether the line has no direction.
func (l Line) Degenerate() bool {
	return l.Dir[0] == 0 && l.Dir[1] == 0
}

// Dot returns (p - origin) . perp(dir), positive in front. It is not
// normalized, use Distance for comparisons against an epsilon.
func (l Line) Dot(p Vec2) float64 {
	return p.Sub(l.Origin).Dot(Perp(l.Dir))
}

// Distance returns the signed perpendicular distance of p from the line.
func (l Line) Distance(p Vec2) float64 {
	n := l.Dir.Len()
	if n == 0 {
		return 0
	}
	return l.Dot(p) / n
}

// Side classifies p, treating points closer than eps as lying on the line.
func (l Line) Side(p Vec2, eps float64) Side {
	d := l.Distance(p)
	switch {
	case math.Abs(d) <= eps:
		return On
	case d > 0:
		return Front
	default:
		return Back
	}
}

// InFront is the renderer's half-plane test: points on the line count as front.
func (l Line) InFront(p Vec2) bool {
	return l.Dot(p) >= 0
}
