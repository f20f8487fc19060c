package geom

import "math"

// RayCastResult is the outcome of intersecting the segment origin->origin+direction
// with a shape. T is the fraction along the segment at the first contact.
type RayCastResult struct {
	T     float64
	Hit   bool
	Point Vec2
}

// SegmentIntersectsBox determines whether the segment from origin to
// origin+direction touches the closed box, using the slab test.
func SegmentIntersectsBox(origin, direction Vec2, box BBox) (r RayCastResult) {
	if box.IsEmpty() {
		return r
	}

	tmin, tmax := 0.0, 1.0

	for i := 0; i < 2; i++ {
		if direction[i] == 0 {
			// parallel to this slab, must already be inside it
			if origin[i] < box.Min[i] || origin[i] > box.Max[i] {
				return r
			}
			continue
		}

		t1 := (box.Min[i] - origin[i]) / direction[i]
		t2 := (box.Max[i] - origin[i]) / direction[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)

		if tmin > tmax {
			return r
		}
	}

	r.Hit = true
	r.T = tmin
	r.Point = origin.Add(direction.Mul(tmin))

	return r
}

// LineContact returns the fractions along p1->p2 at which the line through
// p1 and p2 meets the segment q1-q2, whose ends are extended by eps. A
// crossing yields lo == hi. A segment lying on the line within eps yields
// the range of fractions it covers. The fractions are not limited to [0, 1].
func LineContact(p1, p2, q1, q2 Vec2, eps float64) (lo, hi float64, ok bool) {
	r := p2.Sub(p1)
	s := q2.Sub(q1)

	rr := r.Dot(r)
	sl := s.Len()
	if rr == 0 || sl == 0 {
		return 0, 0, false
	}

	qp := q1.Sub(p1)
	rl := math.Sqrt(rr)

	if math.Abs(Cross(r, qp))/rl <= eps && math.Abs(Cross(r, q2.Sub(p1)))/rl <= eps {
		lo = qp.Dot(r) / rr
		hi = q2.Sub(p1).Dot(r) / rr
		if lo > hi {
			lo, hi = hi, lo
		}
		return lo, hi, true
	}

	denom := Cross(r, s)
	if denom == 0 {
		return 0, 0, false
	}

	t := Cross(qp, s) / denom
	u := Cross(qp, r) / denom

	pad := eps / sl
	if u < -pad || u > 1+pad {
		return 0, 0, false
	}

	return t, t, true
}
