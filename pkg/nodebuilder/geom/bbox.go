package geom

import "math"

// BBox is an axis-aligned bounding box. The zero value is a box around the
// origin; use EmptyBox for a box that grows from nothing.
type BBox struct {
	Min Vec2
	Max Vec2
}

// EmptyBox returns a box that contains nothing and absorbs the first point
// it is extended with.
func EmptyBox() BBox {
	return BBox{
		Min: Vec2{math.Inf(1), math.Inf(1)},
		Max: Vec2{math.Inf(-1), math.Inf(-1)},
	}
}

// IsEmpty reports whether the box was never extended.
func (b BBox) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1]
}

// Extend returns b grown to include p.
func (b BBox) Extend(p Vec2) BBox {
	for i := 0; i < 2; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return b
}

// Union returns the smallest box containing both boxes.
func (b BBox) Union(o BBox) BBox {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Contains reports whether p lies inside the closed box.
func (b BBox) Contains(p Vec2) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] && p[1] >= b.Min[1] && p[1] <= b.Max[1]
}

// Inflate returns b grown by d on every side. An empty box stays empty.
func (b BBox) Inflate(d float64) BBox {
	if b.IsEmpty() {
		return b
	}
	b.Min = b.Min.Sub(Vec2{d, d})
	b.Max = b.Max.Add(Vec2{d, d})
	return b
}

// Width is the extent along x, zero for an empty box.
func (b BBox) Width() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.Max[0] - b.Min[0]
}

// Height is the extent along y, zero for an empty box.
func (b BBox) Height() float64 {
	if b.IsEmpty() {
		return 0
	}
	return b.Max[1] - b.Min[1]
}
