// Package geom holds the 2D primitives shared by the BSP and blockmap builders.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// DefaultEpsilon is the resolution of Doom's 16.16 fixed point coordinates.
const DefaultEpsilon = 1.0 / 65536

// Vec2 is a point or direction in map units.
type Vec2 = mgl64.Vec2

// Cross returns the z component of the 3D cross product of a and b.
func Cross(a, b Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// Perp returns d rotated clockwise by 90 degrees, pointing to the right of d.
func Perp(d Vec2) Vec2 {
	return Vec2{d[1], -d[0]}
}

// Equal reports whether a and b are within eps of each other on both axes.
func Equal(a, b Vec2, eps float64) bool {
	return math.Abs(a[0]-b[0]) <= eps && math.Abs(a[1]-b[1]) <= eps
}

// Lerp returns the point a + t*(b-a).
func Lerp(a, b Vec2, t float64) Vec2 {
	return a.Add(b.Sub(a).Mul(t))
}
