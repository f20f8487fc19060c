package blockmap

import (
	"math"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
)

type grid struct {
	originX float64
	originY float64
	size    float64
	width   int
	height  int
}

// cell returns the unclamped cell coordinates of p.
func (g grid) cell(p geom.Vec2) (int, int) {
	return int(math.Floor((p[0] - g.originX) / g.size)),
		int(math.Floor((p[1] - g.originY) / g.size))
}

// clamp pulls (cx, cy) onto the grid and reports whether it had to.
func (g grid) clamp(cx, cy int) (int, int, bool) {
	ncx := min(max(cx, 0), g.width-1)
	ncy := min(max(cy, 0), g.height-1)
	return ncx, ncy, ncx != cx || ncy != cy
}

// trace walks the cells the segment a-b passes through and returns their
// row-major indices. Cells are half open, a point on a boundary belongs to
// the cell above or to the right of it. Where the segment passes through a
// grid corner, within eps, the two cells sharing that corner are added too.
func (g grid) trace(a, b geom.Vec2, eps float64) (cells []int, overflow bool) {
	cx, cy := g.cell(a)
	ex, ey := g.cell(b)

	add := func(x, y int) {
		x, y, clamped := g.clamp(x, y)
		overflow = overflow || clamped

		idx := y*g.width + x
		for _, c := range cells {
			if c == idx {
				return
			}
		}
		cells = append(cells, idx)
	}

	add(cx, cy)

	ax, ay := a[0]-g.originX, a[1]-g.originY
	dx, dy := math.Abs(b[0]-a[0]), math.Abs(b[1]-a[1])
	stepX, stepY := sign(ex-cx), sign(ey-cy)

	nx := abs(ex - cx)
	ny := abs(ey - cy)

	// Crossing the next x boundary comes first when its distance scaled by
	// dy is the smaller one. Comparing the products avoids accumulating
	// parameter steps, so integer geometry decides corners exactly.
	tol := eps * math.Max(dx, dy)

	for nx > 0 || ny > 0 {
		diff := 0.0
		if nx > 0 && ny > 0 {
			diff = g.boundary(ax, cx, stepX)*dy - g.boundary(ay, cy, stepY)*dx
		}

		switch {
		case ny == 0 || (nx > 0 && diff < -tol):
			cx += stepX
			nx--
		case nx == 0 || diff > tol:
			cy += stepY
			ny--
		default:
			// through a corner
			add(cx+stepX, cy)
			add(cx, cy+stepY)
			cx += stepX
			cy += stepY
			nx--
			ny--
		}
		add(cx, cy)
	}

	return cells, overflow
}

// boundary is the distance from rel to the edge of cell c that the walk
// crosses next when stepping by step.
func (g grid) boundary(rel float64, c, step int) float64 {
	if step > 0 {
		return float64(c+1)*g.size - rel
	}
	return rel - float64(c)*g.size
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
