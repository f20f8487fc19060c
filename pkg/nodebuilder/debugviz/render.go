// Package debugviz draws compiled geometry to an image: blockmap grid and
// occupancy, partition lines and the segs of every leaf, coloured by sector.
package debugviz

import (
	"io"
	"math"

	"github.com/gogpu/gg"
	"github.com/pkg/errors"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/bsp"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
)

// Options controls what Render draws.
type Options struct {
	Width  int
	Height int
	Margin float64

	Grid       bool
	Occupancy  bool
	Partitions bool
}

func DefaultOptions() Options {
	return Options{
		Width:      1024,
		Height:     1024,
		Margin:     16,
		Grid:       true,
		Occupancy:  true,
		Partitions: true,
	}
}

var (
	background = gg.RGB(0.08, 0.08, 0.1)
	gridColor  = gg.RGB(0.2, 0.2, 0.25)
	partColor  = gg.RGB(0.9, 0.3, 0.3)
	mixedColor = gg.RGB(1, 0.1, 0.8)
)

// cellAlpha is the shade per linedef of a blockmap cell, up to maxCellAlpha.
const (
	cellAlpha    = 0.06
	maxCellAlpha = 0.5
)

// view maps world coordinates into the image, y up.
type view struct {
	min    geom.Vec2
	scale  float64
	margin float64
	height float64
}

func newView(bounds geom.BBox, opts Options) view {
	w := math.Max(bounds.Width(), 1)
	h := math.Max(bounds.Height(), 1)

	return view{
		min:    bounds.Min,
		scale:  math.Min((float64(opts.Width)-2*opts.Margin)/w, (float64(opts.Height)-2*opts.Margin)/h),
		margin: opts.Margin,
		height: float64(opts.Height),
	}
}

func (v view) point(p geom.Vec2) (float64, float64) {
	return v.margin + (p[0]-v.min[0])*v.scale,
		v.height - v.margin - (p[1]-v.min[1])*v.scale
}

func (v view) line(dc *gg.Context, a, b geom.Vec2) {
	x1, y1 := v.point(a)
	x2, y2 := v.point(b)
	dc.DrawLine(x1, y1, x2, y2)
}

// leafColor gives each sector its own hue, spread around the wheel by the
// golden angle, and varies the lightness between the sector's leaves.
// Leaves facing several sectors stand out in one colour.
func leafColor(i int, leaf *bsp.Leaf) gg.RGBA {
	if leaf.Mixed() {
		return mixedColor
	}
	_, shade := math.Modf(float64(i) * 0.618034)
	return gg.HSL(float64(leaf.Sector)*137.508, 0.65, 0.45+0.3*shade)
}

// Render draws c into a new context. The caller closes it.
func Render(c *nodebuilder.Compiled, opts Options) (*gg.Context, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.Errorf("invalid image size %dx%d", opts.Width, opts.Height)
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.ClearWithColor(background)

	bounds := c.Snapshot.Bounds()
	if bounds.IsEmpty() {
		return dc, nil
	}
	v := newView(bounds, opts)

	if opts.Occupancy {
		if err := drawOccupancy(dc, v, c); err != nil {
			return nil, errors.Wrap(err, "failed to draw blockmap occupancy")
		}
	}

	if opts.Grid {
		if err := drawGrid(dc, v, c); err != nil {
			return nil, errors.Wrap(err, "failed to draw blockmap grid")
		}
	}

	if opts.Partitions {
		if err := drawPartitions(dc, v, c); err != nil {
			return nil, errors.Wrap(err, "failed to draw partitions")
		}
	}

	if err := drawLeaves(dc, v, c); err != nil {
		return nil, errors.Wrap(err, "failed to draw leaves")
	}

	return dc, nil
}

// WritePNG renders c and encodes it as PNG.
func WritePNG(w io.Writer, c *nodebuilder.Compiled, opts Options) error {
	dc, err := Render(c, opts)
	if err != nil {
		return err
	}
	defer dc.Close()

	return errors.Wrap(dc.EncodePNG(w), "failed to encode png")
}

func drawGrid(dc *gg.Context, v view, c *nodebuilder.Compiled) error {
	bm := c.Blockmap
	origin := geom.Vec2{bm.OriginX, bm.OriginY}
	size := geom.Vec2{float64(bm.Width) * bm.CellSize, float64(bm.Height) * bm.CellSize}

	dc.SetColor(gridColor.Color())
	dc.SetLineWidth(1)

	for cx := 0; cx <= bm.Width; cx++ {
		x := origin[0] + float64(cx)*bm.CellSize
		v.line(dc, geom.Vec2{x, origin[1]}, geom.Vec2{x, origin[1] + size[1]})
	}
	for cy := 0; cy <= bm.Height; cy++ {
		y := origin[1] + float64(cy)*bm.CellSize
		v.line(dc, geom.Vec2{origin[0], y}, geom.Vec2{origin[0] + size[0], y})
	}

	return dc.Stroke()
}

// drawOccupancy shades every non-empty blockmap cell by its linedef count.
func drawOccupancy(dc *gg.Context, v view, c *nodebuilder.Compiled) error {
	bm := c.Blockmap

	for cy := 0; cy < bm.Height; cy++ {
		for cx := 0; cx < bm.Width; cx++ {
			n := len(bm.Cell(cx, cy))
			if n == 0 {
				continue
			}

			corner := geom.Vec2{bm.OriginX + float64(cx)*bm.CellSize, bm.OriginY + float64(cy)*bm.CellSize}
			x1, y1 := v.point(corner)
			x2, y2 := v.point(corner.Add(geom.Vec2{bm.CellSize, bm.CellSize}))

			dc.SetRGBA(0.3, 0.5, 0.9, math.Min(cellAlpha*float64(n), maxCellAlpha))
			dc.DrawRectangle(x1, y2, x2-x1, y1-y2)
			if err := dc.Fill(); err != nil {
				return err
			}
		}
	}

	return nil
}

func drawPartitions(dc *gg.Context, v view, c *nodebuilder.Compiled) error {
	dc.SetColor(partColor.Color())
	dc.SetLineWidth(1)
	dc.SetDash(6, 4)
	defer dc.SetDash()

	for i := range c.Tree.Nodes {
		n := &c.Tree.Nodes[i]
		a, b, ok := clipLine(n.Line, n.BBox())
		if !ok {
			continue
		}
		v.line(dc, a, b)
	}

	return dc.Stroke()
}

func drawLeaves(dc *gg.Context, v view, c *nodebuilder.Compiled) error {
	for i := range c.Tree.Leaves {
		leaf := &c.Tree.Leaves[i]
		if len(leaf.Segs) == 0 {
			continue
		}

		dc.SetColor(leafColor(i, leaf).Color())
		dc.SetLineWidth(2)
		for j := range leaf.Segs {
			v.line(dc, leaf.Segs[j].Start, leaf.Segs[j].End)
		}
		if err := dc.Stroke(); err != nil {
			return err
		}
	}

	return nil
}

// clipLine returns the part of the infinite line inside box.
func clipLine(l geom.Line, box geom.BBox) (geom.Vec2, geom.Vec2, bool) {
	if l.Degenerate() || box.IsEmpty() {
		return geom.Vec2{}, geom.Vec2{}, false
	}

	tmin, tmax := math.Inf(-1), math.Inf(1)
	for i := 0; i < 2; i++ {
		if l.Dir[i] == 0 {
			if l.Origin[i] < box.Min[i] || l.Origin[i] > box.Max[i] {
				return geom.Vec2{}, geom.Vec2{}, false
			}
			continue
		}

		t1 := (box.Min[i] - l.Origin[i]) / l.Dir[i]
		t2 := (box.Max[i] - l.Origin[i]) / l.Dir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
	}

	if tmin > tmax {
		return geom.Vec2{}, geom.Vec2{}, false
	}

	return l.Origin.Add(l.Dir.Mul(tmin)), l.Origin.Add(l.Dir.Mul(tmax)), true
}
