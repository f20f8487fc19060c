// Package blockmap indexes linedefs on a uniform grid for collision and
// line of sight queries.
package blockmap

import (
	"context"
	"log/slog"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/config"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/snapshot"
)

// Blockmap is a grid of cells over the bounds of all linedefs. Cell (0, 0)
// starts at the origin; cells grow towards +x and +y.
type Blockmap struct {
	OriginX  float64
	OriginY  float64
	CellSize float64
	Width    int
	Height   int

	// row-major, each list ascending
	cells [][]int
}

// Option customizes Build.
type Option func(*builder)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *builder) {
		if l != nil {
			b.logger = l
		}
	}
}

type builder struct {
	logger *slog.Logger
}

// Build rasterizes every linedef of snap. Linedefs are traced in parallel
// and merged in index order, so each cell lists its linedefs ascending.
func Build(ctx context.Context, snap *snapshot.Snapshot, cfg config.Config, opts ...Option) (*Blockmap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &builder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}

	bm := &Blockmap{CellSize: cfg.BlockSize}

	n := snap.NumLinedefs()
	if n == 0 {
		return bm, nil
	}

	bounds := snap.Bounds()
	bm.OriginX = bounds.Min[0]
	bm.OriginY = bounds.Min[1]
	bm.Width = int(math.Floor(bounds.Width()/bm.CellSize)) + 1
	bm.Height = int(math.Floor(bounds.Height()/bm.CellSize)) + 1

	g := bm.grid()
	traced := make([][]int, n)
	overflow := make([]bool, n)

	workers := cfg.Workers()
	chunk := (n + workers - 1) / workers

	eg, ctx := errgroup.WithContext(ctx)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		eg.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				p1, p2 := snap.LineEnds(i)
				traced[i], overflow[i] = g.trace(p1, p2, cfg.Epsilon)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.Wrap(err, "failed to build blockmap")
	}

	bm.cells = make([][]int, bm.Width*bm.Height)
	for i := 0; i < n; i++ {
		if overflow[i] {
			p1, p2 := snap.LineEnds(i)
			b.logger.Warn("linedef rasterized outside the blockmap, clamped",
				"linedef", i,
				"start", p1,
				"end", p2,
			)
		}
		for _, cell := range traced[i] {
			bm.cells[cell] = append(bm.cells[cell], i)
		}
	}

	b.logger.Debug("built blockmap",
		"linedefs", n,
		"width", bm.Width,
		"height", bm.Height,
		"cell_size", bm.CellSize,
	)

	return bm, nil
}

func (bm *Blockmap) grid() grid {
	return grid{
		originX: bm.OriginX,
		originY: bm.OriginY,
		size:    bm.CellSize,
		width:   bm.Width,
		height:  bm.Height,
	}
}

// Cell returns the linedefs in cell (cx, cy) in ascending order, or nil
// outside the grid. The slice must not be modified.
func (bm *Blockmap) Cell(cx, cy int) []int {
	if cx < 0 || cy < 0 || cx >= bm.Width || cy >= bm.Height {
		return nil
	}
	return bm.cells[cy*bm.Width+cx]
}

// CellAt returns the cell containing the world point (x, y).
func (bm *Blockmap) CellAt(x, y float64) (cx, cy int, ok bool) {
	if bm.Width == 0 {
		return 0, 0, false
	}

	cx = int(math.Floor((x - bm.OriginX) / bm.CellSize))
	cy = int(math.Floor((y - bm.OriginY) / bm.CellSize))
	ok = cx >= 0 && cy >= 0 && cx < bm.Width && cy < bm.Height

	return cx, cy, ok
}

// LinesAt returns the linedefs of the cell containing (x, y).
func (bm *Blockmap) LinesAt(x, y float64) []int {
	cx, cy, ok := bm.CellAt(x, y)
	if !ok {
		return nil
	}
	return bm.Cell(cx, cy)
}

// CellsOf lists the cells holding linedef i, row by row.
func (bm *Blockmap) CellsOf(i int) [][2]int {
	var cells [][2]int
	for idx, lines := range bm.cells {
		for _, l := range lines {
			if l == i {
				cells = append(cells, [2]int{idx % bm.Width, idx / bm.Width})
				break
			}
			if l > i {
				break
			}
		}
	}
	return cells
}
