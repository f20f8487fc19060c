// Package testutil builds synthetic levels for the builder tests.
package testutil

import (
	"math"
	"math/rand/v2"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/snapshot"
)

// Fixture loads testdata/<name> from the repository root.
func Fixture(t testing.TB, name string) *snapshot.Snapshot {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)

	root := filepath.Join(filepath.Dir(file), "..", "..")
	s, err := snapshot.LoadLevel(filepath.Join(root, "testdata", name))
	require.NoError(t, err)

	return s
}

// LevelBuilder appends rooms and pillars to a level. Every wall it adds is
// one-sided unless stated otherwise.
type LevelBuilder struct {
	lvl snapshot.Level
}

func (b *LevelBuilder) vertex(x, y float64) int {
	b.lvl.Vertices = append(b.lvl.Vertices, snapshot.Vertex{X: x, Y: y})
	return len(b.lvl.Vertices) - 1
}

// Sector adds a sector and a sidedef facing it, and returns the sidedef.
func (b *LevelBuilder) Sector() int {
	b.lvl.Sectors = append(b.lvl.Sectors, snapshot.Sector{Tag: len(b.lvl.Sectors)})
	return b.Sidedef(len(b.lvl.Sectors) - 1)
}

// Sidedef adds another sidedef facing sector.
func (b *LevelBuilder) Sidedef(sector int) int {
	b.lvl.Sidedefs = append(b.lvl.Sidedefs, snapshot.Sidedef{Sector: sector})
	return len(b.lvl.Sidedefs) - 1
}

// Wall adds a one-sided line from (x1,y1) to (x2,y2).
func (b *LevelBuilder) Wall(x1, y1, x2, y2 float64, side int) {
	b.lvl.Linedefs = append(b.lvl.Linedefs, snapshot.Linedef{
		Start: b.vertex(x1, y1),
		End:   b.vertex(x2, y2),
		Flags: 1,
		Front: side,
		Back:  snapshot.NoSidedef,
	})
}

// Portal adds a two-sided line from (x1,y1) to (x2,y2).
func (b *LevelBuilder) Portal(x1, y1, x2, y2 float64, front, back int) {
	b.lvl.Linedefs = append(b.lvl.Linedefs, snapshot.Linedef{
		Start: b.vertex(x1, y1),
		End:   b.vertex(x2, y2),
		Flags: snapshot.FlagTwoSided,
		Front: front,
		Back:  back,
	})
}

// Box adds the four walls of an axis aligned rectangle. Inward walls face
// the inside and make a room, outward walls make a solid pillar.
func (b *LevelBuilder) Box(x, y, w, h float64, side int, inward bool) {
	c := [4][2]float64{{x, y}, {x, y + h}, {x + w, y + h}, {x + w, y}}
	if !inward {
		c[1], c[3] = c[3], c[1]
	}
	for i := range c {
		n := c[(i+1)%4]
		b.Wall(c[i][0], c[i][1], n[0], n[1], side)
	}
}

// Polygon adds one-sided walls around the closed polygon. Counter-clockwise
// corners face the walls out, clockwise ones face them in.
func (b *LevelBuilder) Polygon(corners []geom.Vec2, side int) {
	for i := range corners {
		p, n := corners[i], corners[(i+1)%len(corners)]
		b.Wall(p[0], p[1], n[0], n[1], side)
	}
}

// Level returns the level built so far.
func (b *LevelBuilder) Level() snapshot.Level {
	return b.lvl
}

// Snapshot freezes the level built so far.
func (b *LevelBuilder) Snapshot(t testing.TB) *snapshot.Snapshot {
	t.Helper()

	s, err := b.lvl.Snapshot()
	require.NoError(t, err)

	return s
}

// PillarGrid is a square room with n*n square pillars spaced 128 units apart.
// The pillars force splits, which is what the concurrency tests need.
func PillarGrid(t testing.TB, n int) *snapshot.Snapshot {
	t.Helper()

	var b LevelBuilder
	side := b.Sector()
	size := float64(128 * (n + 1))

	b.Box(0, 0, size, size, side, true)
	for i := 1; i <= n; i++ {
		for j := 1; j <= n; j++ {
			b.Box(float64(128*i-16), float64(128*j-16), 32, 32, side, false)
		}
	}

	return b.Snapshot(t)
}

// Corridor is a row of n rooms of 256x256, each joined to the next by a
// two-sided line.
func Corridor(t testing.TB, n int) *snapshot.Snapshot {
	t.Helper()

	var b LevelBuilder
	sides := make([]int, n)
	for i := range sides {
		sides[i] = b.Sector()
	}

	for i := 0; i < n; i++ {
		x := float64(256 * i)
		b.Wall(x+256, 0, x, 0, sides[i])
		b.Wall(x, 256, x+256, 256, sides[i])
	}
	b.Wall(0, 0, 0, 256, sides[0])
	b.Wall(float64(256*n), 256, float64(256*n), 0, sides[n-1])

	for i := 1; i < n; i++ {
		x := float64(256 * i)
		// front faces the room to the east
		b.Portal(x, 0, x, 256, b.Sidedef(i), b.Sidedef(i-1))
	}

	return b.Snapshot(t)
}

// RotatedPillars is a 1024x1024 room holding n solid pillars. Each pillar is
// a regular polygon of 5 to 8 sides turned by a random angle, so partitions
// are slanted and split points land off the integer grid. Pillars sit in
// distinct cells of a 3x3 layout; n is at most 9. The pillar corners are
// returned counter-clockwise.
func RotatedPillars(t testing.TB, seed uint64, n int) (*snapshot.Snapshot, [][]geom.Vec2) {
	t.Helper()
	require.LessOrEqual(t, n, 9)

	const (
		size = 1024.0
		cell = size / 3
	)

	rng := rand.New(rand.NewPCG(seed, seed+1))

	var b LevelBuilder
	side := b.Sector()
	b.Box(0, 0, size, size, side, true)

	pillars := make([][]geom.Vec2, 0, n)
	for _, slot := range rng.Perm(9)[:n] {
		cx := (float64(slot%3)+0.5)*cell + (rng.Float64()-0.5)*60
		cy := (float64(slot/3)+0.5)*cell + (rng.Float64()-0.5)*60
		r := 50 + rng.Float64()*70
		rot := rng.Float64() * 2 * math.Pi

		corners := make([]geom.Vec2, 5+rng.IntN(4))
		for i := range corners {
			a := rot + 2*math.Pi*float64(i)/float64(len(corners))
			corners[i] = geom.Vec2{cx + r*math.Cos(a), cy + r*math.Sin(a)}
		}

		b.Polygon(corners, side)
		pillars = append(pillars, corners)
	}

	return b.Snapshot(t), pillars
}

// InsidePolygon reports whether p is inside the convex counter-clockwise
// polygon and at least margin away from its edges.
func InsidePolygon(corners []geom.Vec2, p geom.Vec2, margin float64) bool {
	for i := range corners {
		a, b := corners[i], corners[(i+1)%len(corners)]
		e := b.Sub(a)
		if geom.Cross(e, p.Sub(a)) < margin*e.Len() {
			return false
		}
	}
	return true
}
