package bsp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericsonwillians/nodebuilder/internal/testutil"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/config"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/snapshot"
)

func build(t *testing.T, snap *snapshot.Snapshot) *Tree {
	t.Helper()

	tree, err := Build(testutil.ContextWithTimeout(t, 10*time.Second), snap, config.Default())
	require.NoError(t, err)
	checkTree(t, tree, config.Default().Epsilon)

	return tree
}

// subtreeSegs collects the segs of every leaf below c.
func subtreeSegs(tree *Tree, c Child) []Seg {
	if c.IsLeaf() {
		return tree.Leaves[c.Index()].Segs
	}
	n := &tree.Nodes[c]
	return append(append([]Seg(nil), subtreeSegs(tree, n.Front)...), subtreeSegs(tree, n.Back)...)
}

// checkTree verifies the structural invariants every compiled tree has.
func checkTree(t *testing.T, tree *Tree, eps float64) {
	t.Helper()

	require.NotEmpty(t, tree.Leaves)
	assert.Equal(t, len(tree.Leaves)-1, len(tree.Nodes), "full binary tree")

	// leaves are convex: every seg has the rest of its leaf in front
	for li, leaf := range tree.Leaves {
		for i := range leaf.Segs {
			line := leaf.Segs[i].Line()
			for j := range leaf.Segs {
				if i == j {
					continue
				}
				c, _ := Classify(line, &leaf.Segs[j], eps)
				assert.True(t, c.Front(), "leaf %d: seg %d is %s of seg %d", li, j, c, i)
			}
		}

		assert.Equal(t, segBox(leaf.Segs), leaf.BBox)
		assert.Equal(t, tree.Segs[leaf.FirstSeg:leaf.FirstSeg+len(leaf.Segs)], leaf.Segs)
		if len(leaf.Segs) > 0 {
			assert.Equal(t, leaf.Segs[0].Sector, leaf.Sector)
		} else {
			assert.Equal(t, NoSector, leaf.Sector)
		}

		for _, s := range leaf.Segs {
			assert.True(t, geom.Equal(tree.Vertices[s.StartVertex], s.Start, eps))
			assert.True(t, geom.Equal(tree.Vertices[s.EndVertex], s.End, eps))
		}
	}

	for i, s := range tree.Segs {
		d := s.End.Sub(s.Start)
		assert.InDelta(t, math.Atan2(d[1], d[0]), s.Angle, 1e-6, "seg %d", i)

		if s.Partner == NoSeg {
			continue
		}
		p := tree.Segs[s.Partner]
		assert.Equal(t, i, p.Partner, "seg %d", i)
		assert.Equal(t, s.Linedef, p.Linedef)
		assert.NotEqual(t, s.Side, p.Side)
		assert.Equal(t, s.StartVertex, p.EndVertex)
		assert.Equal(t, s.EndVertex, p.StartVertex)
	}

	// every seg is on the side of each ancestor it was filed under
	for ni := range tree.Nodes {
		n := &tree.Nodes[ni]

		front := subtreeSegs(tree, n.Front)
		back := subtreeSegs(tree, n.Back)

		for i := range front {
			c, _ := Classify(n.Line, &front[i], eps)
			assert.True(t, c.Front(), "node %d: front seg is %s", ni, c)
		}
		for i := range back {
			c, _ := Classify(n.Line, &back[i], eps)
			assert.True(t, c == ClassBack || c == ClassCollinearBack, "node %d: back seg is %s", ni, c)
		}

		assert.Equal(t, segBox(front), n.FrontBox)
		assert.Equal(t, segBox(back), n.BackBox)
	}
}

// checkCoverage samples points off the integer grid and makes sure the
// leaf each one lands in encloses it.
func checkCoverage(t *testing.T, tree *Tree, size float64, inside func(p geom.Vec2) bool) {
	t.Helper()

	sampled := 0
	for x := 3.5; x < size; x += 17 {
		for y := 3.5; y < size; y += 17 {
			p := geom.Vec2{x, y}
			if !inside(p) {
				continue
			}
			sampled++

			leaf := tree.Leaves[tree.Locate(p)]
			require.NotEmpty(t, leaf.Segs)

			for i := range leaf.Segs {
				line := leaf.Segs[i].Line()
				assert.GreaterOrEqual(t, line.Distance(p), -1e-9, "%v is behind linedef %d", p, leaf.Segs[i].Linedef)
			}
		}
	}

	assert.Greater(t, sampled, 0)
}

func TestBuild_Square(t *testing.T) {
	t.Parallel()

	tree := build(t, testutil.Fixture(t, "square.yaml"))

	assert.Empty(t, tree.Nodes)
	require.Len(t, tree.Leaves, 1)
	assert.Equal(t, LeafChild(0), tree.Root)
	assert.Len(t, tree.Leaves[0].Segs, 4)
	assert.Equal(t, geom.BBox{Min: geom.Vec2{0, 0}, Max: geom.Vec2{256, 256}}, tree.Leaves[0].BBox)
	assert.Equal(t, 0, tree.Locate(geom.Vec2{100, 100}))
}

func TestBuild_NoLinedefs(t *testing.T) {
	t.Parallel()

	snap, err := snapshot.New(nil, nil, nil, nil)
	require.NoError(t, err)

	tree, err := Build(context.Background(), snap, config.Default())
	require.NoError(t, err)

	assert.Empty(t, tree.Nodes)
	require.Len(t, tree.Leaves, 1)
	assert.Empty(t, tree.Leaves[0].Segs)
	assert.True(t, tree.Leaves[0].BBox.IsEmpty())
	assert.Equal(t, 0, tree.Locate(geom.Vec2{1, 2}))
}

func TestBuild_TwoRooms(t *testing.T) {
	t.Parallel()

	tree := build(t, testutil.Fixture(t, "two_rooms.yaml"))

	require.Len(t, tree.Nodes, 1)
	require.Len(t, tree.Leaves, 2)
	assert.Equal(t, Child(0), tree.Root)

	root := tree.Nodes[0]
	assert.Equal(t, geom.LineThrough(geom.Vec2{256, 0}, geom.Vec2{256, 256}), root.Line)
	assert.Equal(t, geom.BBox{Min: geom.Vec2{0, 0}, Max: geom.Vec2{512, 256}}, root.BBox())

	west := tree.Leaves[tree.Locate(geom.Vec2{100, 100})].Sectors()
	assert.Equal(t, 1, west.Size())
	assert.True(t, west.Has(0))

	east := tree.Leaves[tree.Locate(geom.Vec2{400, 100})].Sectors()
	assert.Equal(t, 1, east.Size())
	assert.True(t, east.Has(1))

	assert.Equal(t, Stats{Nodes: 1, Leaves: 2, Segs: 8, Depth: 1}, tree.Stats())
	assert.Len(t, tree.Vertices, 6)
}

func TestBuild_Pillar(t *testing.T) {
	t.Parallel()

	tree := build(t, testutil.Fixture(t, "pillar.yaml"))

	st := tree.Stats()
	assert.Greater(t, st.Splits, 0)
	assert.Greater(t, st.NewVertices, 0)
	assert.Equal(t, 8+st.Splits, st.Segs)

	checkCoverage(t, tree, 512, func(p geom.Vec2) bool {
		return !(p[0] > 192 && p[0] < 320 && p[1] > 192 && p[1] < 320)
	})
}

func TestBuild_PillarGrid(t *testing.T) {
	t.Parallel()

	const n = 4
	tree := build(t, testutil.PillarGrid(t, n))

	checkCoverage(t, tree, 128*(n+1), func(p geom.Vec2) bool {
		for i := 1; i <= n; i++ {
			for j := 1; j <= n; j++ {
				cx, cy := float64(128*i), float64(128*j)
				if p[0] > cx-16 && p[0] < cx+16 && p[1] > cy-16 && p[1] < cy+16 {
					return false
				}
			}
		}
		return true
	})
}

func TestBuild_Corridor(t *testing.T) {
	t.Parallel()

	const rooms = 5
	tree := build(t, testutil.Corridor(t, rooms))

	assert.GreaterOrEqual(t, len(tree.Leaves), rooms)

	for i := 0; i < rooms; i++ {
		for _, p := range []geom.Vec2{
			{float64(256*i) + 20.5, 30.5},
			{float64(256*i) + 128.5, 128.5},
			{float64(256*i) + 235.5, 220.5},
		} {
			sectors := tree.Leaves[tree.Locate(p)].Sectors()
			assert.Equal(t, 1, sectors.Size(), "%v", p)
			assert.True(t, sectors.Has(i), "%v", p)
		}
	}

	checkCoverage(t, tree, 256*rooms, func(p geom.Vec2) bool {
		return p[1] < 256
	})
}

func TestBuild_RotatedPillars(t *testing.T) {
	t.Parallel()

	for seed := uint64(1); seed <= 6; seed++ {
		seed := seed
		t.Run(fmt.Sprint(seed), func(t *testing.T) {
			t.Parallel()

			snap, pillars := testutil.RotatedPillars(t, seed, 3+int(seed))
			tree := build(t, snap)

			st := tree.Stats()
			assert.Greater(t, st.Splits, 0)
			assert.Zero(t, st.MixedLeaves)
			for i := range tree.Leaves {
				assert.Equal(t, 0, tree.Leaves[i].Sector)
			}

			checkCoverage(t, tree, 1024, func(p geom.Vec2) bool {
				for _, pillar := range pillars {
					if testutil.InsidePolygon(pillar, p, -0.5) {
						return false
					}
				}
				return true
			})

			parallel := config.Default()
			parallel.Parallelism = 8
			parallel.ParallelThreshold = 4

			got, err := Build(testutil.ContextWithTimeout(t, 10*time.Second), snap, parallel)
			require.NoError(t, err)
			assert.Equal(t, tree, got)
		})
	}
}

func TestFlattener_Vertex(t *testing.T) {
	t.Parallel()

	const eps = 1.0 / 65536

	f := newFlattener([]geom.Vec2{{0, 0}}, 0, eps)

	// on either side of a rounding boundary of the eps grid
	a := f.vertex(geom.Vec2{10 + 0.375*eps, 3})
	b := f.vertex(geom.Vec2{10 + 0.625*eps, 3})
	assert.Equal(t, 1, a)
	assert.Equal(t, a, b)

	assert.Equal(t, 0, f.vertex(geom.Vec2{eps / 2, -eps / 2}))
	assert.Equal(t, 2, f.vertex(geom.Vec2{10 + 3*eps, 3}))
	assert.Len(t, f.t.Vertices, 3)
}

func TestBuild_ZeroLengthLinedef(t *testing.T) {
	t.Parallel()

	tree := build(t, testutil.Fixture(t, "degenerate.yaml"))

	require.Len(t, tree.Leaves, 1)
	assert.Empty(t, tree.Nodes)
	for _, s := range tree.Leaves[0].Segs {
		assert.NotEqual(t, 4, s.Linedef)
	}
	assert.Len(t, tree.Leaves[0].Segs, 4)
}

func TestBuild_OverlappingCollinear(t *testing.T) {
	t.Parallel()

	tree := build(t, testutil.Fixture(t, "overlap.yaml"))

	type key struct {
		linedef int
		side    snapshot.Side
	}
	where := make(map[key]int)

	for li, leaf := range tree.Leaves {
		for _, s := range leaf.Segs {
			if s.Linedef < 4 {
				continue
			}

			k := key{s.Linedef, s.Side}
			_, dup := where[k]
			assert.False(t, dup, "linedef %d %s was split", s.Linedef, s.Side)
			where[k] = li

			// neither line cut the other
			a, b := geom.Vec2{64, 128}, geom.Vec2{192, 128}
			if s.Side == snapshot.BackSide {
				a, b = b, a
			}
			assert.Equal(t, a, s.Start)
			assert.Equal(t, b, s.End)
		}
	}

	require.Len(t, where, 4)
	assert.Equal(t, where[key{4, snapshot.FrontSide}], where[key{5, snapshot.FrontSide}])
	assert.Equal(t, where[key{4, snapshot.BackSide}], where[key{5, snapshot.BackSide}])
}

func TestBuild_Deterministic(t *testing.T) {
	t.Parallel()

	snap := testutil.PillarGrid(t, 5)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)

	serial := config.Default()
	serial.Parallelism = 1

	parallel := config.Default()
	parallel.Parallelism = 8
	parallel.ParallelThreshold = 4

	want, err := Build(ctx, snap, serial)
	require.NoError(t, err)

	again, err := Build(ctx, snap, serial)
	require.NoError(t, err)
	assert.Equal(t, want, again)

	for i := 0; i < 4; i++ {
		got, err := Build(ctx, snap, parallel)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestBuild_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tree, err := Build(ctx, testutil.PillarGrid(t, 2), config.Default())
	assert.Nil(t, tree)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuild_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Epsilon = 0

	_, err := Build(context.Background(), testutil.Fixture(t, "square.yaml"), cfg)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}

// stuckSelector returns a line with every seg in front of it, which is
// exactly the mistake the stall guard exists for.
type stuckSelector struct{}

func (stuckSelector) Select(segs []Seg) (Partition, bool) {
	if len(segs) == 0 {
		return Partition{}, false
	}
	return Partition{
		Line: geom.LineThrough(geom.Vec2{-1e6, 0}, geom.Vec2{-1e6, 1}),
		Seg:  -1,
	}, true
}

func TestBuild_StallGuard(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tree, err := Build(context.Background(), testutil.Fixture(t, "square.yaml"), config.Default(),
		WithSelector(stuckSelector{}),
		WithLogger(logger),
	)
	assert.Nil(t, tree)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNonTerminatingPartition))
	assert.Contains(t, buf.String(), "partition made no progress")
	assert.Contains(t, buf.String(), "level=ERROR")
}
