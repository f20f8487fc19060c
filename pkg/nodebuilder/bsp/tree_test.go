package bsp

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericsonwillians/nodebuilder/internal/testutil"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/snapshot"
)

func TestChild(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Child(-1), LeafChild(0))
	assert.Equal(t, Child(-8), LeafChild(7))
	assert.True(t, LeafChild(3).IsLeaf())
	assert.Equal(t, 3, LeafChild(3).Index())
	assert.False(t, Child(0).IsLeaf())
	assert.Equal(t, 5, Child(5).Index())
}

func collect(walk func(geom.Vec2, func(int) bool), p geom.Vec2) []int {
	var order []int
	walk(p, func(leaf int) bool {
		order = append(order, leaf)
		return true
	})
	return order
}

func TestTree_Walk(t *testing.T) {
	t.Parallel()

	tree := build(t, testutil.PillarGrid(t, 3))

	for _, p := range []geom.Vec2{{20.5, 20.5}, {250.5, 300.5}, {490.5, 60.5}} {
		near := collect(tree.Walk, p)
		far := collect(tree.WalkBackToFront, p)

		require.Len(t, near, len(tree.Leaves))
		assert.Equal(t, tree.Locate(p), near[0], "the leaf holding p is drawn first")
		assert.Equal(t, tree.Locate(p), far[len(far)-1])

		sorted := slices.Clone(near)
		slices.Sort(sorted)
		for i := range sorted {
			assert.Equal(t, i, sorted[i], "every leaf exactly once")
		}

		slices.Reverse(far)
		assert.Equal(t, near, far)
	}
}

func TestTree_WalkStops(t *testing.T) {
	t.Parallel()

	tree := build(t, testutil.Fixture(t, "two_rooms.yaml"))

	visited := 0
	tree.Walk(geom.Vec2{100, 100}, func(leaf int) bool {
		visited++
		return false
	})
	assert.Equal(t, 1, visited)

	assert.Equal(t, []int{1, 0}, collect(tree.Walk, geom.Vec2{100, 100}))
	assert.Equal(t, []int{0, 1}, collect(tree.Walk, geom.Vec2{300, 100}))
}

func TestTree_Depth(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, build(t, testutil.Fixture(t, "square.yaml")).Depth())
	assert.Equal(t, 1, build(t, testutil.Fixture(t, "two_rooms.yaml")).Depth())

	tree := build(t, testutil.PillarGrid(t, 2))
	assert.GreaterOrEqual(t, tree.Depth(), 2)
	assert.LessOrEqual(t, tree.Depth(), len(tree.Nodes))
}

func TestTree_SegsAndPartners(t *testing.T) {
	t.Parallel()

	tree := build(t, testutil.Fixture(t, "two_rooms.yaml"))
	require.Len(t, tree.Segs, 8)

	front, back := NoSeg, NoSeg
	for i, s := range tree.Segs {
		switch {
		case s.Linedef != 6:
			assert.Equal(t, NoSeg, s.Partner, "one-sided linedef %d", s.Linedef)
		case s.Side == snapshot.FrontSide:
			front = i
		default:
			back = i
		}
	}
	require.NotEqual(t, NoSeg, front)
	require.NotEqual(t, NoSeg, back)

	assert.Equal(t, back, tree.Segs[front].Partner)
	assert.Equal(t, front, tree.Segs[back].Partner)
	assert.InDelta(t, math.Pi/2, tree.Segs[front].Angle, 1e-12)
	assert.InDelta(t, -math.Pi/2, tree.Segs[back].Angle, 1e-12)

	west := tree.Leaves[tree.Locate(geom.Vec2{100, 100})]
	assert.Equal(t, 0, west.Sector)
	assert.False(t, west.Mixed())

	east := tree.Leaves[tree.Locate(geom.Vec2{400, 100})]
	assert.Equal(t, 1, east.Sector)
	assert.False(t, east.Mixed())
}

func TestLeaf_Mixed(t *testing.T) {
	t.Parallel()

	leaf := Leaf{Segs: []Seg{{Sector: 2}, {Sector: 2}}}
	assert.False(t, leaf.Mixed())

	leaf.Segs = append(leaf.Segs, Seg{Sector: 3})
	assert.True(t, leaf.Mixed())
	assert.Equal(t, 2, leaf.Sectors().Size())
}
