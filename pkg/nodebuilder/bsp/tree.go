package bsp

import (
	"github.com/zyedidia/generic/mapset"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
)

// Child references either a node or a leaf of a Tree. Values >= 0 index
// Tree.Nodes, negative values are leaves: leaf i is stored as -(i+1).
type Child int32

// LeafChild returns the reference to leaf i.
func LeafChild(i int) Child {
	return Child(-(i + 1))
}

// IsLeaf reports whether c references a leaf.
func (c Child) IsLeaf() bool {
	return c < 0
}

// Index returns the node or leaf index c refers to.
func (c Child) Index() int {
	if c < 0 {
		return int(-c) - 1
	}
	return int(c)
}

// Node is an internal node. Points on or in front of Line go to Front.
type Node struct {
	Line     geom.Line
	FrontBox geom.BBox
	BackBox  geom.BBox
	Front    Child
	Back     Child
}

// BBox covers both children.
func (n *Node) BBox() geom.BBox {
	return n.FrontBox.Union(n.BackBox)
}

// NoSector is the sector of a leaf without segs.
const NoSector = -1

// Leaf is a convex subsector. Its segs are Tree.Segs[FirstSeg:FirstSeg+len(Segs)].
type Leaf struct {
	Segs     []Seg
	FirstSeg int
	BBox     geom.BBox

	// The sector of the first seg, NoSector for an empty leaf.
	Sector int
}

// Sectors returns the set of sectors the leaf's segs face. A closed map
// yields exactly one.
func (l *Leaf) Sectors() mapset.Set[int] {
	set := mapset.New[int]()
	for i := range l.Segs {
		set.Put(l.Segs[i].Sector)
	}
	return set
}

// Mixed reports whether the leaf's segs face more than one sector, which
// happens where the map is not closed.
func (l *Leaf) Mixed() bool {
	return l.Sectors().Size() > 1
}

// Tree is a compiled BSP. It is never modified after Build returns.
type Tree struct {
	Nodes  []Node
	Leaves []Leaf
	Segs   []Seg
	Root   Child

	// The snapshot's vertices followed by those created at split points.
	Vertices []geom.Vec2

	originalVertices int
	originalSegs     int
}

// Stats summarizes a tree.
type Stats struct {
	Nodes       int
	Leaves      int
	Segs        int
	Splits      int
	Depth       int
	NewVertices int
	MixedLeaves int
}

func (t *Tree) Stats() Stats {
	s := Stats{
		Nodes:       len(t.Nodes),
		Leaves:      len(t.Leaves),
		Depth:       t.Depth(),
		Segs:        len(t.Segs),
		NewVertices: len(t.Vertices) - t.originalVertices,
	}
	for i := range t.Leaves {
		if t.Leaves[i].Mixed() {
			s.MixedLeaves++
		}
	}
	s.Splits = s.Segs - t.originalSegs

	return s
}

// Depth is the number of nodes on the longest path from the root to a leaf.
func (t *Tree) Depth() int {
	var depth func(c Child) int
	depth = func(c Child) int {
		if c.IsLeaf() {
			return 0
		}
		n := &t.Nodes[c]
		return 1 + max(depth(n.Front), depth(n.Back))
	}
	return depth(t.Root)
}

// Locate returns the leaf containing p.
func (t *Tree) Locate(p geom.Vec2) int {
	c := t.Root
	for !c.IsLeaf() {
		n := &t.Nodes[c]
		if n.Line.InFront(p) {
			c = n.Front
		} else {
			c = n.Back
		}
	}
	return c.Index()
}

// Walk visits every leaf ordered from nearest to farthest as seen from p,
// the order a renderer draws in. It stops when fn returns false.
func (t *Tree) Walk(p geom.Vec2, fn func(leaf int) bool) {
	t.walk(p, true, fn)
}

// WalkBackToFront visits every leaf from farthest to nearest as seen from p.
func (t *Tree) WalkBackToFront(p geom.Vec2, fn func(leaf int) bool) {
	t.walk(p, false, fn)
}

func (t *Tree) walk(p geom.Vec2, nearFirst bool, fn func(leaf int) bool) {
	stack := []Child{t.Root}

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if c.IsLeaf() {
			if !fn(c.Index()) {
				return
			}
			continue
		}

		n := &t.Nodes[c]
		near, far := n.Front, n.Back
		if !n.Line.InFront(p) {
			near, far = far, near
		}
		if !nearFirst {
			near, far = far, near
		}

		// last pushed is visited first
		stack = append(stack, far, near)
	}
}
