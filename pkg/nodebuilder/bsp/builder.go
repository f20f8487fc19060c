package bsp

import (
	"context"
	"log/slog"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/config"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/snapshot"
)

// ErrNonTerminatingPartition means the recursion stopped making progress.
// A correct Selector never causes it.
var ErrNonTerminatingPartition = errors.New("non-terminating partition")

// stallLimit is how many consecutive levels may leave the working set
// unchanged before the build is aborted.
const stallLimit = 2

// Option customizes Build.
type Option func(*builder)

// WithSelector replaces the default CostSelector.
func WithSelector(s Selector) Option {
	return func(b *builder) {
		b.selector = s
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(b *builder) {
		if l != nil {
			b.logger = l
		}
	}
}

type builder struct {
	cfg      config.Config
	selector Selector
	logger   *slog.Logger

	// extra goroutines on top of the caller's, nil when building serially
	sem *semaphore.Weighted
}

// pending is a subtree under construction. Branches built on different
// goroutines never share one.
type pending struct {
	segs  []Seg
	line  geom.Line
	front *pending
	back  *pending
	box   geom.BBox
}

func (p *pending) isLeaf() bool {
	return p.front == nil
}

// signature identifies a working set for stall detection. Every productive
// level removes at least one candidate from both children.
type signature struct {
	segs       int
	candidates int
}

// Build compiles snap into a BSP tree. Front and back branches of large
// working sets are built concurrently; the result does not depend on how
// many goroutines took part.
func Build(ctx context.Context, snap *snapshot.Snapshot, cfg config.Config, opts ...Option) (*Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := &builder{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.selector == nil {
		b.selector = NewCostSelector(cfg, b.logger)
	}
	if workers := cfg.Workers(); workers > 1 {
		b.sem = semaphore.NewWeighted(int64(workers - 1))
	}

	segs := makeSegs(snap)

	root, err := b.build(ctx, segs, signature{-1, -1}, 0, geom.Line{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build bsp")
	}

	t := flatten(root, snap, len(segs), cfg.Epsilon)

	st := t.Stats()
	b.logger.Debug("built bsp",
		"linedefs", snap.NumLinedefs(),
		"nodes", st.Nodes,
		"leaves", st.Leaves,
		"segs", st.Segs,
		"splits", st.Splits,
		"depth", st.Depth,
	)
	if st.MixedLeaves > 0 {
		b.logger.Warn("leaves face more than one sector, the map is not closed",
			"mixed_leaves", st.MixedLeaves,
		)
	}

	return t, nil
}

func (b *builder) build(ctx context.Context, segs []Seg, parent signature, stalled int, from geom.Line) (*pending, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sig := signature{segs: len(segs), candidates: unused(segs)}
	if sig == parent {
		stalled++
		if stalled >= stallLimit {
			b.logStall(segs, from)
			return nil, errors.Wrapf(ErrNonTerminatingPartition,
				"%d segs unchanged for %d levels", len(segs), stalled)
		}
	} else {
		stalled = 0
	}

	part, ok := b.selector.Select(segs)
	if !ok {
		return &pending{segs: segs, box: segBox(segs)}, nil
	}

	front, back := b.partition(part, segs)
	node := &pending{line: part.Line}

	var err error
	if len(segs) >= b.cfg.ParallelThreshold && b.sem != nil && b.sem.TryAcquire(1) {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer b.sem.Release(1)

			var err error
			node.front, err = b.build(gctx, front, sig, stalled, part.Line)
			return err
		})

		node.back, err = b.build(gctx, back, sig, stalled, part.Line)
		if werr := g.Wait(); werr != nil {
			return nil, werr
		}
	} else {
		node.front, err = b.build(ctx, front, sig, stalled, part.Line)
		if err != nil {
			return nil, err
		}
		node.back, err = b.build(ctx, back, sig, stalled, part.Line)
	}
	if err != nil {
		return nil, err
	}

	node.box = node.front.box.Union(node.back.box)

	return node, nil
}

// partition distributes segs over the two sides of part. Segs on the line
// are marked so they are not offered as candidates again.
func (b *builder) partition(part Partition, segs []Seg) (front, back []Seg) {
	front = make([]Seg, 0, len(segs))
	back = make([]Seg, 0, len(segs)/2)

	for i := range segs {
		c, f, bk := Split(part.Line, segs[i], b.cfg.Epsilon)

		if c.Collinear() || i == part.Seg {
			f.used = true
			bk.used = true
		}

		switch {
		case c == ClassSplit:
			front = append(front, f)
			back = append(back, bk)
		case c.Front():
			front = append(front, f)
		default:
			back = append(back, bk)
		}
	}

	return front, back
}

func (b *builder) logStall(segs []Seg, from geom.Line) {
	linedefs := make([]int, len(segs))
	for i := range segs {
		linedefs[i] = segs[i].Linedef
	}

	b.logger.Error("partition made no progress",
		"partition_origin", from.Origin,
		"partition_dir", from.Dir,
		"segs", len(segs),
		"candidates", unused(segs),
		"linedefs", linedefs,
	)
}

func segBox(segs []Seg) geom.BBox {
	box := geom.EmptyBox()
	for i := range segs {
		box = box.Extend(segs[i].Start).Extend(segs[i].End)
	}
	return box
}

// flattener lays a finished pending tree out in the Tree arena in depth
// first order, front before back, and numbers the split vertices.
type flattener struct {
	t     *Tree
	index map[vertexKey]int
	eps   float64
}

type vertexKey [2]int64

func (f *flattener) key(p geom.Vec2) vertexKey {
	return vertexKey{int64(math.Round(p[0] / f.eps)), int64(math.Round(p[1] / f.eps))}
}

func newFlattener(vertices []geom.Vec2, originalSegs int, eps float64) *flattener {
	f := &flattener{
		t: &Tree{
			Vertices:         vertices,
			originalVertices: len(vertices),
			originalSegs:     originalSegs,
		},
		index: make(map[vertexKey]int, len(vertices)),
		eps:   eps,
	}

	for i, p := range vertices {
		k := f.key(p)
		if _, ok := f.index[k]; !ok {
			f.index[k] = i
		}
	}

	return f
}

func flatten(root *pending, snap *snapshot.Snapshot, originalSegs int, eps float64) *Tree {
	vertices := make([]geom.Vec2, snap.NumVertices())
	for i := range vertices {
		vertices[i] = snap.Point(i)
	}

	f := newFlattener(vertices, originalSegs, eps)
	f.t.Root = f.add(root)
	f.linkSegs()

	return f.t
}

// vertex returns the index of the vertex within eps of p, adding p if there
// is none. Neighbouring grid keys are searched too, so points straddling a
// rounding boundary still meet.
func (f *flattener) vertex(p geom.Vec2) int {
	k := f.key(p)
	if i, ok := f.index[k]; ok && geom.Equal(f.t.Vertices[i], p, f.eps) {
		return i
	}
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			i, ok := f.index[vertexKey{k[0] + dx, k[1] + dy}]
			if ok && geom.Equal(f.t.Vertices[i], p, f.eps) {
				return i
			}
		}
	}

	f.t.Vertices = append(f.t.Vertices, p)
	i := len(f.t.Vertices) - 1
	if _, ok := f.index[k]; !ok {
		f.index[k] = i
	}

	return i
}

func (f *flattener) add(p *pending) Child {
	if p.isLeaf() {
		segs := make([]Seg, len(p.segs))
		copy(segs, p.segs)

		for i := range segs {
			if segs[i].StartVertex == NoVertex {
				segs[i].StartVertex = f.vertex(segs[i].Start)
			}
			if segs[i].EndVertex == NoVertex {
				segs[i].EndVertex = f.vertex(segs[i].End)
			}
		}

		leaf := Leaf{Segs: segs, BBox: p.box, Sector: NoSector}
		if len(segs) > 0 {
			leaf.Sector = segs[0].Sector
		}

		f.t.Leaves = append(f.t.Leaves, leaf)
		return LeafChild(len(f.t.Leaves) - 1)
	}

	idx := len(f.t.Nodes)
	f.t.Nodes = append(f.t.Nodes, Node{
		Line:     p.line,
		FrontBox: p.front.box,
		BackBox:  p.back.box,
	})

	front := f.add(p.front)
	back := f.add(p.back)

	f.t.Nodes[idx].Front = front
	f.t.Nodes[idx].Back = back

	return Child(idx)
}

type segKey struct {
	linedef int
	side    snapshot.Side
	start   int
	end     int
}

// linkSegs gathers the leaf segs into Tree.Segs and pairs up the two sides
// of every stretch of two-sided linedef. Pieces of the two sides that were
// cut at different points stay unpaired.
func (f *flattener) linkSegs() {
	t := f.t

	total := 0
	for i := range t.Leaves {
		total += len(t.Leaves[i].Segs)
	}

	t.Segs = make([]Seg, 0, total)
	for i := range t.Leaves {
		leaf := &t.Leaves[i]
		leaf.FirstSeg = len(t.Segs)
		t.Segs = append(t.Segs, leaf.Segs...)
	}

	index := make(map[segKey]int)
	for i := range t.Segs {
		s := &t.Segs[i]
		if s.TwoSided {
			index[segKey{s.Linedef, s.Side, s.StartVertex, s.EndVertex}] = i
		}
	}

	for i := range t.Segs {
		s := &t.Segs[i]
		if !s.TwoSided {
			continue
		}

		other := snapshot.FrontSide
		if s.Side == snapshot.FrontSide {
			other = snapshot.BackSide
		}
		if j, ok := index[segKey{s.Linedef, other, s.EndVertex, s.StartVertex}]; ok {
			s.Partner = j
		}
	}

	for i := range t.Leaves {
		leaf := &t.Leaves[i]
		end := leaf.FirstSeg + len(leaf.Segs)
		leaf.Segs = t.Segs[leaf.FirstSeg:end:end]
	}
}
