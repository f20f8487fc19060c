package bsp

import (
	"log/slog"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/config"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
)

// Partition is a chosen splitting line. Seg is the index of the seg it was
// taken from, or -1 for a line that is not a seg.
type Partition struct {
	Line geom.Line
	Seg  int
}

// Selector picks the partition for a working set of segs. It returns false
// when the set is convex and becomes a leaf.
type Selector interface {
	Select(segs []Seg) (Partition, bool)
}

// Cost is the breakdown of one candidate's score.
type Cost struct {
	Front  int
	Back   int
	Splits int
	Total  int
}

// Separates reports whether the candidate leaves anything behind it.
// A candidate with everything in front would make no progress.
func (c Cost) Separates() bool {
	return c.Back > 0 || c.Splits > 0
}

// CostSelector scores every unused seg as a candidate partition and picks
// the cheapest one that separates the set. Ties go to the earlier seg.
type CostSelector struct {
	SplitWeight     int
	BalanceWeight   int
	TwoSidedPenalty int
	SelfRefPenalty  int
	MaxSplitRatio   float64
	Epsilon         float64

	Logger *slog.Logger
}

// NewCostSelector takes its weights from cfg.
func NewCostSelector(cfg config.Config, logger *slog.Logger) *CostSelector {
	return &CostSelector{
		SplitWeight:     cfg.SplitWeight,
		BalanceWeight:   cfg.BalanceWeight,
		TwoSidedPenalty: cfg.TwoSidedPenalty,
		SelfRefPenalty:  cfg.SelfRefPenalty,
		MaxSplitRatio:   cfg.MaxSplitRatio,
		Epsilon:         cfg.Epsilon,
		Logger:          logger,
	}
}

// Evaluate scores segs[i] as the partition of segs.
func (cs *CostSelector) Evaluate(segs []Seg, i int) Cost {
	cand := &segs[i]
	line := cand.Line()

	var c Cost
	for j := range segs {
		if j == i {
			c.Front++
			continue
		}

		class, _ := Classify(line, &segs[j], cs.Epsilon)
		switch {
		case class == ClassSplit:
			c.Splits++
		case class.Front():
			c.Front++
		default:
			c.Back++
		}
	}

	imbalance := c.Front - c.Back
	if imbalance < 0 {
		imbalance = -imbalance
	}

	c.Total = cs.SplitWeight*c.Splits + cs.BalanceWeight*imbalance
	if cand.TwoSided {
		c.Total += cs.TwoSidedPenalty
	}
	if cand.SelfRef {
		c.Total += cs.SelfRefPenalty
	}

	return c
}

func (cs *CostSelector) Select(segs []Seg) (Partition, bool) {
	best := -1
	var bestCost Cost

	for i := range segs {
		if segs[i].used {
			continue
		}

		c := cs.Evaluate(segs, i)
		if !c.Separates() {
			continue
		}
		if best < 0 || c.Total < bestCost.Total {
			best, bestCost = i, c
		}
	}

	if best < 0 {
		return Partition{}, false
	}

	ratio := float64(bestCost.Splits) / float64(len(segs))
	if ratio > cs.MaxSplitRatio {
		cs.logger().Debug("no partition within split ratio, using the least bad one",
			"segs", len(segs),
			"splits", bestCost.Splits,
			"ratio", ratio,
			"linedef", segs[best].Linedef,
		)
	}

	return Partition{Line: segs[best].Line(), Seg: best}, true
}

func (cs *CostSelector) logger() *slog.Logger {
	if cs.Logger != nil {
		return cs.Logger
	}
	return slog.Default()
}
