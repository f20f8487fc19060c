// Package nodebuilder compiles level geometry into the structures the
// renderer and the collision code query: a BSP tree of convex subsectors
// and a blockmap. Compile runs both builders on one snapshot; Publisher
// keeps the latest result and recompiles whenever the geometry changes.
package nodebuilder

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/blockmap"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/bsp"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/config"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/snapshot"
)

// Compiled is the output of one compile pass. It is never modified after
// Compile returns and may be shared by any number of readers.
type Compiled struct {
	Fingerprint snapshot.Fingerprint
	Config      config.Config

	Snapshot *snapshot.Snapshot
	Tree     *bsp.Tree
	Blockmap *blockmap.Blockmap
}

// Compiler runs compile passes.
type Compiler struct {
	Config config.Config
	Logger *slog.Logger

	// Selector overrides the BSP partition heuristic when set.
	Selector bsp.Selector
}

// NewCompiler returns a compiler for cfg. A nil logger means slog.Default().
func NewCompiler(cfg config.Config, logger *slog.Logger) *Compiler {
	return &Compiler{Config: cfg, Logger: logger}
}

func (c *Compiler) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Compile builds the BSP tree and the blockmap of snap concurrently. Either
// builder failing fails the whole pass and nothing is returned.
func (c *Compiler) Compile(ctx context.Context, snap *snapshot.Snapshot) (*Compiled, error) {
	if err := c.Config.Validate(); err != nil {
		return nil, err
	}

	out := &Compiled{
		Fingerprint: snap.Fingerprint(),
		Config:      c.Config,
		Snapshot:    snap,
	}

	bspOpts := []bsp.Option{bsp.WithLogger(c.logger())}
	if c.Selector != nil {
		bspOpts = append(bspOpts, bsp.WithSelector(c.Selector))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Tree, err = bsp.Build(gctx, snap, c.Config, bspOpts...)
		return err
	})
	g.Go(func() error {
		var err error
		out.Blockmap, err = blockmap.Build(gctx, snap, c.Config, blockmap.WithLogger(c.logger()))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "failed to compile %s", snap.Fingerprint())
	}

	st := out.Tree.Stats()
	c.logger().Info("compiled level",
		"fingerprint", out.Fingerprint.String()[:16],
		"linedefs", snap.NumLinedefs(),
		"nodes", st.Nodes,
		"leaves", st.Leaves,
		"splits", st.Splits,
		"blockmap_width", out.Blockmap.Width,
		"blockmap_height", out.Blockmap.Height,
	)

	return out, nil
}
