// Command nodebuild compiles a YAML level into its BSP tree and blockmap,
// prints the tree statistics and optionally writes the blockmap and a debug
// picture.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/config"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/debugviz"
	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/snapshot"
)

type options struct {
	level    string
	config   string
	png      string
	blockmap string
	verbose  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.level, "level", "", "YAML level to compile (required)")
	flag.StringVar(&opts.config, "config", "nodebuild.yaml", "YAML config; defaults apply when missing")
	flag.StringVar(&opts.png, "png", "", "write a debug picture of the tree to this file")
	flag.StringVar(&opts.blockmap, "blockmap", "", "write the flat blockmap to this file")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	if opts.level == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return err
	}

	snap, err := snapshot.LoadLevel(opts.level)
	if err != nil {
		return err
	}
	slog.Info("level loaded",
		"path", opts.level,
		"vertices", snap.NumVertices(),
		"linedefs", snap.NumLinedefs(),
		"sectors", snap.NumSectors(),
	)

	c, err := nodebuilder.NewCompiler(cfg, slog.Default()).Compile(ctx, snap)
	if err != nil {
		return err
	}

	st := c.Tree.Stats()
	slog.Info("bsp",
		"nodes", st.Nodes,
		"leaves", st.Leaves,
		"segs", st.Segs,
		"splits", st.Splits,
		"new_vertices", st.NewVertices,
		"depth", st.Depth,
		"mixed_leaves", st.MixedLeaves,
	)
	slog.Info("blockmap",
		"origin_x", c.Blockmap.OriginX,
		"origin_y", c.Blockmap.OriginY,
		"cell_size", c.Blockmap.CellSize,
		"width", c.Blockmap.Width,
		"height", c.Blockmap.Height,
	)

	if opts.blockmap != "" {
		data, err := c.Blockmap.Flatten().MarshalBinary()
		if err != nil {
			return errors.Wrap(err, "failed to encode blockmap")
		}
		if err := os.WriteFile(opts.blockmap, data, 0o644); err != nil {
			return errors.Wrapf(err, "failed to write blockmap %q", opts.blockmap)
		}
		slog.Info("blockmap written", "path", opts.blockmap, "bytes", len(data))
	}

	if opts.png != "" {
		if err := writePNG(opts.png, c); err != nil {
			return err
		}
		slog.Info("debug picture written", "path", opts.png)
	}

	return nil
}

func writePNG(path string, c *nodebuilder.Compiled) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %q", path)
	}
	defer f.Close()

	if err := debugviz.WritePNG(f, c, debugviz.DefaultOptions()); err != nil {
		return err
	}

	return errors.Wrapf(f.Close(), "failed to close %q", path)
}
