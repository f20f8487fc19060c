package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	opts := options{
		level:    "../../testdata/pillar.yaml",
		config:   filepath.Join(dir, "missing.yaml"),
		png:      filepath.Join(dir, "pillar.png"),
		blockmap: filepath.Join(dir, "pillar.blockmap"),
	}

	require.NoError(t, run(context.Background(), opts))

	info, err := os.Stat(opts.png)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))

	data, err := os.ReadFile(opts.blockmap)
	require.NoError(t, err)
	assert.Greater(t, len(data), 40)
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	err := run(context.Background(), options{level: "../../testdata/does_not_exist.yaml", config: filepath.Join(dir, "none.yaml")})
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("block_size: -3\n"), 0o644))

	err = run(context.Background(), options{level: "../../testdata/square.yaml", config: bad})
	assert.Error(t, err)
}
