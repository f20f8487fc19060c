// Package config holds the tunables of the node builder: the blockmap cell
// size and the partition cost weights.
package config

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/ericsonwillians/nodebuilder/pkg/nodebuilder/geom"
)

// Defaults. SplitWeight is the PICKNODE factor of BSP v5.2.
const (
	DefaultBlockSize         = 128
	DefaultSplitWeight       = 17
	DefaultBalanceWeight     = 1
	DefaultTwoSidedPenalty   = 8
	DefaultSelfRefPenalty    = 16
	DefaultMaxSplitRatio     = 0.5
	DefaultParallelThreshold = 64
)

var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete compiler configuration.
type Config struct {
	// Blockmap cell edge length in map units.
	BlockSize float64 `yaml:"block_size"`

	// Partition cost: SplitWeight per split seg, BalanceWeight per seg of
	// front/back imbalance, plus flat penalties for two-sided and
	// self-referencing candidates.
	SplitWeight     int `yaml:"split_weight"`
	BalanceWeight   int `yaml:"balance_weight"`
	TwoSidedPenalty int `yaml:"two_sided_penalty"`
	SelfRefPenalty  int `yaml:"self_ref_penalty"`

	// Splits per seg above which a partition is reported as poor. The
	// least-bad candidate is used anyway.
	MaxSplitRatio float64 `yaml:"max_split_ratio"`

	// Coordinates closer than this are the same point.
	Epsilon float64 `yaml:"epsilon"`

	// Worker goroutines; 0 means GOMAXPROCS, 1 disables concurrency.
	Parallelism int `yaml:"parallelism"`
	// Seg count below which a BSP branch is never handed to another goroutine.
	ParallelThreshold int `yaml:"parallel_threshold"`
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		BlockSize:         DefaultBlockSize,
		SplitWeight:       DefaultSplitWeight,
		BalanceWeight:     DefaultBalanceWeight,
		TwoSidedPenalty:   DefaultTwoSidedPenalty,
		SelfRefPenalty:    DefaultSelfRefPenalty,
		MaxSplitRatio:     DefaultMaxSplitRatio,
		Epsilon:           geom.DefaultEpsilon,
		ParallelThreshold: DefaultParallelThreshold,
	}
}

// Load reads a YAML config on top of the defaults.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "failed to read config %q", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %q", path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %q", path)
	}

	return cfg, nil
}

// Validate rejects values the builders cannot work with.
func (c Config) Validate() error {
	switch {
	case !(c.BlockSize > 0):
		return errors.Wrapf(ErrInvalidConfig, "block_size must be positive, got %v", c.BlockSize)
	case c.SplitWeight < 0 || c.BalanceWeight < 0 || c.TwoSidedPenalty < 0 || c.SelfRefPenalty < 0:
		return errors.Wrap(ErrInvalidConfig, "cost weights must not be negative")
	case c.SplitWeight == 0 && c.BalanceWeight == 0:
		return errors.Wrap(ErrInvalidConfig, "split_weight and balance_weight cannot both be zero")
	case !(c.Epsilon > 0):
		return errors.Wrapf(ErrInvalidConfig, "epsilon must be positive, got %v", c.Epsilon)
	case c.Parallelism < 0:
		return errors.Wrapf(ErrInvalidConfig, "parallelism must not be negative, got %d", c.Parallelism)
	case c.ParallelThreshold < 0:
		return errors.Wrapf(ErrInvalidConfig, "parallel_threshold must not be negative, got %d", c.ParallelThreshold)
	}
	return nil
}

// Workers resolves Parallelism to a goroutine count.
func (c Config) Workers() int {
	if c.Parallelism > 0 {
		return c.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}
