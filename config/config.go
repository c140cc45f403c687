package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gridopt/stochuc/core/metrics"
	"github.com/gridopt/stochuc/core/model"
	"github.com/gridopt/stochuc/core/sampler"
)

type Config struct {
	System   SystemConfig   `json:"system"`
	Sampling SamplingConfig `json:"sampling"`
	Solve    SolveConfig    `json:"solve"`
	Output   OutputConfig   `json:"output"`
	Metrics  metrics.Config `json:"metrics"`
}

// Load reads the configuration file (yaml or json, by extension), applies
// `K_`-prefixed environment overrides, fills defaults and validates.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.System.SetDefaults()
	cfg.Sampling.SetDefaults()
	cfg.Solve.SetDefaults()
	cfg.Output.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.System.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Sampling.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Solve.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SystemConfig describes the generator, contract prices and nominal load.
// Zero values fall back to the reference system.
type SystemConfig struct {
	FixedCost     float64   `json:"fixed_cost"`
	FuelCost      float64   `json:"fuel_cost"`
	PMax          float64   `json:"pmax"`
	ForwardPrice  float64   `json:"forward_price"`
	RealTimePrice float64   `json:"real_time_price"`
	Load          []float64 `json:"load"`
	// Sensitivity enables the real-time price sweep instead of the single
	// configured price.
	Sensitivity bool      `json:"sensitivity"`
	SweepPrices []float64 `json:"sweep_prices"`
}

func (c *SystemConfig) SetDefaults() {
	def := model.DefaultSystem()
	if c.FixedCost == 0 {
		c.FixedCost = def.FixedCost
	}
	if c.FuelCost == 0 {
		c.FuelCost = def.FuelCost
	}
	if c.PMax == 0 {
		c.PMax = def.PMax
	}
	if c.ForwardPrice == 0 {
		c.ForwardPrice = def.ForwardPrice
	}
	if c.RealTimePrice == 0 {
		c.RealTimePrice = def.RealTimePrice
	}
	if len(c.Load) == 0 {
		c.Load = def.Load
	}
	if len(c.SweepPrices) == 0 {
		c.SweepPrices = []float64{0.15, 0.20, 0.25, 0.30, 0.35}
	}
}

func (c *SystemConfig) Validate() error {
	return c.System().Validate()
}

// System returns the domain parameters at the base real-time price.
func (c *SystemConfig) System() model.SystemParams {
	return model.SystemParams{
		FixedCost:     c.FixedCost,
		FuelCost:      c.FuelCost,
		PMax:          c.PMax,
		ForwardPrice:  c.ForwardPrice,
		RealTimePrice: c.RealTimePrice,
		Load:          c.Load,
	}
}

// Prices returns the real-time prices to solve: the sweep when sensitivity
// analysis is enabled, otherwise the single configured price.
func (c *SystemConfig) Prices() []float64 {
	if c.Sensitivity {
		return c.SweepPrices
	}
	return []float64{c.RealTimePrice}
}

// SamplingConfig controls Monte Carlo scenario generation.
type SamplingConfig struct {
	Size   int    `json:"size"`
	Seed   uint64 `json:"seed"`
	Method string `json:"method"`
}

func (c *SamplingConfig) SetDefaults() {
	if c.Size == 0 {
		c.Size = 10000
	}
	if c.Seed == 0 {
		c.Seed = 12
	}
	if c.Method == "" {
		c.Method = string(sampler.Crude)
	}
}

func (c *SamplingConfig) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("sampling size must be positive, got %d", c.Size)
	}
	if !sampler.Method(c.Method).Valid() {
		return fmt.Errorf("unknown sampling method %q", c.Method)
	}
	return nil
}

// SolveConfig controls the decomposition loop.
type SolveConfig struct {
	Epsilon float64 `json:"epsilon"`
	// MaxIterations of zero keeps the loop unbounded.
	MaxIterations int `json:"max_iterations"`
	Workers       int `json:"workers"`
}

func (c *SolveConfig) SetDefaults() {
	if c.Epsilon == 0 {
		c.Epsilon = 1e-4
	}
}

func (c *SolveConfig) Validate() error {
	if c.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive, got %v", c.Epsilon)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must not be negative, got %d", c.MaxIterations)
	}
	return nil
}

// OutputConfig controls result exports.
type OutputConfig struct {
	Dir  string `json:"dir"`
	CSV  bool   `json:"csv"`
	JSON bool   `json:"json"`
}

func (c *OutputConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "results"
	}
}
