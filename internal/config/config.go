// Package config holds the run parameters shared by every pipeline stage.
// Values are fixed for a run and passed explicitly into each component.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config contains all tunable parameters of the pipeline.
type Config struct {
	// Sleep / contract settings
	TargetSleepHours   float64 `yaml:"target_sleep_hours"`
	ContractMultiplier float64 `yaml:"contract_multiplier"` // $ per sleep index point

	// Features
	RollingWindows   []int `yaml:"rolling_windows"`   // trailing mean windows (days)
	VolatilityWindow int   `yaml:"volatility_window"` // rolling stddev window for the volatility view

	// Partitioning
	TestSizeFraction     float64 `yaml:"test_size_fraction"`
	ValidationFraction   float64 `yaml:"validation_fraction"`
	SmallSampleTrainRows int     `yaml:"small_sample_train_rows"` // train partitions at or below this size use every row

	// Backtest
	AnnualizationDays int `yaml:"annualization_days"`

	Model ModelConfig `yaml:"model"`
	Paths PathConfig  `yaml:"paths"`
	Store StoreConfig `yaml:"store"`
}

// ModelConfig contains gradient boosting parameters.
type ModelConfig struct {
	RandomSeed          int64   `yaml:"random_seed"`
	Depth               int     `yaml:"depth"`
	LearningRate        float64 `yaml:"learning_rate"`
	Iterations          int     `yaml:"iterations"`
	EarlyStoppingRounds int     `yaml:"early_stopping_rounds"`
	L2LeafReg           float64 `yaml:"l2_leaf_reg"`
	Subsample           float64 `yaml:"subsample"`
	MinSamplesLeaf      int     `yaml:"min_samples_leaf"`
}

// PathConfig contains filesystem locations.
type PathConfig struct {
	RawExport string `yaml:"raw_export"`
	Processed string `yaml:"processed"`
	OutputDir string `yaml:"output_dir"`
}

// StoreConfig selects persistence backends. Empty DSNs mean in-memory stores.
type StoreConfig struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		TargetSleepHours:     7.5,
		ContractMultiplier:   10.0,
		RollingWindows:       []int{3, 7},
		VolatilityWindow:     7,
		TestSizeFraction:     0.1,
		ValidationFraction:   0.2,
		SmallSampleTrainRows: 10,
		AnnualizationDays:    252,
		Model: ModelConfig{
			RandomSeed:          42,
			Depth:               6,
			LearningRate:        0.05,
			Iterations:          1000,
			EarlyStoppingRounds: 50,
			L2LeafReg:           3.0,
			Subsample:           0.8,
			MinSamplesLeaf:      1,
		},
		Paths: PathConfig{
			RawExport: "data/raw/sleep-export.csv",
			Processed: "data/processed/sleep_daily.csv",
			OutputDir: "output",
		},
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	ApplyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv fills store DSNs from POSTGRES_DSN / CLICKHOUSE_DSN when unset.
func ApplyEnv(cfg *Config) {
	if cfg.Store.PostgresDSN == "" {
		cfg.Store.PostgresDSN = os.Getenv("POSTGRES_DSN")
	}
	if cfg.Store.ClickhouseDSN == "" {
		cfg.Store.ClickhouseDSN = os.Getenv("CLICKHOUSE_DSN")
	}
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.TargetSleepHours <= 0 || c.TargetSleepHours > 24 {
		return fmt.Errorf("%w: target_sleep_hours %.2f outside (0, 24]", ErrInvalidConfig, c.TargetSleepHours)
	}
	if c.ContractMultiplier <= 0 {
		return fmt.Errorf("%w: contract_multiplier must be positive", ErrInvalidConfig)
	}
	if len(c.RollingWindows) == 0 {
		return fmt.Errorf("%w: rolling_windows is empty", ErrInvalidConfig)
	}
	seen := make(map[int]struct{}, len(c.RollingWindows))
	for _, w := range c.RollingWindows {
		if w < 1 {
			return fmt.Errorf("%w: rolling window %d < 1", ErrInvalidConfig, w)
		}
		if _, dup := seen[w]; dup {
			return fmt.Errorf("%w: rolling window %d listed twice", ErrInvalidConfig, w)
		}
		seen[w] = struct{}{}
	}
	if c.VolatilityWindow < 2 {
		return fmt.Errorf("%w: volatility_window must be >= 2", ErrInvalidConfig)
	}
	if c.TestSizeFraction <= 0 || c.TestSizeFraction >= 1 {
		return fmt.Errorf("%w: test_size_fraction %.3f outside (0, 1)", ErrInvalidConfig, c.TestSizeFraction)
	}
	if c.ValidationFraction <= 0 || c.ValidationFraction >= 1 {
		return fmt.Errorf("%w: validation_fraction %.3f outside (0, 1)", ErrInvalidConfig, c.ValidationFraction)
	}
	if c.SmallSampleTrainRows < 0 {
		return fmt.Errorf("%w: small_sample_train_rows must be >= 0", ErrInvalidConfig)
	}
	if c.AnnualizationDays < 1 {
		return fmt.Errorf("%w: annualization_days must be >= 1", ErrInvalidConfig)
	}
	return c.Model.Validate()
}

// Validate checks boosting parameter ranges.
func (m ModelConfig) Validate() error {
	switch {
	case m.Depth < 1:
		return fmt.Errorf("%w: model.depth must be >= 1", ErrInvalidConfig)
	case m.LearningRate <= 0 || m.LearningRate > 1:
		return fmt.Errorf("%w: model.learning_rate %.3f outside (0, 1]", ErrInvalidConfig, m.LearningRate)
	case m.Iterations < 1:
		return fmt.Errorf("%w: model.iterations must be >= 1", ErrInvalidConfig)
	case m.EarlyStoppingRounds < 1:
		return fmt.Errorf("%w: model.early_stopping_rounds must be >= 1", ErrInvalidConfig)
	case m.L2LeafReg < 0:
		return fmt.Errorf("%w: model.l2_leaf_reg must be >= 0", ErrInvalidConfig)
	case m.Subsample <= 0 || m.Subsample > 1:
		return fmt.Errorf("%w: model.subsample %.3f outside (0, 1]", ErrInvalidConfig, m.Subsample)
	case m.MinSamplesLeaf < 1:
		return fmt.Errorf("%w: model.min_samples_leaf must be >= 1", ErrInvalidConfig)
	}
	return nil
}

// MaxRollingWindow returns the longest configured rolling window.
func (c Config) MaxRollingWindow() int {
	max := 0
	for _, w := range c.RollingWindows {
		if w > max {
			max = w
		}
	}
	return max
}
