package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7.5, cfg.TargetSleepHours)
	assert.Equal(t, 10.0, cfg.ContractMultiplier)
	assert.Equal(t, 0.1, cfg.TestSizeFraction)
	assert.Equal(t, 0.2, cfg.ValidationFraction)
	assert.Equal(t, int64(42), cfg.Model.RandomSeed)
	assert.Equal(t, []int{3, 7}, cfg.RollingWindows)
	assert.Equal(t, 7, cfg.MaxRollingWindow())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
target_sleep_hours: 8
contract_multiplier: 25
rolling_windows: [2, 5]
model:
  iterations: 200
paths:
  output_dir: out
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8.0, cfg.TargetSleepHours)
	assert.Equal(t, 25.0, cfg.ContractMultiplier)
	assert.Equal(t, []int{2, 5}, cfg.RollingWindows)
	assert.Equal(t, 200, cfg.Model.Iterations)
	assert.Equal(t, "out", cfg.Paths.OutputDir)
	// untouched values keep defaults
	assert.Equal(t, 0.05, cfg.Model.LearningRate)
	assert.Equal(t, "data/processed/sleep_daily.csv", cfg.Paths.Processed)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("test_size_fraction: 1.5\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero multiplier", func(c *Config) { c.ContractMultiplier = 0 }},
		{"empty windows", func(c *Config) { c.RollingWindows = nil }},
		{"duplicate window", func(c *Config) { c.RollingWindows = []int{3, 3} }},
		{"zero window", func(c *Config) { c.RollingWindows = []int{0} }},
		{"validation fraction", func(c *Config) { c.ValidationFraction = 0 }},
		{"learning rate", func(c *Config) { c.Model.LearningRate = 0 }},
		{"subsample", func(c *Config) { c.Model.Subsample = 1.2 }},
		{"depth", func(c *Config) { c.Model.Depth = 0 }},
		{"volatility window", func(c *Config) { c.VolatilityWindow = 1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "postgres://u:p@localhost:5432/sleep")
	t.Setenv("CLICKHOUSE_DSN", "")

	cfg := Default()
	cfg.Store.ClickhouseDSN = "clickhouse://localhost:9000/sleep"
	ApplyEnv(&cfg)

	assert.Equal(t, "postgres://u:p@localhost:5432/sleep", cfg.Store.PostgresDSN)
	assert.Equal(t, "clickhouse://localhost:9000/sleep", cfg.Store.ClickhouseDSN)
}
