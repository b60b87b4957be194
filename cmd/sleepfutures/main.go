// Command sleepfutures runs the sleep futures pipeline: ingest a sleep-tracker
// export, train the direction model, backtest the strategy and serve results.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sleep-futures/internal/config"
	"sleep-futures/internal/logging"
	"sleep-futures/internal/model"
	"sleep-futures/internal/normalization"
)

const appName = "sleepfutures"

var (
	configPath    string
	rawPath       string
	processedPath string
	outputDir     string
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	logLevel      string
	logFormat     string
)

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Sleep futures: predict sleep direction and backtest a futures strategy",
	Long: `Turns a sleep-tracker export into a daily table, engineers lagged features,
trains a direction classifier and backtests a one-contract futures strategy.

Examples:
  sleepfutures run --raw data/raw/sleep-export.csv
  sleepfutures ingest --raw export.csv --processed data/processed/sleep_daily.csv
  sleepfutures serve --addr :8080 --refresh 5m
  sleepfutures verify --postgres-dsn ... --clickhouse-dsn ...`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML config file (defaults apply when empty)")
	pf.StringVar(&rawPath, "raw", "", "Raw sleep-tracker export (overrides paths.raw_export)")
	pf.StringVar(&processedPath, "processed", "", "Processed daily table cache (overrides paths.processed)")
	pf.StringVar(&outputDir, "output-dir", "", "Report output directory (overrides paths.output_dir)")
	pf.StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL DSN for observations and trade ledger")
	pf.StringVar(&clickhouseDSN, "clickhouse-dsn", "", "ClickHouse DSN for features and run summaries")
	pf.BoolVar(&useMemory, "use-memory", false, "Use in-memory stores even when DSNs are configured")
	pf.StringVar(&logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR (defaults to LOG_LEVEL)")
	pf.StringVar(&logFormat, "log-format", logging.FormatConsole, "console or json")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", userMessage(err))
		os.Exit(exitCode(err))
	}
}

// loadConfig applies the config file, environment and flag overrides.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	} else {
		config.ApplyEnv(&cfg)
	}

	if rawPath != "" {
		cfg.Paths.RawExport = rawPath
	}
	if processedPath != "" {
		cfg.Paths.Processed = processedPath
	}
	if outputDir != "" {
		cfg.Paths.OutputDir = outputDir
	}
	if postgresDSN != "" {
		cfg.Store.PostgresDSN = postgresDSN
	}
	if clickhouseDSN != "" {
		cfg.Store.ClickhouseDSN = clickhouseDSN
	}
	if useMemory {
		cfg.Store = config.StoreConfig{}
	}
	return cfg, cfg.Validate()
}

func newLogger() zerolog.Logger {
	return logging.New(logLevel, logFormat)
}

// userMessage maps pipeline errors to operator-facing text.
func userMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrInsufficientData):
		return "not enough history to train a model"
	case errors.Is(err, normalization.ErrEmptyExport):
		return "the sleep export contains no records"
	case errors.Is(err, os.ErrNotExist):
		return fmt.Sprintf("input file missing: %v", err)
	}
	return err.Error()
}

// Exit codes.
const (
	exitFailure      = 1
	exitBadInput     = 2
	exitInsufficient = 3
	exitDivergence   = 4
)

func exitCode(err error) int {
	switch {
	case errors.Is(err, errDivergence):
		return exitDivergence
	case errors.Is(err, model.ErrInsufficientData):
		return exitInsufficient
	case errors.Is(err, normalization.ErrEmptyExport),
		errors.Is(err, normalization.ErrMissingColumn),
		errors.Is(err, normalization.ErrBadTimestamp),
		errors.Is(err, os.ErrNotExist),
		errors.Is(err, config.ErrInvalidConfig):
		return exitBadInput
	}
	return exitFailure
}
