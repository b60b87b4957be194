package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sleep-futures/internal/normalization"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Normalise the raw export into the processed daily table",
	Long: `Reads the raw sleep-tracker export, keeps the last session per wake-up
date, reindexes to a contiguous daily range and writes the processed CSV.
With --postgres-dsn the table is mirrored to daily_observations.

Examples:
  sleepfutures ingest --raw export.csv
  sleepfutures ingest --raw export.csv --processed /tmp/sleep_daily.csv`,
	RunE: runIngestCommand,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngestCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()
	ctx := cmd.Context()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	f, err := os.Open(cfg.Paths.RawExport)
	if err != nil {
		return fmt.Errorf("open raw export: %w", err)
	}
	defer f.Close()

	replaced := st.cache.Exists()
	obs, err := normalization.NewRunner(cfg.TargetSleepHours, st.cache).Ingest(ctx, f)
	if err != nil {
		return err
	}
	if st.observations != nil {
		if err := st.observations.ReplaceAll(ctx, obs); err != nil {
			return fmt.Errorf("mirror observations: %w", err)
		}
	}

	recorded := 0
	for _, o := range obs {
		if o.IsRecorded() {
			recorded++
		}
	}
	logger.Info().
		Int("days", len(obs)).
		Int("recorded", recorded).
		Str("path", st.cache.Path()).
		Bool("replaced", replaced).
		Msg("processed table written")
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d days (%d recorded) to %s\n", len(obs), recorded, st.cache.Path())
	return nil
}
