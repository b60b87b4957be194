package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sleep-futures/internal/config"
	"sleep-futures/internal/dashboard"
	"sleep-futures/internal/domain"
	"sleep-futures/internal/orchestrator"
	"sleep-futures/internal/reporting"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline and write report artifacts",
	Long: `Loads the daily table (processed cache, else the raw export), engineers
features, trains the direction model, backtests the strategy, persists the
run and writes report.md plus CSV exports to the output directory.

Examples:
  sleepfutures run
  sleepfutures run --raw export.csv --output-dir out --json
  sleepfutures run --force-ingest --log-level DEBUG`,
	RunE: runPipelineCommand,
}

var (
	runJSON        bool
	runForceIngest bool
	runNoReport    bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run summary as JSON")
	runCmd.Flags().BoolVar(&runForceIngest, "force-ingest", false, "Re-read the raw export even if the processed cache exists")
	runCmd.Flags().BoolVar(&runNoReport, "no-report", false, "Skip writing report artifacts")
}

func runPipelineCommand(cmd *cobra.Command, _ []string) error {
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

	var reports *reporting.Generator
	if !runNoReport {
		reports = reporting.NewGenerator(cfg.Paths.OutputDir)
	}

	orch := newOrchestrator(cfg, st, reports, &logger, runForceIngest)
	res, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	if reports != nil {
		logger.Info().Str("dir", reports.OutputDir()).Int("files", len(res.ReportFiles)).Msg("reports written")
	}

	if runJSON {
		return printJSON(cmd.OutOrStdout(), dashboard.SnapshotFromRun(res, time.Now().UTC()).Summary, res.RunID)
	}
	printRun(cmd.OutOrStdout(), res)
	return nil
}

func newOrchestrator(cfg config.Config, st *stores, reports *reporting.Generator, logger *zerolog.Logger, force bool) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Options{
		Config:           cfg,
		Cache:            st.cache,
		ObservationStore: st.observations,
		FeatureStore:     st.features,
		TradeRecordStore: st.trades,
		RunSummaryStore:  st.summaries,
		Reports:          reports,
		Logger:           logger,
		ForceIngest:      force,
	})
}

func printJSON(w io.Writer, summary dashboard.SummaryView, runID string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		RunID   string                `json:"run_id"`
		Summary dashboard.SummaryView `json:"summary"`
	}{runID, summary})
}

func printRun(w io.Writer, res *orchestrator.RunResult) {
	s := res.Summary
	fmt.Fprintf(w, "Run %s\n", res.RunID)
	fmt.Fprintf(w, "  days:        %d (%d recorded), %s to %s\n",
		s.ObservationDays, s.RecordedDays,
		s.FirstDate.Format(domain.DateLayout), s.LastDate.Format(domain.DateLayout))
	fmt.Fprintf(w, "  model:       %s (best iteration %d)\n", s.ModelKind, s.BestIteration)
	evalOn := "test"
	if s.EvaluatedOnTrain {
		evalOn = "train"
	}
	fmt.Fprintf(w, "  accuracy:    %s on %d %s rows\n", fmtFloat(s.Accuracy), s.EvalRows, evalOn)
	fmt.Fprintf(w, "  trades:      %d, total PnL %.2f, Sharpe %s, max drawdown %.2f\n",
		s.TotalTrades, s.TotalPnL, fmtFloat(s.Sharpe), s.MaxDrawdown)
	if res.Sufficiency != nil && !res.Sufficiency.AllPass {
		fmt.Fprintf(w, "  data checks: FAILED (%d issues)\n", len(res.Sufficiency.Errors))
	}
	if res.AlreadyPersisted {
		fmt.Fprintln(w, "  (identical run already stored)")
	}
	for _, f := range res.ReportFiles {
		fmt.Fprintf(w, "  wrote %s\n", f)
	}
}

func fmtFloat(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
