package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"sleep-futures/internal/verification"
)

var errDivergence = errors.New("replayed ledger diverges from stored run")

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Replay a stored trade ledger and compare it with the stored run",
	Long: `Loads the trade ledger and summary of a run, recomputes every payoff from
the stored (y_true, y_pred) pairs and reports divergent fields.
Without durable stores the pipeline is run first and its run is verified.

Examples:
  sleepfutures verify --postgres-dsn ... --clickhouse-dsn ...
  sleepfutures verify --run-id 3xK9... --postgres-dsn ... --clickhouse-dsn ...`,
	RunE: runVerifyCommand,
}

var verifyRunID string

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&verifyRunID, "run-id", "", "Run to verify (defaults to the latest stored run)")
}

func runVerifyCommand(cmd *cobra.Command, _ []string) error {
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

	runID := verifyRunID
	if !st.durable {
		res, err := newOrchestrator(cfg, st, nil, &logger, false).Run(ctx)
		if err != nil {
			return err
		}
		if runID == "" {
			runID = res.RunID
		}
	}
	if runID == "" {
		latest, err := st.summaries.GetLatest(ctx)
		if err != nil {
			return fmt.Errorf("latest run: %w", err)
		}
		runID = latest.RunID
	}

	verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		TradeStore:        st.trades,
		SummaryStore:      st.summaries,
		Multiplier:        cfg.ContractMultiplier,
		AnnualizationDays: cfg.AnnualizationDays,
	})
	report, err := verifier.VerifyRun(ctx, runID)
	if err != nil {
		return err
	}

	printVerification(cmd.OutOrStdout(), report)
	if !report.Match() {
		logger.Warn().
			Str("run_id", runID).
			Int("divergent_trades", report.DivergentTrades).
			Int("summary_divergences", len(report.SummaryDivergences)).
			Msg("verification failed")
		return errDivergence
	}
	logger.Info().Str("run_id", runID).Int("trades", report.TotalTrades).Msg("verification passed")
	return nil
}

func printVerification(w io.Writer, r *verification.VerificationReport) {
	fmt.Fprintf(w, "Run %s: %d trades, %d matched, %d divergent\n",
		r.RunID, r.TotalTrades, r.MatchedTrades, r.DivergentTrades)
	for _, res := range r.Results {
		if res.Match {
			continue
		}
		for _, d := range res.Divergences {
			fmt.Fprintf(w, "  %s %s: stored %v, replayed %v\n", res.TradeID, d.Field, d.Expected, d.Actual)
		}
	}
	for _, d := range r.SummaryDivergences {
		fmt.Fprintf(w, "  summary %s: stored %v, replayed %v\n", d.Field, d.Expected, d.Actual)
	}
}
