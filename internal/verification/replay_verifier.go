package verification

import (
	"context"
	"errors"
	"fmt"

	"sleep-futures/internal/backtest"
	"sleep-futures/internal/domain"
	"sleep-futures/internal/metrics"
	"sleep-futures/internal/storage"
)

// ErrRunNotFound is returned when the run has no stored summary.
var ErrRunNotFound = errors.New("run not found")

// ReplayVerifier implements Verifier interface.
type ReplayVerifier struct {
	tradeStore   storage.TradeRecordStore
	summaryStore storage.RunSummaryStore

	multiplier        float64
	annualizationDays int
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
// Multiplier and AnnualizationDays must match the verified run's config.
type ReplayVerifierOptions struct {
	TradeStore        storage.TradeRecordStore
	SummaryStore      storage.RunSummaryStore
	Multiplier        float64
	AnnualizationDays int
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		tradeStore:        opts.TradeStore,
		summaryStore:      opts.SummaryStore,
		multiplier:        opts.Multiplier,
		annualizationDays: opts.AnnualizationDays,
	}
}

var _ Verifier = (*ReplayVerifier)(nil)

// VerifyRun verifies a run by replaying its stored ledger.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationReport, error) {
	// 1. Load stored summary and ledger
	summary, err := v.summaryStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("load run summary: %w", err)
	}

	stored, err := v.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	// 2. Replay backtest
	replayed := v.replay(runID, stored)

	// 3. Compare trades in ledger order
	report := &VerificationReport{
		RunID:       runID,
		TotalTrades: len(stored),
		Results:     make([]VerificationResult, 0, len(stored)),
	}
	for i, trade := range stored {
		result := VerificationResult{
			TradeID:   trade.TradeID,
			StoredPnL: trade.PnL,
		}
		if i < len(replayed.Trades) {
			result.Divergences = CompareTradeRecords(trade, replayed.Trades[i])
			result.ReplayedPnL = replayed.Trades[i].PnL
		} else {
			result.Divergences = []FieldDivergence{{Field: "Error", Expected: nil, Actual: "no replayed trade"}}
		}
		result.Match = len(result.Divergences) == 0

		report.Results = append(report.Results, result)
		if result.Match {
			report.MatchedTrades++
		} else {
			report.DivergentTrades++
		}
	}

	// 4. Compare headline statistics
	report.SummaryDivergences = CompareSummary(summary, summaryOf(replayed))

	return report, nil
}

// replay recomputes the ledger from stored (date, y_true, y_pred) triples.
func (v *ReplayVerifier) replay(runID string, stored []*domain.TradeRecord) *backtest.Results {
	rows := make([]domain.PredictionRow, len(stored))
	for i, t := range stored {
		yTrue := t.YTrue
		pred := t.YPredCls
		rows[i] = domain.PredictionRow{Date: t.Date, YTrue: &yTrue, YPredCls: &pred}
	}

	res := backtest.ComputeStrategyPnL(rows, v.multiplier, v.annualizationDays)
	res.AssignRunID(runID)
	return res
}

func summaryOf(res *backtest.Results) *domain.RunSummary {
	ls := metrics.ComputeLedgerStats(res.Trades)
	return &domain.RunSummary{
		TotalTrades:          len(res.Trades),
		TotalPnL:             res.TotalPnL,
		Sharpe:               res.Sharpe,
		MaxDrawdown:          res.MaxDrawdown,
		WinRate:              ls.WinRate,
		PnLMean:              ls.PnLMean,
		PnLMedian:            ls.PnLMedian,
		PnLP10:               ls.PnLP10,
		PnLP90:               ls.PnLP90,
		MaxConsecutiveLosses: ls.MaxConsecutiveLosses,
	}
}
