// Package verification replays stored trade ledgers through the backtester
// and reports any field that no longer matches.
package verification

import (
	"context"
	"math"

	"sleep-futures/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single trade.
type VerificationResult struct {
	TradeID     string            // verified trade ID
	Match       bool              // true if all fields match
	Divergences []FieldDivergence // list of divergent fields
	StoredPnL   float64           // pnl from stored trade
	ReplayedPnL float64           // pnl from replayed backtest
}

// VerificationReport contains results for one run.
type VerificationReport struct {
	RunID           string
	TotalTrades     int                  // stored trades verified
	MatchedTrades   int                  // trades that matched exactly
	DivergentTrades int                  // trades with divergences
	Results         []VerificationResult // individual results, ledger order

	// Summary fields recomputed from the replayed ledger
	SummaryDivergences []FieldDivergence
}

// Match reports whether every trade and the summary matched.
func (r *VerificationReport) Match() bool {
	return r.DivergentTrades == 0 && len(r.SummaryDivergences) == 0
}

// Verifier interface for ledger replay verification.
type Verifier interface {
	// VerifyRun loads the stored ledger and summary of a run, recomputes the
	// backtest from its (y_true, y_pred) pairs and compares all fields.
	VerifyRun(ctx context.Context, runID string) (*VerificationReport, error)
}

// CompareTradeRecords compares two trade records and returns divergences.
// Uses FloatTolerance for float64 comparisons.
func CompareTradeRecords(stored, replayed *domain.TradeRecord) []FieldDivergence {
	var divergences []FieldDivergence

	// Identity must match exactly
	if stored.TradeID != replayed.TradeID {
		divergences = append(divergences, FieldDivergence{
			Field:    "TradeID",
			Expected: stored.TradeID,
			Actual:   replayed.TradeID,
		})
	}

	if stored.RunID != replayed.RunID {
		divergences = append(divergences, FieldDivergence{
			Field:    "RunID",
			Expected: stored.RunID,
			Actual:   replayed.RunID,
		})
	}

	if !stored.Date.Equal(replayed.Date) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Date",
			Expected: stored.Date,
			Actual:   replayed.Date,
		})
	}

	if stored.YTrueCls != replayed.YTrueCls {
		divergences = append(divergences, FieldDivergence{
			Field:    "YTrueCls",
			Expected: stored.YTrueCls,
			Actual:   replayed.YTrueCls,
		})
	}

	if stored.Position != replayed.Position {
		divergences = append(divergences, FieldDivergence{
			Field:    "Position",
			Expected: stored.Position,
			Actual:   replayed.Position,
		})
	}

	// Payoff values
	if !floatEquals(stored.PnL, replayed.PnL) {
		divergences = append(divergences, FieldDivergence{
			Field:    "PnL",
			Expected: stored.PnL,
			Actual:   replayed.PnL,
		})
	}

	if !floatEquals(stored.CumPnL, replayed.CumPnL) {
		divergences = append(divergences, FieldDivergence{
			Field:    "CumPnL",
			Expected: stored.CumPnL,
			Actual:   replayed.CumPnL,
		})
	}

	return divergences
}

// CompareSummary compares stored headline statistics with recomputed ones.
func CompareSummary(stored, replayed *domain.RunSummary) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.TotalTrades != replayed.TotalTrades {
		divergences = append(divergences, FieldDivergence{
			Field:    "TotalTrades",
			Expected: stored.TotalTrades,
			Actual:   replayed.TotalTrades,
		})
	}

	if stored.MaxConsecutiveLosses != replayed.MaxConsecutiveLosses {
		divergences = append(divergences, FieldDivergence{
			Field:    "MaxConsecutiveLosses",
			Expected: stored.MaxConsecutiveLosses,
			Actual:   replayed.MaxConsecutiveLosses,
		})
	}

	floats := []struct {
		field            string
		stored, replayed float64
	}{
		{"TotalPnL", stored.TotalPnL, replayed.TotalPnL},
		{"Sharpe", stored.Sharpe, replayed.Sharpe},
		{"MaxDrawdown", stored.MaxDrawdown, replayed.MaxDrawdown},
		{"WinRate", stored.WinRate, replayed.WinRate},
		{"PnLMean", stored.PnLMean, replayed.PnLMean},
		{"PnLMedian", stored.PnLMedian, replayed.PnLMedian},
		{"PnLP10", stored.PnLP10, replayed.PnLP10},
		{"PnLP90", stored.PnLP90, replayed.PnLP90},
	}
	for _, f := range floats {
		if !floatEquals(f.stored, f.replayed) {
			divergences = append(divergences, FieldDivergence{
				Field:    f.field,
				Expected: f.stored,
				Actual:   f.replayed,
			})
		}
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
// Two NaNs are equal: an undefined statistic stays undefined on replay.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= FloatTolerance
}
