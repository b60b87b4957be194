package verification

import (
	"context"
	"math"
	"testing"
	"time"

	"sleep-futures/internal/backtest"
	"sleep-futures/internal/domain"
	"sleep-futures/internal/metrics"
	"sleep-futures/internal/storage/memory"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func trade() *domain.TradeRecord {
	return &domain.TradeRecord{
		TradeID:  "trade1",
		RunID:    "run1",
		Date:     day0,
		YTrue:    0.5,
		YTrueCls: domain.DirectionUp,
		YPredCls: domain.DirectionUp,
		Position: 1,
		PnL:      5,
		CumPnL:   5,
	}
}

func TestCompareTradeRecords_ExactMatch(t *testing.T) {
	divergences := CompareTradeRecords(trade(), trade())
	if len(divergences) != 0 {
		t.Errorf("expected no divergences, got %v", divergences)
	}
}

func TestCompareTradeRecords_WithinTolerance(t *testing.T) {
	replayed := trade()
	replayed.PnL += 1e-9
	replayed.CumPnL -= 1e-9

	if d := CompareTradeRecords(trade(), replayed); len(d) != 0 {
		t.Errorf("expected no divergences within tolerance, got %v", d)
	}
}

func TestCompareTradeRecords_Divergent(t *testing.T) {
	replayed := trade()
	replayed.Position = -1
	replayed.PnL = -5
	replayed.Date = day0.AddDate(0, 0, 1)

	divergences := CompareTradeRecords(trade(), replayed)
	if len(divergences) != 3 {
		t.Fatalf("expected 3 divergences, got %d: %v", len(divergences), divergences)
	}
	fields := map[string]bool{}
	for _, d := range divergences {
		fields[d.Field] = true
	}
	for _, f := range []string{"Date", "Position", "PnL"} {
		if !fields[f] {
			t.Errorf("expected divergence on %s", f)
		}
	}
}

func TestFloatEquals_NaN(t *testing.T) {
	if !floatEquals(math.NaN(), math.NaN()) {
		t.Error("NaN should equal NaN")
	}
	if floatEquals(math.NaN(), 0) {
		t.Error("NaN should not equal 0")
	}
}

// storeRun backtests rows and stores ledger and summary under runID.
func storeRun(t *testing.T, runID string, yTrue []float64, pred []domain.Direction) (*memory.TradeRecordStore, *memory.RunSummaryStore) {
	t.Helper()
	ctx := context.Background()

	rows := make([]domain.PredictionRow, len(yTrue))
	for i := range yTrue {
		y, p := yTrue[i], pred[i]
		rows[i] = domain.PredictionRow{Date: day0.AddDate(0, 0, i), YTrue: &y, YPredCls: &p}
	}
	res := backtest.ComputeStrategyPnL(rows, 10, 252)
	res.AssignRunID(runID)
	ls := metrics.ComputeLedgerStats(res.Trades)

	trades := memory.NewTradeRecordStore()
	summaries := memory.NewRunSummaryStore()
	if len(res.Trades) > 0 {
		if err := trades.InsertBulk(ctx, res.Trades); err != nil {
			t.Fatalf("insert trades: %v", err)
		}
	}
	err := summaries.Insert(ctx, &domain.RunSummary{
		RunID:                runID,
		CreatedAt:            day0,
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
	})
	if err != nil {
		t.Fatalf("insert summary: %v", err)
	}
	return trades, summaries
}

func newVerifier(trades *memory.TradeRecordStore, summaries *memory.RunSummaryStore) *ReplayVerifier {
	return NewReplayVerifier(ReplayVerifierOptions{
		TradeStore:        trades,
		SummaryStore:      summaries,
		Multiplier:        10,
		AnnualizationDays: 252,
	})
}

func TestReplayVerifier_VerifyRun_Match(t *testing.T) {
	trades, summaries := storeRun(t, "run1",
		[]float64{0.3, 0.5, -0.2, 1.0},
		[]domain.Direction{domain.DirectionUp, domain.DirectionDown, domain.DirectionDown, domain.DirectionUp},
	)

	report, err := newVerifier(trades, summaries).VerifyRun(context.Background(), "run1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.Match() {
		t.Errorf("expected match, trades=%v summary=%v", report.Results, report.SummaryDivergences)
	}
	if report.TotalTrades != 4 || report.MatchedTrades != 4 {
		t.Errorf("expected 4/4 matched, got %d/%d", report.MatchedTrades, report.TotalTrades)
	}
}

func TestReplayVerifier_VerifyRun_ZeroVarianceSharpe(t *testing.T) {
	// Identical payoffs: Sharpe NaN both stored and replayed
	trades, summaries := storeRun(t, "run1",
		[]float64{0.5, 0.5},
		[]domain.Direction{domain.DirectionUp, domain.DirectionUp},
	)

	report, err := newVerifier(trades, summaries).VerifyRun(context.Background(), "run1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.Match() {
		t.Errorf("expected match, got %v", report.SummaryDivergences)
	}
}

func TestReplayVerifier_VerifyRun_TamperedSummary(t *testing.T) {
	ctx := context.Background()
	trades, _ := storeRun(t, "run1",
		[]float64{0.3, -0.4},
		[]domain.Direction{domain.DirectionUp, domain.DirectionUp},
	)

	// Summary claims a different total
	summaries := memory.NewRunSummaryStore()
	if err := summaries.Insert(ctx, &domain.RunSummary{RunID: "run1", CreatedAt: day0, TotalTrades: 2, TotalPnL: 99}); err != nil {
		t.Fatalf("insert summary: %v", err)
	}

	report, err := newVerifier(trades, summaries).VerifyRun(ctx, "run1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if report.Match() {
		t.Fatal("expected divergence")
	}
	if report.DivergentTrades != 0 {
		t.Errorf("trades should still match, got %d divergent", report.DivergentTrades)
	}
	found := false
	for _, d := range report.SummaryDivergences {
		if d.Field == "TotalPnL" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected TotalPnL divergence, got %v", report.SummaryDivergences)
	}
}

func TestReplayVerifier_VerifyRun_WrongMultiplier(t *testing.T) {
	trades, summaries := storeRun(t, "run1",
		[]float64{0.3, -0.4},
		[]domain.Direction{domain.DirectionUp, domain.DirectionDown},
	)

	v := NewReplayVerifier(ReplayVerifierOptions{
		TradeStore:        trades,
		SummaryStore:      summaries,
		Multiplier:        20,
		AnnualizationDays: 252,
	})
	report, err := v.VerifyRun(context.Background(), "run1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if report.DivergentTrades != 2 {
		t.Errorf("expected 2 divergent trades, got %d", report.DivergentTrades)
	}
}

func TestReplayVerifier_VerifyRun_NotFound(t *testing.T) {
	v := newVerifier(memory.NewTradeRecordStore(), memory.NewRunSummaryStore())

	_, err := v.VerifyRun(context.Background(), "missing")
	if err != ErrRunNotFound {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}
