package metrics

import (
	"sort"

	"sleep-futures/internal/domain"
)

// LedgerStats describes the distribution of per-trade payoffs.
type LedgerStats struct {
	TotalTrades          int
	Wins                 int
	Losses               int
	WinRate              float64
	PnLMean              float64
	PnLMedian            float64
	PnLP10               float64
	PnLP90               float64
	PnLMin               float64
	PnLMax               float64
	MaxConsecutiveLosses int
}

// ComputeLedgerStats summarises a trade ledger.
// Trades are expected in chronological order; order only affects the
// losing-streak count.
func ComputeLedgerStats(trades []*domain.TradeRecord) LedgerStats {
	n := len(trades)
	if n == 0 {
		return LedgerStats{}
	}

	pnl := make([]float64, n)
	wins := 0
	for i, t := range trades {
		pnl[i] = t.PnL
		if t.IsWin() {
			wins++
		}
	}
	sorted := sortedCopy(pnl)

	return LedgerStats{
		TotalTrades:          n,
		Wins:                 wins,
		Losses:               n - wins,
		WinRate:              float64(wins) / float64(n),
		PnLMean:              Mean(pnl),
		PnLMedian:            Percentile(sorted, 0.50),
		PnLP10:               Percentile(sorted, 0.10),
		PnLP90:               Percentile(sorted, 0.90),
		PnLMin:               sorted[0],
		PnLMax:               sorted[n-1],
		MaxConsecutiveLosses: MaxConsecutiveLosses(pnl),
	}
}

func sortedCopy(xs []float64) []float64 {
	out := make([]float64, len(xs))
	copy(out, xs)
	sort.Float64s(out)
	return out
}
