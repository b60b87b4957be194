package domain

import "time"

// PredictionRow pairs the realised next-day sleep index with the model's
// predicted direction for one date. Either side may be undefined (nil).
type PredictionRow struct {
	Date     time.Time
	YTrue    *float64
	YPredCls *Direction
}

// TradeRecord represents one simulated contract position.
// Corresponds to trade_records table.
type TradeRecord struct {
	TradeID  string    // deterministic hash of run_id|date
	RunID    string    // pipeline run identifier
	Date     time.Time // observation date the position was opened on
	YTrue    float64   // realised next-day sleep index
	YTrueCls Direction // realised direction
	YPredCls Direction // predicted direction
	Position int       // signed contracts, equals YPredCls
	PnL      float64   // multiplier * position * y_true
	CumPnL   float64   // running sum of PnL
}

// IsWin reports whether the position made money.
func (t *TradeRecord) IsWin() bool {
	return t.PnL > 0
}
