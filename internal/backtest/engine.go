// Package backtest turns direction predictions into a simulated futures
// ledger and its performance statistics.
package backtest

import (
	"math"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/idhash"
	"sleep-futures/internal/metrics"
)

// Strategy maps a predicted direction to a signed contract position.
type Strategy interface {
	// Position returns the number of contracts held for the day.
	Position(pred domain.Direction) int

	// Name returns the strategy identifier.
	Name() string
}

// FollowPrediction holds one contract in the predicted direction.
type FollowPrediction struct{}

// Position returns +1 for UP and -1 for DOWN.
func (FollowPrediction) Position(pred domain.Direction) int { return int(pred) }

// Name returns "FOLLOW_PREDICTION".
func (FollowPrediction) Name() string { return "FOLLOW_PREDICTION" }

// Results holds backtest output.
type Results struct {
	StrategyName string
	Multiplier   float64
	Trades       []*domain.TradeRecord
	SkippedRows  int // rows with an undefined target or prediction

	TotalPnL    float64
	Sharpe      float64 // NaN when payoff variance is zero or undefined
	MaxDrawdown float64 // <= 0
}

// PnL returns per-trade payoffs in ledger order.
func (r *Results) PnL() []float64 {
	out := make([]float64, len(r.Trades))
	for i, t := range r.Trades {
		out[i] = t.PnL
	}
	return out
}

// AssignRunID stamps every trade with runID and its deterministic trade_id.
func (r *Results) AssignRunID(runID string) {
	for _, t := range r.Trades {
		t.RunID = runID
		t.TradeID = idhash.ComputeTradeID(runID, t.Date)
	}
}

// Engine accumulates a ledger one prediction row at a time.
type Engine struct {
	strategy   Strategy
	multiplier float64
	cumPnL     float64
	results    *Results
}

// NewEngine creates a new backtest engine.
func NewEngine(strategy Strategy, multiplier float64) *Engine {
	return &Engine{
		strategy:   strategy,
		multiplier: multiplier,
		results: &Results{
			StrategyName: strategy.Name(),
			Multiplier:   multiplier,
			Trades:       make([]*domain.TradeRecord, 0),
		},
	}
}

// OnRow books one day. Rows with an undefined side are skipped and reported
// false: a nil, NaN or infinite target, or a prediction other than UP/DOWN.
func (e *Engine) OnRow(row domain.PredictionRow) (*domain.TradeRecord, bool) {
	if !defined(row) {
		e.results.SkippedRows++
		return nil, false
	}

	yTrue := *row.YTrue
	pred := *row.YPredCls
	position := e.strategy.Position(pred)
	pnl := e.multiplier * float64(position) * yTrue
	e.cumPnL += pnl

	trade := &domain.TradeRecord{
		Date:     row.Date,
		YTrue:    yTrue,
		YTrueCls: domain.DirectionOf(yTrue),
		YPredCls: pred,
		Position: position,
		PnL:      pnl,
		CumPnL:   e.cumPnL,
	}
	e.results.Trades = append(e.results.Trades, trade)
	return trade, true
}

func defined(row domain.PredictionRow) bool {
	if row.YTrue == nil || row.YPredCls == nil {
		return false
	}
	if math.IsNaN(*row.YTrue) || math.IsInf(*row.YTrue, 0) {
		return false
	}
	pred := *row.YPredCls
	return pred == domain.DirectionUp || pred == domain.DirectionDown
}

// Results finalises the summary statistics and returns the ledger.
func (e *Engine) Results(annualizationDays int) *Results {
	pnl := e.results.PnL()
	e.results.TotalPnL = e.cumPnL
	e.results.Sharpe = metrics.Sharpe(pnl, annualizationDays)
	e.results.MaxDrawdown = metrics.MaxDrawdown(pnl)
	return e.results
}

// ComputeStrategyPnL runs the prediction-following strategy over rows in
// order and returns the ledger with total PnL, Sharpe and max drawdown.
func ComputeStrategyPnL(rows []domain.PredictionRow, multiplier float64, annualizationDays int) *Results {
	engine := NewEngine(FollowPrediction{}, multiplier)
	for _, row := range rows {
		engine.OnRow(row)
	}
	return engine.Results(annualizationDays)
}
