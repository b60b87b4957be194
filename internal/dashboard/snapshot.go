// Package dashboard serves the latest pipeline run to the external
// visualizer as JSON endpoints and a WebSocket feed.
package dashboard

import (
	"context"
	"math"
	"time"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/orchestrator"
)

// Snapshot is everything the dashboard shows for one run.
// Undefined numbers are encoded as null.
type Snapshot struct {
	RunID       string            `json:"run_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Daily       []DailyPoint      `json:"daily"`
	Predictions []PredictionPoint `json:"predictions"`
	Strategy    StrategyView      `json:"strategy"`
	Summary     SummaryView       `json:"summary"`
}

// DailyPoint is one calendar day of the processed table.
type DailyPoint struct {
	Date            string   `json:"date"`
	HoursSlept      *float64 `json:"hours_slept"`
	SleepIndex      *float64 `json:"sleep_index"`
	SleepEfficiency *float64 `json:"sleep_efficiency"`
	BedtimeMinutes  *float64 `json:"bedtime_minutes"`
	Volatility      *float64 `json:"volatility"`
}

// PredictionPoint pairs the realised index with the predicted direction.
type PredictionPoint struct {
	Date  string   `json:"date"`
	YTrue *float64 `json:"y_true"`
	YPred *int     `json:"y_pred_cls"`
}

// TradePoint is one ledger entry.
type TradePoint struct {
	Date     string  `json:"date"`
	Position int     `json:"position"`
	PnL      float64 `json:"pnl"`
	CumPnL   float64 `json:"cum_pnl"`
}

// StrategyView is the equity curve and its statistics.
type StrategyView struct {
	Name        string       `json:"name"`
	Multiplier  float64      `json:"multiplier"`
	Trades      []TradePoint `json:"trades"`
	TotalPnL    float64      `json:"total_pnl"`
	Sharpe      *float64     `json:"sharpe"`
	MaxDrawdown float64      `json:"max_drawdown"`
}

// SummaryView is the headline of the run.
type SummaryView struct {
	FirstDate           string   `json:"first_date"`
	LastDate            string   `json:"last_date"`
	ObservationDays     int      `json:"observation_days"`
	RecordedDays        int      `json:"recorded_days"`
	FeatureRows         int      `json:"feature_rows"`
	ModelKind           string   `json:"model_kind"`
	BestIteration       int      `json:"best_iteration"`
	EvalRows            int      `json:"eval_rows"`
	EvaluatedOnTrain    bool     `json:"evaluated_on_train"`
	Accuracy            *float64 `json:"accuracy"`
	DirectionalAccuracy *float64 `json:"directional_accuracy"`
	TotalTrades         int      `json:"total_trades"`
	TotalPnL            float64  `json:"total_pnl"`
	Sharpe              *float64 `json:"sharpe"`
	MaxDrawdown         float64  `json:"max_drawdown"`
	WinRate             float64  `json:"win_rate"`
	DataChecksPassed    bool     `json:"data_checks_passed"`
}

// Loader produces a fresh snapshot.
type Loader interface {
	Load(ctx context.Context) (*Snapshot, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context) (*Snapshot, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context) (*Snapshot, error) { return f(ctx) }

// NewPipelineLoader runs the pipeline on every load.
// Runs over unchanged data reuse the processed cache and stored run.
func NewPipelineLoader(o *orchestrator.Orchestrator, now func() time.Time) Loader {
	if now == nil {
		now = time.Now
	}
	return LoaderFunc(func(ctx context.Context) (*Snapshot, error) {
		res, err := o.Run(ctx)
		if err != nil {
			return nil, err
		}
		return SnapshotFromRun(res, now().UTC()), nil
	})
}

// SnapshotFromRun converts a pipeline result.
func SnapshotFromRun(res *orchestrator.RunResult, generatedAt time.Time) *Snapshot {
	vol := make(map[time.Time]float64, len(res.Volatility))
	for _, p := range res.Volatility {
		vol[p.Date] = p.Volatility
	}

	daily := make([]DailyPoint, len(res.Observations))
	for i, o := range res.Observations {
		daily[i] = DailyPoint{
			Date:            o.Date.Format(domain.DateLayout),
			HoursSlept:      o.HoursSlept,
			SleepIndex:      o.SleepIndex,
			SleepEfficiency: o.SleepEfficiency,
			BedtimeMinutes:  o.BedtimeMinutes,
		}
		if v, ok := vol[o.Date]; ok {
			daily[i].Volatility = nullable(v)
		}
	}

	rows := res.Model.PredictionRows()
	preds := make([]PredictionPoint, len(rows))
	for i, r := range rows {
		preds[i] = PredictionPoint{Date: r.Date.Format(domain.DateLayout), YTrue: r.YTrue}
		if r.YPredCls != nil {
			p := int(*r.YPredCls)
			preds[i].YPred = &p
		}
	}

	bt := res.Backtest
	trades := make([]TradePoint, len(bt.Trades))
	for i, t := range bt.Trades {
		trades[i] = TradePoint{
			Date:     t.Date.Format(domain.DateLayout),
			Position: t.Position,
			PnL:      t.PnL,
			CumPnL:   t.CumPnL,
		}
	}

	s := res.Summary
	return &Snapshot{
		RunID:       res.RunID,
		GeneratedAt: generatedAt,
		Daily:       daily,
		Predictions: preds,
		Strategy: StrategyView{
			Name:        bt.StrategyName,
			Multiplier:  bt.Multiplier,
			Trades:      trades,
			TotalPnL:    bt.TotalPnL,
			Sharpe:      nullable(bt.Sharpe),
			MaxDrawdown: bt.MaxDrawdown,
		},
		Summary: SummaryView{
			FirstDate:           s.FirstDate.Format(domain.DateLayout),
			LastDate:            s.LastDate.Format(domain.DateLayout),
			ObservationDays:     s.ObservationDays,
			RecordedDays:        s.RecordedDays,
			FeatureRows:         s.FeatureRows,
			ModelKind:           string(s.ModelKind),
			BestIteration:       s.BestIteration,
			EvalRows:            s.EvalRows,
			EvaluatedOnTrain:    s.EvaluatedOnTrain,
			Accuracy:            nullable(s.Accuracy),
			DirectionalAccuracy: nullable(s.DirectionalAccuracy),
			TotalTrades:         s.TotalTrades,
			TotalPnL:            s.TotalPnL,
			Sharpe:              nullable(s.Sharpe),
			MaxDrawdown:         s.MaxDrawdown,
			WinRate:             s.WinRate,
			DataChecksPassed:    res.Sufficiency != nil && res.Sufficiency.AllPass,
		},
	}
}

// nullable maps NaN and Inf to nil.
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
