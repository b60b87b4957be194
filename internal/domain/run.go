package domain

import "time"

// ModelKind names the predictor variant a run used.
type ModelKind string

// Model kinds.
const (
	ModelKindBoosted  ModelKind = "gradient_boosted"
	ModelKindConstant ModelKind = "constant_predictor"
)

// RunSummary is the persisted headline of one pipeline run.
// Corresponds to run_summaries table.
type RunSummary struct {
	RunID     string
	CreatedAt time.Time

	// Data
	FirstDate       time.Time
	LastDate        time.Time
	ObservationDays int
	RecordedDays    int
	FeatureRows     int

	// Partition
	TrainRows        int
	ValidationRows   int
	TestRows         int
	EvalRows         int
	EvaluatedOnTrain bool // test partition empty, metrics computed on train rows

	// Model
	ModelKind           ModelKind
	BestIteration       int // 0 for constant predictor
	Accuracy            float64
	DirectionalAccuracy float64

	// Strategy
	TotalTrades          int
	TotalPnL             float64
	Sharpe               float64 // NaN when payoff variance is zero
	MaxDrawdown          float64 // <= 0
	WinRate              float64
	PnLMean              float64
	PnLMedian            float64
	PnLP10               float64
	PnLP90               float64
	MaxConsecutiveLosses int
}
