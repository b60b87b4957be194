// Package reporting renders a pipeline run as a markdown report and the CSV
// exports consumed by the external visualizer.
package reporting

import (
	"time"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/features"
	"sleep-futures/internal/metrics"
)

// Artifact file names written by Generator.
const (
	MarkdownFile       = "report.md"
	DailyCSVFile       = "sleep_daily.csv"
	PredictionsCSVFile = "predictions.csv"
	TradesCSVFile      = "trades.csv"
	VolatilityCSVFile  = "volatility.csv"
)

// Report represents one pipeline run.
type Report struct {
	GeneratedAt time.Time

	Summary      *domain.RunSummary
	StrategyName string
	Multiplier   float64
	Ledger       metrics.LedgerStats

	// Data Quality (sufficiency checks)
	DataQuality DataQualitySection

	// Series
	Observations []*domain.DailyObservation
	Predictions  []domain.PredictionRow
	Trades       []*domain.TradeRecord
	Volatility   []features.VolatilityPoint
}

// DataQualitySection contains data sufficiency checks and integrity errors.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion.
type SufficiencyCheckRow struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}
