package features

import (
	"math"
	"time"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/metrics"
	"sleep-futures/internal/normalization"
)

// VolatilityPoint is the trailing sample stddev of the sleep index on a date.
type VolatilityPoint struct {
	Date       time.Time
	Volatility float64
}

// RollingVolatility computes the trailing sample stddev of the sleep index
// over window days. Days whose window is not fully defined are omitted.
func RollingVolatility(obs []*domain.DailyObservation, window int) []VolatilityPoint {
	daily := normalization.ReindexDaily(obs)

	index := make([]float64, len(daily))
	for i, o := range daily {
		index[i] = value(o.SleepIndex)
	}

	var out []VolatilityPoint
	for i := window - 1; i < len(daily); i++ {
		std := metrics.SampleStddev(index[i+1-window : i+1])
		if math.IsNaN(std) {
			continue
		}
		out = append(out, VolatilityPoint{Date: daily[i].Date, Volatility: std})
	}
	return out
}
