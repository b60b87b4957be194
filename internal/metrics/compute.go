// Package metrics provides the numeric kernels shared by the backtester,
// the classifier evaluation and the report: means, sample deviation,
// percentiles, Sharpe ratio, drawdown and streaks.
package metrics

import (
	"math"

	"sleep-futures/internal/domain"
)

// Mean calculates the arithmetic mean. Returns NaN for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// SampleStddev calculates sample standard deviation (n-1 denominator).
// Returns NaN when fewer than 2 samples are available.
func SampleStddev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return math.NaN()
	}
	mean := Mean(xs)
	sumSq := 0.0
	for _, x := range xs {
		diff := x - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// Sharpe calculates sqrt(periods) * mean / sample stddev.
// Zero or undefined deviation yields NaN rather than an error.
func Sharpe(pnl []float64, periods int) float64 {
	std := SampleStddev(pnl)
	if math.IsNaN(std) || std == 0 {
		return math.NaN()
	}
	return math.Sqrt(float64(periods)) * Mean(pnl) / std
}

// CumulativeSum returns running sums of xs in order.
func CumulativeSum(xs []float64) []float64 {
	out := make([]float64, len(xs))
	running := 0.0
	for i, x := range xs {
		running += x
		out[i] = running
	}
	return out
}

// MaxDrawdown calculates the worst drop of cumulative PnL below its running
// peak. The peak starts at zero equity, so the result is <= 0 and equals the
// full loss when the ledger never trades above water.
// PnL must be in chronological order.
func MaxDrawdown(pnl []float64) float64 {
	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, p := range pnl {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		if dd := cumulative - peak; dd < maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// MaxConsecutiveLosses finds the longest streak of pnl <= 0.
func MaxConsecutiveLosses(pnl []float64) int {
	maxStreak := 0
	currentStreak := 0

	for _, p := range pnl {
		if p <= 0 {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}

// Percentile uses linear interpolation.
// sorted must be pre-sorted ASC; p is a fraction (0.10 = 10th percentile).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Median returns the 50th percentile of an unsorted slice, NaN if empty.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return Percentile(sortedCopy(xs), 0.5)
}

// Accuracy returns the fraction of positions where predicted equals actual.
// Slices must be aligned; an empty evaluation yields NaN.
func Accuracy(predicted, actual []domain.Direction) float64 {
	if len(predicted) == 0 || len(predicted) != len(actual) {
		return math.NaN()
	}
	hits := 0
	for i := range predicted {
		if predicted[i] == actual[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(predicted))
}
