// Package features builds the supervised-learning table from the daily
// observation series.
package features

import (
	"errors"
	"fmt"
	"math"

	"sleep-futures/internal/config"
	"sleep-futures/internal/domain"
	"sleep-futures/internal/metrics"
	"sleep-futures/internal/normalization"
)

// ErrUnorderedInput is returned when observation dates are duplicated or descending.
var ErrUnorderedInput = errors.New("observations must have unique ascending dates")

// Base feature columns, in table order.
const (
	ColSleepIndex      = "sleep_index"
	ColHoursSlept      = "hours_slept"
	ColSleepEfficiency = "sleep_efficiency"
	ColSleepDeficit    = "sleep_deficit"
	ColCircadianDrift  = "circadian_drift"
	ColIsWeekend       = "is_weekend"
)

// RollingColumn names the trailing mean column for a window.
func RollingColumn(window int) string {
	return fmt.Sprintf("sleep_index_rolling_%dd", window)
}

// DayOfWeekColumn names the one-hot column for a weekday (0 = Monday).
func DayOfWeekColumn(dow int) string {
	return fmt.Sprintf("dow_%d", dow)
}

// Columns returns the feature column order for the given rolling windows.
func Columns(windows []int) []string {
	cols := []string{
		ColSleepIndex,
		ColHoursSlept,
		ColSleepEfficiency,
		ColSleepDeficit,
		ColCircadianDrift,
		ColIsWeekend,
	}
	for _, w := range windows {
		cols = append(cols, RollingColumn(w))
	}
	for d := 0; d < 7; d++ {
		cols = append(cols, DayOfWeekColumn(d))
	}
	return cols
}

// Engineer computes the feature table. Gaps in the series are reindexed to
// undefined days first, so rolling windows and the next-day target always
// refer to calendar neighbours. Rows with any undefined feature or target
// are dropped.
func Engineer(obs []*domain.DailyObservation, cfg config.Config) (*domain.FeatureTable, error) {
	for i := 1; i < len(obs); i++ {
		if !obs[i-1].Date.Before(obs[i].Date) {
			return nil, fmt.Errorf("%w: %s follows %s", ErrUnorderedInput,
				obs[i].Date.Format(domain.DateLayout), obs[i-1].Date.Format(domain.DateLayout))
		}
	}

	daily := normalization.ReindexDaily(obs)
	table := &domain.FeatureTable{Columns: Columns(cfg.RollingWindows)}
	if len(daily) == 0 {
		return table, nil
	}

	index := make([]float64, len(daily))
	for i, o := range daily {
		index[i] = value(o.SleepIndex)
	}
	medianBedtime := MedianBedtime(daily)

	rolling := make([][]float64, len(cfg.RollingWindows))
	for k, w := range cfg.RollingWindows {
		rolling[k] = RollingMean(index, w)
	}

	for i, o := range daily {
		if i+1 >= len(daily) {
			break // no next day to predict
		}
		target := index[i+1]

		hours := value(o.HoursSlept)
		values := []float64{
			index[i],
			hours,
			value(o.SleepEfficiency),
			deficit(cfg.TargetSleepHours, hours),
			value(o.BedtimeMinutes) - medianBedtime,
			weekendFlag(o),
		}
		for k := range rolling {
			values = append(values, rolling[k][i])
		}
		values = append(values, oneHotDayOfWeek(o)...)

		if !allDefined(values) || math.IsNaN(target) {
			continue
		}

		table.Rows = append(table.Rows, &domain.FeatureRow{
			Date:        o.Date,
			Values:      values,
			Target:      target,
			TargetClass: domain.DirectionOf(target),
		})
	}
	return table, nil
}

// MedianBedtime returns the median bedtime over recorded days, NaN if none.
func MedianBedtime(obs []*domain.DailyObservation) float64 {
	var bedtimes []float64
	for _, o := range obs {
		if o.BedtimeMinutes != nil && !math.IsNaN(*o.BedtimeMinutes) {
			bedtimes = append(bedtimes, *o.BedtimeMinutes)
		}
	}
	return metrics.Median(bedtimes)
}

// RollingMean returns the trailing mean over window values ending at each
// index. Undefined until the window is full or when any value in it is NaN.
func RollingMean(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	for i := range xs {
		if i+1 < window {
			out[i] = math.NaN()
			continue
		}
		out[i] = metrics.Mean(xs[i+1-window : i+1])
	}
	return out
}

func deficit(target, hours float64) float64 {
	if math.IsNaN(hours) {
		return math.NaN()
	}
	return math.Max(0, target-hours)
}

// dayOfWeek maps time.Weekday to 0 = Monday .. 6 = Sunday.
func dayOfWeek(o *domain.DailyObservation) int {
	return (int(o.Date.Weekday()) + 6) % 7
}

func weekendFlag(o *domain.DailyObservation) float64 {
	if dayOfWeek(o) >= 5 {
		return 1
	}
	return 0
}

func oneHotDayOfWeek(o *domain.DailyObservation) []float64 {
	v := make([]float64, 7)
	v[dayOfWeek(o)] = 1
	return v
}

func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

func allDefined(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
