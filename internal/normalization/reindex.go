package normalization

import (
	"time"

	"sleep-futures/internal/domain"
)

// ReindexDaily expands date-sorted, unique observations to the full daily
// range [first, last]. Missing days get an observation with only Date set.
func ReindexDaily(obs []*domain.DailyObservation) []*domain.DailyObservation {
	if len(obs) == 0 {
		return nil
	}

	first := obs[0].Date
	last := obs[len(obs)-1].Date
	days := int(last.Sub(first).Hours()/24) + 1

	out := make([]*domain.DailyObservation, 0, days)
	i := 0
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if i < len(obs) && obs[i].Date.Equal(d) {
			out = append(out, obs[i])
			i++
			continue
		}
		out = append(out, &domain.DailyObservation{Date: d})
	}
	return out
}

// IsContiguous reports whether obs covers consecutive days without gaps.
func IsContiguous(obs []*domain.DailyObservation) bool {
	for i := 1; i < len(obs); i++ {
		if !obs[i].Date.Equal(obs[i-1].Date.Add(24 * time.Hour)) {
			return false
		}
	}
	return true
}
