package normalization

import (
	"sort"

	"sleep-futures/internal/domain"
)

// sortRecords orders sessions by (end ASC, start ASC, line ASC).
// Ties on end keep export order so "last row wins" is deterministic.
func sortRecords(records []*record) {
	sort.SliceStable(records, func(i, j int) bool {
		return compareRecords(records[i], records[j]) < 0
	})
}

// SortObservations orders observations by date ASC.
func SortObservations(obs []*domain.DailyObservation) {
	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Date.Before(obs[j].Date)
	})
}

// compareRecords returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
func compareRecords(a, b *record) int {
	if !a.end.Equal(b.end) {
		if a.end.Before(b.end) {
			return -1
		}
		return 1
	}
	if !a.start.Equal(b.start) {
		if a.start.Before(b.start) {
			return -1
		}
		return 1
	}
	if a.line != b.line {
		if a.line < b.line {
			return -1
		}
		return 1
	}
	return 0
}
