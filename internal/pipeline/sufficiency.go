// Package pipeline holds the data sufficiency checks run before training.
// Checks never abort a run; they are logged and carried into the report.
package pipeline

import (
	"fmt"
	"sort"

	"sleep-futures/internal/domain"
)

// MinCoverage is the recorded-day share below which the history is flagged.
const MinCoverage = 0.5

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains all checks.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string // data integrity errors
}

// SufficiencyChecker validates that the daily table can support a model.
type SufficiencyChecker struct {
	minRecordedDays int
	minFeatureRows  int
}

// NewSufficiencyChecker creates a checker.
// maxRollingWindow is the longest trailing mean; a feature row needs that
// many recorded days plus a next-day target.
func NewSufficiencyChecker(maxRollingWindow, smallSampleTrainRows int) *SufficiencyChecker {
	return &SufficiencyChecker{
		minRecordedDays: maxRollingWindow + 1,
		minFeatureRows:  smallSampleTrainRows + 2,
	}
}

// Check evaluates the daily table and the feature table built from it.
func (c *SufficiencyChecker) Check(obs []*domain.DailyObservation, table *domain.FeatureTable) *SufficiencyResult {
	result := &SufficiencyResult{
		Checks:  make([]SufficiencyCheck, 0, 5),
		AllPass: true,
		Errors:  []string{},
	}

	orderCheck, errs := checkDateOrder(obs)
	result.Errors = append(result.Errors, errs...)

	result.Checks = append(result.Checks,
		c.checkRecordedDays(obs),
		checkCoverage(obs),
		orderCheck,
		c.checkFeatureRows(table),
		checkBothDirections(table),
	)

	for _, ch := range result.Checks {
		if !ch.Pass {
			result.AllPass = false
		}
	}
	return result
}

// checkRecordedDays: days with tracked sleep >= longest window + 1.
func (c *SufficiencyChecker) checkRecordedDays(obs []*domain.DailyObservation) SufficiencyCheck {
	recorded := countRecorded(obs)
	return SufficiencyCheck{
		Name:      "Recorded days",
		Threshold: fmt.Sprintf(">= %d", c.minRecordedDays),
		Actual:    fmt.Sprintf("%d", recorded),
		Pass:      recorded >= c.minRecordedDays,
	}
}

// checkCoverage: recorded / calendar days >= MinCoverage.
func checkCoverage(obs []*domain.DailyObservation) SufficiencyCheck {
	check := SufficiencyCheck{
		Name:      "Daily coverage",
		Threshold: fmt.Sprintf(">= %.0f%%", MinCoverage*100),
	}
	if len(obs) == 0 {
		check.Actual = "no days"
		return check
	}
	coverage := float64(countRecorded(obs)) / float64(len(obs))
	check.Actual = fmt.Sprintf("%.1f%%", coverage*100)
	check.Pass = coverage >= MinCoverage
	return check
}

// checkDateOrder: dates strictly ascending, one row per day.
func checkDateOrder(obs []*domain.DailyObservation) (SufficiencyCheck, []string) {
	var errors []string
	seen := make(map[string]int, len(obs))
	for i, o := range obs {
		key := o.Date.Format(domain.DateLayout)
		seen[key]++
		if i > 0 && !o.Date.After(obs[i-1].Date) && seen[key] == 1 {
			errors = append(errors, fmt.Sprintf("date %s precedes %s", key, obs[i-1].Date.Format(domain.DateLayout)))
		}
	}

	// Sort for deterministic output
	dates := make([]string, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	duplicates := 0
	for _, d := range dates {
		if n := seen[d]; n > 1 {
			duplicates++
			errors = append(errors, fmt.Sprintf("duplicate date: %s (count=%d)", d, n))
		}
	}

	return SufficiencyCheck{
		Name:      "Out-of-order or duplicate dates",
		Threshold: "= 0",
		Actual:    fmt.Sprintf("%d", len(errors)),
		Pass:      len(errors) == 0,
	}, errors
}

// checkFeatureRows: fully defined rows > small-sample train size + 1, so a
// held-out test partition exists.
func (c *SufficiencyChecker) checkFeatureRows(table *domain.FeatureTable) SufficiencyCheck {
	n := table.Len()
	return SufficiencyCheck{
		Name:      "Feature rows",
		Threshold: fmt.Sprintf(">= %d", c.minFeatureRows),
		Actual:    fmt.Sprintf("%d", n),
		Pass:      n >= c.minFeatureRows,
	}
}

// checkBothDirections: targets contain UP and DOWN days.
func checkBothDirections(table *domain.FeatureTable) SufficiencyCheck {
	up, down := 0, 0
	if table == nil {
		table = &domain.FeatureTable{}
	}
	for _, cls := range table.Classes() {
		if cls == domain.DirectionUp {
			up++
		} else {
			down++
		}
	}
	return SufficiencyCheck{
		Name:      "Target classes",
		Threshold: "UP > 0 and DOWN > 0",
		Actual:    fmt.Sprintf("UP=%d DOWN=%d", up, down),
		Pass:      up > 0 && down > 0,
	}
}

func countRecorded(obs []*domain.DailyObservation) int {
	n := 0
	for _, o := range obs {
		if o.IsRecorded() {
			n++
		}
	}
	return n
}
