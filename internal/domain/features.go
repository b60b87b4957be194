package domain

import "time"

// FeatureRow is one fully defined row of the supervised-learning table.
type FeatureRow struct {
	Date        time.Time // observation date (features known at end of this day)
	Values      []float64 // aligned with FeatureTable.Columns
	Target      float64   // next-day sleep index
	TargetClass Direction // DirectionOf(Target)
}

// FeatureTable holds feature rows ordered by date ASC and the column names
// their Values are aligned with.
type FeatureTable struct {
	Columns []string
	Rows    []*FeatureRow
}

// Len returns the number of rows.
func (t *FeatureTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of a named column.
func (t *FeatureTable) ColumnIndex(name string) (int, bool) {
	for i, c := range t.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Slice returns rows [i, j) sharing the same column layout.
func (t *FeatureTable) Slice(i, j int) *FeatureTable {
	return &FeatureTable{Columns: t.Columns, Rows: t.Rows[i:j]}
}

// Matrix returns the feature values as a row-major matrix.
func (t *FeatureTable) Matrix() [][]float64 {
	x := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		x[i] = r.Values
	}
	return x
}

// Classes returns the direction targets in row order.
func (t *FeatureTable) Classes() []Direction {
	y := make([]Direction, len(t.Rows))
	for i, r := range t.Rows {
		y[i] = r.TargetClass
	}
	return y
}

// Targets returns the numeric targets in row order.
func (t *FeatureTable) Targets() []float64 {
	y := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		y[i] = r.Target
	}
	return y
}

// Dates returns the row dates in order.
func (t *FeatureTable) Dates() []time.Time {
	d := make([]time.Time, len(t.Rows))
	for i, r := range t.Rows {
		d[i] = r.Date
	}
	return d
}
