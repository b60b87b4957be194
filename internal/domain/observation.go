package domain

import "time"

// DateLayout is the calendar-date format used in exports and cache files.
const DateLayout = "2006-01-02"

// DailyObservation represents one calendar day of the processed sleep table.
// Days without a tracked sleep carry nil values for every attribute.
type DailyObservation struct {
	Date            time.Time  // wake-up date, midnight UTC
	Start           *time.Time // sleep start (wall clock)
	End             *time.Time // sleep end (wall clock)
	DurationMinutes *float64   // tracked duration in minutes
	HoursSlept      *float64   // duration_minutes / 60
	SleepEfficiency *float64   // restful / tracked minutes, NULL if nothing tracked
	BedtimeMinutes  *float64   // start.hour*60 + start.minute
	SleepIndex      *float64   // hours_slept - target hours
}

// DayOf returns the calendar date of t as midnight UTC.
// The wall clock of t is kept, so a 23:30 local start stays on its own day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsRecorded reports whether any sleep was tracked on this day.
func (o *DailyObservation) IsRecorded() bool {
	return o.HoursSlept != nil
}
