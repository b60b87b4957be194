// Package normalization turns a raw sleep-tracker export into the processed
// daily observation table: one row per calendar day, contiguous, ascending.
package normalization

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"sleep-futures/internal/domain"
)

var (
	// ErrMissingColumn is returned when a required export column is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyExport is returned when the export has no data rows.
	ErrEmptyExport = errors.New("export contains no sleep records")
	// ErrBadTimestamp is returned when start/end cannot be parsed.
	ErrBadTimestamp = errors.New("unparseable timestamp")
)

// Export column names after normalisation.
const (
	colStart    = "start"
	colEnd      = "end"
	colDuration = "duration"
	colRestful  = "restful_minutes"
	colRestless = "restless_minutes"
	colAwake    = "awake_minutes"
)

// timestampLayouts are tried in order. Zoned layouts keep the recorded
// offset so the wake-up date is the local calendar day.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

// record is one parsed sleep session from the export.
type record struct {
	start    time.Time
	end      time.Time
	duration *float64
	restful  float64
	restless float64
	awake    float64
	line     int
}

// NormalizeColumnName trims, lower-cases and replaces spaces with underscores.
func NormalizeColumnName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// LoadExport reads a raw CSV export and returns the processed daily table.
// The sleep day is the calendar date of the session end; when several
// sessions end on the same day the latest one wins.
func LoadExport(r io.Reader, targetSleepHours float64) ([]*domain.DailyObservation, error) {
	records, err := parseExport(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrEmptyExport
	}

	sortRecords(records)

	// Keep the last session per wake-up date.
	byDate := make(map[time.Time]*domain.DailyObservation, len(records))
	var dates []time.Time
	for _, rec := range records {
		obs := observationFrom(rec, targetSleepHours)
		if _, seen := byDate[obs.Date]; !seen {
			dates = append(dates, obs.Date)
		}
		byDate[obs.Date] = obs
	}

	daily := make([]*domain.DailyObservation, 0, len(dates))
	for _, d := range dates {
		daily = append(daily, byDate[d])
	}
	SortObservations(daily)

	return ReindexDaily(daily), nil
}

func parseExport(r io.Reader) ([]*record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyExport
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[NormalizeColumnName(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{colStart, colEnd, colDuration} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var records []*record
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		if isBlank(row) {
			continue
		}

		rec := &record{line: line}
		if rec.start, err = parseTimestamp(cell(row, cols, colStart)); err != nil {
			return nil, fmt.Errorf("line %d start: %w", line, err)
		}
		if rec.end, err = parseTimestamp(cell(row, cols, colEnd)); err != nil {
			return nil, fmt.Errorf("line %d end: %w", line, err)
		}
		if rec.duration, err = parseOptionalFloat(cell(row, cols, colDuration)); err != nil {
			return nil, fmt.Errorf("line %d duration: %w", line, err)
		}
		for _, m := range []struct {
			col string
			dst *float64
		}{
			{colRestful, &rec.restful},
			{colRestless, &rec.restless},
			{colAwake, &rec.awake},
		} {
			v, err := parseOptionalFloat(cell(row, cols, m.col))
			if err != nil {
				return nil, fmt.Errorf("line %d %s: %w", line, m.col, err)
			}
			if v != nil {
				*m.dst = *v
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func observationFrom(rec *record, targetSleepHours float64) *domain.DailyObservation {
	start, end := rec.start, rec.end
	bedtime := float64(start.Hour()*60 + start.Minute())

	obs := &domain.DailyObservation{
		Date:           domain.DayOf(end),
		Start:          &start,
		End:            &end,
		BedtimeMinutes: &bedtime,
	}

	if rec.duration != nil {
		minutes := *rec.duration
		hours := minutes / 60
		index := hours - targetSleepHours
		obs.DurationMinutes = &minutes
		obs.HoursSlept = &hours
		obs.SleepIndex = &index
	}

	if total := rec.restful + rec.restless + rec.awake; total != 0 {
		eff := rec.restful / total
		obs.SleepEfficiency = &eff
	}
	return obs
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrBadTimestamp)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTimestamp, s)
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
