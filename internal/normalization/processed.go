package normalization

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"sleep-futures/internal/domain"
)

// ProcessedColumns is the header of the processed daily table.
var ProcessedColumns = []string{
	"date",
	"start",
	"end",
	"duration_minutes",
	"hours_slept",
	"sleep_efficiency",
	"bedtime_minutes",
	"sleep_index",
}

// WriteProcessed encodes the daily table as CSV. Undefined values are empty cells.
func WriteProcessed(w io.Writer, obs []*domain.DailyObservation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ProcessedColumns); err != nil {
		return err
	}
	for _, o := range obs {
		row := []string{
			o.Date.Format(domain.DateLayout),
			formatTime(o.Start),
			formatTime(o.End),
			formatFloat(o.DurationMinutes),
			formatFloat(o.HoursSlept),
			formatFloat(o.SleepEfficiency),
			formatFloat(o.BedtimeMinutes),
			formatFloat(o.SleepIndex),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadProcessed decodes a table written by WriteProcessed.
func ReadProcessed(r io.Reader) ([]*domain.DailyObservation, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(ProcessedColumns)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyExport
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, want := range ProcessedColumns {
		if NormalizeColumnName(header[i]) != want {
			return nil, fmt.Errorf("%w: %s (got %q at position %d)", ErrMissingColumn, want, header[i], i)
		}
	}

	var obs []*domain.DailyObservation
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

		date, err := time.Parse(domain.DateLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d date: %w", line, err)
		}
		o := &domain.DailyObservation{Date: date}

		if o.Start, err = parseOptionalTime(row[1]); err != nil {
			return nil, fmt.Errorf("line %d start: %w", line, err)
		}
		if o.End, err = parseOptionalTime(row[2]); err != nil {
			return nil, fmt.Errorf("line %d end: %w", line, err)
		}
		for i, dst := range []**float64{
			&o.DurationMinutes,
			&o.HoursSlept,
			&o.SleepEfficiency,
			&o.BedtimeMinutes,
			&o.SleepIndex,
		} {
			if *dst, err = parseOptionalFloat(row[3+i]); err != nil {
				return nil, fmt.Errorf("line %d %s: %w", line, ProcessedColumns[3+i], err)
			}
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

func parseOptionalTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseTimestamp(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
