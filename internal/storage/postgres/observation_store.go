package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

// ObservationStore implements storage.ObservationStore using PostgreSQL.
type ObservationStore struct {
	pool *Pool
}

// NewObservationStore creates a new ObservationStore.
func NewObservationStore(pool *Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

var observationColumns = []string{
	"date", "sleep_start", "sleep_end", "duration_minutes", "hours_slept",
	"sleep_efficiency", "bedtime_minutes", "sleep_index",
}

// ReplaceAll truncates daily_observations and bulk-loads obs with COPY in one transaction.
func (s *ObservationStore) ReplaceAll(ctx context.Context, obs []*domain.DailyObservation) (err error) {
	if err := storage.ValidateObservations(obs); err != nil {
		return err
	}
	defer observe("replace_observations", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM daily_observations`); err != nil {
		return fmt.Errorf("clear daily observations: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"daily_observations"},
		observationColumns,
		pgx.CopyFromSlice(len(obs), func(i int) ([]any, error) {
			o := obs[i]
			return []any{
				o.Date, o.Start, o.End, o.DurationMinutes, o.HoursSlept,
				o.SleepEfficiency, o.BedtimeMinutes, o.SleepIndex,
			}, nil
		}),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("copy daily observations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetAll retrieves every observation, ordered by date ASC.
func (s *ObservationStore) GetAll(ctx context.Context) ([]*domain.DailyObservation, error) {
	query := `
		SELECT date, sleep_start, sleep_end, duration_minutes, hours_slept,
		       sleep_efficiency, bedtime_minutes, sleep_index
		FROM daily_observations
		ORDER BY date ASC
	`
	return s.query(ctx, query)
}

// GetByDateRange retrieves observations within [start, end] (inclusive).
func (s *ObservationStore) GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.DailyObservation, error) {
	query := `
		SELECT date, sleep_start, sleep_end, duration_minutes, hours_slept,
		       sleep_efficiency, bedtime_minutes, sleep_index
		FROM daily_observations
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC
	`
	return s.query(ctx, query, start, end)
}

func (s *ObservationStore) query(ctx context.Context, query string, args ...any) (result []*domain.DailyObservation, err error) {
	defer observe("select_observations", time.Now(), &err)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query daily observations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		o := &domain.DailyObservation{}
		if err := rows.Scan(
			&o.Date, &o.Start, &o.End, &o.DurationMinutes, &o.HoursSlept,
			&o.SleepEfficiency, &o.BedtimeMinutes, &o.SleepIndex,
		); err != nil {
			return nil, fmt.Errorf("scan daily observation: %w", err)
		}
		o.Date = domain.DayOf(o.Date)
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily observations: %w", err)
	}
	return result, nil
}
