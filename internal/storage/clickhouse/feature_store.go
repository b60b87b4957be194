package clickhouse

import (
	"context"
	"fmt"
	"time"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

// FeatureStore implements storage.FeatureStore using ClickHouse.
type FeatureStore struct {
	conn *Conn
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(conn *Conn) *FeatureStore {
	return &FeatureStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

// InsertBulk adds the feature table of a run.
// MergeTree does not enforce keys, so existing run rows are checked first.
func (s *FeatureStore) InsertBulk(ctx context.Context, runID string, table *domain.FeatureTable) (err error) {
	if runID == "" || table == nil {
		return storage.ErrInvalidInput
	}
	if table.Len() == 0 {
		return nil
	}
	defer observe("insert_features", time.Now(), &err)

	exists, err := s.exists(ctx, runID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO feature_rows (
			run_id, date, feature_names, feature_values, target, target_class
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range table.Rows {
		if len(r.Values) != len(table.Columns) {
			return fmt.Errorf("%w: row %s has %d values for %d columns",
				storage.ErrInvalidInput, r.Date.Format(domain.DateLayout), len(r.Values), len(table.Columns))
		}
		err = batch.Append(
			runID, r.Date, table.Columns, r.Values, r.Target, int8(r.TargetClass),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves the feature table of a run, rows ordered by date ASC.
func (s *FeatureStore) GetByRunID(ctx context.Context, runID string) (table *domain.FeatureTable, err error) {
	defer observe("select_features", time.Now(), &err)

	rows, err := s.conn.Query(ctx, `
		SELECT date, feature_names, feature_values, target, target_class
		FROM feature_rows
		WHERE run_id = ?
		ORDER BY date ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query feature rows: %w", err)
	}
	defer rows.Close()

	table = &domain.FeatureTable{}
	for rows.Next() {
		var (
			r       domain.FeatureRow
			columns []string
			class   int8
		)
		if err := rows.Scan(&r.Date, &columns, &r.Values, &r.Target, &class); err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}
		if table.Columns == nil {
			table.Columns = columns
		}
		r.Date = domain.DayOf(r.Date)
		r.TargetClass = domain.Direction(class)
		table.Rows = append(table.Rows, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}

	if table.Len() == 0 {
		return nil, storage.ErrNotFound
	}
	return table, nil
}

func (s *FeatureStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM feature_rows WHERE run_id = ?`, runID)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
