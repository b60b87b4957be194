package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

// RunSummaryStore implements storage.RunSummaryStore using ClickHouse.
type RunSummaryStore struct {
	conn *Conn
}

// NewRunSummaryStore creates a new RunSummaryStore.
func NewRunSummaryStore(conn *Conn) *RunSummaryStore {
	return &RunSummaryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RunSummaryStore = (*RunSummaryStore)(nil)

const runSummaryColumns = `
	run_id, created_at, first_date, last_date,
	observation_days, recorded_days, feature_rows,
	train_rows, validation_rows, test_rows, eval_rows, evaluated_on_train,
	model_kind, best_iteration, accuracy, directional_accuracy,
	total_trades, total_pnl, sharpe, max_drawdown, win_rate,
	pnl_mean, pnl_median, pnl_p10, pnl_p90, max_consecutive_losses
`

// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunSummaryStore) Insert(ctx context.Context, rs *domain.RunSummary) (err error) {
	if rs == nil || rs.RunID == "" {
		return storage.ErrInvalidInput
	}
	defer observe("insert_run_summary", time.Now(), &err)

	// MergeTree would accept the duplicate; keep append-only semantics.
	exists, err := s.exists(ctx, rs.RunID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO run_summaries (`+runSummaryColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	evaluatedOnTrain := uint8(0)
	if rs.EvaluatedOnTrain {
		evaluatedOnTrain = 1
	}

	err = batch.Append(
		rs.RunID, rs.CreatedAt.UTC(), rs.FirstDate, rs.LastDate,
		uint32(rs.ObservationDays), uint32(rs.RecordedDays), uint32(rs.FeatureRows),
		uint32(rs.TrainRows), uint32(rs.ValidationRows), uint32(rs.TestRows), uint32(rs.EvalRows), evaluatedOnTrain,
		string(rs.ModelKind), uint32(rs.BestIteration), rs.Accuracy, rs.DirectionalAccuracy,
		uint32(rs.TotalTrades), rs.TotalPnL, rs.Sharpe, rs.MaxDrawdown, rs.WinRate,
		rs.PnLMean, rs.PnLMedian, rs.PnLP10, rs.PnLP90, uint32(rs.MaxConsecutiveLosses),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("insert run summary: %w", err)
	}
	return nil
}

// GetByID retrieves a summary by run ID.
func (s *RunSummaryStore) GetByID(ctx context.Context, runID string) (*domain.RunSummary, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT `+runSummaryColumns+`
		FROM run_summaries
		WHERE run_id = ?
		LIMIT 1
	`, runID)

	rs, err := scanRunSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run summary: %w", err)
	}
	return rs, nil
}

// GetLatest retrieves the most recently created summary.
func (s *RunSummaryStore) GetLatest(ctx context.Context) (*domain.RunSummary, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT `+runSummaryColumns+`
		FROM run_summaries
		ORDER BY created_at DESC, run_id DESC
		LIMIT 1
	`)

	rs, err := scanRunSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest run summary: %w", err)
	}
	return rs, nil
}

// GetAll retrieves all summaries ordered by created_at ASC.
func (s *RunSummaryStore) GetAll(ctx context.Context) (result []*domain.RunSummary, err error) {
	defer observe("select_run_summaries", time.Now(), &err)

	rows, err := s.conn.Query(ctx, `
		SELECT `+runSummaryColumns+`
		FROM run_summaries
		ORDER BY created_at ASC, run_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query run summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rs, err := scanRunSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		result = append(result, rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run summaries: %w", err)
	}
	return result, nil
}

func (s *RunSummaryStore) exists(ctx context.Context, runID string) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM run_summaries WHERE run_id = ?`, runID)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanRunSummary(row rowScanner) (*domain.RunSummary, error) {
	var (
		rs                                               domain.RunSummary
		obsDays, recDays, featRows                       uint32
		trainRows, valRows, testRows, evalRows, bestIter uint32
		totalTrades, maxLosses                           uint32
		evaluatedOnTrain                                 uint8
		modelKind                                        string
	)
	err := row.Scan(
		&rs.RunID, &rs.CreatedAt, &rs.FirstDate, &rs.LastDate,
		&obsDays, &recDays, &featRows,
		&trainRows, &valRows, &testRows, &evalRows, &evaluatedOnTrain,
		&modelKind, &bestIter, &rs.Accuracy, &rs.DirectionalAccuracy,
		&totalTrades, &rs.TotalPnL, &rs.Sharpe, &rs.MaxDrawdown, &rs.WinRate,
		&rs.PnLMean, &rs.PnLMedian, &rs.PnLP10, &rs.PnLP90, &maxLosses,
	)
	if err != nil {
		return nil, err
	}

	rs.CreatedAt = rs.CreatedAt.UTC()
	rs.FirstDate = domain.DayOf(rs.FirstDate)
	rs.LastDate = domain.DayOf(rs.LastDate)
	rs.ObservationDays = int(obsDays)
	rs.RecordedDays = int(recDays)
	rs.FeatureRows = int(featRows)
	rs.TrainRows = int(trainRows)
	rs.ValidationRows = int(valRows)
	rs.TestRows = int(testRows)
	rs.EvalRows = int(evalRows)
	rs.EvaluatedOnTrain = evaluatedOnTrain == 1
	rs.ModelKind = domain.ModelKind(modelKind)
	rs.BestIteration = int(bestIter)
	rs.TotalTrades = int(totalTrades)
	rs.MaxConsecutiveLosses = int(maxLosses)
	return &rs, nil
}
