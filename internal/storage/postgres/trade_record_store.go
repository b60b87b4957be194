package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const tradeRecordColumns = `
	trade_id, run_id, date, y_true, y_true_cls, y_pred_cls,
	position, pnl, cum_pnl
`

// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
func (s *TradeRecordStore) InsertBulk(ctx context.Context, trades []*domain.TradeRecord) (err error) {
	if len(trades) == 0 {
		return nil
	}
	if err := storage.ValidateTrades(trades); err != nil {
		return err
	}
	defer observe("insert_trades", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trade_records (` + tradeRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	batch := &pgx.Batch{}
	for _, t := range trades {
		batch.Queue(query,
			t.TradeID, t.RunID, t.Date, t.YTrue, int16(t.YTrueCls), int16(t.YPredCls),
			t.Position, t.PnL, t.CumPnL,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range trades {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade record in bulk: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeRecordColumns + ` FROM trade_records WHERE trade_id = $1`

	row := s.pool.QueryRow(ctx, query, tradeID)
	t, err := scanTradeRecord(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record: %w", err)
	}
	return t, nil
}

// GetByRunID retrieves the ledger of a run, ordered by date ASC.
func (s *TradeRecordStore) GetByRunID(ctx context.Context, runID string) (result []*domain.TradeRecord, err error) {
	defer observe("select_trades", time.Now(), &err)

	query := `SELECT ` + tradeRecordColumns + ` FROM trade_records WHERE run_id = $1 ORDER BY date ASC`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query trade records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade records: %w", err)
	}
	return result, nil
}

// scanTradeRecord scans a row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var (
		t            domain.TradeRecord
		yTrue, yPred int16
	)
	if err := row.Scan(
		&t.TradeID, &t.RunID, &t.Date, &t.YTrue, &yTrue, &yPred,
		&t.Position, &t.PnL, &t.CumPnL,
	); err != nil {
		return nil, err
	}
	t.Date = domain.DayOf(t.Date)
	t.YTrueCls = domain.Direction(yTrue)
	t.YPredCls = domain.Direction(yPred)
	return &t, nil
}
