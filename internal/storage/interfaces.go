package storage

import (
	"context"
	"time"

	"sleep-futures/internal/domain"
)

// ObservationStore provides access to the processed daily_observations table.
// The table is a cache of the latest ingest and is replaced wholesale.
type ObservationStore interface {
	// ReplaceAll atomically swaps the stored table for obs.
	// Returns ErrInvalidInput on duplicate or unordered dates.
	ReplaceAll(ctx context.Context, obs []*domain.DailyObservation) error

	// GetAll retrieves every observation, ordered by date ASC.
	GetAll(ctx context.Context) ([]*domain.DailyObservation, error)

	// GetByDateRange retrieves observations within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.DailyObservation, error)
}

// FeatureStore provides access to feature_rows storage.
type FeatureStore interface {
	// InsertBulk adds the feature table of a run. Returns ErrDuplicateKey if
	// rows for runID already exist.
	InsertBulk(ctx context.Context, runID string, table *domain.FeatureTable) error

	// GetByRunID retrieves the feature table of a run, rows ordered by date ASC.
	// Returns ErrNotFound if the run has no rows.
	GetByRunID(ctx context.Context, runID string) (*domain.FeatureTable, error)
}

// TradeRecordStore provides access to trade_records storage.
type TradeRecordStore interface {
	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// GetByRunID retrieves the ledger of a run, ordered by date ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TradeRecord, error)
}

// RunSummaryStore provides access to run_summaries storage.
type RunSummaryStore interface {
	// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, s *domain.RunSummary) error

	// GetByID retrieves a summary by run ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunSummary, error)

	// GetLatest retrieves the most recently created summary.
	// Returns ErrNotFound if the store is empty.
	GetLatest(ctx context.Context) (*domain.RunSummary, error)

	// GetAll retrieves all summaries ordered by created_at ASC.
	GetAll(ctx context.Context) ([]*domain.RunSummary, error)
}
