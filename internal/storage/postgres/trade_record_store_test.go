package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

func testTrades(runID string) []*domain.TradeRecord {
	day0 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	return []*domain.TradeRecord{
		{
			TradeID: runID + "-t2", RunID: runID, Date: day0.AddDate(0, 0, 1),
			YTrue: -0.2, YTrueCls: domain.DirectionDown, YPredCls: domain.DirectionDown,
			Position: -1, PnL: 2, CumPnL: 5,
		},
		{
			TradeID: runID + "-t1", RunID: runID, Date: day0,
			YTrue: 0.3, YTrueCls: domain.DirectionUp, YPredCls: domain.DirectionUp,
			Position: 1, PnL: 3, CumPnL: 3,
		},
	}
}

func TestTradeRecordStore_InsertBulkAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, testTrades("run1")))

	got, err := store.GetByRunID(ctx, "run1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run1-t1", got[0].TradeID)
	assert.Equal(t, domain.DirectionUp, got[0].YPredCls)
	assert.Equal(t, -1, got[1].Position)
	assert.Equal(t, 5.0, got[1].CumPnL)

	one, err := store.GetByID(ctx, "run1-t2")
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionDown, one.YTrueCls)
}

func TestTradeRecordStore_DuplicateRollsBackBatch(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeRecordStore(pool)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, testTrades("run1")[:1]))

	err := store.InsertBulk(ctx, append(testTrades("run2"), testTrades("run1")[0]))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRunID(ctx, "run2")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTradeRecordStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewTradeRecordStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
