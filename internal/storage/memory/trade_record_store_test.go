package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestTradeRecordStore_InsertAndGet(t *testing.T) {
	store := NewTradeRecordStore()
	ctx := context.Background()

	trade := &domain.TradeRecord{
		TradeID:  "trade1",
		RunID:    "run1",
		Date:     day0,
		YTrue:    0.3,
		YTrueCls: domain.DirectionUp,
		YPredCls: domain.DirectionUp,
		Position: 1,
		PnL:      3,
		CumPnL:   3,
	}

	if err := store.InsertBulk(ctx, []*domain.TradeRecord{trade}); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.PnL != 3 {
		t.Errorf("PnL mismatch: got %f, want %f", got.PnL, 3.0)
	}
}

func TestTradeRecordStore_DuplicateKey(t *testing.T) {
	store := NewTradeRecordStore()
	ctx := context.Background()

	trade := &domain.TradeRecord{TradeID: "trade1", RunID: "run1", Date: day0}

	if err := store.InsertBulk(ctx, []*domain.TradeRecord{trade}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, []*domain.TradeRecord{trade})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeRecordStore_IntraBatchDuplicateRejectsBatch(t *testing.T) {
	store := NewTradeRecordStore()
	ctx := context.Background()

	trades := []*domain.TradeRecord{
		{TradeID: "t1", RunID: "run1", Date: day0},
		{TradeID: "t1", RunID: "run1", Date: day0.AddDate(0, 0, 1)},
	}

	err := store.InsertBulk(ctx, trades)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	if _, err := store.GetByID(ctx, "t1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected batch to be rejected entirely, got %v", err)
	}
}

func TestTradeRecordStore_InvalidInput(t *testing.T) {
	store := NewTradeRecordStore()

	err := store.InsertBulk(context.Background(), []*domain.TradeRecord{{TradeID: "t1"}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestTradeRecordStore_NotFound(t *testing.T) {
	store := NewTradeRecordStore()

	_, err := store.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTradeRecordStore_GetByRunIDOrdered(t *testing.T) {
	store := NewTradeRecordStore()
	ctx := context.Background()

	trades := []*domain.TradeRecord{
		{TradeID: "t3", RunID: "run1", Date: day0.AddDate(0, 0, 2)},
		{TradeID: "t1", RunID: "run1", Date: day0},
		{TradeID: "t2", RunID: "run1", Date: day0.AddDate(0, 0, 1)},
		{TradeID: "x1", RunID: "run2", Date: day0},
	}
	if err := store.InsertBulk(ctx, trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 trades, got %d", len(got))
	}
	for i, want := range []string{"t1", "t2", "t3"} {
		if got[i].TradeID != want {
			t.Errorf("Position %d: got %s, want %s", i, got[i].TradeID, want)
		}
	}
}
