package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

func TestRunSummaryStore_GetLatest(t *testing.T) {
	store := NewRunSummaryStore()
	ctx := context.Background()

	if _, err := store.GetLatest(ctx); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on empty store, got %v", err)
	}

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"b", "a", "c"} {
		rs := &domain.RunSummary{RunID: id, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		if err := store.Insert(ctx, rs); err != nil {
			t.Fatalf("Insert %s failed: %v", id, err)
		}
	}

	latest, err := store.GetLatest(ctx)
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.RunID != "c" {
		t.Errorf("Expected latest run c, got %s", latest.RunID)
	}

	all, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(all) != 3 || all[0].RunID != "b" {
		t.Errorf("Expected created_at ordering starting with b, got %v", all)
	}
}

func TestRunSummaryStore_DuplicateKey(t *testing.T) {
	store := NewRunSummaryStore()
	ctx := context.Background()

	rs := &domain.RunSummary{RunID: "run1"}
	if err := store.Insert(ctx, rs); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, rs); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}
