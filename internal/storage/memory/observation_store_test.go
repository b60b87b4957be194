package memory

import (
	"context"
	"errors"
	"testing"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

func obsOn(offset int, hours float64) *domain.DailyObservation {
	return &domain.DailyObservation{Date: day0.AddDate(0, 0, offset), HoursSlept: &hours}
}

func TestObservationStore_ReplaceAll(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	if err := store.ReplaceAll(ctx, []*domain.DailyObservation{obsOn(0, 7), obsOn(1, 8)}); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}
	if err := store.ReplaceAll(ctx, []*domain.DailyObservation{obsOn(5, 6)}); err != nil {
		t.Fatalf("second ReplaceAll failed: %v", err)
	}

	got, err := store.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if len(got) != 1 || !got[0].Date.Equal(day0.AddDate(0, 0, 5)) {
		t.Errorf("Expected only the replacement row, got %d rows", len(got))
	}
}

func TestObservationStore_RejectsUnordered(t *testing.T) {
	store := NewObservationStore()

	err := store.ReplaceAll(context.Background(), []*domain.DailyObservation{obsOn(1, 7), obsOn(0, 8)})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestObservationStore_GetByDateRange(t *testing.T) {
	store := NewObservationStore()
	ctx := context.Background()

	var obs []*domain.DailyObservation
	for i := 0; i < 10; i++ {
		obs = append(obs, obsOn(i, 7))
	}
	if err := store.ReplaceAll(ctx, obs); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	got, err := store.GetByDateRange(ctx, day0.AddDate(0, 0, 2), day0.AddDate(0, 0, 4))
	if err != nil {
		t.Fatalf("GetByDateRange failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Expected 3 rows (inclusive range), got %d", len(got))
	}
}
