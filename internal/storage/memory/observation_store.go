package memory

import (
	"context"
	"sync"
	"time"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data []*domain.DailyObservation // ordered by date ASC
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{}
}

// ReplaceAll swaps the stored table for obs.
func (s *ObservationStore) ReplaceAll(_ context.Context, obs []*domain.DailyObservation) error {
	if err := storage.ValidateObservations(obs); err != nil {
		return err
	}

	data := make([]*domain.DailyObservation, len(obs))
	for i, o := range obs {
		copy := *o
		data[i] = &copy
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// GetAll retrieves every observation, ordered by date ASC.
func (s *ObservationStore) GetAll(_ context.Context) ([]*domain.DailyObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DailyObservation, len(s.data))
	for i, o := range s.data {
		copy := *o
		result[i] = &copy
	}
	return result, nil
}

// GetByDateRange retrieves observations within [start, end] (inclusive).
func (s *ObservationStore) GetByDateRange(_ context.Context, start, end time.Time) ([]*domain.DailyObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyObservation
	for _, o := range s.data {
		if o.Date.Before(start) || o.Date.After(end) {
			continue
		}
		copy := *o
		result = append(result, &copy)
	}
	return result, nil
}

var _ storage.ObservationStore = (*ObservationStore)(nil)
