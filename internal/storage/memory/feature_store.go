package memory

import (
	"context"
	"sync"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

// FeatureStore is an in-memory implementation of storage.FeatureStore.
type FeatureStore struct {
	mu   sync.RWMutex
	data map[string]*domain.FeatureTable // keyed by run_id
}

// NewFeatureStore creates a new in-memory feature store.
func NewFeatureStore() *FeatureStore {
	return &FeatureStore{
		data: make(map[string]*domain.FeatureTable),
	}
}

// InsertBulk adds the feature table of a run.
func (s *FeatureStore) InsertBulk(_ context.Context, runID string, table *domain.FeatureTable) error {
	if runID == "" || table == nil {
		return storage.ErrInvalidInput
	}
	if table.Len() == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[runID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[runID] = cloneTable(table)
	return nil
}

// GetByRunID retrieves the feature table of a run.
func (s *FeatureStore) GetByRunID(_ context.Context, runID string) (*domain.FeatureTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return cloneTable(t), nil
}

func cloneTable(t *domain.FeatureTable) *domain.FeatureTable {
	out := &domain.FeatureTable{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]*domain.FeatureRow, len(t.Rows)),
	}
	for i, r := range t.Rows {
		copy := *r
		copy.Values = append([]float64(nil), r.Values...)
		out.Rows[i] = &copy
	}
	return out
}

var _ storage.FeatureStore = (*FeatureStore)(nil)
