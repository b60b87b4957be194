package memory

import (
	"context"
	"sort"
	"sync"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

// RunSummaryStore is an in-memory implementation of storage.RunSummaryStore.
type RunSummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunSummary // keyed by run_id
}

// NewRunSummaryStore creates a new in-memory run summary store.
func NewRunSummaryStore() *RunSummaryStore {
	return &RunSummaryStore{
		data: make(map[string]*domain.RunSummary),
	}
}

// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
func (s *RunSummaryStore) Insert(_ context.Context, rs *domain.RunSummary) error {
	if rs == nil || rs.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rs.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *rs
	s.data[rs.RunID] = &copy
	return nil
}

// GetByID retrieves a summary by run ID.
func (s *RunSummaryStore) GetByID(_ context.Context, runID string) (*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rs, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *rs
	return &copy, nil
}

// GetLatest retrieves the most recently created summary.
func (s *RunSummaryStore) GetLatest(ctx context.Context) (*domain.RunSummary, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, storage.ErrNotFound
	}
	return all[len(all)-1], nil
}

// GetAll retrieves all summaries ordered by (created_at, run_id) ASC.
func (s *RunSummaryStore) GetAll(_ context.Context) ([]*domain.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RunSummary, 0, len(s.data))
	for _, rs := range s.data {
		copy := *rs
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

var _ storage.RunSummaryStore = (*RunSummaryStore)(nil)
