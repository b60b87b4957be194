package memory

import (
	"context"
	"sort"
	"sync"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

// TradeRecordStore is an in-memory implementation of storage.TradeRecordStore.
type TradeRecordStore struct {
	mu    sync.RWMutex
	data  map[string]*domain.TradeRecord // keyed by trade_id
	byRun map[string][]string            // run_id -> trade_ids, date order
}

// NewTradeRecordStore creates a new in-memory trade record store.
func NewTradeRecordStore() *TradeRecordStore {
	return &TradeRecordStore{
		data:  make(map[string]*domain.TradeRecord),
		byRun: make(map[string][]string),
	}
}

// InsertBulk appends a ledger. The whole batch is rejected if any trade_id
// is already stored.
func (s *TradeRecordStore) InsertBulk(_ context.Context, trades []*domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}
	if err := storage.ValidateTrades(trades); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range trades {
		if _, exists := s.data[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
	}

	touched := make(map[string]struct{})
	for _, t := range trades {
		rec := *t
		s.data[t.TradeID] = &rec
		s.byRun[t.RunID] = append(s.byRun[t.RunID], t.TradeID)
		touched[t.RunID] = struct{}{}
	}
	for runID := range touched {
		ids := s.byRun[runID]
		sort.SliceStable(ids, func(i, j int) bool {
			return s.data[ids[i]].Date.Before(s.data[ids[j]].Date)
		})
	}
	return nil
}

// GetByID retrieves a trade. Returns ErrNotFound if it does not exist.
func (s *TradeRecordStore) GetByID(_ context.Context, tradeID string) (*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[tradeID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	rec := *t
	return &rec, nil
}

// GetByRunID returns the ledger of a run in date order, empty if unknown.
func (s *TradeRecordStore) GetByRunID(_ context.Context, runID string) ([]*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byRun[runID]
	result := make([]*domain.TradeRecord, 0, len(ids))
	for _, id := range ids {
		rec := *s.data[id]
		result = append(result, &rec)
	}
	return result, nil
}

var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)
