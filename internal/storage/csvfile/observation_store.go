// Package csvfile implements storage.ObservationStore on the processed
// daily table cache file.
package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/normalization"
	"sleep-futures/internal/storage"
)

// ObservationStore keeps the daily table in a single CSV file.
type ObservationStore struct {
	mu   sync.RWMutex
	path string
}

// NewObservationStore creates a store backed by path. The file is created on
// the first ReplaceAll.
func NewObservationStore(path string) *ObservationStore {
	return &ObservationStore{path: path}
}

// Path returns the backing file path.
func (s *ObservationStore) Path() string {
	return s.path
}

// Exists reports whether the cache file is present.
func (s *ObservationStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// ReplaceAll writes obs to a temporary file and renames it over the cache.
func (s *ObservationStore) ReplaceAll(_ context.Context, obs []*domain.DailyObservation) error {
	if err := storage.ValidateObservations(obs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".sleep_daily-*.csv")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := normalization.WriteProcessed(tmp, obs); err != nil {
		tmp.Close()
		return fmt.Errorf("write processed table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// GetAll reads the cache file. Returns ErrNotFound if it does not exist.
func (s *ObservationStore) GetAll(_ context.Context) ([]*domain.DailyObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	obs, err := normalization.ReadProcessed(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if err := storage.ValidateObservations(obs); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return obs, nil
}

// GetByDateRange retrieves observations within [start, end] (inclusive).
func (s *ObservationStore) GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.DailyObservation, error) {
	all, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var result []*domain.DailyObservation
	for _, o := range all {
		if o.Date.Before(start) || o.Date.After(end) {
			continue
		}
		result = append(result, o)
	}
	return result, nil
}

var _ storage.ObservationStore = (*ObservationStore)(nil)
