package normalization

import (
	"context"
	"io"

	"sleep-futures/internal/domain"
	"sleep-futures/internal/storage"
)

// Engine defines the ingest interface.
type Engine interface {
	// Ingest parses a raw export, stores the processed table and returns it.
	Ingest(ctx context.Context, r io.Reader) ([]*domain.DailyObservation, error)
}

// Runner implements Engine.
type Runner struct {
	targetSleepHours float64
	observationStore storage.ObservationStore
}

// NewRunner creates a new normalization runner.
func NewRunner(targetSleepHours float64, observationStore storage.ObservationStore) *Runner {
	return &Runner{
		targetSleepHours: targetSleepHours,
		observationStore: observationStore,
	}
}

var _ Engine = (*Runner)(nil)
