package normalization

import (
	"context"
	"fmt"
	"io"

	"sleep-futures/internal/domain"
)

// Ingest processes a raw export.
// Steps:
//  1. Parse rows and normalise column names
//  2. Sort by (end, start, line) and keep the last session per wake-up date
//  3. Reindex to the full daily range
//  4. Replace the processed table in the observation store
func (r *Runner) Ingest(ctx context.Context, src io.Reader) ([]*domain.DailyObservation, error) {
	obs, err := LoadExport(src, r.targetSleepHours)
	if err != nil {
		return nil, err
	}

	if err := r.observationStore.ReplaceAll(ctx, obs); err != nil {
		return nil, fmt.Errorf("store observations: %w", err)
	}
	return obs, nil
}
