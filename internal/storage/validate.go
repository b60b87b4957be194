package storage

import (
	"fmt"

	"sleep-futures/internal/domain"
)

// ValidateObservations checks that obs is non-nil and strictly ordered by date.
func ValidateObservations(obs []*domain.DailyObservation) error {
	for i, o := range obs {
		if o == nil {
			return fmt.Errorf("%w: nil observation at %d", ErrInvalidInput, i)
		}
		if i > 0 && !obs[i-1].Date.Before(o.Date) {
			return fmt.Errorf("%w: observation dates not strictly ascending at %s",
				ErrInvalidInput, o.Date.Format(domain.DateLayout))
		}
	}
	return nil
}

// ValidateTrades checks the identifiers of a ledger batch.
// A trade_id repeated inside the batch is reported as ErrDuplicateKey.
func ValidateTrades(trades []*domain.TradeRecord) error {
	seen := make(map[string]struct{}, len(trades))
	for i, t := range trades {
		switch {
		case t == nil:
			return fmt.Errorf("%w: nil trade at %d", ErrInvalidInput, i)
		case t.TradeID == "" || t.RunID == "":
			return fmt.Errorf("%w: trade at %d missing trade_id or run_id", ErrInvalidInput, i)
		}
		if _, dup := seen[t.TradeID]; dup {
			return fmt.Errorf("%w: trade %s repeated in batch", ErrDuplicateKey, t.TradeID)
		}
		seen[t.TradeID] = struct{}{}
	}
	return nil
}
