package storage

import "errors"

var (
	// ErrNotFound is returned when a run, trade or cached table does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when a run_id or trade_id is already stored.
	// Ledgers and run summaries are append-only.
	ErrDuplicateKey = errors.New("duplicate key: append-only store does not allow updates")

	// ErrInvalidInput is returned when a record fails validation before write.
	ErrInvalidInput = errors.New("invalid input")
)
