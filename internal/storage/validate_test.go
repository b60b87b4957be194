package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sleep-futures/internal/domain"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestValidateObservations(t *testing.T) {
	ok := []*domain.DailyObservation{{Date: day0}, {Date: day0.AddDate(0, 0, 1)}}
	assert.NoError(t, ValidateObservations(ok))
	assert.NoError(t, ValidateObservations(nil))

	dup := []*domain.DailyObservation{{Date: day0}, {Date: day0}}
	assert.ErrorIs(t, ValidateObservations(dup), ErrInvalidInput)

	assert.ErrorIs(t, ValidateObservations([]*domain.DailyObservation{nil}), ErrInvalidInput)
}

func TestValidateTrades(t *testing.T) {
	assert.NoError(t, ValidateTrades([]*domain.TradeRecord{
		{TradeID: "a", RunID: "r"},
		{TradeID: "b", RunID: "r"},
	}))

	assert.ErrorIs(t, ValidateTrades([]*domain.TradeRecord{nil}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateTrades([]*domain.TradeRecord{{TradeID: "a"}}), ErrInvalidInput)
	assert.ErrorIs(t, ValidateTrades([]*domain.TradeRecord{
		{TradeID: "a", RunID: "r"},
		{TradeID: "a", RunID: "r"},
	}), ErrDuplicateKey)
}
