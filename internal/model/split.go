package model

import (
	"errors"
	"fmt"

	"sleep-futures/internal/config"
	"sleep-futures/internal/domain"
)

// ErrInsufficientData is returned when the feature table cannot form a
// non-empty training partition.
var ErrInsufficientData = errors.New("insufficient data: not enough history to train a model")

// Partition is a chronological split of a feature table.
// Train = Core ++ tail validation slice; Test follows Train with no overlap.
// When Train is no larger than the validation slice, Core and Validation
// both equal Train.
type Partition struct {
	Train       *domain.FeatureTable
	Core        *domain.FeatureTable
	Validation  *domain.FeatureTable
	Test        *domain.FeatureTable
	SmallSample bool // train partition absorbed every row
}

// Split partitions table chronologically. Rows are never reordered.
func Split(table *domain.FeatureTable, cfg config.Config) (*Partition, error) {
	n := table.Len()
	if n == 0 {
		return nil, fmt.Errorf("%w: feature table is empty", ErrInsufficientData)
	}

	testSize := max(int(float64(n)*cfg.TestSizeFraction), 1)
	trainSize := n - testSize
	small := false
	if trainSize <= cfg.SmallSampleTrainRows {
		trainSize = n
		testSize = 0
		small = true
	}
	if trainSize <= 0 {
		return nil, fmt.Errorf("%w: %d rows leave no training partition", ErrInsufficientData, n)
	}

	p := &Partition{
		Train:       table.Slice(0, trainSize),
		Test:        table.Slice(trainSize, n),
		SmallSample: small,
	}

	valSize := max(int(float64(trainSize)*cfg.ValidationFraction), 1)
	if trainSize > valSize {
		p.Core = p.Train.Slice(0, trainSize-valSize)
		p.Validation = p.Train.Slice(trainSize-valSize, trainSize)
	} else {
		p.Core = p.Train
		p.Validation = p.Train
	}
	return p, nil
}
