// Package model trains the next-day direction classifier and evaluates it
// on a chronological hold-out.
package model

import (
	"sleep-futures/internal/domain"
	"sleep-futures/internal/model/gbdt"
)

// Predictor kinds.
const (
	KindBoosted  = domain.ModelKindBoosted
	KindConstant = domain.ModelKindConstant
)

// Predictor maps feature rows to direction predictions.
// Implementations: *BoostedPredictor, ConstantPredictor.
type Predictor interface {
	Kind() domain.ModelKind
	Predict(x [][]float64) []domain.Direction
}

// BoostedPredictor wraps a fitted gradient-boosted ensemble.
// Class index 1 is DirectionUp; probabilities at or above Threshold predict it.
type BoostedPredictor struct {
	Ensemble  *gbdt.Ensemble
	Threshold float64
}

// NewBoostedPredictor returns a predictor thresholding at 0.5.
func NewBoostedPredictor(e *gbdt.Ensemble) *BoostedPredictor {
	return &BoostedPredictor{Ensemble: e, Threshold: 0.5}
}

// Kind returns KindBoosted.
func (p *BoostedPredictor) Kind() domain.ModelKind { return KindBoosted }

// Predict thresholds class-1 probabilities.
func (p *BoostedPredictor) Predict(x [][]float64) []domain.Direction {
	out := make([]domain.Direction, len(x))
	for i, prob := range p.Ensemble.PredictProbaBatch(x) {
		out[i] = classFromIndex(prob >= p.Threshold)
	}
	return out
}

// ConstantPredictor always emits the single class seen during training.
type ConstantPredictor struct {
	Class domain.Direction
}

// Kind returns KindConstant.
func (p ConstantPredictor) Kind() domain.ModelKind { return KindConstant }

// Predict returns Class for every row.
func (p ConstantPredictor) Predict(x [][]float64) []domain.Direction {
	out := make([]domain.Direction, len(x))
	for i := range out {
		out[i] = p.Class
	}
	return out
}

func classIndex(d domain.Direction) float64 {
	if d == domain.DirectionUp {
		return 1
	}
	return 0
}

func classFromIndex(up bool) domain.Direction {
	if up {
		return domain.DirectionUp
	}
	return domain.DirectionDown
}
