// Package gbdt implements a small deterministic gradient-boosted decision
// tree classifier for binary log-loss.
//
// Trees are grown depth-first with second-order (Newton) leaf values and L2
// regularisation. Row subsampling is driven by a seeded source, so identical
// inputs and parameters always produce identical ensembles.
package gbdt

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var (
	// ErrEmptyDataset is returned when the training set has no rows.
	ErrEmptyDataset = errors.New("empty dataset")
	// ErrSingleClass is returned when every training label is identical.
	ErrSingleClass = errors.New("training labels contain a single class")
	// ErrShapeMismatch is returned when rows and labels are misaligned.
	ErrShapeMismatch = errors.New("shape mismatch")
)

const probEpsilon = 1e-15

// Params configures boosting.
type Params struct {
	Iterations          int
	Depth               int
	LearningRate        float64
	L2LeafReg           float64
	Subsample           float64 // fraction of rows drawn per tree, (0, 1]
	MinSamplesLeaf      int
	EarlyStoppingRounds int // 0 disables early stopping
	Seed                int64
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	switch {
	case p.Iterations <= 0:
		return fmt.Errorf("iterations must be positive, got %d", p.Iterations)
	case p.Depth <= 0:
		return fmt.Errorf("depth must be positive, got %d", p.Depth)
	case p.LearningRate <= 0:
		return fmt.Errorf("learning rate must be positive, got %v", p.LearningRate)
	case p.L2LeafReg < 0:
		return fmt.Errorf("l2 leaf reg must be non-negative, got %v", p.L2LeafReg)
	case p.Subsample <= 0 || p.Subsample > 1:
		return fmt.Errorf("subsample must be in (0, 1], got %v", p.Subsample)
	case p.EarlyStoppingRounds < 0:
		return fmt.Errorf("early stopping rounds must be non-negative, got %d", p.EarlyStoppingRounds)
	}
	return nil
}

// Dataset is a row-major feature matrix with 0/1 labels.
type Dataset struct {
	X [][]float64
	Y []float64
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.X)
}

func (d *Dataset) check() error {
	if len(d.X) != len(d.Y) {
		return fmt.Errorf("%w: %d rows, %d labels", ErrShapeMismatch, len(d.X), len(d.Y))
	}
	if len(d.X) == 0 {
		return nil
	}
	width := len(d.X[0])
	for i, row := range d.X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d features, want %d", ErrShapeMismatch, i, len(row), width)
		}
	}
	for i, y := range d.Y {
		if y != 0 && y != 1 {
			return fmt.Errorf("%w: label %d is %v, want 0 or 1", ErrShapeMismatch, i, y)
		}
	}
	return nil
}

// Ensemble is a fitted boosted model.
type Ensemble struct {
	BaseScore      float64 // prior log-odds
	LearningRate   float64
	Trees          []*Tree
	BestIteration  int       // number of trees kept
	ValidationLoss []float64 // log-loss after each boosting round, empty without validation
}

// Fit trains an ensemble on train. When valid has rows and early stopping is
// enabled, training stops once validation log-loss has not improved for
// EarlyStoppingRounds rounds, and the ensemble is truncated to the best round.
func Fit(train *Dataset, valid *Dataset, p Params) (*Ensemble, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if train.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	if err := train.check(); err != nil {
		return nil, err
	}
	useValid := valid.Len() > 0
	if useValid {
		if err := valid.check(); err != nil {
			return nil, fmt.Errorf("validation: %w", err)
		}
	}

	prior := Mean(train.Y)
	if prior == 0 || prior == 1 {
		return nil, ErrSingleClass
	}

	e := &Ensemble{
		BaseScore:    logit(prior),
		LearningRate: p.LearningRate,
	}

	n := train.Len()
	margin := fill(n, e.BaseScore)
	grad := make([]float64, n)
	hess := make([]float64, n)

	var validMargin []float64
	if useValid {
		validMargin = fill(valid.Len(), e.BaseScore)
	}

	rng := rand.New(rand.NewSource(p.Seed))
	builder := &treeBuilder{
		x:         train.X,
		grad:      grad,
		hess:      hess,
		maxDepth:  p.Depth,
		lambda:    p.L2LeafReg,
		minLeaf:   max(p.MinSamplesLeaf, 1),
		nFeatures: len(train.X[0]),
	}

	bestLoss := math.Inf(1)
	bestIter := 0

	for iter := 1; iter <= p.Iterations; iter++ {
		for i := 0; i < n; i++ {
			prob := sigmoid(margin[i])
			grad[i] = prob - train.Y[i]
			hess[i] = math.Max(prob*(1-prob), probEpsilon)
		}

		tree := builder.build(sampleRows(rng, n, p.Subsample))
		e.Trees = append(e.Trees, tree)

		for i, row := range train.X {
			margin[i] += p.LearningRate * tree.Predict(row)
		}

		if !useValid {
			continue
		}
		for i, row := range valid.X {
			validMargin[i] += p.LearningRate * tree.Predict(row)
		}
		loss := logLossFromMargin(valid.Y, validMargin)
		e.ValidationLoss = append(e.ValidationLoss, loss)

		if loss < bestLoss {
			bestLoss = loss
			bestIter = iter
		}
		if p.EarlyStoppingRounds > 0 && iter-bestIter >= p.EarlyStoppingRounds {
			break
		}
	}

	if useValid && bestIter > 0 {
		e.Trees = e.Trees[:bestIter]
	}
	e.BestIteration = len(e.Trees)
	return e, nil
}

// Margin returns the raw log-odds for one row.
func (e *Ensemble) Margin(x []float64) float64 {
	m := e.BaseScore
	for _, t := range e.Trees {
		m += e.LearningRate * t.Predict(x)
	}
	return m
}

// PredictProba returns P(label == 1) for one row.
func (e *Ensemble) PredictProba(x []float64) float64 {
	return sigmoid(e.Margin(x))
}

// PredictProbaBatch returns P(label == 1) for every row.
func (e *Ensemble) PredictProbaBatch(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = e.PredictProba(row)
	}
	return out
}

// LogLoss computes mean binary cross-entropy of probabilities against 0/1 labels.
func LogLoss(y, prob []float64) float64 {
	if len(y) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for i := range y {
		p := math.Min(math.Max(prob[i], probEpsilon), 1-probEpsilon)
		if y[i] == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(len(y))
}

// Mean returns the arithmetic mean of xs, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}

func logLossFromMargin(y, margin []float64) float64 {
	prob := make([]float64, len(margin))
	for i, m := range margin {
		prob[i] = sigmoid(m)
	}
	return LogLoss(y, prob)
}

// sampleRows draws a row subset in ascending order. Falls back to every row
// when the draw comes up empty.
func sampleRows(rng *rand.Rand, n int, fraction float64) []int {
	rows := make([]int, 0, n)
	for i := 0; i < n; i++ {
		// Always consume one draw per row so the stream does not depend on fraction.
		if rng.Float64() < fraction {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		for i := 0; i < n; i++ {
			rows = append(rows, i)
		}
	}
	return rows
}

func sigmoid(m float64) float64 {
	if m >= 0 {
		return 1 / (1 + math.Exp(-m))
	}
	z := math.Exp(m)
	return z / (1 + z)
}

func logit(p float64) float64 {
	p = math.Min(math.Max(p, 1e-6), 1-1e-6)
	return math.Log(p / (1 - p))
}

func fill(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
