package gbdt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepDataset(n int) *Dataset {
	d := &Dataset{}
	for i := 0; i < n; i++ {
		d.X = append(d.X, []float64{float64(i)})
		y := 0.0
		if i >= n/2 {
			y = 1
		}
		d.Y = append(d.Y, y)
	}
	return d
}

func testParams() Params {
	return Params{
		Iterations:   50,
		Depth:        3,
		LearningRate: 0.3,
		L2LeafReg:    1,
		Subsample:    1,
		Seed:         42,
	}
}

func TestFit_LearnsStepFunction(t *testing.T) {
	e, err := Fit(stepDataset(40), nil, testParams())
	require.NoError(t, err)

	assert.Less(t, e.PredictProba([]float64{5}), 0.5)
	assert.Greater(t, e.PredictProba([]float64{35}), 0.5)
	assert.Equal(t, 50, e.BestIteration)
	assert.Empty(t, e.ValidationLoss)
}

func TestFit_BalancedPriorIsZeroLogOdds(t *testing.T) {
	e, err := Fit(stepDataset(10), nil, testParams())
	require.NoError(t, err)
	assert.InDelta(t, 0.0, e.BaseScore, 1e-12)
}

func TestFit_Deterministic(t *testing.T) {
	p := testParams()
	p.Subsample = 0.7

	a, err := Fit(stepDataset(30), nil, p)
	require.NoError(t, err)
	b, err := Fit(stepDataset(30), nil, p)
	require.NoError(t, err)

	require.Equal(t, len(a.Trees), len(b.Trees))
	for i := range a.Trees {
		assert.Equal(t, a.Trees[i].Nodes, b.Trees[i].Nodes)
	}
	for x := 0.0; x < 30; x++ {
		assert.Equal(t, a.PredictProba([]float64{x}), b.PredictProba([]float64{x}))
	}
}

func TestFit_EarlyStoppingKeepsBestRound(t *testing.T) {
	// Validation labels contradict training labels, so loss rises after the first tree.
	valid := &Dataset{
		X: [][]float64{{5}, {35}},
		Y: []float64{1, 0},
	}
	p := testParams()
	p.EarlyStoppingRounds = 5

	e, err := Fit(stepDataset(40), valid, p)
	require.NoError(t, err)

	assert.Equal(t, 1, e.BestIteration)
	assert.Len(t, e.Trees, 1)
	assert.Len(t, e.ValidationLoss, 6)
}

func TestFit_SingleClass(t *testing.T) {
	d := &Dataset{X: [][]float64{{1}, {2}}, Y: []float64{0, 0}}
	_, err := Fit(d, nil, testParams())
	assert.ErrorIs(t, err, ErrSingleClass)
}

func TestFit_EmptyDataset(t *testing.T) {
	_, err := Fit(&Dataset{}, nil, testParams())
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestFit_ShapeMismatch(t *testing.T) {
	d := &Dataset{X: [][]float64{{1}, {2}}, Y: []float64{0}}
	_, err := Fit(d, nil, testParams())
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestFit_InvalidParams(t *testing.T) {
	p := testParams()
	p.Subsample = 0
	_, err := Fit(stepDataset(10), nil, p)
	assert.Error(t, err)
}

func TestFit_RespectsDepth(t *testing.T) {
	p := testParams()
	p.Depth = 2
	e, err := Fit(stepDataset(40), nil, p)
	require.NoError(t, err)
	for _, tree := range e.Trees {
		assert.LessOrEqual(t, tree.Depth(), 2)
	}
}

func TestFit_MinSamplesLeafBlocksSplits(t *testing.T) {
	p := testParams()
	p.MinSamplesLeaf = 10
	e, err := Fit(stepDataset(10), nil, p)
	require.NoError(t, err)
	for _, tree := range e.Trees {
		assert.Equal(t, 0, tree.Depth())
	}
}

func TestLogLoss(t *testing.T) {
	assert.InDelta(t, math.Log(2), LogLoss([]float64{1, 0}, []float64{0.5, 0.5}), 1e-12)
	assert.True(t, math.IsNaN(LogLoss(nil, nil)))
	// Clamped: confident mistakes stay finite.
	assert.False(t, math.IsInf(LogLoss([]float64{1}, []float64{0}), 0))
}

func TestTreePredict(t *testing.T) {
	tree := &Tree{Nodes: []Node{
		{Feature: 0, Threshold: 1.5, Left: 1, Right: 2},
		{Leaf: true, Value: -1},
		{Leaf: true, Value: 2},
	}}
	assert.Equal(t, -1.0, tree.Predict([]float64{1}))
	assert.Equal(t, 2.0, tree.Predict([]float64{3}))
	assert.Equal(t, 2.0, tree.Predict([]float64{math.NaN()}))
	assert.Equal(t, 1, tree.Depth())
}
