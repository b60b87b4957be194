package model

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleep-futures/internal/config"
	"sleep-futures/internal/domain"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// makeTable builds n rows whose first feature equals the target.
func makeTable(n int, target func(i int) float64) *domain.FeatureTable {
	t := &domain.FeatureTable{Columns: []string{"signal", "noise"}}
	for i := 0; i < n; i++ {
		y := target(i)
		t.Rows = append(t.Rows, &domain.FeatureRow{
			Date:        day0.AddDate(0, 0, i),
			Values:      []float64{y, float64(i % 5)},
			Target:      y,
			TargetClass: domain.DirectionOf(y),
		})
	}
	return t
}

func alternating(i int) float64 {
	if i%2 == 0 {
		return 1
	}
	return -1
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Model.Iterations = 100
	return cfg
}

func TestSplit_Chronological(t *testing.T) {
	table := makeTable(30, alternating)

	p, err := Split(table, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 27, p.Train.Len())
	assert.Equal(t, 3, p.Test.Len())
	assert.Equal(t, 5, p.Validation.Len())
	assert.Equal(t, 22, p.Core.Len())
	assert.False(t, p.SmallSample)

	lastTrain := p.Train.Rows[p.Train.Len()-1].Date
	for _, r := range p.Test.Rows {
		assert.True(t, lastTrain.Before(r.Date))
	}
	assert.Equal(t, p.Core.Rows[p.Core.Len()-1].Date.AddDate(0, 0, 1), p.Validation.Rows[0].Date)
}

func TestSplit_SmallSamplePolicy(t *testing.T) {
	tests := []struct {
		name      string
		rows      int
		wantTrain int
		wantTest  int
		wantSmall bool
	}{
		{"single row", 1, 1, 0, true},
		{"train exactly at threshold", 11, 11, 0, true},
		{"train just above threshold", 12, 11, 1, false},
		{"floor of fraction", 25, 23, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Split(makeTable(tt.rows, alternating), testConfig())
			require.NoError(t, err)
			assert.Equal(t, tt.wantTrain, p.Train.Len())
			assert.Equal(t, tt.wantTest, p.Test.Len())
			assert.Equal(t, tt.wantSmall, p.SmallSample)
		})
	}
}

func TestSplit_ValidationCoversTinyTrain(t *testing.T) {
	p, err := Split(makeTable(1, alternating), testConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, p.Validation.Len())
	assert.Equal(t, 1, p.Core.Len())
}

func TestSplit_Empty(t *testing.T) {
	_, err := Split(&domain.FeatureTable{}, testConfig())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTrain_EmptyTable(t *testing.T) {
	_, err := Train(&domain.FeatureTable{}, testConfig(), zerolog.Nop())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTrain_DegenerateClassUsesConstantPredictor(t *testing.T) {
	table := makeTable(40, func(int) float64 { return -0.5 })

	res, err := Train(table, testConfig(), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, KindConstant, res.ModelKind())
	assert.Equal(t, ConstantPredictor{Class: domain.DirectionDown}, res.Predictor)
	assert.Equal(t, 1.0, res.Accuracy)
	assert.Equal(t, 1.0, res.DirectionalAccuracy)
	assert.Equal(t, 0, res.BestIteration)
	assert.False(t, res.EvaluatedOnTrain)
	assert.Len(t, res.YPredCls, 4)
}

func TestTrain_ZeroTargetsResolveDown(t *testing.T) {
	table := makeTable(20, func(int) float64 { return 0 })

	res, err := Train(table, testConfig(), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, KindConstant, res.ModelKind())
	for _, c := range res.YPredCls {
		assert.Equal(t, domain.DirectionDown, c)
	}
}

func TestTrain_BoostedLearnsSignal(t *testing.T) {
	table := makeTable(60, alternating)

	res, err := Train(table, testConfig(), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, KindBoosted, res.ModelKind())
	assert.Greater(t, res.BestIteration, 0)
	assert.Equal(t, 1.0, res.Accuracy)
	assert.Equal(t, res.Accuracy, res.DirectionalAccuracy)
	assert.Len(t, res.EvalDates, 6)
	assert.Equal(t, table.Rows[54].Date, res.EvalDates[0])
}

func TestTrain_EmptyTestEvaluatesOnTrain(t *testing.T) {
	table := makeTable(8, alternating)

	res, err := Train(table, testConfig(), zerolog.Nop())
	require.NoError(t, err)

	assert.True(t, res.EvaluatedOnTrain)
	assert.Len(t, res.YPredCls, 8)
	assert.Equal(t, table.Dates(), res.EvalDates)
}

func TestTrain_Deterministic(t *testing.T) {
	table := makeTable(50, func(i int) float64 {
		return float64((i*7)%11) - 5
	})

	a, err := Train(table, testConfig(), zerolog.Nop())
	require.NoError(t, err)
	b, err := Train(table, testConfig(), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, a.YPredCls, b.YPredCls)
	assert.Equal(t, a.BestIteration, b.BestIteration)
	assert.Equal(t, a.Accuracy, b.Accuracy)
}

func TestResults_PredictionRows(t *testing.T) {
	table := makeTable(30, alternating)

	res, err := Train(table, testConfig(), zerolog.Nop())
	require.NoError(t, err)

	rows := res.PredictionRows()
	require.Len(t, rows, len(res.EvalDates))
	for i, r := range rows {
		require.NotNil(t, r.YTrue)
		require.NotNil(t, r.YPredCls)
		assert.Equal(t, res.YTrue[i], *r.YTrue)
		assert.Equal(t, res.YPredCls[i], *r.YPredCls)
	}
}

func TestConstantPredictor(t *testing.T) {
	p := ConstantPredictor{Class: domain.DirectionUp}
	assert.Equal(t, KindConstant, p.Kind())
	assert.Equal(t, []domain.Direction{domain.DirectionUp, domain.DirectionUp}, p.Predict([][]float64{{1}, {2}}))
}
