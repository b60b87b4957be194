package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sleep-futures/internal/config"
	"sleep-futures/internal/domain"
	"sleep-futures/internal/metrics"
	"sleep-futures/internal/model/gbdt"
)

// Results holds the fitted predictor and its evaluation.
type Results struct {
	Predictor Predictor
	Partition *Partition

	// Evaluation rows, aligned by index.
	EvalDates []time.Time
	YTrue     []float64
	YTrueCls  []domain.Direction
	YPredCls  []domain.Direction

	Accuracy            float64
	DirectionalAccuracy float64 // same match rate as Accuracy; kept as its own field for report consumers
	EvaluatedOnTrain    bool    // test partition empty, evaluation ran on training rows
	BestIteration       int     // boosted trees kept, 0 for the constant predictor
}

// ModelKind returns the predictor variant.
func (r *Results) ModelKind() domain.ModelKind {
	return r.Predictor.Kind()
}

// PredictionRows pairs evaluation targets with predictions for the backtester.
func (r *Results) PredictionRows() []domain.PredictionRow {
	rows := make([]domain.PredictionRow, len(r.EvalDates))
	for i := range r.EvalDates {
		yTrue := r.YTrue[i]
		pred := r.YPredCls[i]
		rows[i] = domain.PredictionRow{
			Date:     r.EvalDates[i],
			YTrue:    &yTrue,
			YPredCls: &pred,
		}
	}
	return rows
}

// Train fits the direction classifier on a chronological split of table and
// evaluates it on the test partition, or on the train partition when the
// test partition is empty.
func Train(table *domain.FeatureTable, cfg config.Config, logger zerolog.Logger) (*Results, error) {
	part, err := Split(table, cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug().
		Int("train_rows", part.Train.Len()).
		Int("core_rows", part.Core.Len()).
		Int("validation_rows", part.Validation.Len()).
		Int("test_rows", part.Test.Len()).
		Msg("partitioned feature table")

	res := &Results{Partition: part}

	if class, single := singleClass(part.Train.Classes()); single {
		res.Predictor = ConstantPredictor{Class: class}
		logger.Warn().
			Str("model_kind", string(KindConstant)).
			Str("class", class.String()).
			Msg("training labels contain one class, using constant predictor")
	} else {
		ensemble, err := fitBoosted(part, cfg.Model, logger)
		if err != nil {
			return nil, fmt.Errorf("fit classifier: %w", err)
		}
		res.Predictor = NewBoostedPredictor(ensemble)
		res.BestIteration = ensemble.BestIteration
	}

	eval := part.Test
	if eval.Len() == 0 {
		eval = part.Train
		res.EvaluatedOnTrain = true
		logger.Warn().
			Bool("evaluated_on_train", true).
			Int("eval_rows", eval.Len()).
			Msg("test partition empty, evaluating on training rows")
	}

	res.EvalDates = eval.Dates()
	res.YTrue = eval.Targets()
	res.YTrueCls = eval.Classes()
	res.YPredCls = res.Predictor.Predict(eval.Matrix())
	res.Accuracy = metrics.Accuracy(res.YPredCls, res.YTrueCls)
	res.DirectionalAccuracy = metrics.Accuracy(res.YPredCls, res.YTrueCls)

	logger.Info().
		Str("model_kind", string(res.ModelKind())).
		Int("best_iteration", res.BestIteration).
		Int("eval_rows", eval.Len()).
		Float64("accuracy", res.Accuracy).
		Msg("classifier trained")

	return res, nil
}

// fitBoosted trains on the core rows with early stopping against the
// validation slice. If the core rows hold a single class the whole train
// partition is used for both fitting and validation.
func fitBoosted(part *Partition, mc config.ModelConfig, logger zerolog.Logger) (*gbdt.Ensemble, error) {
	params := gbdt.Params{
		Iterations:          mc.Iterations,
		Depth:               mc.Depth,
		LearningRate:        mc.LearningRate,
		L2LeafReg:           mc.L2LeafReg,
		Subsample:           mc.Subsample,
		MinSamplesLeaf:      mc.MinSamplesLeaf,
		EarlyStoppingRounds: mc.EarlyStoppingRounds,
		Seed:                mc.RandomSeed,
	}

	ensemble, err := gbdt.Fit(toDataset(part.Core), toDataset(part.Validation), params)
	if errors.Is(err, gbdt.ErrSingleClass) {
		logger.Warn().
			Int("core_rows", part.Core.Len()).
			Msg("core rows contain one class, fitting on full train partition")
		all := toDataset(part.Train)
		ensemble, err = gbdt.Fit(all, all, params)
	}
	return ensemble, err
}

func toDataset(t *domain.FeatureTable) *gbdt.Dataset {
	d := &gbdt.Dataset{X: t.Matrix(), Y: make([]float64, t.Len())}
	for i, c := range t.Classes() {
		d.Y[i] = classIndex(c)
	}
	return d
}

func singleClass(classes []domain.Direction) (domain.Direction, bool) {
	if len(classes) == 0 {
		return 0, false
	}
	first := classes[0]
	for _, c := range classes[1:] {
		if c != first {
			return 0, false
		}
	}
	return first, true
}
