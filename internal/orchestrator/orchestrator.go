// Package orchestrator runs the end-to-end pipeline.
// Flow: load -> features -> sufficiency -> train -> backtest -> persist -> report
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"sleep-futures/internal/backtest"
	"sleep-futures/internal/config"
	"sleep-futures/internal/domain"
	"sleep-futures/internal/features"
	"sleep-futures/internal/idhash"
	"sleep-futures/internal/metrics"
	"sleep-futures/internal/model"
	"sleep-futures/internal/normalization"
	"sleep-futures/internal/observability"
	"sleep-futures/internal/pipeline"
	"sleep-futures/internal/reporting"
	"sleep-futures/internal/storage"
)

// Orchestrator coordinates the pipeline execution.
type Orchestrator struct {
	cfg config.Config

	// Stores
	cache            storage.ObservationStore
	observationStore storage.ObservationStore
	featureStore     storage.FeatureStore
	tradeRecordStore storage.TradeRecordStore
	runSummaryStore  storage.RunSummaryStore

	reports *reporting.Generator
	metrics *observability.Metrics
	logger  zerolog.Logger
	clock   func() time.Time

	forceIngest bool
}

// Options for creating Orchestrator.
type Options struct {
	Config config.Config

	// Cache holds the processed daily table. When it is empty the raw export
	// at Config.Paths.RawExport is ingested into it.
	Cache storage.ObservationStore

	// Optional mirror of the processed table (e.g. Postgres).
	ObservationStore storage.ObservationStore

	// Required stores
	FeatureStore     storage.FeatureStore
	TradeRecordStore storage.TradeRecordStore
	RunSummaryStore  storage.RunSummaryStore

	// Reports writes artifacts after a run. Nil skips reporting.
	Reports *reporting.Generator

	Metrics *observability.Metrics // defaults to observability.DefaultMetrics
	Logger  *zerolog.Logger        // defaults to a no-op logger
	Clock   func() time.Time       // defaults to time.Now

	ForceIngest bool // re-read the raw export even if the cache is populated
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		cfg:              opts.Config,
		cache:            opts.Cache,
		observationStore: opts.ObservationStore,
		featureStore:     opts.FeatureStore,
		tradeRecordStore: opts.TradeRecordStore,
		runSummaryStore:  opts.RunSummaryStore,
		reports:          opts.Reports,
		metrics:          opts.Metrics,
		logger:           zerolog.Nop(),
		clock:            opts.Clock,
		forceIngest:      opts.ForceIngest,
	}
	if opts.Logger != nil {
		o.logger = opts.Logger.With().Str("component", "orchestrator").Logger()
	}
	if o.metrics == nil {
		o.metrics = observability.DefaultMetrics
	}
	if o.clock == nil {
		o.clock = time.Now
	}
	return o
}

// RunResult contains everything produced by one pipeline run.
type RunResult struct {
	RunID     string
	FromCache bool // observations came from the processed cache

	Observations []*domain.DailyObservation
	Features     *domain.FeatureTable
	Sufficiency  *pipeline.SufficiencyResult
	Model        *model.Results
	Backtest     *backtest.Results
	Ledger       metrics.LedgerStats
	Volatility   []features.VolatilityPoint
	Summary      *domain.RunSummary

	AlreadyPersisted bool     // identical run found in the summary store
	ReportFiles      []string // artifacts written by the report generator
}

// Run executes the full pipeline.
// Phases:
//  1. Load the daily table (cache, else raw export)
//  2. Engineer features
//  3. Sufficiency checks (logged, never fatal)
//  4. Train and evaluate the direction classifier
//  5. Backtest the follow-prediction strategy
//  6. Persist summary, features and ledger
//  7. Write report artifacts
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{}

	// Phase 1: Load observations
	err := o.phase("load", func() error {
		obs, fromCache, err := o.loadObservations(ctx)
		if err != nil {
			return err
		}
		result.Observations = obs
		result.FromCache = fromCache
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("phase 1 (load) failed: %w", err)
	}

	// Phase 2: Features
	err = o.phase("features", func() error {
		table, err := features.Engineer(result.Observations, o.cfg)
		if err != nil {
			return err
		}
		result.Features = table
		result.Volatility = features.RollingVolatility(result.Observations, o.cfg.VolatilityWindow)
		o.logger.Info().
			Int("observation_days", len(result.Observations)).
			Int("feature_rows", table.Len()).
			Msg("features engineered")
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("phase 2 (features) failed: %w", err)
	}

	// Phase 3: Sufficiency
	checker := pipeline.NewSufficiencyChecker(o.cfg.MaxRollingWindow(), o.cfg.SmallSampleTrainRows)
	result.Sufficiency = checker.Check(result.Observations, result.Features)
	o.logSufficiency(result.Sufficiency)

	// Phase 4: Train
	err = o.phase("train", func() error {
		res, err := model.Train(result.Features, o.cfg, o.logger)
		if err != nil {
			return err
		}
		result.Model = res
		o.metrics.RecordModel(string(res.ModelKind()), res.Accuracy, res.BestIteration)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("phase 4 (train) failed: %w", err)
	}

	// Phase 5: Backtest
	_ = o.phase("backtest", func() error {
		bt := backtest.ComputeStrategyPnL(result.Model.PredictionRows(), o.cfg.ContractMultiplier, o.cfg.AnnualizationDays)
		result.Backtest = bt
		o.metrics.RecordBacktest(len(bt.Trades), bt.TotalPnL, bt.Sharpe, bt.MaxDrawdown)
		o.logger.Info().
			Str("strategy", bt.StrategyName).
			Int("trades", len(bt.Trades)).
			Float64("total_pnl", bt.TotalPnL).
			Float64("sharpe", bt.Sharpe).
			Float64("max_drawdown", bt.MaxDrawdown).
			Msg("backtest complete")
		return nil
	})

	// Identify the run and finish the ledger
	first, last := dateRange(result.Observations)
	result.RunID = idhash.ComputeRunID(
		idhash.ConfigFingerprint(o.cfg), idhash.DataDigest(result.Observations),
		first, last, result.Features.Len())
	result.Backtest.AssignRunID(result.RunID)
	result.Ledger = metrics.ComputeLedgerStats(result.Backtest.Trades)
	result.Summary = o.buildSummary(result, first, last)

	// Phase 6: Persist
	err = o.phase("persist", func() error {
		persisted, err := o.persist(ctx, result)
		result.AlreadyPersisted = persisted
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("phase 6 (persist) failed: %w", err)
	}

	// Phase 7: Report
	if o.reports != nil {
		err = o.phase("report", func() error {
			files, err := o.reports.Generate(o.buildReport(result))
			result.ReportFiles = files
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("phase 7 (report) failed: %w", err)
		}
	}

	o.metrics.LastSuccessfulPipeline.Set(float64(o.clock().Unix()))
	o.logger.Info().
		Str("run_id", result.RunID).
		Str("model_kind", string(result.Summary.ModelKind)).
		Bool("evaluated_on_train", result.Summary.EvaluatedOnTrain).
		Float64("accuracy", result.Summary.Accuracy).
		Float64("total_pnl", result.Summary.TotalPnL).
		Msg("pipeline completed")

	return result, nil
}

// phase times fn and records it under the phase label.
func (o *Orchestrator) phase(name string, fn func() error) error {
	start := time.Now()
	o.logger.Debug().Str("phase", name).Msg("phase started")

	err := fn()

	status := "success"
	if err != nil {
		status = "error"
	}
	o.metrics.RecordPipelineRun(name, status, time.Since(start).Seconds())
	return err
}

// loadObservations reads the processed cache, or ingests the raw export
// into it when the cache is empty.
func (o *Orchestrator) loadObservations(ctx context.Context) ([]*domain.DailyObservation, bool, error) {
	if !o.forceIngest {
		obs, err := o.cache.GetAll(ctx)
		switch {
		case err == nil && len(obs) > 0:
			o.logger.Info().Int("days", len(obs)).Msg("loaded processed table from cache")
			o.metrics.RecordIngest(0, len(obs), countRecorded(obs), o.clock())
			return obs, true, o.mirror(ctx, obs)
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			return nil, false, fmt.Errorf("read processed cache: %w", err)
		}
	}

	path := o.cfg.Paths.RawExport
	f, err := os.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("open raw export: %w", err)
	}
	defer f.Close()

	obs, err := normalization.NewRunner(o.cfg.TargetSleepHours, o.cache).Ingest(ctx, f)
	if err != nil {
		return nil, false, fmt.Errorf("ingest %s: %w", path, err)
	}

	recorded := countRecorded(obs)
	o.metrics.RecordIngest(recorded, len(obs), recorded, o.clock())
	o.logger.Info().
		Str("path", path).
		Int("days", len(obs)).
		Int("recorded_days", recorded).
		Msg("ingested raw export")

	return obs, false, o.mirror(ctx, obs)
}

func (o *Orchestrator) mirror(ctx context.Context, obs []*domain.DailyObservation) error {
	if o.observationStore == nil {
		return nil
	}
	if err := o.observationStore.ReplaceAll(ctx, obs); err != nil {
		return fmt.Errorf("mirror observations: %w", err)
	}
	return nil
}

// persist stores summary, features and ledger. A run_id already present in
// the summary store means the same config ran over the same data; the
// stored copy is kept.
func (o *Orchestrator) persist(ctx context.Context, result *RunResult) (bool, error) {
	err := o.runSummaryStore.Insert(ctx, result.Summary)
	if errors.Is(err, storage.ErrDuplicateKey) {
		o.logger.Info().Str("run_id", result.RunID).Msg("run already persisted, skipping")
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert run summary: %w", err)
	}

	if err := o.featureStore.InsertBulk(ctx, result.RunID, result.Features); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
		return false, fmt.Errorf("insert features: %w", err)
	}
	if len(result.Backtest.Trades) > 0 {
		if err := o.tradeRecordStore.InsertBulk(ctx, result.Backtest.Trades); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return false, fmt.Errorf("insert trades: %w", err)
		}
	}
	return false, nil
}

func (o *Orchestrator) buildSummary(result *RunResult, first, last time.Time) *domain.RunSummary {
	m := result.Model
	bt := result.Backtest
	ls := result.Ledger
	return &domain.RunSummary{
		RunID:                result.RunID,
		CreatedAt:            o.clock().UTC(),
		FirstDate:            first,
		LastDate:             last,
		ObservationDays:      len(result.Observations),
		RecordedDays:         countRecorded(result.Observations),
		FeatureRows:          result.Features.Len(),
		TrainRows:            m.Partition.Train.Len(),
		ValidationRows:       m.Partition.Validation.Len(),
		TestRows:             m.Partition.Test.Len(),
		EvalRows:             len(m.EvalDates),
		EvaluatedOnTrain:     m.EvaluatedOnTrain,
		ModelKind:            m.ModelKind(),
		BestIteration:        m.BestIteration,
		Accuracy:             m.Accuracy,
		DirectionalAccuracy:  m.DirectionalAccuracy,
		TotalTrades:          len(bt.Trades),
		TotalPnL:             bt.TotalPnL,
		Sharpe:               bt.Sharpe,
		MaxDrawdown:          bt.MaxDrawdown,
		WinRate:              ls.WinRate,
		PnLMean:              ls.PnLMean,
		PnLMedian:            ls.PnLMedian,
		PnLP10:               ls.PnLP10,
		PnLP90:               ls.PnLP90,
		MaxConsecutiveLosses: ls.MaxConsecutiveLosses,
	}
}

func (o *Orchestrator) buildReport(result *RunResult) *reporting.Report {
	checks := make([]reporting.SufficiencyCheckRow, len(result.Sufficiency.Checks))
	for i, c := range result.Sufficiency.Checks {
		checks[i] = reporting.SufficiencyCheckRow{
			Name:      c.Name,
			Threshold: c.Threshold,
			Actual:    c.Actual,
			Pass:      c.Pass,
		}
	}
	return &reporting.Report{
		GeneratedAt:  o.clock().UTC(),
		Summary:      result.Summary,
		StrategyName: result.Backtest.StrategyName,
		Multiplier:   result.Backtest.Multiplier,
		Ledger:       result.Ledger,
		DataQuality: reporting.DataQualitySection{
			SufficiencyChecks: checks,
			IntegrityErrors:   result.Sufficiency.Errors,
			AllChecksPassed:   result.Sufficiency.AllPass,
		},
		Observations: result.Observations,
		Predictions:  result.Model.PredictionRows(),
		Trades:       result.Backtest.Trades,
		Volatility:   result.Volatility,
	}
}

func (o *Orchestrator) logSufficiency(r *pipeline.SufficiencyResult) {
	for _, c := range r.Checks {
		ev := o.logger.Debug()
		if !c.Pass {
			ev = o.logger.Warn()
		}
		ev.Str("check", c.Name).
			Str("threshold", c.Threshold).
			Str("actual", c.Actual).
			Bool("pass", c.Pass).
			Msg("sufficiency check")
	}
	for _, e := range r.Errors {
		o.logger.Warn().Str("error", e).Msg("data integrity")
	}
}

func dateRange(obs []*domain.DailyObservation) (time.Time, time.Time) {
	if len(obs) == 0 {
		return time.Time{}, time.Time{}
	}
	return obs[0].Date, obs[len(obs)-1].Date
}

func countRecorded(obs []*domain.DailyObservation) int {
	n := 0
	for _, o := range obs {
		if o.IsRecorded() {
			n++
		}
	}
	return n
}
