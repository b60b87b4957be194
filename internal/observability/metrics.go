// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingest metrics
	ExportRowsParsed prometheus.Counter
	ObservationDays  prometheus.Gauge
	RecordedDays     prometheus.Gauge
	FeatureRowsBuilt prometheus.Gauge

	// Model metrics
	ModelFits          *prometheus.CounterVec
	ModelAccuracy      prometheus.Gauge
	ModelBestIteration prometheus.Gauge

	// Strategy metrics
	TradesSimulated prometheus.Counter
	StrategyPnL     prometheus.Gauge
	StrategySharpe  prometheus.Gauge
	MaxDrawdown     prometheus.Gauge

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	ReportsGenerated  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Dashboard metrics
	DashboardClients prometheus.Gauge

	// Health metrics
	LastSuccessfulIngestion prometheus.Gauge
	LastSuccessfulPipeline  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a new Metrics instance registered on reg.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "sleep_futures"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Ingest metrics
		ExportRowsParsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "export_rows_parsed_total",
			Help:      "Total number of raw export rows parsed",
		}),
		ObservationDays: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "observation_days",
			Help:      "Days in the processed daily table, gaps included",
		}),
		RecordedDays: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "recorded_days",
			Help:      "Days with tracked sleep",
		}),
		FeatureRowsBuilt: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "rows",
			Help:      "Fully defined rows in the latest feature table",
		}),

		// Model metrics
		ModelFits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "fits_total",
			Help:      "Total number of classifier fits by predictor kind",
		}, []string{"kind"}),
		ModelAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "accuracy",
			Help:      "Evaluation accuracy of the latest classifier",
		}),
		ModelBestIteration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "best_iteration",
			Help:      "Boosting rounds kept after early stopping",
		}),

		// Strategy metrics
		TradesSimulated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "trades_simulated_total",
			Help:      "Total number of trades simulated",
		}),
		StrategyPnL: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "total_pnl",
			Help:      "Total PnL of the latest backtest",
		}),
		StrategySharpe: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "sharpe",
			Help:      "Annualised Sharpe ratio of the latest backtest",
		}),
		MaxDrawdown: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "max_drawdown",
			Help:      "Max drawdown of the latest backtest",
		}),

		// Pipeline metrics
		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		}, []string{"phase", "status"}),
		PipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Pipeline execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"phase"}),
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Dashboard metrics
		DashboardClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "ws_clients",
			Help:      "Connected WebSocket clients",
		}),

		// Health metrics
		LastSuccessfulIngestion: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_ingestion_timestamp",
			Help:      "Unix timestamp of last successful ingestion",
		}),
		LastSuccessfulPipeline: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_pipeline_timestamp",
			Help:      "Unix timestamp of last successful pipeline run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordIngest records a completed ingest.
func (m *Metrics) RecordIngest(rows, days, recorded int, at time.Time) {
	m.ExportRowsParsed.Add(float64(rows))
	m.ObservationDays.Set(float64(days))
	m.RecordedDays.Set(float64(recorded))
	m.LastSuccessfulIngestion.Set(float64(at.Unix()))
}

// RecordModel records the outcome of a classifier fit.
func (m *Metrics) RecordModel(kind string, accuracy float64, bestIteration int) {
	m.ModelFits.WithLabelValues(kind).Inc()
	m.ModelAccuracy.Set(accuracy)
	m.ModelBestIteration.Set(float64(bestIteration))
}

// RecordBacktest records backtest results. A NaN Sharpe is exported as NaN.
func (m *Metrics) RecordBacktest(trades int, totalPnL, sharpe, maxDrawdown float64) {
	m.TradesSimulated.Add(float64(trades))
	m.StrategyPnL.Set(totalPnL)
	m.StrategySharpe.Set(sharpe)
	m.MaxDrawdown.Set(maxDrawdown)
}

// RecordPipelineRun records a pipeline phase.
func (m *Metrics) RecordPipelineRun(phase, status string, durationSeconds float64) {
	m.PipelineRunsTotal.WithLabelValues(phase, status).Inc()
	m.PipelineDuration.WithLabelValues(phase).Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordDBQuery records database query metrics on DefaultMetrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.RecordDBQuery(database, operation, seconds, err)
}

// RecordPipelineRun records a pipeline phase on DefaultMetrics.
func RecordPipelineRun(phase, status string, durationSeconds float64) {
	DefaultMetrics.RecordPipelineRun(phase, status, durationSeconds)
}
