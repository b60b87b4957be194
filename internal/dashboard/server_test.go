package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sleep-futures/internal/backtest"
	"sleep-futures/internal/domain"
	"sleep-futures/internal/features"
	"sleep-futures/internal/model"
	"sleep-futures/internal/model/gbdt"
	"sleep-futures/internal/observability"
	"sleep-futures/internal/orchestrator"
	"sleep-futures/internal/pipeline"
)

var day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func f(v float64) *float64 { return &v }

// testRun builds a two-day run whose payoffs are identical, so Sharpe is NaN.
func testRun(runID string) *orchestrator.RunResult {
	up := domain.DirectionUp
	rows := []domain.PredictionRow{
		{Date: day0, YTrue: f(0.5), YPredCls: &up},
		{Date: day0.AddDate(0, 0, 1), YTrue: f(0.5), YPredCls: &up},
	}
	bt := backtest.ComputeStrategyPnL(rows, 10, 252)
	bt.AssignRunID(runID)

	res := &model.Results{
		Predictor: model.NewBoostedPredictor(&gbdt.Ensemble{}),
		EvalDates: []time.Time{day0, day0.AddDate(0, 0, 1)},
		YTrue:     []float64{0.5, 0.5},
		YTrueCls:  []domain.Direction{up, up},
		YPredCls:  []domain.Direction{up, up},
		Accuracy:  1,
	}

	return &orchestrator.RunResult{
		RunID: runID,
		Observations: []*domain.DailyObservation{
			{Date: day0, HoursSlept: f(8), SleepIndex: f(0.5)},
			{Date: day0.AddDate(0, 0, 1)},
		},
		Sufficiency: &pipeline.SufficiencyResult{AllPass: false},
		Model:       res,
		Backtest:    bt,
		Volatility:  []features.VolatilityPoint{{Date: day0, Volatility: 0.2}},
		Summary: &domain.RunSummary{
			RunID:       runID,
			FirstDate:   day0,
			LastDate:    day0.AddDate(0, 0, 1),
			ModelKind:   domain.ModelKindBoosted,
			Accuracy:    1,
			TotalTrades: 2,
			TotalPnL:    bt.TotalPnL,
			Sharpe:      bt.Sharpe,
		},
	}
}

type testServer struct {
	*Server
	http    *httptest.Server
	metrics *observability.Metrics
	loads   *atomic.Int32
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	reg := prometheus.NewRegistry()
	m := observability.NewMetricsWith(reg, "test")
	loads := &atomic.Int32{}

	srv := New(Options{
		Loader: LoaderFunc(func(context.Context) (*Snapshot, error) {
			n := loads.Add(1)
			return SnapshotFromRun(testRun("run"+string(rune('0'+n))), day0), nil
		}),
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testServer{Server: srv, http: ts, metrics: m, loads: loads}
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp.StatusCode
}

func TestSnapshotFromRun(t *testing.T) {
	snap := SnapshotFromRun(testRun("run1"), day0)

	require.Len(t, snap.Daily, 2)
	assert.Equal(t, "2024-01-01", snap.Daily[0].Date)
	require.NotNil(t, snap.Daily[0].Volatility)
	assert.Equal(t, 0.2, *snap.Daily[0].Volatility)
	assert.Nil(t, snap.Daily[1].HoursSlept)
	assert.Nil(t, snap.Daily[1].Volatility)

	require.Len(t, snap.Predictions, 2)
	assert.Equal(t, 1, *snap.Predictions[0].YPred)

	require.Len(t, snap.Strategy.Trades, 2)
	assert.Equal(t, 10.0, snap.Strategy.TotalPnL)
	assert.Nil(t, snap.Strategy.Sharpe)
	assert.Nil(t, snap.Summary.Sharpe)
	assert.False(t, snap.Summary.DataChecksPassed)
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(math.NaN()))
	assert.Nil(t, nullable(math.Inf(1)))
	assert.Equal(t, 1.5, *nullable(1.5))
}

func TestServer_NoSnapshot(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]string
	status := getJSON(t, ts.http.URL+"/api/summary", &body)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "no snapshot loaded", body["error"])
}

func TestServer_Endpoints(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.Refresh(context.Background()))

	var summary map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.http.URL+"/api/summary", &summary))
	assert.Equal(t, "run1", summary["run_id"])
	inner := summary["summary"].(map[string]any)
	assert.Contains(t, inner, "sharpe")
	assert.Nil(t, inner["sharpe"])
	assert.Equal(t, "gradient_boosted", inner["model_kind"])

	var daily []map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.http.URL+"/api/daily", &daily))
	require.Len(t, daily, 2)
	assert.Nil(t, daily[1]["sleep_index"])

	var preds []map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.http.URL+"/api/predictions", &preds))
	assert.Len(t, preds, 2)

	var strategy map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.http.URL+"/api/strategy", &strategy))
	assert.Equal(t, "FOLLOW_PREDICTION", strategy["name"])
	assert.Nil(t, strategy["sharpe"])

	var health map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.http.URL+"/healthz", &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "run1", health["run_id"])
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.http.URL+"/api/daily", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t)
	ts.metrics.StrategyPnL.Set(12)

	resp, err := http.Get(ts.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_strategy_total_pnl")
}

func TestServer_RefreshErrorKeepsSnapshot(t *testing.T) {
	fail := false
	srv := New(Options{
		Loader: LoaderFunc(func(context.Context) (*Snapshot, error) {
			if fail {
				return nil, errors.New("boom")
			}
			return SnapshotFromRun(testRun("run1"), day0), nil
		}),
		Metrics:        observability.NewMetricsWith(prometheus.NewRegistry(), "test"),
		MetricsHandler: http.NotFoundHandler(),
	})

	require.NoError(t, srv.Refresh(context.Background()))
	fail = true
	assert.Error(t, srv.Refresh(context.Background()))
	require.NotNil(t, srv.Snapshot())
	assert.Equal(t, "run1", srv.Snapshot().RunID)
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServer_WebSocketPushesSnapshots(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.Refresh(context.Background()))

	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Current snapshot on connect
	msg := readMessage(t, conn)
	assert.Equal(t, "snapshot", msg.Type)
	require.NotNil(t, msg.Data)
	assert.Equal(t, "run1", msg.Data.RunID)
	assert.Nil(t, msg.Data.Summary.Sharpe)

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(ts.metrics.DashboardClients) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Pushed after refresh
	require.NoError(t, ts.Refresh(context.Background()))
	msg = readMessage(t, conn)
	assert.Equal(t, "run2", msg.Data.RunID)
}

func TestServer_WebSocketDisconnect(t *testing.T) {
	ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return ts.hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	conn.Close()
	require.Eventually(t, func() bool { return ts.hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(r))
	r.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(r))
	r.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(r))
}
