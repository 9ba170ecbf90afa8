package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salgsmester/internal/metrics"
	"salgsmester/internal/report"
	"salgsmester/internal/types"
)

type stubEngine struct {
	state types.StrategyState
	log   []types.TradeLogEntry
}

func (s *stubEngine) RunCycle(context.Context, time.Time) (*types.CycleResult, error) {
	return &types.CycleResult{}, nil
}

func (s *stubEngine) WeeklySummary() string           { return report.Render(s.log) }
func (s *stubEngine) TradeLog() []types.TradeLogEntry { return s.log }
func (s *stubEngine) State() types.StrategyState      { return s.state }

var at = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	s := New(Config{Engine: &stubEngine{}})
	rec := get(t, s.Handler(), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReport(t *testing.T) {
	eng := &stubEngine{log: []types.TradeLogEntry{{Timestamp: at, Action: types.SideBuy, Symbol: "EQNR", Quantity: 2, Price: 300, Note: "n"}}}
	rec := get(t, New(Config{Engine: eng}).Handler(), http.MethodGet, "/report")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.Render(eng.log), rec.Body.String())
}

func TestStateBeforeAndAfterRebalance(t *testing.T) {
	eng := &stubEngine{}
	h := New(Config{Engine: eng}).Handler()

	rec := get(t, h, http.MethodGet, "/state")
	assert.JSONEq(t, `{"last_rebalance":null,"trades":0}`, rec.Body.String())

	eng.state = types.StrategyState{LastRebalance: at}
	eng.log = []types.TradeLogEntry{{Symbol: "A"}}
	rec = get(t, h, http.MethodGet, "/state")
	assert.JSONEq(t, `{"last_rebalance":"2024-03-04T09:30:00Z","trades":1}`, rec.Body.String())
}

func TestTradesNeverNull(t *testing.T) {
	rec := get(t, New(Config{Engine: &stubEngine{}}).Handler(), http.MethodGet, "/api/trades")
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	mx := metrics.New()
	mx.OrderPlaced(types.SideBuy)
	srv := httptest.NewServer(New(Config{Engine: &stubEngine{}, Metrics: mx}).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `salgsmester_orders_total{side="BUY"} 1`)
}

func TestCycleTrigger(t *testing.T) {
	rec := get(t, New(Config{Engine: &stubEngine{}}).Handler(), http.MethodPost, "/api/cycle")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no trigger configured")

	calls := 0
	trigger := func(context.Context) (*types.CycleResult, error) {
		calls++
		return &types.CycleResult{CycleID: "c1", Decision: types.TradeDecision{Reason: "ok"}}, nil
	}
	rec = get(t, New(Config{Engine: &stubEngine{}, Trigger: trigger}).Handler(), http.MethodPost, "/api/cycle")
	require.Equal(t, http.StatusOK, rec.Code)
	var res types.CycleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "c1", res.CycleID)
	assert.Equal(t, 1, calls)

	failing := func(context.Context) (*types.CycleResult, error) { return nil, errors.New("boom") }
	rec = get(t, New(Config{Engine: &stubEngine{}, Trigger: failing}).Handler(), http.MethodPost, "/api/cycle")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}
