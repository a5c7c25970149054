package monitor

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldxfer/internal/chain"
)

func TestMetricsSummary(t *testing.T) {
	m := NewMetrics()
	m.RecordRPC("Submit", 20*time.Millisecond, nil)
	m.RecordRPC("Submit", 40*time.Millisecond, errors.New("boom"))
	m.RecordTx(chain.CodeOK)
	m.RecordBlock(7, 2, 0)

	s := m.Summary()
	assert.Equal(t, int64(2), s.Counters["rpc_requests{method=Submit}"])
	assert.Equal(t, int64(1), s.Counters["rpc_errors{method=Submit}"])
	assert.Equal(t, int64(1), s.Counters["tx_results{code=ok}"])
	assert.Equal(t, float64(7), s.Gauges[MetricBlockHeight])

	h := s.Histograms["rpc_latency_seconds{method=Submit}"]
	assert.Equal(t, float64(2), h.Count)
	assert.InDelta(t, 0.03, h.Avg, 1e-9)
	assert.InDelta(t, 0.02, h.Min, 1e-9)
	assert.InDelta(t, 0.04, h.Max, 1e-9)

	got := m.Get(MetricBlockHeight, nil)
	require.NotNil(t, got)
	assert.Equal(t, Gauge, got.Type)

	m.Reset()
	assert.Empty(t, m.Summary().Counters)
}

func TestMakeKeyIsOrderIndependent(t *testing.T) {
	a := makeKey("x", map[string]string{"b": "2", "a": "1"})
	b := makeKey("x", map[string]string{"a": "1", "b": "2"})
	assert.Equal(t, a, b)
	assert.Equal(t, "x{a=1,b=2}", a)
}

func TestHistogramWindow(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < histogramWindow+10; i++ {
		m.RecordHistogram("h", float64(i), nil)
	}
	h := m.Summary().Histograms["h"]
	assert.Equal(t, float64(histogramWindow), h.Count)
	assert.Equal(t, float64(10), h.Min)
}

func TestHealth(t *testing.T) {
	h := NewHealth("v1")
	h.Register("ledger", func() error { return nil })
	h.Register("snapshots", nil)
	assert.Equal(t, Healthy, h.Check().OverallStatus)

	h.Update("snapshots", Degraded, "last snapshot failed")
	assert.Equal(t, Degraded, h.Check().OverallStatus)

	h.Register("rpc", func() error { return errors.New("listener closed") })
	sys := h.Check()
	assert.Equal(t, Unhealthy, sys.OverallStatus)
	require.Len(t, sys.Components, 3)
	assert.Equal(t, "ledger", sys.Components[0].Name)
	assert.Equal(t, "listener closed", sys.Components[1].Message)
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	rl := newRateLimiter(2, 1, time.Second, clock)

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	now = now.Add(time.Hour)
	assert.Equal(t, 0, rl.Tokens())
	assert.True(t, rl.Allow())
	assert.Equal(t, 1, rl.Tokens())
}

func TestPeerRateLimiter(t *testing.T) {
	p := NewPeerRateLimiter(1, 1, time.Hour)
	assert.True(t, p.Allow("a"))
	assert.False(t, p.Allow("a"))
	assert.True(t, p.Allow("b"))
	assert.Equal(t, 2, p.Peers())
}

func TestRouter(t *testing.T) {
	health := NewHealth("v1")
	metrics := NewMetrics()
	metrics.RecordTx(chain.CodeOK)
	srv := httptest.NewServer(NewRouter(health, metrics, zerolog.Nop()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	var hr HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hr))
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", hr.Status)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	var s Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
	resp.Body.Close()
	assert.Equal(t, int64(1), s.Counters["tx_results{code=ok}"])

	health.Register("rpc", func() error { return errors.New("down") })
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
