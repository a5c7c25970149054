// metrics.go - In-process metrics for the devnet node.
package monitor

import (
	"sort"
	"strings"
	"sync"
	"time"

	"shieldxfer/internal/chain"
)

// MetricType is the kind of a metric.
type MetricType string

const (
	Counter   MetricType = "counter"
	Gauge     MetricType = "gauge"
	Histogram MetricType = "histogram"
)

// Metric is the latest observation of one series.
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// HistogramSummary aggregates the retained samples of a histogram.
type HistogramSummary struct {
	Count float64 `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
}

// Summary is the JSON body served on /metrics.
type Summary struct {
	Counters   map[string]int64            `json:"counters"`
	Gauges     map[string]float64          `json:"gauges"`
	Histograms map[string]HistogramSummary `json:"histograms"`
}

const histogramWindow = 1000

// Metrics collects counters, gauges and histograms keyed by name and labels.
type Metrics struct {
	mu         sync.RWMutex
	metrics    map[string]*Metric
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewMetrics returns an empty collector.
func NewMetrics() *Metrics {
	return &Metrics{
		metrics:    make(map[string]*Metric),
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// IncrementCounter adds one to a counter.
func (m *Metrics) IncrementCounter(name string, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := makeKey(name, labels)
	m.counters[key]++
	m.update(key, name, Counter, float64(m.counters[key]), labels)
}

// SetGauge sets a gauge.
func (m *Metrics) SetGauge(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := makeKey(name, labels)
	m.gauges[key] = value
	m.update(key, name, Gauge, value, labels)
}

// RecordHistogram adds a sample. Only the most recent samples are kept.
func (m *Metrics) RecordHistogram(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := makeKey(name, labels)
	h := append(m.histograms[key], value)
	if len(h) > histogramWindow {
		h = h[len(h)-histogramWindow:]
	}
	m.histograms[key] = h
	m.update(key, name, Histogram, value, labels)
}

// Get returns the latest observation of a series, or nil.
func (m *Metrics) Get(name string, labels map[string]string) *Metric {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.metrics[makeKey(name, labels)]; ok {
		c := *v
		return &c
	}
	return nil
}

// Summary snapshots every series.
func (m *Metrics) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Summary{
		Counters:   make(map[string]int64, len(m.counters)),
		Gauges:     make(map[string]float64, len(m.gauges)),
		Histograms: make(map[string]HistogramSummary, len(m.histograms)),
	}
	for k, v := range m.counters {
		s.Counters[k] = v
	}
	for k, v := range m.gauges {
		s.Gauges[k] = v
	}
	for k, values := range m.histograms {
		if len(values) == 0 {
			continue
		}
		h := HistogramSummary{Count: float64(len(values)), Min: values[0], Max: values[0]}
		for _, v := range values {
			h.Min = min(h.Min, v)
			h.Max = max(h.Max, v)
			h.Sum += v
		}
		h.Avg = h.Sum / h.Count
		s.Histograms[k] = h
	}
	return s
}

// Reset drops every series.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = make(map[string]*Metric)
	m.counters = make(map[string]int64)
	m.gauges = make(map[string]float64)
	m.histograms = make(map[string][]float64)
}

// makeKey renders name{k=v,...} with labels sorted.
func makeKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
	}
	b.WriteByte('}')
	return b.String()
}

func (m *Metrics) update(key, name string, t MetricType, value float64, labels map[string]string) {
	m.metrics[key] = &Metric{Name: name, Type: t, Value: value, Labels: labels, Timestamp: time.Now()}
}

// Metric names.
const (
	MetricRPCRequests  = "rpc_requests"
	MetricRPCLatency   = "rpc_latency_seconds"
	MetricRPCErrors    = "rpc_errors"
	MetricRateLimited  = "rpc_rate_limited"
	MetricTxResults    = "tx_results"
	MetricBlockHeight  = "block_height"
	MetricMempoolSize  = "mempool_size"
	MetricBlockTxs     = "block_txs"
	MetricSnapshotTime = "snapshot_seconds"
)

// RecordRPC records one served call.
func (m *Metrics) RecordRPC(method string, d time.Duration, err error) {
	labels := map[string]string{"method": method}
	m.IncrementCounter(MetricRPCRequests, labels)
	m.RecordHistogram(MetricRPCLatency, d.Seconds(), labels)
	if err != nil {
		m.IncrementCounter(MetricRPCErrors, labels)
	}
}

// RecordTx counts a ledger verdict.
func (m *Metrics) RecordTx(code chain.ResultCode) {
	m.IncrementCounter(MetricTxResults, map[string]string{"code": code.String()})
}

// RecordBlock records a committed block.
func (m *Metrics) RecordBlock(height uint64, txs, mempool int) {
	m.SetGauge(MetricBlockHeight, float64(height), nil)
	m.SetGauge(MetricMempoolSize, float64(mempool), nil)
	m.RecordHistogram(MetricBlockTxs, float64(txs), nil)
}
