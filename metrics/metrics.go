package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the service's Prometheus collectors with a few in-process
// counters the health endpoint reports. A nil *Metrics records nothing.
type Metrics struct {
	streamMessages     prometheus.Counter
	tickerUpdates      prometheus.Counter
	decodeErrors       prometheus.Counter
	reconnects         prometheus.Counter
	streamState        prometheus.Gauge
	cacheSize          prometheus.Gauge
	queryDuration      *prometheus.HistogramVec
	skippedInstruments prometheus.Counter
	providerErrors     *prometheus.CounterVec
	memoryUsage        prometheus.Gauge
	goroutineCount     prometheus.Gauge

	processed     uint64
	errorCount    uint64
	lastProcessed int64
	startTime     time.Time
}

// NewMetrics registers every collector on reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		streamMessages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_messages_total",
			Help:      "Messages received on the ticker stream",
		}),
		tickerUpdates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticker_updates_total",
			Help:      "Ticker snapshots written to the cache",
		}),
		decodeErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_decode_errors_total",
			Help:      "Stream messages dropped because they could not be decoded",
		}),
		reconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reconnects_total",
			Help:      "Stream sessions that ended and were retried",
		}),
		streamState: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_state",
			Help:      "Current stream supervisor state (0 idle, 1 connecting, 2 streaming, 3 backoff, 4 stopped)",
		}),
		cacheSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ticker_cache_symbols",
			Help:      "Symbols held in the live ticker cache",
		}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time taken to answer market data queries",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		skippedInstruments: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_instruments_total",
			Help:      "Instruments dropped from a top-coins query after a fetch or compute failure",
		}),
		providerErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Failed calls to the market data provider by endpoint",
		}, []string{"endpoint"}),
		memoryUsage: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_bytes",
			Help:      "Current heap allocation in bytes",
		}),
		goroutineCount: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "goroutines",
			Help:      "Current number of goroutines",
		}),
		startTime: time.Now(),
	}
}

// StreamMessage counts one decoded stream batch of n snapshots.
func (m *Metrics) StreamMessage(n int) {
	if m == nil {
		return
	}
	m.streamMessages.Inc()
	m.tickerUpdates.Add(float64(n))
	atomic.AddUint64(&m.processed, uint64(n))
	atomic.StoreInt64(&m.lastProcessed, time.Now().UnixNano())
}

func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.streamMessages.Inc()
	m.decodeErrors.Inc()
	atomic.AddUint64(&m.errorCount, 1)
}

func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
	atomic.AddUint64(&m.errorCount, 1)
}

func (m *Metrics) SetStreamState(state int) {
	if m == nil {
		return
	}
	m.streamState.Set(float64(state))
}

func (m *Metrics) SetCacheSize(n int) {
	if m == nil {
		return
	}
	m.cacheSize.Set(float64(n))
}

func (m *Metrics) ObserveQuery(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.queryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) SkipInstrument() {
	if m == nil {
		return
	}
	m.skippedInstruments.Inc()
}

func (m *Metrics) ProviderError(endpoint string) {
	if m == nil {
		return
	}
	m.providerErrors.WithLabelValues(endpoint).Inc()
	atomic.AddUint64(&m.errorCount, 1)
}

func (m *Metrics) SetSystem(memoryBytes uint64, goroutines int) {
	if m == nil {
		return
	}
	m.memoryUsage.Set(float64(memoryBytes))
	m.goroutineCount.Set(float64(goroutines))
}

// GetStats returns processed snapshots, errors, last stream write and uptime.
func (m *Metrics) GetStats() (uint64, uint64, time.Time, time.Duration) {
	if m == nil {
		return 0, 0, time.Time{}, 0
	}
	var last time.Time
	if ns := atomic.LoadInt64(&m.lastProcessed); ns > 0 {
		last = time.Unix(0, ns)
	}
	return atomic.LoadUint64(&m.processed),
		atomic.LoadUint64(&m.errorCount),
		last,
		time.Since(m.startTime)
}
