package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Cache metrics
	cacheEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_cache_events_total",
			Help: "Series cache events by type (memory_hit, durable_hit, coalesced, fetch, fetch_error)",
		},
		[]string{"event"},
	)

	// Batch metrics
	simulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backtest_simulations_total",
			Help: "Completed simulations by outcome",
		},
		[]string{"outcome"},
	)

	batchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "backtest_batch_duration_seconds",
			Help:    "Wall-clock duration of whole batch runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	batchSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "backtest_batch_size",
			Help: "Number of tasks in the most recent batch",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheEventsTotal)
	prometheus.MustRegister(simulationsTotal)
	prometheus.MustRegister(batchDuration)
	prometheus.MustRegister(batchSize)
}

// RecordCacheEvent counts one series cache event. Wire this to the
// cache's event hook.
func RecordCacheEvent(event string) {
	cacheEventsTotal.WithLabelValues(event).Inc()
}

// RecordSimulation counts one finished simulation.
func RecordSimulation(succeeded bool) {
	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	simulationsTotal.WithLabelValues(outcome).Inc()
}

// RecordBatch records the size and duration of a completed batch.
func RecordBatch(size int, seconds float64) {
	batchSize.Set(float64(size))
	batchDuration.Observe(seconds)
}

// MetricsHandler handles the Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// Serve exposes /metrics on addr. Blocks; run it in a goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", NewMetricsHandler())
	return http.ListenAndServe(addr, mux)
}
