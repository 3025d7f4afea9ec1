package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the service's Prometheus metrics without global state
type Registry struct {
	registry *prometheus.Registry

	// Store metrics
	storeOperationTotal    *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec

	// Shard metrics
	shardStartTotal *prometheus.CounterVec

	// System health metrics
	systemInfo *prometheus.GaugeVec
	startTime  prometheus.Gauge
}

// NewRegistry creates a registry with all metrics registered
func NewRegistry() *Registry {
	registry := prometheus.NewRegistry()

	r := &Registry{
		registry: registry,

		storeOperationTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ds_store_operation_total",
				Help: "Total number of transactional store operations",
			},
			[]string{"operation", "status"}, // operation: transaction, dirty_read
		),

		storeOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ds_store_operation_duration_seconds",
				Help:    "Time spent in transactional store operations",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"operation"},
		),

		shardStartTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ds_shard_start_total",
				Help: "Total number of shard start attempts",
			},
			[]string{"shard", "status"},
		),

		systemInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ds_system_info",
				Help: "System information (value is always 1, labels contain info)",
			},
			[]string{"version", "backend"},
		),

		startTime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ds_start_time_seconds",
				Help: "Unix timestamp when the service started",
			},
		),
	}

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry.MustRegister(
		r.storeOperationTotal,
		r.storeOperationDuration,
		r.shardStartTotal,
		r.systemInfo,
		r.startTime,
	)

	r.startTime.SetToCurrentTime()

	return r
}

// Register adds an extra collector, such as a StatsCollector
func (r *Registry) Register(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Gatherer exposes the underlying registry for scraping and tests
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Registry:          r.registry,
	})
}

// RecordStoreOperation records a store operation; it implements store.Recorder
func (r *Registry) RecordStoreOperation(operation string, duration time.Duration, err error) {
	r.storeOperationTotal.WithLabelValues(operation, status(err)).Inc()
	r.storeOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordShardStart records the outcome of ensuring a shard
func (r *Registry) RecordShardStart(shard string, err error) {
	r.shardStartTotal.WithLabelValues(shard, status(err)).Inc()
}

// SetSystemInfo sets system information metrics
func (r *Registry) SetSystemInfo(version, backend string) {
	r.systemInfo.WithLabelValues(version, backend).Set(1)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
