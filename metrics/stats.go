package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StatsFunc returns a snapshot of monotonically increasing counters
type StatsFunc func() map[string]int64

// StatsCollector exposes registry Stats() snapshots as Prometheus counters
// labeled by registry and counter name
type StatsCollector struct {
	desc    *prometheus.Desc
	sources map[string]StatsFunc
}

// NewStatsCollector creates a collector over named stats sources
func NewStatsCollector(sources map[string]StatsFunc) *StatsCollector {
	return &StatsCollector{
		desc: prometheus.NewDesc(
			"ds_registry_events_total",
			"Counters reported by the session and iterator registries",
			[]string{"registry", "counter"},
			nil,
		),
		sources: sources,
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	for registry, stats := range c.sources {
		for counter, value := range stats() {
			ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(value), registry, counter)
		}
	}
}
