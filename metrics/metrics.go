package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/RailOpsData/adaptive-signal-open-data/scheduler"
)

// Collector owns the prometheus registry for the collection pipeline and
// implements scheduler.CycleObserver.
type Collector struct {
	reg *prometheus.Registry

	CyclesTotal   *prometheus.CounterVec // result label: ok|degraded|skipped
	CycleDuration prometheus.Histogram
	FeedIngests   *prometheus.CounterVec // kind and result labels

	LastCycleUnix      prometheus.Gauge
	LastCycleSuccesses prometheus.Gauge

	mu   sync.Mutex
	last scheduler.CycleReport
	seen bool
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gtfs_collector_cycles_total",
			Help: "Total scheduler cycles by result.",
		}, []string{"result"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gtfs_collector_cycle_duration_seconds",
			Help:    "Duration of one full ingestion cycle.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		FeedIngests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gtfs_collector_feed_ingests_total",
			Help: "Total per-feed ingestion attempts by kind and result.",
		}, []string{"kind", "result"}),
		LastCycleUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gtfs_collector_last_cycle_timestamp_seconds",
			Help: "Unix time the last cycle finished.",
		}),
		LastCycleSuccesses: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gtfs_collector_last_cycle_successes",
			Help: "Feeds ingested successfully in the last cycle.",
		}),
	}

	reg.MustRegister(
		c.CyclesTotal, c.CycleDuration, c.FeedIngests,
		c.LastCycleUnix, c.LastCycleSuccesses,
	)
	return c
}

// ObserveCycle records one scheduler iteration.
func (c *Collector) ObserveCycle(report scheduler.CycleReport) {
	switch {
	case report.Skipped:
		c.CyclesTotal.WithLabelValues("skipped").Inc()
	case report.Outcomes.AllSucceeded():
		c.CyclesTotal.WithLabelValues("ok").Inc()
	default:
		c.CyclesTotal.WithLabelValues("degraded").Inc()
	}

	if !report.Skipped {
		c.CycleDuration.Observe(report.Duration().Seconds())
		for _, out := range report.Outcomes {
			result := "ok"
			if !out.Succeeded {
				result = "failed"
			}
			c.FeedIngests.WithLabelValues(string(out.Descriptor.Kind), result).Inc()
		}
		c.LastCycleSuccesses.Set(float64(report.Outcomes.Successes()))
	}
	c.LastCycleUnix.Set(float64(report.FinishedAt.Unix()))

	c.mu.Lock()
	c.last = report
	c.seen = true
	c.mu.Unlock()
}

// LastCycle returns the most recent cycle report, if any cycle has run.
func (c *Collector) LastCycle() (scheduler.CycleReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.seen
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{})
}
