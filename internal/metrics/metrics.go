// package metrics exports clone job activity as prometheus collectors
package metrics

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/driveclone/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records orchestrator activity. It satisfies tasks.Recorder.
type Collector struct {
	registry *prometheus.Registry
	once     sync.Once

	collectors []prometheus.Collector

	jobsTotal   *prometheus.CounterVec
	runsTotal   prometheus.Counter
	busy        prometheus.Gauge
	jobDuration *prometheus.HistogramVec
}

// NewCollector creates a collector backed by its own registry.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driveclone_jobs_finished_total",
			Help: "Clone jobs that reached a final status, labeled by status and error code.",
		},
		[]string{"status", "code"},
	)
	c.runsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "driveclone_runs_total",
		Help: "Orchestrator runs started.",
	})
	c.busy = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "driveclone_orchestrator_busy",
		Help: "1 while an orchestrator run is active.",
	})
	c.jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "driveclone_job_duration_seconds",
			Help:    "Wall time from download start to a final status.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)

	c.register(c.jobsTotal, c.runsTotal, c.busy, c.jobDuration)
	return c
}

func (c *Collector) register(cs ...prometheus.Collector) {
	c.collectors = append(c.collectors, cs...)
}

// MustRegister registers every collector with the registry exactly once.
// Go runtime and process collectors are included.
func (c *Collector) MustRegister() {
	c.once.Do(func() {
		c.registry.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
		c.registry.MustRegister(c.collectors...)
	})
}

// Registry exposes the underlying registry for gathering in tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	c.MustRegister()
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RunStarted() {
	c.runsTotal.Inc()
}

func (c *Collector) JobFinished(status models.JobStatus, code string, elapsed time.Duration) {
	c.jobsTotal.WithLabelValues(norm(string(status)), norm(code)).Inc()
	c.jobDuration.WithLabelValues(norm(string(status))).Observe(elapsed.Seconds())
}

func (c *Collector) SetBusy(busy bool) {
	if busy {
		c.busy.Set(1)
		return
	}
	c.busy.Set(0)
}

func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "none"
	}
	return s
}
