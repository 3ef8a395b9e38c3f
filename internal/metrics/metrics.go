package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "microloan"

// Recorder owns the process collectors. A nil *Recorder records nothing.
type Recorder struct {
	registry     *prometheus.Registry
	decisions    *prometheus.CounterVec
	serviceCalls *prometheus.HistogramVec
	polls        *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "underwriting_decisions_total",
			Help:      "Underwriting decisions by status.",
		}, []string{"status"}),
		serviceCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_call_duration_seconds",
			Help:      "Latency of calls to remote scoring and stats services.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "outcome"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "portfolio_stats_polls_total",
			Help:      "Portfolio stats poll ticks by outcome.",
		}, []string{"outcome"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.decisions,
		r.serviceCalls,
		r.polls,
	)
	return r
}

// Decision counts one underwriting outcome.
func (r *Recorder) Decision(status string) {
	if r == nil {
		return
	}
	r.decisions.WithLabelValues(status).Inc()
}

// ServiceCall observes one remote call; outcome is "ok" or "error".
func (r *Recorder) ServiceCall(service string, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.serviceCalls.WithLabelValues(service, outcome).Observe(elapsed.Seconds())
}

// Poll counts one poller tick outcome.
func (r *Recorder) Poll(outcome string) {
	if r == nil {
		return
	}
	r.polls.WithLabelValues(outcome).Inc()
}

// Handler exposes the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
