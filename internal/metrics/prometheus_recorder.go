package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "weaving"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration    *prom.HistogramVec
	buildDuration    prom.Histogram
	buildOutcome     *prom.CounterVec
	pagesRendered    prom.Counter
	pageFailures     *prom.CounterVec
	rebuilds         prom.Counter
	reloadBroadcasts prom.Counter
	clients          prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them with reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"}),
		pagesRendered: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_rendered_total",
			Help:      "Pages rendered and written across all builds",
		}),
		pageFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "page_failures_total",
			Help:      "Pages skipped because of a page-local error, by error category",
		}, []string{"category"}),
		rebuilds: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilds_total",
			Help:      "Rebuilds triggered by the file watcher",
		}),
		reloadBroadcasts: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "reload_broadcasts_total",
			Help:      "Reload events published to browser clients",
		}),
		clients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "livereload_clients",
			Help:      "Currently connected live reload clients",
		}),
	}
	reg.MustRegister(pr.stageDuration, pr.buildDuration, pr.buildOutcome, pr.pagesRendered,
		pr.pageFailures, pr.rebuilds, pr.reloadBroadcasts, pr.clients)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) AddPagesRendered(n int) {
	p.pagesRendered.Add(float64(n))
}

func (p *PrometheusRecorder) IncPageFailure(category string) {
	p.pageFailures.WithLabelValues(category).Inc()
}

func (p *PrometheusRecorder) IncRebuild() { p.rebuilds.Inc() }

func (p *PrometheusRecorder) IncReloadBroadcast() { p.reloadBroadcasts.Inc() }

func (p *PrometheusRecorder) SetConnectedClients(n int) { p.clients.Set(float64(n)) }
