package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	buildDuration     *prom.HistogramVec
	stageDuration     *prom.HistogramVec
	pagesRendered     prom.Counter
	assetsCopied      prom.Counter
	jobFailures       prom.Counter
	linkWarnings      prom.Counter
	rebuildCycles     *prom.CounterVec
	livereloadClients prom.Gauge
}

// NewPrometheusRecorder constructs and registers the instrument set.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.buildDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "memoize",
			Name:      "build_duration_seconds",
			Help:      "Total duration of build cycles by outcome",
			Buckets:   prom.DefBuckets,
		}, []string{"outcome"})
		pr.stageDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "memoize",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"})
		pr.pagesRendered = prom.NewCounter(prom.CounterOpts{
			Namespace: "memoize",
			Name:      "pages_rendered_total",
			Help:      "Markdown pages rendered to HTML",
		})
		pr.assetsCopied = prom.NewCounter(prom.CounterOpts{
			Namespace: "memoize",
			Name:      "assets_copied_total",
			Help:      "Assets mirrored into the output tree",
		})
		pr.jobFailures = prom.NewCounter(prom.CounterOpts{
			Namespace: "memoize",
			Name:      "job_failures_total",
			Help:      "Build jobs that finished with an error",
		})
		pr.linkWarnings = prom.NewCounter(prom.CounterOpts{
			Namespace: "memoize",
			Name:      "link_warnings_total",
			Help:      "Relative links whose target was not found",
		})
		pr.rebuildCycles = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "memoize",
			Name:      "rebuild_cycles_total",
			Help:      "Rebuild cycles by trigger",
		}, []string{"trigger"})
		pr.livereloadClients = prom.NewGauge(prom.GaugeOpts{
			Namespace: "memoize",
			Name:      "livereload_clients",
			Help:      "Currently connected live-reload subscribers",
		})
		reg.MustRegister(pr.buildDuration, pr.stageDuration, pr.pagesRendered, pr.assetsCopied,
			pr.jobFailures, pr.linkWarnings, pr.rebuildCycles, pr.livereloadClients)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(outcome Outcome, d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil || p.stageDuration == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddPagesRendered(n int) {
	if p == nil || p.pagesRendered == nil {
		return
	}
	p.pagesRendered.Add(float64(n))
}

func (p *PrometheusRecorder) AddAssetsCopied(n int) {
	if p == nil || p.assetsCopied == nil {
		return
	}
	p.assetsCopied.Add(float64(n))
}

func (p *PrometheusRecorder) AddJobFailures(n int) {
	if p == nil || p.jobFailures == nil {
		return
	}
	p.jobFailures.Add(float64(n))
}

func (p *PrometheusRecorder) AddLinkWarnings(n int) {
	if p == nil || p.linkWarnings == nil {
		return
	}
	p.linkWarnings.Add(float64(n))
}

func (p *PrometheusRecorder) IncRebuild(trigger Trigger) {
	if p == nil || p.rebuildCycles == nil {
		return
	}
	p.rebuildCycles.WithLabelValues(string(trigger)).Inc()
}

func (p *PrometheusRecorder) SetLiveReloadClients(n int) {
	if p == nil || p.livereloadClients == nil {
		return
	}
	p.livereloadClients.Set(float64(n))
}
