// Package metrics exposes Prometheus instrumentation for MCP tool calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for tool calls.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error" // tool returned an error result
	OutcomeFailure = "failure"
)

// Recorder holds the collectors of one server instance. Each Recorder owns
// its registry so several servers can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	fetches      *prometheus.CounterVec
	filesSeen    prometheus.Histogram
}

// NewRecorder creates a Recorder with process and Go runtime collectors
// registered alongside the analyzer metrics.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		toolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "repo_analyzer_tool_calls_total",
			Help: "Total number of MCP tool calls by tool and outcome",
		}, []string{"tool", "outcome"}), // outcome=success|error|failure
		toolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "repo_analyzer_tool_duration_seconds",
			Help:    "Duration of MCP tool calls",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"tool"}),
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "repo_analyzer_remote_fetches_total",
			Help: "Remote fetches performed by compare_with_remote",
		}, []string{"outcome"}), // outcome=success|failure
		filesSeen: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "repo_analyzer_outstanding_files",
			Help:    "Outstanding files per analyzed working directory",
			Buckets: prometheus.ExponentialBuckets(1, 4, 7),
		}),
	}
}

// ObserveTool records one tool call.
func (r *Recorder) ObserveTool(tool, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.toolCalls.WithLabelValues(tool, outcome).Inc()
	r.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// ObserveFetch records a remote fetch attempt.
func (r *Recorder) ObserveFetch(err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.fetches.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	r.fetches.WithLabelValues(OutcomeSuccess).Inc()
}

// ObserveOutstandingFiles records the size of an analyzed working directory.
func (r *Recorder) ObserveOutstandingFiles(n int) {
	if r == nil {
		return
	}
	r.filesSeen.Observe(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
