// Package metrics provides Prometheus metrics export for the chat core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter exports chat core metrics in Prometheus format.
type Exporter struct {
	registry *prometheus.Registry

	chatRequests  *prometheus.CounterVec
	chatLatency   prometheus.Histogram
	safetyBlocks  prometheus.Counter
	llmCalls      *prometheus.CounterVec
	toolDispatch  *prometheus.CounterVec
	forcedRetries prometheus.Counter
}

// NewExporter creates an exporter with its own registry.
func NewExporter() *Exporter {
	registry := prometheus.NewRegistry()

	e := &Exporter{
		registry: registry,
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booksage_chat_requests_total",
			Help: "Chat requests by outcome (recommendation, refusal, blocked).",
		}, []string{"outcome"}),
		chatLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "booksage_chat_duration_seconds",
			Help:    "End-to-end chat request duration.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		safetyBlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booksage_safety_blocks_total",
			Help: "Requests rejected by the safety filter.",
		}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booksage_llm_calls_total",
			Help: "LLM invocations by phase (initial, forced_retry, finalize).",
		}, []string{"phase"}),
		toolDispatch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "booksage_tool_dispatch_total",
			Help: "Tool calls dispatched by tool name.",
		}, []string{"tool"}),
		forcedRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booksage_forced_retries_total",
			Help: "Second invocations forced by the disambiguation safeguard.",
		}),
	}

	registry.MustRegister(
		e.chatRequests,
		e.chatLatency,
		e.safetyBlocks,
		e.llmCalls,
		e.toolDispatch,
		e.forcedRetries,
	)
	return e
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) ObserveChat(outcome string, duration time.Duration) {
	e.chatRequests.WithLabelValues(outcome).Inc()
	e.chatLatency.Observe(duration.Seconds())
}

func (e *Exporter) IncSafetyBlock() {
	e.safetyBlocks.Inc()
}

func (e *Exporter) IncLLMCall(phase string) {
	e.llmCalls.WithLabelValues(phase).Inc()
}

func (e *Exporter) IncToolDispatch(tool string) {
	e.toolDispatch.WithLabelValues(tool).Inc()
}

func (e *Exporter) IncForcedRetry() {
	e.forcedRetries.Inc()
}
