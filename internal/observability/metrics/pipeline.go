package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/freelance-docs/internal/core/domain"
)

const namespace = "fdocs"

// Pipeline records render and extraction measurements. It satisfies
// ports.PipelineObserver and is shared by the api and worker registries.
type Pipeline struct {
	service string

	renderTotal        *prometheus.CounterVec
	renderDuration     *prometheus.HistogramVec
	extractionTotal    *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	modelAttemptsTotal *prometheus.CounterVec
	textSourceTotal    *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
}

func newPipeline(service string, registry *prometheus.Registry) *Pipeline {
	renderTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "documents_total",
			Help:      "Total rendered documents by kind and error kind.",
		},
		[]string{"service", "kind", "error_kind"},
	)
	renderDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Render flow duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"service", "kind"},
	)
	extractionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "requests_total",
			Help:      "Total structured extractions by import kind and error kind.",
		},
		[]string{"service", "kind", "error_kind"},
	)
	extractionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "extraction",
			Name:      "duration_seconds",
			Help:      "Structured extraction duration in seconds, model fallback included.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "kind"},
	)
	modelAttemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "attempts_total",
			Help:      "Model attempts by model identifier and outcome.",
		},
		[]string{"service", "model", "outcome"},
	)
	textSourceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "text",
			Name:      "source_total",
			Help:      "Extracted texts by source (text_layer or ocr).",
		},
		[]string{"service", "source"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "resilience",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		renderTotal,
		renderDuration,
		extractionTotal,
		extractionDuration,
		modelAttemptsTotal,
		textSourceTotal,
		breakerState,
	)

	return &Pipeline{
		service:            service,
		renderTotal:        renderTotal,
		renderDuration:     renderDuration,
		extractionTotal:    extractionTotal,
		extractionDuration: extractionDuration,
		modelAttemptsTotal: modelAttemptsTotal,
		textSourceTotal:    textSourceTotal,
		breakerState:       breakerState,
	}
}

func (p *Pipeline) ObserveModelAttempt(model, outcome string) {
	if model == "" {
		model = "unknown"
	}
	p.modelAttemptsTotal.WithLabelValues(p.service, model, outcome).Inc()
}

func (p *Pipeline) ObserveTextSource(source string) {
	p.textSourceTotal.WithLabelValues(p.service, source).Inc()
}

func (p *Pipeline) ObserveExtraction(kind domain.DocumentKind, duration time.Duration, err error) {
	p.extractionTotal.WithLabelValues(p.service, string(kind), errorKindLabel(err)).Inc()
	p.extractionDuration.WithLabelValues(p.service, string(kind)).Observe(duration.Seconds())
}

func (p *Pipeline) ObserveRender(kind domain.DocumentKind, duration time.Duration, err error) {
	p.renderTotal.WithLabelValues(p.service, string(kind), errorKindLabel(err)).Inc()
	p.renderDuration.WithLabelValues(p.service, string(kind)).Observe(duration.Seconds())
}

// ObserveBreakerState takes gobreaker state names (closed, half-open, open).
func (p *Pipeline) ObserveBreakerState(operation, state string) {
	value := 0.0
	switch state {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	p.breakerState.WithLabelValues(p.service, operation).Set(value)
}

func errorKindLabel(err error) string {
	if err == nil {
		return "none"
	}
	return domain.ErrorKindName(err)
}
