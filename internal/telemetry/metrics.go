package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RequestMetrics counts HTTP requests and records their latency.
type RequestMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewRequestMetrics registers request instruments on the global meter for service.
func NewRequestMetrics(service string) (*RequestMetrics, error) {
	meter := otel.Meter("agent-cag/" + service)

	requests, err := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("HTTP requests by route and status"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &RequestMetrics{requests: requests, duration: duration}, nil
}

// Record adds one request observation.
func (m *RequestMetrics) Record(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// PipelineMetrics tracks query pipeline outcomes.
type PipelineMetrics struct {
	queries   metric.Int64Counter
	fallbacks metric.Int64Counter
}

// NewPipelineMetrics registers pipeline instruments on the global meter.
func NewPipelineMetrics() (*PipelineMetrics, error) {
	meter := otel.Meter("agent-cag/pipeline")

	queries, err := meter.Int64Counter(
		"agent.queries",
		metric.WithDescription("Processed queries by input type and outcome"),
	)
	if err != nil {
		return nil, err
	}
	fallbacks, err := meter.Int64Counter(
		"agent.fallbacks",
		metric.WithDescription("Degraded pipeline steps by stage"),
	)
	if err != nil {
		return nil, err
	}
	return &PipelineMetrics{queries: queries, fallbacks: fallbacks}, nil
}

// Query records one processed query.
func (m *PipelineMetrics) Query(ctx context.Context, inputType, outcome string) {
	if m == nil {
		return
	}
	m.queries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("input_type", inputType),
		attribute.String("outcome", outcome),
	))
}

// Fallback records a degraded stage such as "tts" or "sardaukar".
func (m *PipelineMetrics) Fallback(ctx context.Context, stage string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
