// Package telemetry wires OpenTelemetry tracing and metrics for the services.
package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and stops the exporters.
type ShutdownFunc func(context.Context) error

// Config selects the exporter.
type Config struct {
	Exporter     string // "none", "prometheus", "stdout" or "otlp"
	OTLPEndpoint string
}

var metricsRegistry atomic.Pointer[prometheus.Registry]

func init() {
	metricsRegistry.Store(prometheus.NewRegistry())
}

// MetricsHandler serves the registry fed by the meter provider Init installed.
// Every exporter except "none" feeds it.
func MetricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		promhttp.HandlerFor(metricsRegistry.Load(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}

// Init installs global tracer and meter providers for serviceName.
// With the "none" exporter the global no-op providers stay in place.
func Init(serviceName, version string, cfg Config) (ShutdownFunc, error) {
	if cfg.Exporter == "" || cfg.Exporter == "none" {
		return func(context.Context) error { return nil }, nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	reg := prometheus.NewRegistry()
	promReader, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	tp, pushExporter, err := initExporters(res, cfg)
	if err != nil {
		return nil, err
	}
	mp := newMeterProvider(res, promReader, pushExporter)
	if tp != nil {
		otel.SetTracerProvider(tp)
	}
	otel.SetMeterProvider(mp)
	metricsRegistry.Store(reg)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return func(ctx context.Context) error {
		var errs []error
		if tp != nil {
			if err := tp.Shutdown(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		if len(errs) > 0 {
			return fmt.Errorf("telemetry shutdown errors: %v", errs)
		}
		return nil
	}, nil
}

// initExporters builds the tracer provider and the push metric exporter for
// cfg. The "prometheus" exporter has neither; metrics are pulled from /metrics.
func initExporters(res *resource.Resource, cfg Config) (*sdktrace.TracerProvider, sdkmetric.Exporter, error) {
	switch cfg.Exporter {
	case "prometheus":
		return nil, nil, nil
	case "stdout":
		traceExporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		metricExporter, err := stdoutmetric.New()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create metric exporter: %w", err)
		}
		return newTracerProvider(res, traceExporter), metricExporter, nil
	case "otlp":
		if cfg.OTLPEndpoint == "" {
			return nil, nil, fmt.Errorf("OTLP_ENDPOINT is required when TELEMETRY_EXPORTER=otlp")
		}
		traceExporter, err := otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlptracegrpc.WithInsecure(),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create otlp trace exporter: %w", err)
		}
		metricExporter, err := otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create otlp metric exporter: %w", err)
		}
		return newTracerProvider(res, traceExporter), metricExporter, nil
	default:
		return nil, nil, fmt.Errorf("invalid TELEMETRY_EXPORTER: %s (valid options: none, prometheus, stdout, otlp)", cfg.Exporter)
	}
}

func newTracerProvider(res *resource.Resource, exp sdktrace.SpanExporter) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp, sdktrace.WithBatchTimeout(time.Second)),
		sdktrace.WithResource(res),
	)
}

func newMeterProvider(res *resource.Resource, pull sdkmetric.Reader, push sdkmetric.Exporter) *sdkmetric.MeterProvider {
	opts := []sdkmetric.Option{sdkmetric.WithReader(pull), sdkmetric.WithResource(res)}
	if push != nil {
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(push, sdkmetric.WithInterval(time.Minute))))
	}
	return sdkmetric.NewMeterProvider(opts...)
}
