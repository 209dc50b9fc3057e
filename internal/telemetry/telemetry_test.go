package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInitNoneIsNoop(t *testing.T) {
	shutdown, err := Init("agent-api", "test", Config{Exporter: "none"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestInitRejectsUnknownExporter(t *testing.T) {
	if _, err := Init("agent-api", "test", Config{Exporter: "zipkin"}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestInitOTLPRequiresEndpoint(t *testing.T) {
	if _, err := Init("agent-api", "test", Config{Exporter: "otlp"}); err == nil {
		t.Fatal("expected error for missing endpoint")
	}
}

func TestMetricsRecordWithoutProvider(t *testing.T) {
	rm, err := NewRequestMetrics("agent-api")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rm.Record(context.Background(), http.MethodGet, "/health", http.StatusOK, time.Millisecond)

	pm, err := NewPipelineMetrics()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pm.Query(context.Background(), "text", "ok")
	pm.Fallback(context.Background(), "tts")

	var nilMetrics *PipelineMetrics
	nilMetrics.Query(context.Background(), "text", "ok")
}

func TestInitPrometheusServesMetrics(t *testing.T) {
	shutdown, err := Init("agent-api", "test", Config{Exporter: "prometheus"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer shutdown(context.Background())

	rm, err := NewRequestMetrics("agent-api")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rm.Record(context.Background(), http.MethodPost, "/query", http.StatusOK, 20*time.Millisecond)

	rr := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"http_server_requests", `http_route="/query"`, "http_server_duration"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
