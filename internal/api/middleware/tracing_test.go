package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// captureSpans installs an in-memory tracer provider for the test's duration.
func captureSpans(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

func spanAttr(span tracetest.SpanStub, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracing_RecordsServerSpan(t *testing.T) {
	exporter := captureSpans(t)

	handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/courses", nil))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "GET /api/v1/courses" {
		t.Errorf("span name = %q", span.Name)
	}
	if v, ok := spanAttr(span, "http.method"); !ok || v.AsString() != "GET" {
		t.Errorf("http.method = %q (present=%v)", v.AsString(), ok)
	}
	if v, ok := spanAttr(span, "http.url"); !ok || v.AsString() != "/api/v1/courses" {
		t.Errorf("http.url = %q (present=%v)", v.AsString(), ok)
	}
	if v, ok := spanAttr(span, "http.status_code"); !ok || v.AsInt64() != 200 {
		t.Errorf("http.status_code = %d (present=%v)", v.AsInt64(), ok)
	}
}

func TestTracing_MarksErrorResponses(t *testing.T) {
	exporter := captureSpans(t)

	handler := Tracing(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/students/99", nil))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if v, ok := spanAttr(span, "http.status_code"); !ok || v.AsInt64() != 404 {
		t.Errorf("http.status_code = %d (present=%v)", v.AsInt64(), ok)
	}
	if span.Status.Code != codes.Error {
		t.Errorf("span status = %v, want Error", span.Status.Code)
	}
}

func TestTracing_CarriesRequestID(t *testing.T) {
	exporter := captureSpans(t)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := CorrelationID(zerolog.Nop())(Tracing(inner))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students", nil)
	req.Header.Set(RequestIDHeader, "req-55")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if v, ok := spanAttr(spans[0], "request_id"); !ok || v.AsString() != "req-55" {
		t.Errorf("request_id = %q (present=%v)", v.AsString(), ok)
	}
}

func TestRequestScheme(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	if got := requestScheme(r); got != "http" {
		t.Errorf("plain request scheme = %q", got)
	}

	r.Header.Set("X-Forwarded-Proto", "https")
	if got := requestScheme(r); got != "https" {
		t.Errorf("forwarded scheme = %q", got)
	}
}
