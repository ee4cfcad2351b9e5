package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not valid JSON: %v (%q)", err, buf.String())
	}
	return line
}

func TestRequestLogging_EmitsRequestLine(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogging(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":12}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/registrations", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	line := decodeLogLine(t, &buf)
	if line["method"] != "POST" {
		t.Errorf("method = %v", line["method"])
	}
	if line["path"] != "/api/v1/registrations" {
		t.Errorf("path = %v", line["path"])
	}
	if line["status"] != float64(http.StatusCreated) {
		t.Errorf("status = %v", line["status"])
	}
	if line["bytes"] != float64(9) {
		t.Errorf("bytes = %v", line["bytes"])
	}
	if line["message"] != "request" {
		t.Errorf("message = %v", line["message"])
	}
}

func TestRequestLogging_DefaultsToOK(t *testing.T) {
	var buf bytes.Buffer
	handler := RequestLogging(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	line := decodeLogLine(t, &buf)
	if line["status"] != float64(http.StatusOK) {
		t.Errorf("expected implicit 200, got %v", line["status"])
	}
}

func TestRequestLogging_UsesRequestScopedLogger(t *testing.T) {
	var scoped, fallback bytes.Buffer

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := CorrelationID(zerolog.New(&scoped))(RequestLogging(zerolog.New(&fallback))(inner))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/courses/7", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if fallback.Len() != 0 {
		t.Errorf("fallback logger should be idle, wrote %q", fallback.String())
	}
	line := decodeLogLine(t, &scoped)
	if line["request_id"] != "trace-42" {
		t.Errorf("request line should carry the correlation id, got %v", line["request_id"])
	}
	if line["status"] != float64(http.StatusNoContent) {
		t.Errorf("status = %v", line["status"])
	}
}
