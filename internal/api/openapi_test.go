package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// getOpenAPI issues one request against OpenAPIHandler.
func getOpenAPI(t *testing.T, method string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	OpenAPIHandler().ServeHTTP(w, httptest.NewRequest(method, "/api/v1/openapi.json", nil))
	return w
}

func TestOpenAPIHandler_OnlyGET(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			if w := getOpenAPI(t, method); w.Code != http.StatusMethodNotAllowed {
				t.Errorf("%s status = %d, want 405", method, w.Code)
			}
		})
	}
}

func TestOpenAPIHandler_DocumentsResources(t *testing.T) {
	w := getOpenAPI(t, http.MethodGet)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var payload map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("spec is not valid JSON: %v", err)
	}

	if payload["openapi"] != "3.1.0" {
		t.Errorf("openapi version = %v, want 3.1.0", payload["openapi"])
	}

	paths, ok := payload["paths"].(map[string]any)
	if !ok {
		t.Fatal("spec has no paths object")
	}
	for _, path := range []string{"/students", "/students/{id}", "/courses", "/courses/{id}", "/registrations"} {
		if _, ok := paths[path]; !ok {
			t.Errorf("spec missing path %q", path)
		}
	}
}

func TestOpenAPIHandler_ServesCachedConversion(t *testing.T) {
	first := getOpenAPI(t, http.MethodGet)
	second := getOpenAPI(t, http.MethodGet)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("statuses = %d, %d, want 200, 200", first.Code, second.Code)
	}
	if first.Body.String() != second.Body.String() {
		t.Error("repeated requests should serve the identical cached document")
	}
}

func TestOpenAPIHandler_ConcurrentRequests(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			OpenAPIHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil))
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
		}()
	}
	wg.Wait()
}
