// Package problem writes RFC 7807 application/problem+json responses.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

// Kind pairs a problem type URI with its title and HTTP status. The URIs are
// stable identifiers for clients and are not expected to resolve.
type Kind struct {
	Type   string
	Title  string
	Status int
}

var (
	Validation = Kind{"https://campusreg.dev/problems/validation-error", "Invalid request", http.StatusBadRequest}
	NotFound   = Kind{"https://campusreg.dev/problems/not-found", "Not found", http.StatusNotFound}
	Conflict   = Kind{"https://campusreg.dev/problems/conflict", "Conflict", http.StatusConflict}
	Server     = Kind{"https://campusreg.dev/problems/server-error", "Server error", http.StatusInternalServerError}
)

// Details is the response body defined by RFC 7807.
type Details struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Errors   map[string]any `json:"errors,omitempty"`
}

type Option func(*Details)

func WithDetail(detail string) Option {
	return func(p *Details) { p.Detail = detail }
}

func WithInstance(instance string) Option {
	return func(p *Details) { p.Instance = instance }
}

// WithErrors attaches per-field validation errors to the response body.
func WithErrors(errs map[string]any) Option {
	return func(p *Details) { p.Errors = errs }
}

// Write emits a problem response for kind and logs err through the
// request-scoped logger. The error text becomes the detail only in
// development and test environments; elsewhere clients get the generic
// status text unless an option set one.
func Write(w http.ResponseWriter, r *http.Request, kind Kind, err error, env string, opts ...Option) {
	p := Details{
		Type:   kind.Type,
		Title:  kind.Title,
		Status: kind.Status,
	}
	for _, opt := range opts {
		opt(&p)
	}

	if p.Detail == "" && err != nil {
		if env == "development" || env == "test" {
			p.Detail = err.Error()
		} else {
			p.Detail = http.StatusText(kind.Status)
		}
	}
	if p.Instance == "" {
		p.Instance = r.URL.Path
	}

	if err != nil {
		logger := zerolog.Ctx(r.Context())
		event := logger.Warn()
		if kind.Status >= 500 {
			event = logger.Error()
		}
		event.
			Err(err).
			Int("status", kind.Status).
			Str("type", kind.Type).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(kind.Title)
	}

	WriteDetails(w, p)
}

// WriteDetails marshals and writes a prebuilt problem body.
func WriteDetails(w http.ResponseWriter, p Details) {
	w.Header().Set("Content-Type", contentType)

	payload, err := json.Marshal(p)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"type":"about:blank","title":"Internal Server Error","status":500}`))
		return
	}

	w.WriteHeader(p.Status)
	_, _ = w.Write(payload)
}
