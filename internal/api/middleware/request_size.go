package middleware

import (
	"net/http"
)

const (
	// DefaultMaxBodySize caps request bodies at 64KB. Create payloads here
	// are a handful of short fields; anything larger is not a legitimate
	// request.
	DefaultMaxBodySize int64 = 64 << 10
)

// RequestSize caps incoming request bodies at maxBytes. Oversized payloads
// fail at the first read past the cap and the handler answers 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// DefaultRequestSize applies the default body cap.
func DefaultRequestSize() func(http.Handler) http.Handler {
	return RequestSize(DefaultMaxBodySize)
}
