package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/campusreg/server/internal/api/problem"
	"github.com/go-playground/validator/v10"
)

// FilterError represents a validation error for a specific field.
type FilterError struct {
	Field   string
	Message string
}

func (e FilterError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateAndExtractID extracts and validates a numeric ID from a request
// path parameter. Returns the parsed ID and true if valid. If invalid,
// writes an appropriate error response and returns zero and false.
func ValidateAndExtractID(w http.ResponseWriter, r *http.Request, paramName, env string) (int64, bool) {
	raw := strings.TrimSpace(pathParam(r, paramName))
	if raw == "" {
		problem.Write(w, r, problem.Validation, FilterError{Field: paramName, Message: "missing"}, env)
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		problem.Write(w, r, problem.Validation, FilterError{Field: paramName, Message: "must be a positive integer"}, env)
		return 0, false
	}
	return id, true
}

// fieldErrors flattens validator errors into a field to constraint map for
// problem response bodies. Returns nil when err carries no field errors.
func fieldErrors(err error) map[string]interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]interface{}, len(verrs))
	for _, fe := range verrs {
		out[strings.ToLower(fe.Field())] = fe.Tag()
	}
	return out
}
