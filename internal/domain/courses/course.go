package courses

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("course not found")

// ErrCodeTaken is returned when creating a course with a code that already exists.
var ErrCodeTaken = errors.New("course code already registered")

// ErrInvalidCode is returned when a course code does not match the expected
// format (uppercase letters and digits, e.g. CS101).
var ErrInvalidCode = errors.New("invalid course code format")

type Course struct {
	ID        int64
	Title     string
	Code      string
	CreatedAt time.Time
}

type CreateParams struct {
	Title string `validate:"required,min=1,max=200"`
	Code  string `validate:"required,min=2,max=16"`
}
