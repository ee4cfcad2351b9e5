package students

import (
	"errors"
	"time"

	"github.com/campusreg/server/internal/domain/courses"
)

var ErrNotFound = errors.New("student not found")

// ErrEmailTaken is returned when creating a student with an email that
// already belongs to another student.
var ErrEmailTaken = errors.New("email already registered")

// Student is a registrable person. RegisteredCourses carries the courses the
// student has registered for when the student is read through the listing
// query; it is empty (never nil) for a freshly created student.
type Student struct {
	ID                int64
	Name              string
	Email             string
	CreatedAt         time.Time
	RegisteredCourses []courses.Course
}

type CreateParams struct {
	Name  string `validate:"required,min=1,max=200"`
	Email string `validate:"required,email,max=320"`
}
