package registrations

import (
	"errors"
	"time"

	"github.com/campusreg/server/internal/domain/courses"
	"github.com/campusreg/server/internal/domain/students"
)

// ErrNotFound is returned when a registration lookup finds no row.
var ErrNotFound = errors.New("registration not found")

// ErrStudentNotFound and ErrCourseNotFound are returned by Register when the
// referenced entity does not exist. Both map to the same not-found response.
var (
	ErrStudentNotFound = errors.New("student not found")
	ErrCourseNotFound  = errors.New("course not found")
)

// ErrAlreadyRegistered is returned when the (student, course) pair already
// has a registration, whether detected by the pre-check or by the composite
// unique constraint on insert.
var ErrAlreadyRegistered = errors.New("already registered")

// Registration links a student to a course. RegisteredAt is assigned by the
// store at insert time. Student and Course are filled by the joined
// read-back after a successful insert and may be nil on bare lookups.
type Registration struct {
	ID           int64
	StudentID    int64
	CourseID     int64
	RegisteredAt time.Time
	Student      *students.Student
	Course       *courses.Course
}

type RegisterParams struct {
	StudentID int64 `validate:"required,gt=0"`
	CourseID  int64 `validate:"required,gt=0"`
}
