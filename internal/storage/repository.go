package storage

import (
	"context"

	"github.com/campusreg/server/internal/domain/courses"
	"github.com/campusreg/server/internal/domain/registrations"
	"github.com/campusreg/server/internal/domain/students"
)

// Repository groups data access by domain.
type Repository interface {
	Students() students.Repository
	Courses() courses.Repository
	Registrations() registrations.Repository

	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}
