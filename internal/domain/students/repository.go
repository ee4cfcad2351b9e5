package students

import "context"

// Repository defines the student data access contract. The postgres
// implementation translates unique violations on the email column to
// ErrEmailTaken and missing rows to ErrNotFound.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Student, error)
	GetByID(ctx context.Context, id int64) (*Student, error)
	GetByEmail(ctx context.Context, email string) (*Student, error)

	// ListWithCourses returns every student with their registered courses
	// joined in, one query for the whole listing.
	ListWithCourses(ctx context.Context) ([]Student, error)
}
