package courses

import "context"

// Repository defines the course data access contract. The postgres
// implementation translates unique violations on the code column to
// ErrCodeTaken so callers never see driver-level errors.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Course, error)
	GetByID(ctx context.Context, id int64) (*Course, error)
	GetByCode(ctx context.Context, code string) (*Course, error)
	List(ctx context.Context) ([]Course, error)
}
