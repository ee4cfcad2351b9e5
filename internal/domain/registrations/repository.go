package registrations

import "context"

// Repository defines the registration data access contract.
//
// Create must translate a unique violation on the (student_id, course_id)
// constraint to ErrAlreadyRegistered: the constraint is the authoritative
// duplicate signal, the service pre-check only exists for cheap early exits.
type Repository interface {
	Create(ctx context.Context, studentID, courseID int64) (*Registration, error)
	GetByPair(ctx context.Context, studentID, courseID int64) (*Registration, error)

	// GetDetailed reads a registration back with its student and course
	// rows joined in.
	GetDetailed(ctx context.Context, id int64) (*Registration, error)
}
