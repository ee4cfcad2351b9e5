package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/campusreg/server/internal/domain/courses"
	"github.com/campusreg/server/internal/domain/registrations"
	"github.com/campusreg/server/internal/domain/students"
	"github.com/campusreg/server/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ registrations.Repository = (*RegistrationRepository)(nil)

type RegistrationRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *RegistrationRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

// Create inserts the pair and lets the composite unique constraint decide
// duplicates. A violation surfaces as ErrAlreadyRegistered no matter how the
// request interleaved with others.
func (r *RegistrationRepository) Create(ctx context.Context, studentID, courseID int64) (*registrations.Registration, error) {
	start := time.Now()
	row := r.queryer().QueryRow(ctx, `
INSERT INTO registrations (student_id, course_id)
VALUES ($1, $2)
RETURNING id, student_id, course_id, registered_at
`, studentID, courseID)

	var reg registrations.Registration
	err := row.Scan(&reg.ID, &reg.StudentID, &reg.CourseID, &reg.RegisteredAt)
	metrics.RecordQuery("insert_registration", start, err)
	if err != nil {
		if isUniqueViolation(err, "registrations_student_id_course_id_key") {
			return nil, registrations.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	return &reg, nil
}

func (r *RegistrationRepository) GetByPair(ctx context.Context, studentID, courseID int64) (*registrations.Registration, error) {
	start := time.Now()
	row := r.queryer().QueryRow(ctx, `
SELECT id, student_id, course_id, registered_at
  FROM registrations
 WHERE student_id = $1 AND course_id = $2
`, studentID, courseID)

	var reg registrations.Registration
	err := row.Scan(&reg.ID, &reg.StudentID, &reg.CourseID, &reg.RegisteredAt)
	metrics.RecordQuery("select_registration_pair", start, err)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, registrations.ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}

	return &reg, nil
}

// GetDetailed loads a registration with its student and course joined in.
func (r *RegistrationRepository) GetDetailed(ctx context.Context, id int64) (*registrations.Registration, error) {
	start := time.Now()
	row := r.queryer().QueryRow(ctx, `
SELECT reg.id, reg.student_id, reg.course_id, reg.registered_at,
       s.id, s.name, s.email, s.created_at,
       c.id, c.title, c.code, c.created_at
  FROM registrations reg
  JOIN students s ON s.id = reg.student_id
  JOIN courses c ON c.id = reg.course_id
 WHERE reg.id = $1
`, id)

	var reg registrations.Registration
	var student students.Student
	var course courses.Course
	err := row.Scan(
		&reg.ID,
		&reg.StudentID,
		&reg.CourseID,
		&reg.RegisteredAt,
		&student.ID,
		&student.Name,
		&student.Email,
		&student.CreatedAt,
		&course.ID,
		&course.Title,
		&course.Code,
		&course.CreatedAt,
	)
	metrics.RecordQuery("select_registration_detail", start, err)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, registrations.ErrNotFound
		}
		return nil, fmt.Errorf("get registration detail: %w", err)
	}

	reg.Student = &student
	reg.Course = &course
	return &reg, nil
}
