package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/campusreg/server/internal/domain/courses"
	"github.com/campusreg/server/internal/domain/students"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ students.Repository = (*StudentRepository)(nil)

type StudentRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *StudentRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *StudentRepository) Create(ctx context.Context, params students.CreateParams) (*students.Student, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO students (name, email)
VALUES ($1, $2)
RETURNING id, name, email, created_at
`, params.Name, params.Email)

	var student students.Student
	if err := row.Scan(&student.ID, &student.Name, &student.Email, &student.CreatedAt); err != nil {
		if isUniqueViolation(err, "students_email_key") {
			return nil, students.ErrEmailTaken
		}
		return nil, fmt.Errorf("insert student: %w", err)
	}

	student.RegisteredCourses = []courses.Course{}
	return &student, nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*students.Student, error) {
	q := r.queryer()

	row := q.QueryRow(ctx, `
SELECT id, name, email, created_at
  FROM students
 WHERE id = $1
`, id)

	var student students.Student
	if err := row.Scan(&student.ID, &student.Name, &student.Email, &student.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, students.ErrNotFound
		}
		return nil, fmt.Errorf("get student: %w", err)
	}

	registered, err := registeredCourses(ctx, q, student.ID)
	if err != nil {
		return nil, err
	}
	student.RegisteredCourses = registered
	return &student, nil
}

func (r *StudentRepository) GetByEmail(ctx context.Context, email string) (*students.Student, error) {
	q := r.queryer()

	row := q.QueryRow(ctx, `
SELECT id, name, email, created_at
  FROM students
 WHERE email = $1
`, email)

	var student students.Student
	if err := row.Scan(&student.ID, &student.Name, &student.Email, &student.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, students.ErrNotFound
		}
		return nil, fmt.Errorf("get student by email: %w", err)
	}

	registered, err := registeredCourses(ctx, q, student.ID)
	if err != nil {
		return nil, err
	}
	student.RegisteredCourses = registered
	return &student, nil
}

// ListWithCourses joins students to their courses in a single query and
// folds the repeated student columns back into one entry per student.
func (r *StudentRepository) ListWithCourses(ctx context.Context) ([]students.Student, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT s.id, s.name, s.email, s.created_at,
       c.id, c.title, c.code, c.created_at
  FROM students s
  LEFT JOIN registrations reg ON reg.student_id = s.id
  LEFT JOIN courses c ON c.id = reg.course_id
 ORDER BY s.id, c.id
`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	result := make([]students.Student, 0)
	index := make(map[int64]int)

	for rows.Next() {
		var student students.Student
		var courseID *int64
		var courseTitle, courseCode *string
		var courseCreatedAt *time.Time

		if err := rows.Scan(
			&student.ID,
			&student.Name,
			&student.Email,
			&student.CreatedAt,
			&courseID,
			&courseTitle,
			&courseCode,
			&courseCreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan student row: %w", err)
		}

		pos, seen := index[student.ID]
		if !seen {
			student.RegisteredCourses = []courses.Course{}
			result = append(result, student)
			pos = len(result) - 1
			index[student.ID] = pos
		}

		if courseID != nil {
			result[pos].RegisteredCourses = append(result[pos].RegisteredCourses, courses.Course{
				ID:        *courseID,
				Title:     *courseTitle,
				Code:      *courseCode,
				CreatedAt: *courseCreatedAt,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	return result, nil
}

// registeredCourses loads the courses a single student is registered in.
func registeredCourses(ctx context.Context, q queryer, studentID int64) ([]courses.Course, error) {
	rows, err := q.Query(ctx, `
SELECT c.id, c.title, c.code, c.created_at
  FROM courses c
  JOIN registrations reg ON reg.course_id = c.id
 WHERE reg.student_id = $1
 ORDER BY c.id
`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list registered courses: %w", err)
	}
	defer rows.Close()

	result := make([]courses.Course, 0)
	for rows.Next() {
		var course courses.Course
		if err := rows.Scan(&course.ID, &course.Title, &course.Code, &course.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan course row: %w", err)
		}
		result = append(result, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registered courses: %w", err)
	}

	return result, nil
}
