package postgres

import (
	"context"
	"fmt"

	"github.com/campusreg/server/internal/domain/courses"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ courses.Repository = (*CourseRepository)(nil)

type CourseRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *CourseRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *CourseRepository) Create(ctx context.Context, params courses.CreateParams) (*courses.Course, error) {
	row := r.queryer().QueryRow(ctx, `
INSERT INTO courses (title, code)
VALUES ($1, $2)
RETURNING id, title, code, created_at
`, params.Title, params.Code)

	var course courses.Course
	if err := row.Scan(&course.ID, &course.Title, &course.Code, &course.CreatedAt); err != nil {
		if isUniqueViolation(err, "courses_code_key") {
			return nil, courses.ErrCodeTaken
		}
		return nil, fmt.Errorf("insert course: %w", err)
	}

	return &course, nil
}

func (r *CourseRepository) GetByID(ctx context.Context, id int64) (*courses.Course, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT id, title, code, created_at
  FROM courses
 WHERE id = $1
`, id)

	var course courses.Course
	if err := row.Scan(&course.ID, &course.Title, &course.Code, &course.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, courses.ErrNotFound
		}
		return nil, fmt.Errorf("get course: %w", err)
	}

	return &course, nil
}

func (r *CourseRepository) GetByCode(ctx context.Context, code string) (*courses.Course, error) {
	row := r.queryer().QueryRow(ctx, `
SELECT id, title, code, created_at
  FROM courses
 WHERE code = $1
`, code)

	var course courses.Course
	if err := row.Scan(&course.ID, &course.Title, &course.Code, &course.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, courses.ErrNotFound
		}
		return nil, fmt.Errorf("get course by code: %w", err)
	}

	return &course, nil
}

func (r *CourseRepository) List(ctx context.Context) ([]courses.Course, error) {
	rows, err := r.queryer().Query(ctx, `
SELECT id, title, code, created_at
  FROM courses
 ORDER BY id
`)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
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
		return nil, fmt.Errorf("list courses: %w", err)
	}

	return result, nil
}
