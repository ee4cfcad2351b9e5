package postgres

import (
	"context"
	"fmt"

	"github.com/campusreg/server/internal/domain/courses"
	"github.com/campusreg/server/internal/domain/registrations"
	"github.com/campusreg/server/internal/domain/students"
	"github.com/campusreg/server/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Students() students.Repository {
	return &StudentRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Courses() courses.Repository {
	return &CourseRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Registrations() registrations.Repository {
	return &RegistrationRepository{pool: r.pool, tx: r.tx}
}

// WithTx runs fn with every repository bound to one transaction. Calls made
// while already inside a transaction join it instead of nesting.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	// Rollback after a successful commit returns ErrTxClosed, which is fine.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &Repository{pool: r.pool, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
