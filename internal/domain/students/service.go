package students

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusreg/server/internal/sanitize"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type Service struct {
	repo      Repository
	logger    zerolog.Logger
	validator *validator.Validate
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		logger:    logger.With().Str("component", "students").Logger(),
		validator: validator.New(),
	}
}

// Create enrolls a new student. The email is lowercased before the
// uniqueness check so the same address with different casing cannot be
// registered twice.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Student, error) {
	params.Name = sanitize.Text(params.Name)
	params.Email = strings.ToLower(strings.TrimSpace(params.Email))

	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByEmail(ctx, params.Email)
	if err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	created, err := s.repo.Create(ctx, params)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create student: %w", err)
	}

	s.logger.Info().
		Int64("student_id", created.ID).
		Msg("student created")
	return created, nil
}

// List returns all students with their registered courses.
func (s *Service) List(ctx context.Context) ([]Student, error) {
	return s.repo.ListWithCourses(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Student, error) {
	return s.repo.GetByID(ctx, id)
}
