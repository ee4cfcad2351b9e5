package courses

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/campusreg/server/internal/sanitize"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Course codes are department letters followed by a catalog number,
// optionally dash-separated (CS101, MATH-2410).
var codePattern = regexp.MustCompile(`^[A-Z]{2,8}-?[0-9]{2,4}$`)

type Service struct {
	repo      Repository
	logger    zerolog.Logger
	validator *validator.Validate
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		logger:    logger.With().Str("component", "courses").Logger(),
		validator: validator.New(),
	}
}

// Create adds a course to the catalog. The code is normalized to upper case
// before the uniqueness check so CS101 and cs101 are the same course.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Course, error) {
	params.Title = sanitize.Text(params.Title)
	params.Code = strings.ToUpper(strings.TrimSpace(params.Code))

	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}
	if !codePattern.MatchString(params.Code) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCode, params.Code)
	}

	existing, err := s.repo.GetByCode(ctx, params.Code)
	if err == nil && existing != nil {
		return nil, ErrCodeTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check course code: %w", err)
	}

	created, err := s.repo.Create(ctx, params)
	if err != nil {
		if errors.Is(err, ErrCodeTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create course: %w", err)
	}

	s.logger.Info().
		Int64("course_id", created.ID).
		Str("code", created.Code).
		Msg("course created")
	return created, nil
}

func (s *Service) List(ctx context.Context) ([]Course, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Course, error) {
	return s.repo.GetByID(ctx, id)
}
