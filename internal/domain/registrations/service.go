package registrations

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusreg/server/internal/domain/courses"
	"github.com/campusreg/server/internal/domain/students"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Notifier delivers the registration confirmation after a successful
// insert. Implementations must be safe to call concurrently.
type Notifier interface {
	RegistrationCreated(ctx context.Context, reg *Registration) error
}

type Service struct {
	repo      Repository
	students  students.Repository
	courses   courses.Repository
	notifier  Notifier
	logger    zerolog.Logger
	validator *validator.Validate
}

// NewService wires the registration workflow. notifier may be nil when
// confirmation email is not configured.
func NewService(repo Repository, studentsRepo students.Repository, coursesRepo courses.Repository, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		students:  studentsRepo,
		courses:   coursesRepo,
		notifier:  notifier,
		logger:    logger.With().Str("component", "registrations").Logger(),
		validator: validator.New(),
	}
}

// Register creates a registration for the given (student, course) pair.
//
// The workflow is: validate ids, confirm both entities exist, check for an
// existing registration, then insert. The insert still translates the
// composite unique violation to ErrAlreadyRegistered, so two racing requests
// for the same pair produce one success and one conflict, never a duplicate
// row. Nothing is written when either entity is missing.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*Registration, error) {
	if err := s.validator.Struct(params); err != nil {
		return nil, err
	}

	student, err := s.students.GetByID(ctx, params.StudentID)
	if err != nil {
		if errors.Is(err, students.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("check student: %w", err)
	}

	course, err := s.courses.GetByID(ctx, params.CourseID)
	if err != nil {
		if errors.Is(err, courses.ErrNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("check course: %w", err)
	}

	if _, err := s.repo.GetByPair(ctx, params.StudentID, params.CourseID); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check existing registration: %w", err)
	}

	created, err := s.repo.Create(ctx, params.StudentID, params.CourseID)
	if err != nil {
		if errors.Is(err, ErrAlreadyRegistered) {
			// A concurrent request won the race between the pre-check
			// and the insert.
			return nil, err
		}
		return nil, fmt.Errorf("create registration: %w", err)
	}

	detailed, err := s.repo.GetDetailed(ctx, created.ID)
	if err != nil {
		// The row is committed; fall back to the entities fetched during
		// the existence checks rather than failing the request.
		s.logger.Error().
			Err(err).
			Int64("registration_id", created.ID).
			Msg("registration read-back failed")
		created.Student = student
		created.Course = course
		detailed = created
	}

	s.notify(ctx, detailed)

	s.logger.Info().
		Int64("registration_id", detailed.ID).
		Int64("student_id", detailed.StudentID).
		Int64("course_id", detailed.CourseID).
		Msg("registration created")
	return detailed, nil
}

// GetByPair reports whether the pair is registered.
func (s *Service) GetByPair(ctx context.Context, studentID, courseID int64) (*Registration, error) {
	return s.repo.GetByPair(ctx, studentID, courseID)
}

// notify enqueues the confirmation email. Failures are logged and dropped:
// the registration outcome never depends on the mail path.
func (s *Service) notify(ctx context.Context, reg *Registration) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.RegistrationCreated(ctx, reg); err != nil {
		s.logger.Warn().
			Err(err).
			Int64("registration_id", reg.ID).
			Msg("confirmation enqueue failed")
	}
}
