package registrations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusreg/server/internal/domain/courses"
	"github.com/campusreg/server/internal/domain/students"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubRegistrationsRepo struct {
	createFn      func(studentID, courseID int64) (*Registration, error)
	getByPairFn   func(studentID, courseID int64) (*Registration, error)
	getDetailedFn func(id int64) (*Registration, error)
}

func (s stubRegistrationsRepo) Create(_ context.Context, studentID, courseID int64) (*Registration, error) {
	return s.createFn(studentID, courseID)
}

func (s stubRegistrationsRepo) GetByPair(_ context.Context, studentID, courseID int64) (*Registration, error) {
	return s.getByPairFn(studentID, courseID)
}

func (s stubRegistrationsRepo) GetDetailed(_ context.Context, id int64) (*Registration, error) {
	return s.getDetailedFn(id)
}

type stubStudentLookup struct {
	getByIDFn func(id int64) (*students.Student, error)
}

func (s stubStudentLookup) Create(_ context.Context, _ students.CreateParams) (*students.Student, error) {
	return nil, errors.New("not implemented")
}

func (s stubStudentLookup) GetByID(_ context.Context, id int64) (*students.Student, error) {
	return s.getByIDFn(id)
}

func (s stubStudentLookup) GetByEmail(_ context.Context, _ string) (*students.Student, error) {
	return nil, students.ErrNotFound
}

func (s stubStudentLookup) ListWithCourses(_ context.Context) ([]students.Student, error) {
	return nil, nil
}

type stubCourseLookup struct {
	getByIDFn func(id int64) (*courses.Course, error)
}

func (s stubCourseLookup) Create(_ context.Context, _ courses.CreateParams) (*courses.Course, error) {
	return nil, errors.New("not implemented")
}

func (s stubCourseLookup) GetByID(_ context.Context, id int64) (*courses.Course, error) {
	return s.getByIDFn(id)
}

func (s stubCourseLookup) GetByCode(_ context.Context, _ string) (*courses.Course, error) {
	return nil, courses.ErrNotFound
}

func (s stubCourseLookup) List(_ context.Context) ([]courses.Course, error) {
	return nil, nil
}

type recordingNotifier struct {
	calls []int64
	err   error
}

func (n *recordingNotifier) RegistrationCreated(_ context.Context, reg *Registration) error {
	n.calls = append(n.calls, reg.ID)
	return n.err
}

func existingStudent(id int64) stubStudentLookup {
	return stubStudentLookup{getByIDFn: func(got int64) (*students.Student, error) {
		if got == id {
			return &students.Student{ID: id, Name: "Ada Lovelace", Email: "ada@example.com"}, nil
		}
		return nil, students.ErrNotFound
	}}
}

func existingCourse(id int64) stubCourseLookup {
	return stubCourseLookup{getByIDFn: func(got int64) (*courses.Course, error) {
		if got == id {
			return &courses.Course{ID: id, Title: "Intro to CS", Code: "CS101"}, nil
		}
		return nil, courses.ErrNotFound
	}}
}

func TestRegisterSuccess(t *testing.T) {
	now := time.Now().UTC()
	repo := stubRegistrationsRepo{
		getByPairFn: func(studentID, courseID int64) (*Registration, error) {
			return nil, ErrNotFound
		},
		createFn: func(studentID, courseID int64) (*Registration, error) {
			return &Registration{ID: 10, StudentID: studentID, CourseID: courseID, RegisteredAt: now}, nil
		},
		getDetailedFn: func(id int64) (*Registration, error) {
			return &Registration{
				ID:           id,
				StudentID:    1,
				CourseID:     2,
				RegisteredAt: now,
				Student:      &students.Student{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com"},
				Course:       &courses.Course{ID: 2, Title: "Intro to CS", Code: "CS101"},
			}, nil
		},
	}
	notifier := &recordingNotifier{}

	svc := NewService(repo, existingStudent(1), existingCourse(2), notifier, zerolog.Nop())
	reg, err := svc.Register(context.Background(), RegisterParams{StudentID: 1, CourseID: 2})
	require.NoError(t, err)
	require.Equal(t, int64(10), reg.ID)
	require.Equal(t, now, reg.RegisteredAt)
	require.NotNil(t, reg.Student)
	require.NotNil(t, reg.Course)
	require.Equal(t, "CS101", reg.Course.Code)
	require.Equal(t, []int64{10}, notifier.calls)
}

func TestRegisterStudentMissing(t *testing.T) {
	repo := stubRegistrationsRepo{
		createFn: func(studentID, courseID int64) (*Registration, error) {
			t.Fatal("no write may happen when the student is missing")
			return nil, nil
		},
	}

	svc := NewService(repo, existingStudent(1), existingCourse(2), nil, zerolog.Nop())
	_, err := svc.Register(context.Background(), RegisterParams{StudentID: 99, CourseID: 2})
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestRegisterCourseMissing(t *testing.T) {
	repo := stubRegistrationsRepo{
		createFn: func(studentID, courseID int64) (*Registration, error) {
			t.Fatal("no write may happen when the course is missing")
			return nil, nil
		},
	}

	svc := NewService(repo, existingStudent(1), existingCourse(2), nil, zerolog.Nop())
	_, err := svc.Register(context.Background(), RegisterParams{StudentID: 1, CourseID: 99})
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestRegisterBothMissing(t *testing.T) {
	repo := stubRegistrationsRepo{}

	svc := NewService(repo, existingStudent(1), existingCourse(2), nil, zerolog.Nop())
	_, err := svc.Register(context.Background(), RegisterParams{StudentID: 98, CourseID: 99})
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestRegisterDuplicatePair(t *testing.T) {
	repo := stubRegistrationsRepo{
		getByPairFn: func(studentID, courseID int64) (*Registration, error) {
			return &Registration{ID: 7, StudentID: studentID, CourseID: courseID}, nil
		},
		createFn: func(studentID, courseID int64) (*Registration, error) {
			t.Fatal("no insert may happen for an existing pair")
			return nil, nil
		},
	}

	svc := NewService(repo, existingStudent(1), existingCourse(2), nil, zerolog.Nop())
	_, err := svc.Register(context.Background(), RegisterParams{StudentID: 1, CourseID: 2})
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterLosesInsertRace(t *testing.T) {
	// Pre-check sees nothing, but a concurrent request inserts first and the
	// composite constraint reports the duplicate.
	repo := stubRegistrationsRepo{
		getByPairFn: func(studentID, courseID int64) (*Registration, error) {
			return nil, ErrNotFound
		},
		createFn: func(studentID, courseID int64) (*Registration, error) {
			return nil, ErrAlreadyRegistered
		},
	}

	svc := NewService(repo, existingStudent(1), existingCourse(2), nil, zerolog.Nop())
	_, err := svc.Register(context.Background(), RegisterParams{StudentID: 1, CourseID: 2})
	require.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestRegisterRejectsNonPositiveIDs(t *testing.T) {
	repo := stubRegistrationsRepo{
		getByPairFn: func(studentID, courseID int64) (*Registration, error) {
			t.Fatal("store should not be reached for invalid ids")
			return nil, nil
		},
	}
	lookupCalled := false
	studentRepo := stubStudentLookup{getByIDFn: func(id int64) (*students.Student, error) {
		lookupCalled = true
		return nil, students.ErrNotFound
	}}

	svc := NewService(repo, studentRepo, existingCourse(2), nil, zerolog.Nop())

	for _, params := range []RegisterParams{
		{StudentID: 0, CourseID: 2},
		{StudentID: -1, CourseID: 2},
		{StudentID: 1, CourseID: 0},
		{StudentID: 1, CourseID: -5},
	} {
		_, err := svc.Register(context.Background(), params)
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs, "params %+v", params)
	}
	require.False(t, lookupCalled)
}

func TestRegisterNotifierFailureDoesNotFail(t *testing.T) {
	repo := stubRegistrationsRepo{
		getByPairFn: func(studentID, courseID int64) (*Registration, error) {
			return nil, ErrNotFound
		},
		createFn: func(studentID, courseID int64) (*Registration, error) {
			return &Registration{ID: 11, StudentID: studentID, CourseID: courseID}, nil
		},
		getDetailedFn: func(id int64) (*Registration, error) {
			return &Registration{ID: id, StudentID: 1, CourseID: 2}, nil
		},
	}
	notifier := &recordingNotifier{err: errors.New("queue down")}

	svc := NewService(repo, existingStudent(1), existingCourse(2), notifier, zerolog.Nop())
	reg, err := svc.Register(context.Background(), RegisterParams{StudentID: 1, CourseID: 2})
	require.NoError(t, err)
	require.Equal(t, int64(11), reg.ID)
	require.Len(t, notifier.calls, 1)
}

func TestRegisterReadBackFailureFallsBack(t *testing.T) {
	repo := stubRegistrationsRepo{
		getByPairFn: func(studentID, courseID int64) (*Registration, error) {
			return nil, ErrNotFound
		},
		createFn: func(studentID, courseID int64) (*Registration, error) {
			return &Registration{ID: 12, StudentID: studentID, CourseID: courseID}, nil
		},
		getDetailedFn: func(id int64) (*Registration, error) {
			return nil, errors.New("connection reset")
		},
	}

	svc := NewService(repo, existingStudent(1), existingCourse(2), nil, zerolog.Nop())
	reg, err := svc.Register(context.Background(), RegisterParams{StudentID: 1, CourseID: 2})
	require.NoError(t, err)
	require.Equal(t, int64(12), reg.ID)
	require.NotNil(t, reg.Student)
	require.Equal(t, "ada@example.com", reg.Student.Email)
	require.NotNil(t, reg.Course)
}

func TestRegisterStudentLookupStoreError(t *testing.T) {
	repo := stubRegistrationsRepo{}
	studentRepo := stubStudentLookup{getByIDFn: func(id int64) (*students.Student, error) {
		return nil, errors.New("connection refused")
	}}

	svc := NewService(repo, studentRepo, existingCourse(2), nil, zerolog.Nop())
	_, err := svc.Register(context.Background(), RegisterParams{StudentID: 1, CourseID: 2})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrStudentNotFound)
}
