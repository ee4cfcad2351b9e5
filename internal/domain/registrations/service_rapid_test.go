package registrations

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/campusreg/server/internal/domain/courses"
	"github.com/campusreg/server/internal/domain/students"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// memStore is an in-memory stand-in for the three repositories with the same
// duplicate semantics the database enforces through its composite constraint.
type memStore struct {
	students map[int64]*students.Student
	courses  map[int64]*courses.Course
	byPair   map[[2]int64]*Registration
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		students: make(map[int64]*students.Student),
		courses:  make(map[int64]*courses.Course),
		byPair:   make(map[[2]int64]*Registration),
	}
}

func (m *memStore) addStudent(id int64) {
	m.students[id] = &students.Student{ID: id, Name: fmt.Sprintf("Student %d", id), Email: fmt.Sprintf("s%d@example.com", id)}
}

func (m *memStore) addCourse(id int64) {
	m.courses[id] = &courses.Course{ID: id, Title: fmt.Sprintf("Course %d", id), Code: fmt.Sprintf("CS%03d", id)}
}

func (m *memStore) Create(_ context.Context, studentID, courseID int64) (*Registration, error) {
	key := [2]int64{studentID, courseID}
	if _, ok := m.byPair[key]; ok {
		return nil, ErrAlreadyRegistered
	}
	m.nextID++
	reg := &Registration{ID: m.nextID, StudentID: studentID, CourseID: courseID, RegisteredAt: time.Now().UTC()}
	m.byPair[key] = reg
	return reg, nil
}

func (m *memStore) GetByPair(_ context.Context, studentID, courseID int64) (*Registration, error) {
	if reg, ok := m.byPair[[2]int64{studentID, courseID}]; ok {
		return reg, nil
	}
	return nil, ErrNotFound
}

func (m *memStore) GetDetailed(_ context.Context, id int64) (*Registration, error) {
	for _, reg := range m.byPair {
		if reg.ID == id {
			detailed := *reg
			detailed.Student = m.students[reg.StudentID]
			detailed.Course = m.courses[reg.CourseID]
			return &detailed, nil
		}
	}
	return nil, ErrNotFound
}

type memStudents struct{ store *memStore }

func (m memStudents) Create(_ context.Context, _ students.CreateParams) (*students.Student, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m memStudents) GetByID(_ context.Context, id int64) (*students.Student, error) {
	if s, ok := m.store.students[id]; ok {
		return s, nil
	}
	return nil, students.ErrNotFound
}

func (m memStudents) GetByEmail(_ context.Context, _ string) (*students.Student, error) {
	return nil, students.ErrNotFound
}

func (m memStudents) ListWithCourses(_ context.Context) ([]students.Student, error) {
	return nil, nil
}

type memCourses struct{ store *memStore }

func (m memCourses) Create(_ context.Context, _ courses.CreateParams) (*courses.Course, error) {
	return nil, fmt.Errorf("not implemented")
}

func (m memCourses) GetByID(_ context.Context, id int64) (*courses.Course, error) {
	if c, ok := m.store.courses[id]; ok {
		return c, nil
	}
	return nil, courses.ErrNotFound
}

func (m memCourses) GetByCode(_ context.Context, _ string) (*courses.Course, error) {
	return nil, courses.ErrNotFound
}

func (m memCourses) List(_ context.Context) ([]courses.Course, error) {
	return nil, nil
}

func newMemService(store *memStore) *Service {
	return NewService(store, memStudents{store}, memCourses{store}, nil, zerolog.Nop())
}

// ===========================================================================
// Property-Based Tests (using pgregory.net/rapid)
// ===========================================================================

// Registering the same pair N times yields exactly one success, N-1 duplicate
// errors, and a single stored row regardless of N.
func TestProperty_RepeatedRegistrationSingleSuccess(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		attempts := rapid.IntRange(1, 40).Draw(rt, "attempts")

		store := newMemStore()
		store.addStudent(1)
		store.addCourse(1)
		svc := newMemService(store)

		successes := 0
		duplicates := 0
		for i := 0; i < attempts; i++ {
			_, err := svc.Register(context.Background(), RegisterParams{StudentID: 1, CourseID: 1})
			switch {
			case err == nil:
				successes++
			default:
				require.ErrorIs(t, err, ErrAlreadyRegistered)
				duplicates++
			}
		}

		require.Equal(t, 1, successes)
		require.Equal(t, attempts-1, duplicates)
		require.Len(t, store.byPair, 1)
	})
}

// Any interleaving of register calls across several students and courses
// stores each successful pair exactly once, and the stored rows match the
// successful calls one for one.
func TestProperty_MixedPairsStoreMatchesOutcomes(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		studentCount := rapid.IntRange(1, 4).Draw(rt, "studentCount")
		courseCount := rapid.IntRange(1, 4).Draw(rt, "courseCount")
		opCount := rapid.IntRange(1, 60).Draw(rt, "opCount")

		store := newMemStore()
		for i := 1; i <= studentCount; i++ {
			store.addStudent(int64(i))
		}
		for i := 1; i <= courseCount; i++ {
			store.addCourse(int64(i))
		}
		svc := newMemService(store)

		succeeded := make(map[[2]int64]bool)
		for i := 0; i < opCount; i++ {
			// Draw ids one past the known range so some calls hit absent rows.
			studentID := int64(rapid.IntRange(1, studentCount+1).Draw(rt, "studentID"))
			courseID := int64(rapid.IntRange(1, courseCount+1).Draw(rt, "courseID"))

			_, err := svc.Register(context.Background(), RegisterParams{StudentID: studentID, CourseID: courseID})
			pair := [2]int64{studentID, courseID}
			switch {
			case err == nil:
				require.False(t, succeeded[pair], "pair %v succeeded twice", pair)
				succeeded[pair] = true
			case studentID > int64(studentCount):
				require.ErrorIs(t, err, ErrStudentNotFound)
			case courseID > int64(courseCount):
				require.ErrorIs(t, err, ErrCourseNotFound)
			default:
				require.ErrorIs(t, err, ErrAlreadyRegistered)
				require.True(t, succeeded[pair], "duplicate reported for a pair that never succeeded")
			}
		}

		require.Len(t, store.byPair, len(succeeded))
		for pair := range succeeded {
			stored, err := store.GetByPair(context.Background(), pair[0], pair[1])
			require.NoError(t, err)
			require.Equal(t, pair[0], stored.StudentID)
			require.Equal(t, pair[1], stored.CourseID)
		}
	})
}
