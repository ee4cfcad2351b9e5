package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/campusreg/server/internal/api/problem"
	"github.com/campusreg/server/internal/domain/registrations"
	"github.com/campusreg/server/internal/metrics"
)

type RegistrationsHandler struct {
	Service *registrations.Service
	Env     string
}

func NewRegistrationsHandler(service *registrations.Service, env string) *RegistrationsHandler {
	return &RegistrationsHandler{Service: service, Env: env}
}

type registrationCreateRequest struct {
	StudentID int64 `json:"student_id"`
	CourseID  int64 `json:"course_id"`
}

type registrationOut struct {
	ID           int64       `json:"id"`
	StudentID    int64       `json:"studentId"`
	CourseID     int64       `json:"courseId"`
	RegisteredAt time.Time   `json:"registeredAt"`
	Student      *studentOut `json:"student,omitempty"`
	Course       *courseOut  `json:"course,omitempty"`
}

func registrationPayload(reg *registrations.Registration) registrationOut {
	out := registrationOut{
		ID:           reg.ID,
		StudentID:    reg.StudentID,
		CourseID:     reg.CourseID,
		RegisteredAt: reg.RegisteredAt,
	}
	if reg.Student != nil {
		student := studentPayload(reg.Student)
		out.Student = &student
	}
	if reg.Course != nil {
		course := coursePayload(*reg.Course)
		out.Course = &course
	}
	return out
}

// Create handles registration requests. The outcome label on the counter
// distinguishes conflicts from missing entities so monitoring can tell an
// over-eager client from a broken one.
func (h *RegistrationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, problem.Server, nil, h.Env)
		return
	}

	var input registrationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		problem.Write(w, r, problem.Validation, err, h.Env)
		return
	}

	reg, err := h.Service.Register(r.Context(), registrations.RegisterParams{
		StudentID: input.StudentID,
		CourseID:  input.CourseID,
	})
	if err != nil {
		switch {
		case errors.Is(err, registrations.ErrStudentNotFound):
			metrics.RegistrationsTotal.WithLabelValues("student_missing").Inc()
			problem.Write(w, r, problem.NotFound, err, h.Env, problem.WithDetail("Student or Course not found"))
		case errors.Is(err, registrations.ErrCourseNotFound):
			metrics.RegistrationsTotal.WithLabelValues("course_missing").Inc()
			problem.Write(w, r, problem.NotFound, err, h.Env, problem.WithDetail("Student or Course not found"))
		case errors.Is(err, registrations.ErrAlreadyRegistered):
			metrics.RegistrationsTotal.WithLabelValues("duplicate").Inc()
			problem.Write(w, r, problem.Conflict, err, h.Env, problem.WithDetail("Already registered"))
		default:
			if fields := fieldErrors(err); fields != nil {
				metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
				problem.Write(w, r, problem.Validation, err, h.Env, problem.WithErrors(fields))
				return
			}
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
			problem.Write(w, r, problem.Server, err, h.Env)
		}
		return
	}

	metrics.RegistrationsTotal.WithLabelValues("created").Inc()
	writeJSON(w, http.StatusCreated, registrationPayload(reg))
}
