package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campusreg/server/internal/api/problem"
	"github.com/campusreg/server/internal/domain/courses"
	"github.com/campusreg/server/internal/domain/students"
	"github.com/campusreg/server/internal/metrics"
)

type StudentsHandler struct {
	Service *students.Service
	Env     string
}

func NewStudentsHandler(service *students.Service, env string) *StudentsHandler {
	return &StudentsHandler{Service: service, Env: env}
}

type studentCreateRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type courseOut struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Code  string `json:"code"`
}

type studentOut struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	Email             string      `json:"email"`
	RegisteredCourses []courseOut `json:"registeredCourses"`
}

func coursePayload(c courses.Course) courseOut {
	return courseOut{ID: c.ID, Title: c.Title, Code: c.Code}
}

func studentPayload(s *students.Student) studentOut {
	out := studentOut{
		ID:                s.ID,
		Name:              s.Name,
		Email:             s.Email,
		RegisteredCourses: make([]courseOut, 0, len(s.RegisteredCourses)),
	}
	for _, c := range s.RegisteredCourses {
		out.RegisteredCourses = append(out.RegisteredCourses, coursePayload(c))
	}
	return out
}

func (h *StudentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, problem.Server, nil, h.Env)
		return
	}

	var input studentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, problem.Validation, err, h.Env)
		return
	}

	created, err := h.Service.Create(r.Context(), students.CreateParams{Name: input.Name, Email: input.Email})
	if err != nil {
		if errors.Is(err, students.ErrEmailTaken) {
			problem.Write(w, r, problem.Conflict, err, h.Env, problem.WithDetail("Email already registered"))
			return
		}
		if fields := fieldErrors(err); fields != nil {
			problem.Write(w, r, problem.Validation, err, h.Env, problem.WithErrors(fields))
			return
		}
		problem.Write(w, r, problem.Server, err, h.Env)
		return
	}

	metrics.StudentsCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, studentPayload(created))
}

func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, problem.Server, nil, h.Env)
		return
	}

	items, err := h.Service.List(r.Context())
	if err != nil {
		problem.Write(w, r, problem.Server, err, h.Env)
		return
	}

	out := make([]studentOut, 0, len(items))
	for i := range items {
		out = append(out, studentPayload(&items[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *StudentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, problem.Server, nil, h.Env)
		return
	}

	id, ok := ValidateAndExtractID(w, r, "id", h.Env)
	if !ok {
		return
	}

	item, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, students.ErrNotFound) {
			problem.Write(w, r, problem.NotFound, err, h.Env)
			return
		}
		problem.Write(w, r, problem.Server, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, studentPayload(item))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return r.PathValue(key)
}
