package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/campusreg/server/internal/api/problem"
	"github.com/campusreg/server/internal/domain/courses"
	"github.com/campusreg/server/internal/metrics"
)

type CoursesHandler struct {
	Service *courses.Service
	Env     string
}

func NewCoursesHandler(service *courses.Service, env string) *CoursesHandler {
	return &CoursesHandler{Service: service, Env: env}
}

type courseCreateRequest struct {
	Title string `json:"title"`
	Code  string `json:"code"`
}

func (h *CoursesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, problem.Server, nil, h.Env)
		return
	}

	var input courseCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, problem.Validation, err, h.Env)
		return
	}

	created, err := h.Service.Create(r.Context(), courses.CreateParams{Title: input.Title, Code: input.Code})
	if err != nil {
		if errors.Is(err, courses.ErrCodeTaken) {
			problem.Write(w, r, problem.Conflict, err, h.Env, problem.WithDetail("Course code already registered"))
			return
		}
		if errors.Is(err, courses.ErrInvalidCode) {
			problem.Write(w, r, problem.Validation, err, h.Env)
			return
		}
		if fields := fieldErrors(err); fields != nil {
			problem.Write(w, r, problem.Validation, err, h.Env, problem.WithErrors(fields))
			return
		}
		problem.Write(w, r, problem.Server, err, h.Env)
		return
	}

	metrics.CoursesCreatedTotal.Inc()
	writeJSON(w, http.StatusCreated, coursePayload(*created))
}

func (h *CoursesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, problem.Server, nil, h.Env)
		return
	}

	items, err := h.Service.List(r.Context())
	if err != nil {
		problem.Write(w, r, problem.Server, err, h.Env)
		return
	}

	out := make([]courseOut, 0, len(items))
	for _, c := range items {
		out = append(out, coursePayload(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CoursesHandler) Get(w http.ResponseWriter, r *http.Request) {
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
		if errors.Is(err, courses.ErrNotFound) {
			problem.Write(w, r, problem.NotFound, err, h.Env)
			return
		}
		problem.Write(w, r, problem.Server, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, coursePayload(*item))
}
