package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/security/middleware"
)

// Authorizer resolves a project the caller owns; service.ProjectAccess
// satisfies it.
type Authorizer interface {
	Authorize(ctx context.Context, projectID, userID int64) (*domain.Project, error)
}

// scope authorizes the {id} path value against the signed-in user.
type scope struct {
	access Authorizer
	logger *slog.Logger
}

func (s scope) project(w http.ResponseWriter, r *http.Request) (*domain.Project, bool) {
	userID := middleware.UserID(r.Context())
	if userID == 0 {
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	projectID, err := pathID(r, "id")
	if err != nil {
		writeError(w, s.logger, r, err)
		return nil, false
	}
	p, err := s.access.Authorize(r.Context(), projectID, userID)
	if err != nil {
		writeError(w, s.logger, r, err)
		return nil, false
	}
	return p, true
}

// ProjectSummary is a project row in the listing.
type ProjectSummary struct {
	*domain.Project
	RequirementCount int `json:"requirementCount"`
}

// ProjectHandler serves /api/projects.
type ProjectHandler struct {
	projects domain.ProjectRepository
	logger   *slog.Logger
}

func NewProjectHandler(projects domain.ProjectRepository, logger *slog.Logger) *ProjectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectHandler{projects: projects, logger: logger}
}

// List handles GET /api/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	projects, err := h.projects.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	counts, err := h.projects.RequirementCounts(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	out := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		out = append(out, ProjectSummary{Project: p, RequirementCount: counts[p.ID]})
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateProjectInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	in.UserID = middleware.UserID(r.Context())

	p, err := h.projects.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	p, err := h.projects.Get(r.Context(), id, middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update handles PUT /api/projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	var in domain.UpdateProjectInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}

	userID := middleware.UserID(r.Context())
	if err := h.projects.Update(r.Context(), id, userID, in); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	p, err := h.projects.Get(r.Context(), id, userID)
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/projects/{id}. Everything under the project goes
// with it.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	if err := h.projects.Delete(r.Context(), id, middleware.UserID(r.Context())); err != nil {
		writeError(w, h.logger, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
