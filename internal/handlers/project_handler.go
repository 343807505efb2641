package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// ProjectHandler serves project CRUD and per-project statistics
type ProjectHandler struct {
	storage interfaces.StorageManager
	events  interfaces.EventService
	logger  arbor.ILogger
}

// NewProjectHandler creates the project handler
func NewProjectHandler(storage interfaces.StorageManager, events interfaces.EventService, logger arbor.ILogger) *ProjectHandler {
	return &ProjectHandler{storage: storage, events: events, logger: logger}
}

type projectRequest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Status      string                 `json:"status"`
	Scope       map[string]interface{} `json:"scope"`
	Settings    map[string]interface{} `json:"settings"`
	CreatedBy   string                 `json:"created_by"`
}

// ListHandler returns all projects
func (h *ProjectHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	projects, err := h.storage.ProjectStorage().ListProjects(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list projects")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

// CreateHandler creates a project
func (h *ProjectHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req projectRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	project := models.NewProject(common.NewID(), req.Name)
	project.Description = req.Description
	project.Scope = req.Scope
	project.CreatedBy = req.CreatedBy
	if req.Settings != nil {
		project.Settings = req.Settings
	}
	if req.Status != "" {
		project.Status = models.ProjectStatus(req.Status)
	}

	if err := h.storage.ProjectStorage().SaveProject(r.Context(), project); err != nil {
		h.logger.Error().Err(err).Msg("Failed to create project")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info().Str("project_id", project.ID).Str("name", project.Name).Msg("Project created")
	WriteJSON(w, http.StatusCreated, project)
}

// GetHandler returns one project
func (h *ProjectHandler) GetHandler(w http.ResponseWriter, r *http.Request, projectID string) {
	project, err := h.storage.ProjectStorage().GetProject(r.Context(), projectID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if project == nil {
		WriteError(w, http.StatusNotFound, "project not found")
		return
	}
	WriteJSON(w, http.StatusOK, project)
}

// UpdateHandler updates mutable project fields
func (h *ProjectHandler) UpdateHandler(w http.ResponseWriter, r *http.Request, projectID string) {
	project, err := h.storage.ProjectStorage().GetProject(r.Context(), projectID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if project == nil {
		WriteError(w, http.StatusNotFound, "project not found")
		return
	}

	var req projectRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Name != "" {
		project.Name = req.Name
	}
	if req.Description != "" {
		project.Description = req.Description
	}
	if req.Status != "" {
		project.Status = models.ProjectStatus(req.Status)
	}
	if req.Scope != nil {
		project.Scope = req.Scope
	}
	if req.Settings != nil {
		project.Settings = req.Settings
	}
	project.UpdatedAt = time.Now()

	if err := h.storage.ProjectStorage().SaveProject(r.Context(), project); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.events.Publish(r.Context(), interfaces.Event{
		Type:  interfaces.EventProjectUpdate,
		Topic: interfaces.ProjectTopic(projectID),
		Payload: map[string]interface{}{
			"project_id": projectID,
			"status":     string(project.Status),
		},
	}); err != nil {
		h.logger.Warn().Err(err).Str("project_id", projectID).Msg("Failed to publish project update")
	}

	WriteJSON(w, http.StatusOK, project)
}

// DeleteHandler removes a project and cascades to every child entity
func (h *ProjectHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, projectID string) {
	project, err := h.storage.ProjectStorage().GetProject(r.Context(), projectID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if project == nil {
		WriteError(w, http.StatusNotFound, "project not found")
		return
	}

	if err := h.storage.ProjectStorage().DeleteProject(r.Context(), projectID); err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to delete project")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info().Str("project_id", projectID).Msg("Project deleted")
	WriteSuccess(w, "project deleted")
}

// StatsHandler returns per-project entity counts
func (h *ProjectHandler) StatsHandler(w http.ResponseWriter, r *http.Request, projectID string) {
	assetCount, err := h.storage.AssetStorage().CountAssets(r.Context(), projectID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	severityCounts, err := h.storage.VulnerabilityStorage().CountBySeverity(r.Context(), projectID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	total := 0
	for _, count := range severityCounts {
		total += count
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"project_id":      projectID,
		"assets":          assetCount,
		"vulnerabilities": total,
		"by_severity":     severityCounts,
	})
}
