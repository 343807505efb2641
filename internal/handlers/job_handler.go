package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/jobs"
)

// JobHandler serves job creation, listing, output retrieval, cancel and retry
type JobHandler struct {
	jobs    *jobs.Service
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewJobHandler creates the job handler
func NewJobHandler(jobService *jobs.Service, storage interfaces.StorageManager, logger arbor.ILogger) *JobHandler {
	return &JobHandler{jobs: jobService, storage: storage, logger: logger}
}

type jobCreateRequest struct {
	ProjectID      string                 `json:"project_id"`
	ToolName       string                 `json:"tool_name"`
	Parameters     map[string]interface{} `json:"parameters"`
	Priority       int                    `json:"priority"`
	TimeoutSeconds int                    `json:"timeout_seconds"`
	ScheduledAt    *time.Time             `json:"scheduled_at"`
	CronExpression string                 `json:"cron_expression"`
	CreatedBy      string                 `json:"created_by"`
	TargetAssetIDs []string               `json:"target_asset_ids"`
}

// CreateHandler creates and (unless scheduled) enqueues a job
func (h *JobHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req jobCreateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.ToolName == "" {
		WriteError(w, http.StatusBadRequest, "tool_name is required")
		return
	}

	job, err := h.jobs.Create(r.Context(), req.ProjectID, req.ToolName, req.Parameters, &jobs.CreateOptions{
		Priority:       req.Priority,
		TimeoutSeconds: req.TimeoutSeconds,
		ScheduledAt:    req.ScheduledAt,
		CronExpression: req.CronExpression,
		CreatedBy:      req.CreatedBy,
		TargetAssetIDs: req.TargetAssetIDs,
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("tool", req.ToolName).Msg("Job creation failed")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// ListHandler returns jobs filtered by project, status, tool or workflow run
func (h *JobHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	limit, offset := GetListParams(r)
	opts := &interfaces.JobListOptions{
		ProjectID:     r.URL.Query().Get("project_id"),
		Status:        models.JobStatus(r.URL.Query().Get("status")),
		ToolName:      r.URL.Query().Get("tool_name"),
		WorkflowRunID: r.URL.Query().Get("workflow_run_id"),
		Limit:         limit,
		Offset:        offset,
	}

	list, err := h.jobs.List(r.Context(), opts)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"jobs": list})
}

// GetHandler returns one job
func (h *JobHandler) GetHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.jobs.Get(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if job == nil {
		WriteError(w, http.StatusNotFound, "job not found")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// OutputsHandler returns a job's captured output lines in sequence order
func (h *JobHandler) OutputsHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	outputs, err := h.storage.JobStorage().GetOutputs(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"outputs": outputs})
}

// ResultsHandler returns the raw results a job's parser produced
func (h *JobHandler) ResultsHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	results, err := h.storage.ResultStorage().GetResultsByJob(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// CancelHandler cancels a non-terminal job
func (h *JobHandler) CancelHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.jobs.Cancel(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// RetryHandler creates a fresh job copying the given one
func (h *JobHandler) RetryHandler(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.jobs.Retry(r.Context(), jobID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}
