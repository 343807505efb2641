package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/workflow"
	"gopkg.in/yaml.v3"
)

// WorkflowHandler serves workflow CRUD (JSON or YAML bodies) and run
// lifecycle operations
type WorkflowHandler struct {
	storage interfaces.StorageManager
	engine  *workflow.Engine
	logger  arbor.ILogger
}

// NewWorkflowHandler creates the workflow handler
func NewWorkflowHandler(storage interfaces.StorageManager, engine *workflow.Engine, logger arbor.ILogger) *WorkflowHandler {
	return &WorkflowHandler{storage: storage, engine: engine, logger: logger}
}

type workflowRequest struct {
	ProjectID   string                    `json:"project_id" yaml:"project_id"`
	Name        string                    `json:"name" yaml:"name"`
	Description string                    `json:"description" yaml:"description"`
	Definition  models.WorkflowDefinition `json:"definition" yaml:"definition"`
	IsTemplate  bool                      `json:"is_template" yaml:"is_template"`
	Category    string                    `json:"category" yaml:"category"`
	Tags        []string                  `json:"tags" yaml:"tags"`
	Settings    map[string]interface{}    `json:"settings" yaml:"settings"`
	CreatedBy   string                    `json:"created_by" yaml:"created_by"`
}

// decodeWorkflowRequest accepts JSON and, for YAML content types, YAML
func (h *WorkflowHandler) decodeWorkflowRequest(w http.ResponseWriter, r *http.Request) (*workflowRequest, bool) {
	var req workflowRequest
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "yaml") {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "failed to read request body")
			return nil, false
		}
		if err := yaml.Unmarshal(body, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid yaml body: "+err.Error())
			return nil, false
		}
		return &req, true
	}
	if !DecodeJSON(w, r, &req) {
		return nil, false
	}
	return &req, true
}

// ListHandler returns a project's workflows
func (h *WorkflowHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	projectID := r.URL.Query().Get("project_id")
	workflows, err := h.storage.WorkflowStorage().ListWorkflows(r.Context(), projectID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list workflows")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"workflows": workflows})
}

// CreateHandler validates and stores a workflow definition
func (h *WorkflowHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	req, ok := h.decodeWorkflowRequest(w, r)
	if !ok {
		return
	}
	if req.Name == "" {
		WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err := workflow.ValidateDefinition(&req.Definition); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid definition: "+err.Error())
		return
	}

	now := time.Now()
	wf := &models.Workflow{
		ID:          common.NewID(),
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		Description: req.Description,
		Definition:  req.Definition,
		IsTemplate:  req.IsTemplate,
		Category:    req.Category,
		Tags:        req.Tags,
		Settings:    req.Settings,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.storage.WorkflowStorage().SaveWorkflow(r.Context(), wf); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info().Str("workflow_id", wf.ID).Str("name", wf.Name).Msg("Workflow created")
	WriteJSON(w, http.StatusCreated, wf)
}

// GetHandler returns one workflow; ?format=yaml exports the portable form
func (h *WorkflowHandler) GetHandler(w http.ResponseWriter, r *http.Request, workflowID string) {
	wf, err := h.storage.WorkflowStorage().GetWorkflow(r.Context(), workflowID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if wf == nil {
		WriteError(w, http.StatusNotFound, "workflow not found")
		return
	}

	if r.URL.Query().Get("format") == "yaml" {
		export := workflowRequest{
			ProjectID:   wf.ProjectID,
			Name:        wf.Name,
			Description: wf.Description,
			Definition:  wf.Definition,
			IsTemplate:  wf.IsTemplate,
			Category:    wf.Category,
			Tags:        wf.Tags,
			Settings:    wf.Settings,
			CreatedBy:   wf.CreatedBy,
		}
		body, err := yaml.Marshal(&export)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(body)
		return
	}
	WriteJSON(w, http.StatusOK, wf)
}

// UpdateHandler replaces a workflow's mutable fields
func (h *WorkflowHandler) UpdateHandler(w http.ResponseWriter, r *http.Request, workflowID string) {
	wf, err := h.storage.WorkflowStorage().GetWorkflow(r.Context(), workflowID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if wf == nil {
		WriteError(w, http.StatusNotFound, "workflow not found")
		return
	}

	req, ok := h.decodeWorkflowRequest(w, r)
	if !ok {
		return
	}
	if len(req.Definition.Nodes) > 0 {
		if err := workflow.ValidateDefinition(&req.Definition); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid definition: "+err.Error())
			return
		}
		wf.Definition = req.Definition
	}
	if req.Name != "" {
		wf.Name = req.Name
	}
	if req.Description != "" {
		wf.Description = req.Description
	}
	if req.Category != "" {
		wf.Category = req.Category
	}
	if req.Tags != nil {
		wf.Tags = req.Tags
	}
	if req.Settings != nil {
		wf.Settings = req.Settings
	}
	wf.UpdatedAt = time.Now()

	if err := h.storage.WorkflowStorage().SaveWorkflow(r.Context(), wf); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, wf)
}

// DeleteHandler removes a workflow and its runs
func (h *WorkflowHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, workflowID string) {
	if err := h.storage.WorkflowStorage().DeleteWorkflow(r.Context(), workflowID); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteSuccess(w, "workflow deleted")
}

type runStartRequest struct {
	ProjectID   string                 `json:"project_id"`
	InputParams map[string]interface{} `json:"input_params"`
	CreatedBy   string                 `json:"created_by"`
}

// StartRunHandler starts an asynchronous run of the workflow
func (h *WorkflowHandler) StartRunHandler(w http.ResponseWriter, r *http.Request, workflowID string) {
	var req runStartRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	run, err := h.engine.StartRun(r.Context(), workflowID, req.ProjectID, req.InputParams, req.CreatedBy)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, run)
}

// ListRunsHandler returns a workflow's runs
func (h *WorkflowHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request, workflowID string) {
	limit, offset := GetListParams(r)
	runs, err := h.storage.WorkflowStorage().ListRuns(r.Context(), workflowID, limit, offset)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

// GetRunHandler returns one run with its execution log
func (h *WorkflowHandler) GetRunHandler(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.storage.WorkflowStorage().GetRun(r.Context(), runID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		WriteError(w, http.StatusNotFound, "run not found")
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

type approveRequest struct {
	NodeID       string                 `json:"node_id"`
	ApprovalData map[string]interface{} `json:"approval_data"`
}

// ApproveRunHandler resumes a run waiting on a manual approval node
func (h *WorkflowHandler) ApproveRunHandler(w http.ResponseWriter, r *http.Request, runID string) {
	var req approveRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.NodeID == "" {
		WriteError(w, http.StatusBadRequest, "node_id is required")
		return
	}

	run, err := h.engine.Resume(r.Context(), runID, req.NodeID, req.ApprovalData)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, run)
}

// CancelRunHandler cancels a run
func (h *WorkflowHandler) CancelRunHandler(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.engine.Cancel(r.Context(), runID)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, run)
}
