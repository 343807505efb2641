package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/services/jobs"
)

// ImportHandler ingests raw tool output without running the tool
type ImportHandler struct {
	jobs   *jobs.Service
	logger arbor.ILogger
}

// NewImportHandler creates the import handler
func NewImportHandler(jobService *jobs.Service, logger arbor.ILogger) *ImportHandler {
	return &ImportHandler{jobs: jobService, logger: logger}
}

type importRequest struct {
	ProjectID string `json:"project_id"`
	Format    string `json:"format"`
	Data      string `json:"data"`
}

// ImportHandler parses the submitted data with the named format's parser and
// upserts the extracted entities under a synthetic job
func (h *ImportHandler) ImportHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req importRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.ProjectID == "" || req.Format == "" || req.Data == "" {
		WriteError(w, http.StatusBadRequest, "project_id, format and data are required")
		return
	}

	job, counts, err := h.jobs.Import(r.Context(), req.ProjectID, req.Format, req.Data)
	if err != nil {
		h.logger.Warn().Err(err).Str("format", req.Format).Msg("Import failed")
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"job":    job,
		"counts": counts,
	})
}
