package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/services/reports"
)

// ReportHandler generates and serves project PDF reports
type ReportHandler struct {
	reports *reports.Service
	logger  arbor.ILogger
}

// NewReportHandler creates the report handler
func NewReportHandler(reportService *reports.Service, logger arbor.ILogger) *ReportHandler {
	return &ReportHandler{reports: reportService, logger: logger}
}

type reportRequest struct {
	ProjectID string `json:"project_id"`
}

// GenerateHandler renders a PDF summary of the project's assets and findings
func (h *ReportHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req reportRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.ProjectID == "" {
		WriteError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	path, err := h.reports.Generate(r.Context(), req.ProjectID)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", req.ProjectID).Msg("Report generation failed")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"path":     path,
		"filename": filepath.Base(path),
	})
}

// DownloadHandler streams a previously generated report file
func (h *ReportHandler) DownloadHandler(w http.ResponseWriter, r *http.Request, filename string) {
	// base-name only; rejects traversal out of the reports directory
	if filename != filepath.Base(filename) || filename == "" {
		WriteError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	path := filepath.Join(h.reports.Dir(), filename)
	if _, err := os.Stat(path); err != nil {
		WriteError(w, http.StatusNotFound, "report not found")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	http.ServeFile(w, r, path)
}
