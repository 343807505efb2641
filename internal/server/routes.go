package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket event streaming
	mux.HandleFunc("/ws", s.app.WSHandler.ServeHTTP)

	// API routes - Projects
	mux.HandleFunc("/api/projects", s.handleProjectsRoute)
	mux.HandleFunc("/api/projects/", s.handleProjectRoutes) // GET/PUT/DELETE /{id}, GET /{id}/stats

	// API routes - Assets
	mux.HandleFunc("/api/assets", s.app.AssetHandler.ListHandler)
	mux.HandleFunc("/api/assets/", s.handleAssetRoutes) // GET/PUT/DELETE /{id}

	// API routes - Jobs
	mux.HandleFunc("/api/jobs", s.handleJobsRoute)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes) // GET /{id}, outputs, results, cancel, retry

	// API routes - Workflows and runs
	mux.HandleFunc("/api/workflows", s.handleWorkflowsRoute)
	mux.HandleFunc("/api/workflows/", s.handleWorkflowRoutes) // CRUD /{id}, GET/POST /{id}/runs
	mux.HandleFunc("/api/runs/", s.handleRunRoutes)           // GET /{id}, approve, cancel

	// API routes - Findings
	mux.HandleFunc("/api/vulnerabilities", s.app.FindingHandler.ListVulnerabilitiesHandler)
	mux.HandleFunc("/api/vulnerabilities/", s.handleVulnerabilityRoutes) // GET/PUT /{id}
	mux.HandleFunc("/api/credentials", s.app.FindingHandler.ListCredentialsHandler)
	mux.HandleFunc("/api/credentials/", s.handleCredentialRoutes) // GET /{id}, POST /{id}/reveal
	mux.HandleFunc("/api/results", s.app.FindingHandler.ListResultsHandler)

	// API routes - Tool catalog
	mux.HandleFunc("/api/tools", s.app.ToolHandler.ListHandler)
	mux.HandleFunc("/api/tools/", s.handleToolRoutes) // GET /{slug}

	// API routes - Import and reports
	mux.HandleFunc("/api/import", s.app.ImportHandler.ImportHandler)
	mux.HandleFunc("/api/reports/generate", s.app.ReportHandler.GenerateHandler)
	mux.HandleFunc("/api/reports/", s.handleReportRoutes) // GET /{filename}

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// pathID extracts the first path segment after the prefix, e.g.
// pathID("/api/jobs/abc/cancel", "/api/jobs/") returns ("abc", "cancel")
func pathID(path, prefix string) (string, string) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "", ""
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func (s *Server) handleProjectsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.ProjectHandler.ListHandler(w, r)
	case http.MethodPost:
		s.app.ProjectHandler.CreateHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleProjectRoutes(w http.ResponseWriter, r *http.Request) {
	id, rest := pathID(r.URL.Path, "/api/projects/")
	if id == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	if rest == "stats" && r.Method == http.MethodGet {
		s.app.ProjectHandler.StatsHandler(w, r, id)
		return
	}
	if rest != "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.ProjectHandler.GetHandler(w, r, id)
	case http.MethodPut:
		s.app.ProjectHandler.UpdateHandler(w, r, id)
	case http.MethodDelete:
		s.app.ProjectHandler.DeleteHandler(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleAssetRoutes(w http.ResponseWriter, r *http.Request) {
	id, rest := pathID(r.URL.Path, "/api/assets/")
	if id == "" || rest != "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.AssetHandler.GetHandler(w, r, id)
	case http.MethodPut:
		s.app.AssetHandler.UpdateHandler(w, r, id)
	case http.MethodDelete:
		s.app.AssetHandler.DeleteHandler(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleJobsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.JobHandler.ListHandler(w, r)
	case http.MethodPost:
		s.app.JobHandler.CreateHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	id, rest := pathID(r.URL.Path, "/api/jobs/")
	if id == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		s.app.JobHandler.GetHandler(w, r, id)
	case rest == "outputs" && r.Method == http.MethodGet:
		s.app.JobHandler.OutputsHandler(w, r, id)
	case rest == "results" && r.Method == http.MethodGet:
		s.app.JobHandler.ResultsHandler(w, r, id)
	case rest == "cancel" && r.Method == http.MethodPost:
		s.app.JobHandler.CancelHandler(w, r, id)
	case rest == "retry" && r.Method == http.MethodPost:
		s.app.JobHandler.RetryHandler(w, r, id)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

func (s *Server) handleWorkflowsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.WorkflowHandler.ListHandler(w, r)
	case http.MethodPost:
		s.app.WorkflowHandler.CreateHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWorkflowRoutes(w http.ResponseWriter, r *http.Request) {
	id, rest := pathID(r.URL.Path, "/api/workflows/")
	if id == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	if rest == "runs" {
		switch r.Method {
		case http.MethodGet:
			s.app.WorkflowHandler.ListRunsHandler(w, r, id)
		case http.MethodPost:
			s.app.WorkflowHandler.StartRunHandler(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}
	if rest != "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.WorkflowHandler.GetHandler(w, r, id)
	case http.MethodPut:
		s.app.WorkflowHandler.UpdateHandler(w, r, id)
	case http.MethodDelete:
		s.app.WorkflowHandler.DeleteHandler(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	id, rest := pathID(r.URL.Path, "/api/runs/")
	if id == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		s.app.WorkflowHandler.GetRunHandler(w, r, id)
	case rest == "approve" && r.Method == http.MethodPost:
		s.app.WorkflowHandler.ApproveRunHandler(w, r, id)
	case rest == "cancel" && r.Method == http.MethodPost:
		s.app.WorkflowHandler.CancelRunHandler(w, r, id)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

func (s *Server) handleVulnerabilityRoutes(w http.ResponseWriter, r *http.Request) {
	id, rest := pathID(r.URL.Path, "/api/vulnerabilities/")
	if id == "" || rest != "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.FindingHandler.GetVulnerabilityHandler(w, r, id)
	case http.MethodPut:
		s.app.FindingHandler.UpdateVulnerabilityHandler(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCredentialRoutes(w http.ResponseWriter, r *http.Request) {
	id, rest := pathID(r.URL.Path, "/api/credentials/")
	if id == "" {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}

	switch {
	case rest == "" && r.Method == http.MethodGet:
		s.app.FindingHandler.GetCredentialHandler(w, r, id)
	case rest == "reveal" && r.Method == http.MethodPost:
		s.app.FindingHandler.RevealCredentialHandler(w, r, id)
	default:
		s.app.APIHandler.NotFoundHandler(w, r)
	}
}

func (s *Server) handleToolRoutes(w http.ResponseWriter, r *http.Request) {
	slug, rest := pathID(r.URL.Path, "/api/tools/")
	if slug == "" || rest != "" || r.Method != http.MethodGet {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	s.app.ToolHandler.GetHandler(w, r, slug)
}

func (s *Server) handleReportRoutes(w http.ResponseWriter, r *http.Request) {
	filename, rest := pathID(r.URL.Path, "/api/reports/")
	if filename == "" || rest != "" || r.Method != http.MethodGet {
		s.app.APIHandler.NotFoundHandler(w, r)
		return
	}
	s.app.ReportHandler.DownloadHandler(w, r, filename)
}
