package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// FindingHandler serves vulnerabilities, credentials and raw parser results
type FindingHandler struct {
	storage    interfaces.StorageManager
	encryption interfaces.EncryptionService
	logger     arbor.ILogger
}

// NewFindingHandler creates the finding handler
func NewFindingHandler(storage interfaces.StorageManager, encryption interfaces.EncryptionService, logger arbor.ILogger) *FindingHandler {
	return &FindingHandler{storage: storage, encryption: encryption, logger: logger}
}

// ListVulnerabilitiesHandler returns a project's findings, optionally by severity
func (h *FindingHandler) ListVulnerabilitiesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		WriteError(w, http.StatusBadRequest, "project_id is required")
		return
	}
	severity := models.Severity(r.URL.Query().Get("severity"))
	limit, offset := GetListParams(r)

	vulns, err := h.storage.VulnerabilityStorage().ListVulnerabilities(r.Context(), projectID, severity, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to list vulnerabilities")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"vulnerabilities": vulns})
}

// GetVulnerabilityHandler returns one finding
func (h *FindingHandler) GetVulnerabilityHandler(w http.ResponseWriter, r *http.Request, vulnID string) {
	vuln, err := h.storage.VulnerabilityStorage().GetVulnerability(r.Context(), vulnID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if vuln == nil {
		WriteError(w, http.StatusNotFound, "vulnerability not found")
		return
	}
	WriteJSON(w, http.StatusOK, vuln)
}

type vulnUpdateRequest struct {
	Status      string   `json:"status"`
	Severity    string   `json:"severity"`
	Remediation string   `json:"remediation"`
	Tags        []string `json:"tags"`
}

// UpdateVulnerabilityHandler mutates triage state and severity of a finding
func (h *FindingHandler) UpdateVulnerabilityHandler(w http.ResponseWriter, r *http.Request, vulnID string) {
	vuln, err := h.storage.VulnerabilityStorage().GetVulnerability(r.Context(), vulnID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if vuln == nil {
		WriteError(w, http.StatusNotFound, "vulnerability not found")
		return
	}

	var req vulnUpdateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Status != "" {
		vuln.Status = models.VulnerabilityStatus(req.Status)
	}
	if req.Severity != "" {
		vuln.Severity = models.Severity(req.Severity)
	}
	if req.Remediation != "" {
		vuln.Remediation = req.Remediation
	}
	if req.Tags != nil {
		vuln.Tags = req.Tags
	}
	vuln.UpdatedAt = time.Now()

	if err := h.storage.VulnerabilityStorage().SaveVulnerability(r.Context(), vuln); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, vuln)
}

// ListCredentialsHandler returns a project's credentials. Password material
// stays encrypted; the ciphertext field is stripped from the response.
func (h *FindingHandler) ListCredentialsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		WriteError(w, http.StatusBadRequest, "project_id is required")
		return
	}
	limit, offset := GetListParams(r)

	creds, err := h.storage.CredentialStorage().ListCredentials(r.Context(), projectID, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to list credentials")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sanitized := make([]*models.Credential, 0, len(creds))
	for _, cred := range creds {
		sanitized = append(sanitized, redactCredential(cred))
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"credentials": sanitized})
}

// GetCredentialHandler returns one credential without password material
func (h *FindingHandler) GetCredentialHandler(w http.ResponseWriter, r *http.Request, credID string) {
	cred, err := h.storage.CredentialStorage().GetCredential(r.Context(), credID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cred == nil {
		WriteError(w, http.StatusNotFound, "credential not found")
		return
	}
	WriteJSON(w, http.StatusOK, redactCredential(cred))
}

// RevealCredentialHandler decrypts and returns a credential's password.
// Kept as a separate POST so plaintext access is an explicit, loggable act.
func (h *FindingHandler) RevealCredentialHandler(w http.ResponseWriter, r *http.Request, credID string) {
	cred, err := h.storage.CredentialStorage().GetCredential(r.Context(), credID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cred == nil {
		WriteError(w, http.StatusNotFound, "credential not found")
		return
	}
	if cred.PasswordEncrypted == "" {
		WriteError(w, http.StatusNotFound, "credential has no stored password")
		return
	}

	plaintext, err := h.encryption.Decrypt(cred.PasswordEncrypted)
	if err != nil {
		h.logger.Error().Err(err).Str("credential_id", credID).Msg("Credential decryption failed")
		WriteError(w, http.StatusInternalServerError, "decryption failed")
		return
	}

	h.logger.Info().Str("credential_id", credID).Str("project_id", cred.ProjectID).Msg("Credential revealed")
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":       cred.ID,
		"username": cred.Username,
		"password": plaintext,
	})
}

// ListResultsHandler returns a job's raw parsed results
func (h *FindingHandler) ListResultsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	jobID := r.URL.Query().Get("job_id")
	if jobID == "" {
		WriteError(w, http.StatusBadRequest, "job_id is required")
		return
	}
	resultType := models.ResultType(r.URL.Query().Get("result_type"))
	limit, offset := GetListParams(r)

	results, err := h.storage.ResultStorage().ListResults(r.Context(), jobID, resultType, limit, offset)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func redactCredential(cred *models.Credential) *models.Credential {
	clone := *cred
	clone.PasswordEncrypted = ""
	if cred.PasswordEncrypted != "" {
		if clone.Metadata == nil {
			clone.Metadata = map[string]interface{}{}
		} else {
			meta := make(map[string]interface{}, len(cred.Metadata)+1)
			for k, v := range cred.Metadata {
				meta[k] = v
			}
			clone.Metadata = meta
		}
		clone.Metadata["has_password"] = true
	}
	return &clone
}
