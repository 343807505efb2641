package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// AssetHandler serves asset listing, mutation and relation queries
type AssetHandler struct {
	storage interfaces.StorageManager
	logger  arbor.ILogger
}

// NewAssetHandler creates the asset handler
func NewAssetHandler(storage interfaces.StorageManager, logger arbor.ILogger) *AssetHandler {
	return &AssetHandler{storage: storage, logger: logger}
}

// ListHandler returns a project's assets, optionally filtered by type
func (h *AssetHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		WriteError(w, http.StatusBadRequest, "project_id is required")
		return
	}
	assetType := models.AssetType(r.URL.Query().Get("type"))
	limit, offset := GetListParams(r)

	assets, err := h.storage.AssetStorage().ListAssets(r.Context(), projectID, assetType, limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Str("project_id", projectID).Msg("Failed to list assets")
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"assets": assets})
}

// GetHandler returns one asset with its relations
func (h *AssetHandler) GetHandler(w http.ResponseWriter, r *http.Request, assetID string) {
	asset, err := h.storage.AssetStorage().GetAsset(r.Context(), assetID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if asset == nil {
		WriteError(w, http.StatusNotFound, "asset not found")
		return
	}

	relations, err := h.storage.AssetStorage().GetRelations(r.Context(), assetID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"asset":     asset,
		"relations": relations,
	})
}

type assetUpdateRequest struct {
	Tags      []string               `json:"tags"`
	Metadata  map[string]interface{} `json:"metadata"`
	Status    string                 `json:"status"`
	RiskScore *int                   `json:"risk_score"`
}

// UpdateHandler mutates an asset's tags, metadata, status or risk score
func (h *AssetHandler) UpdateHandler(w http.ResponseWriter, r *http.Request, assetID string) {
	asset, err := h.storage.AssetStorage().GetAsset(r.Context(), assetID)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if asset == nil {
		WriteError(w, http.StatusNotFound, "asset not found")
		return
	}

	var req assetUpdateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Tags != nil {
		asset.Tags = req.Tags
	}
	if req.Metadata != nil {
		asset.Metadata = req.Metadata
	}
	if req.Status != "" {
		asset.Status = models.AssetStatus(req.Status)
	}
	if req.RiskScore != nil {
		asset.RiskScore = *req.RiskScore
	}
	asset.UpdatedAt = time.Now()

	if err := h.storage.AssetStorage().SaveAsset(r.Context(), asset); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, asset)
}

// DeleteHandler removes one asset
func (h *AssetHandler) DeleteHandler(w http.ResponseWriter, r *http.Request, assetID string) {
	if err := h.storage.AssetStorage().DeleteAsset(r.Context(), assetID); err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteSuccess(w, "asset deleted")
}
