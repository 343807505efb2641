package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// ToolHandler exposes the read-only tool catalog
type ToolHandler struct {
	registry interfaces.ToolRegistry
	logger   arbor.ILogger
}

// NewToolHandler creates the tool handler
func NewToolHandler(registry interfaces.ToolRegistry, logger arbor.ILogger) *ToolHandler {
	return &ToolHandler{registry: registry, logger: logger}
}

// ListHandler returns registered tools, optionally filtered by category
func (h *ToolHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	var tools []*models.ToolDefinition
	if category := r.URL.Query().Get("category"); category != "" {
		tools = h.registry.ListByCategory(models.ToolCategory(category))
	} else {
		tools = h.registry.List()
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"tools": tools})
}

// GetHandler returns one tool definition
func (h *ToolHandler) GetHandler(w http.ResponseWriter, r *http.Request, slug string) {
	tool, ok := h.registry.Get(slug)
	if !ok {
		WriteError(w, http.StatusNotFound, "tool not found")
		return
	}
	WriteJSON(w, http.StatusOK, tool)
}
