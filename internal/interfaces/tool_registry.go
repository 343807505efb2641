package interfaces

import "github.com/ternarybob/venator/internal/models"

// ToolRegistry resolves tool definitions by slug. Registration happens at
// process startup; lookup is read-only thereafter.
type ToolRegistry interface {
	Get(slug string) (*models.ToolDefinition, bool)
	List() []*models.ToolDefinition
	ListByCategory(category models.ToolCategory) []*models.ToolDefinition

	// RenderCommand substitutes {name} placeholders in the tool's command
	// template with the given parameters, falling back to declared defaults,
	// and collapses whitespace.
	RenderCommand(slug string, params map[string]interface{}) (string, error)
}
