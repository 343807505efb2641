package tools

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Registry implements the ToolRegistry interface over a static catalog
type Registry struct {
	tools  map[string]*models.ToolDefinition
	logger arbor.ILogger
}

// NewRegistry creates a registry populated with the built-in tool catalog
func NewRegistry(logger arbor.ILogger) interfaces.ToolRegistry {
	r := &Registry{
		tools:  make(map[string]*models.ToolDefinition),
		logger: logger,
	}
	for _, def := range catalog() {
		r.tools[def.Slug] = def
	}
	logger.Debug().Int("count", len(r.tools)).Msg("Tool registry initialized")
	return r
}

// Get returns a tool definition by slug
func (r *Registry) Get(slug string) (*models.ToolDefinition, bool) {
	def, ok := r.tools[slug]
	return def, ok
}

// List returns all tool definitions sorted by slug
func (r *Registry) List() []*models.ToolDefinition {
	defs := make([]*models.ToolDefinition, 0, len(r.tools))
	for _, def := range r.tools {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Slug < defs[j].Slug })
	return defs
}

// ListByCategory returns tool definitions in a category, sorted by slug
func (r *Registry) ListByCategory(category models.ToolCategory) []*models.ToolDefinition {
	var defs []*models.ToolDefinition
	for _, def := range r.tools {
		if def.Category == category {
			defs = append(defs, def)
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Slug < defs[j].Slug })
	return defs
}

// RenderCommand fills the tool's command template from the given parameters.
// Missing optional placeholders fall back to declared defaults or empty
// strings; missing required parameters are an error. Runs of whitespace left
// by empty placeholders are collapsed.
func (r *Registry) RenderCommand(slug string, params map[string]interface{}) (string, error) {
	def, ok := r.tools[slug]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", slug)
	}

	for _, p := range def.Parameters {
		if !p.Required {
			continue
		}
		v, present := params[p.Name]
		if !present || v == nil || fmt.Sprintf("%v", v) == "" {
			return "", fmt.Errorf("tool %s: missing required parameter %q", slug, p.Name)
		}
	}

	command := placeholderPattern.ReplaceAllStringFunc(def.CommandTemplate, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := params[name]; ok && v != nil {
			return formatValue(v)
		}
		if p := def.Parameter(name); p != nil && p.Default != nil {
			return formatValue(p.Default)
		}
		return ""
	})

	return strings.Join(strings.Fields(command), " "), nil
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		// JSON numbers arrive as float64; render integers without decimals
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
