package models

// ToolCategory groups tools by purpose
type ToolCategory string

const (
	CategoryReconnaissance ToolCategory = "reconnaissance"
	CategoryVulnScanning   ToolCategory = "vulnerability_scanning"
	CategoryWebApplication ToolCategory = "web_application"
	CategoryPasswordAttack ToolCategory = "password_attacks"
	CategoryExploitation   ToolCategory = "exploitation"
)

// ParameterType describes how a tool parameter is rendered and validated
type ParameterType string

const (
	ParamTypeString   ParameterType = "string"
	ParamTypeInteger  ParameterType = "integer"
	ParamTypeBoolean  ParameterType = "boolean"
	ParamTypeTarget   ParameterType = "target"
	ParamTypePort     ParameterType = "port"
	ParamTypeFile     ParameterType = "file"
	ParamTypeWordlist ParameterType = "wordlist"
	ParamTypeSelect   ParameterType = "select"
)

// ToolParameter describes one placeholder in a tool's command template
type ToolParameter struct {
	Name        string        `json:"name"`
	Label       string        `json:"label,omitempty"`
	Type        ParameterType `json:"type"`
	Description string        `json:"description,omitempty"`
	Default     interface{}   `json:"default,omitempty"`
	Required    bool          `json:"required"`
}

// ToolOutput declares how a tool's output is handled after completion
type ToolOutput struct {
	Format                string `json:"format"` // "json", "xml", "text"
	Parser                string `json:"parser,omitempty"`
	CreatesAssets         bool   `json:"creates_assets"`
	CreatesVulnerabilites bool   `json:"creates_vulnerabilities"`
	CreatesCredentials    bool   `json:"creates_credentials"`
}

// ToolDefinition is a registry entry describing an executable security tool.
// CommandTemplate uses {name} placeholders filled from job parameters.
type ToolDefinition struct {
	Slug            string          `json:"slug"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Category        ToolCategory    `json:"category"`
	CommandTemplate string          `json:"command_template"`
	Parameters      []ToolParameter `json:"parameters"`
	Output          ToolOutput      `json:"output"`
	DefaultTimeout  int             `json:"default_timeout"`
	RequiresRoot    bool            `json:"requires_root,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
}

// Parameter returns the named parameter definition, or nil
func (t *ToolDefinition) Parameter(name string) *ToolParameter {
	for i := range t.Parameters {
		if t.Parameters[i].Name == name {
			return &t.Parameters[i]
		}
	}
	return nil
}
