package parsers

import (
	"fmt"

	"github.com/ternarybob/venator/internal/models"
)

// ParsedAsset is an asset observation extracted from tool output
type ParsedAsset struct {
	Type       models.AssetType
	Value      string
	Hostname   string
	IPAddress  string
	Port       int
	Protocol   string
	Service    string
	Version    string
	RiskScore  int
	Tags       []string
	Metadata   map[string]interface{}
	ParentHint string // value of the asset this one hangs off, when known
}

// ParsedVulnerability is a finding extracted from tool output
type ParsedVulnerability struct {
	Title       string
	Description string
	Severity    models.Severity
	CVSSScore   *float64
	CVEIDs      []string
	CWEIDs      []string
	References  []string
	AssetValue  string
	Port        int
	Protocol    string
	URL         string
	Parameter   string
	Request     string
	Response    string
	Evidence    string
	Remediation string
	TemplateID  string
	Tags        []string
	Metadata    map[string]interface{}
}

// ParsedCredential is a credential extracted from tool output. Password holds
// cleartext only until persistence, where it is encrypted.
type ParsedCredential struct {
	Type       models.CredentialType
	Username   string
	Password   string
	HashValue  string
	HashType   string
	Domain     string
	Service    string
	Host       string
	Port       int
	URL        string
	IsValid    *bool
	Source     string
	Metadata   map[string]interface{}
}

// ParsedResult is a raw structured observation
type ParsedResult struct {
	Type       models.ResultType
	Severity   models.Severity
	AssetValue string
	RawData    string
	ParsedData map[string]interface{}
}

// ParseOutput is everything a parser extracted from one tool run
type ParseOutput struct {
	Assets          []ParsedAsset
	Vulnerabilities []ParsedVulnerability
	Credentials     []ParsedCredential
	Results         []ParsedResult
	// Errors records recoverable deviations: fragments the parser could not
	// decode while the rest of the output stayed usable
	Errors []string
}

// AddError records a recoverable parse deviation
func (o *ParseOutput) AddError(format string, args ...interface{}) {
	o.Errors = append(o.Errors, fmt.Sprintf(format, args...))
}

// Merge appends another output's findings into this one
func (o *ParseOutput) Merge(other *ParseOutput) {
	if other == nil {
		return
	}
	o.Assets = append(o.Assets, other.Assets...)
	o.Vulnerabilities = append(o.Vulnerabilities, other.Vulnerabilities...)
	o.Credentials = append(o.Credentials, other.Credentials...)
	o.Results = append(o.Results, other.Results...)
	o.Errors = append(o.Errors, other.Errors...)
}

// Parser converts raw tool output into structured findings. Parsers are
// tolerant: malformed fragments are recorded on Errors and the partial
// output is returned, and empty input yields an empty output. params
// carries the originating job's parameters for parsers that need them
// (base URLs, service names).
type Parser interface {
	Name() string
	Parse(raw string, params map[string]interface{}) (*ParseOutput, error)
}
