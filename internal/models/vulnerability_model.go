package models

import "time"

// Severity classifies finding impact
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityFromCVSS maps a CVSS score to a severity using the standard cut-offs
func SeverityFromCVSS(score float64) Severity {
	switch {
	case score >= 9.0:
		return SeverityCritical
	case score >= 7.0:
		return SeverityHigh
	case score >= 4.0:
		return SeverityMedium
	case score > 0:
		return SeverityLow
	}
	return SeverityInfo
}

// VulnerabilityStatus represents the triage state of a finding
type VulnerabilityStatus string

const (
	VulnStatusOpen          VulnerabilityStatus = "open"
	VulnStatusConfirmed     VulnerabilityStatus = "confirmed"
	VulnStatusFalsePositive VulnerabilityStatus = "false_positive"
	VulnStatusResolved      VulnerabilityStatus = "resolved"
	VulnStatusAccepted      VulnerabilityStatus = "accepted"
)

// Vulnerability is a security finding produced by a parser or imported scan.
// Deduplicated by Fingerprint.
type Vulnerability struct {
	ID           string                 `json:"id" badgerhold:"key"`
	ProjectID    string                 `json:"project_id" badgerhold:"index"`
	AssetID      string                 `json:"asset_id,omitempty" badgerhold:"index"`
	Title        string                 `json:"title"`
	Severity     Severity               `json:"severity" badgerhold:"index"`
	Status       VulnerabilityStatus    `json:"status"`
	Description  string                 `json:"description,omitempty"`
	CVSSScore    *float64               `json:"cvss_score,omitempty"`
	CVSSVector   string                 `json:"cvss_vector,omitempty"`
	CVEIDs       []string               `json:"cve_ids,omitempty"`
	CWEIDs       []string               `json:"cwe_ids,omitempty"`
	Evidence     string                 `json:"evidence,omitempty"`
	ProofOfWork  string                 `json:"proof_of_concept,omitempty"`
	Request      string                 `json:"request,omitempty"`
	Response     string                 `json:"response,omitempty"`
	Remediation  string                 `json:"remediation,omitempty"`
	References   []string               `json:"references,omitempty"`
	Tags         []string               `json:"tags,omitempty"`
	TemplateID   string                 `json:"template_id,omitempty"`
	ToolName     string                 `json:"tool_name,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	Fingerprint  string                 `json:"fingerprint,omitempty" badgerhold:"index"`
	DiscoveredBy string                 `json:"discovered_by,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}
