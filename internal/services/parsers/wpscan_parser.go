package parsers

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

// Ordered so the most severe keyword wins when several match
var wpscanSeverityKeywords = []struct {
	keyword  string
	severity models.Severity
}{
	{"rce", models.SeverityCritical},
	{"sqli", models.SeverityCritical},
	{"sql injection", models.SeverityCritical},
	{"file upload", models.SeverityCritical},
	{"rfi", models.SeverityCritical},
	{"arbitrary file", models.SeverityHigh},
	{"lfi", models.SeverityHigh},
	{"ssrf", models.SeverityHigh},
	{"xss", models.SeverityMedium},
	{"csrf", models.SeverityMedium},
	{"idor", models.SeverityMedium},
	{"information disclosure", models.SeverityLow},
}

// WPScanParser parses WPScan JSON output: core/plugin/theme vulnerabilities,
// enumerated users and brute-forced credentials. WPScan wraps its JSON in
// banner text, so the parser slices from the first { to the last }.
type WPScanParser struct{}

func (p *WPScanParser) Name() string { return "wpscan_parser" }

func (p *WPScanParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return out, nil
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &data); err != nil {
		out.AddError("wpscan json parse error: %v", err)
		return out, nil
	}

	p.processScanData(data, out)
	return out, nil
}

func (p *WPScanParser) processScanData(data map[string]interface{}, out *ParseOutput) {
	targetURL := stringField(data, "target_url")

	if targetURL != "" {
		metadata := map[string]interface{}{"wordpress": true}
		if parsed, err := url.Parse(targetURL); err == nil {
			metadata["scheme"] = parsed.Scheme
			metadata["netloc"] = parsed.Host
		}
		if versionInfo, ok := data["version"].(map[string]interface{}); ok {
			if number := stringField(versionInfo, "number"); number != "" {
				metadata["wordpress_version"] = number
				metadata["version_status"] = stringField(versionInfo, "status")
			}
		}
		out.Assets = append(out.Assets, ParsedAsset{
			Type:     models.AssetTypeURL,
			Value:    targetURL,
			Tags:     []string{"wpscan", "wordpress"},
			Metadata: metadata,
		})
	}

	if versionInfo, ok := data["version"].(map[string]interface{}); ok {
		for _, vuln := range mapList(versionInfo["vulnerabilities"]) {
			p.addVulnerability(vuln, targetURL, "WordPress Core", out)
		}
	}

	if mainTheme, ok := data["main_theme"].(map[string]interface{}); ok {
		p.processComponent(mainTheme, targetURL, "theme", "", out)
	}
	if plugins, ok := data["plugins"].(map[string]interface{}); ok {
		for name, raw := range plugins {
			if plugin, ok := raw.(map[string]interface{}); ok {
				p.processComponent(plugin, targetURL, "plugin", name, out)
			}
		}
	}
	if themes, ok := data["themes"].(map[string]interface{}); ok {
		for name, raw := range themes {
			if theme, ok := raw.(map[string]interface{}); ok {
				p.processComponent(theme, targetURL, "theme", name, out)
			}
		}
	}

	if users, ok := data["users"].(map[string]interface{}); ok {
		for username, raw := range users {
			userData, _ := raw.(map[string]interface{})
			out.Credentials = append(out.Credentials, ParsedCredential{
				Type:     models.CredentialTypeUsername,
				Username: username,
				Service:  "wordpress",
				URL:      targetURL,
				Source:   "wpscan",
				Metadata: map[string]interface{}{
					"id":         userData["id"],
					"slug":       stringField(userData, "slug"),
					"confidence": userData["confidence"],
				},
			})
		}
	}

	if passwordAttack, ok := data["password_attack"].(map[string]interface{}); ok {
		valid := true
		for username, raw := range passwordAttack {
			password, _ := raw.(string)
			out.Credentials = append(out.Credentials, ParsedCredential{
				Type:     models.CredentialTypePassword,
				Username: username,
				Password: password,
				Service:  "wordpress",
				URL:      targetURL,
				IsValid:  &valid,
				Source:   "wpscan-bruteforce",
			})
		}
	}
}

func (p *WPScanParser) processComponent(component map[string]interface{}, targetURL, componentType, name string, out *ParseOutput) {
	slug := stringField(component, "slug")
	if slug == "" {
		slug = name
	}
	if slug == "" {
		slug = "unknown"
	}

	label := capitalize(componentType) + ": " + slug
	for _, vuln := range mapList(component["vulnerabilities"]) {
		p.addVulnerability(vuln, targetURL, label, out)
	}
}

func (p *WPScanParser) addVulnerability(vuln map[string]interface{}, targetURL, component string, out *ParseOutput) {
	title := stringField(vuln, "title")
	if title == "" {
		title = "Unknown Vulnerability"
	}
	vulnType := stringField(vuln, "vuln_type")

	var references, cveIDs []string
	if refs, ok := vuln["references"].(map[string]interface{}); ok {
		for _, refRaw := range refs {
			references = append(references, stringList(refRaw)...)
		}
		for _, cve := range stringList(refs["cve"]) {
			if !strings.HasPrefix(strings.ToUpper(cve), "CVE-") {
				cve = "CVE-" + cve
			}
			cveIDs = append(cveIDs, cve)
		}
	}

	var cvssScore *float64
	if cvss, ok := vuln["cvss"].(map[string]interface{}); ok {
		switch v := cvss["score"].(type) {
		case float64:
			cvssScore = &v
		case string:
			var score float64
			if _, err := fmt.Sscanf(v, "%f", &score); err == nil {
				cvssScore = &score
			}
		}
	}

	templateID := ""
	if wpvulndb, ok := vuln["wpvulndb"].(map[string]interface{}); ok {
		templateID = stringField(wpvulndb, "id")
	}

	tags := []string{"wpscan", "wordpress"}
	if vulnType != "" {
		tags = append(tags, vulnType)
	}

	out.Vulnerabilities = append(out.Vulnerabilities, ParsedVulnerability{
		Title:       title,
		Severity:    wpscanSeverity(title, vulnType),
		Description: "WordPress vulnerability in " + component + ": " + title,
		CVSSScore:   cvssScore,
		CVEIDs:      cveIDs,
		References:  references,
		TemplateID:  templateID,
		URL:         targetURL,
		AssetValue:  targetURL,
		Tags:        tags,
		Metadata: map[string]interface{}{
			"component": component,
			"vuln_type": vulnType,
			"fixed_in":  stringField(vuln, "fixed_in"),
		},
	})
}

func wpscanSeverity(title, vulnType string) models.Severity {
	titleLower := strings.ToLower(title)
	typeLower := strings.ToLower(vulnType)

	for _, entry := range wpscanSeverityKeywords {
		if strings.Contains(titleLower, entry.keyword) || strings.Contains(typeLower, entry.keyword) {
			return entry.severity
		}
	}
	return models.SeverityMedium
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func mapList(v interface{}) []map[string]interface{} {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}
