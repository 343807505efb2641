package parsers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

// NiktoParser parses Nikto JSON output. Nikto gives no severity, so a keyword
// heuristic over the finding message assigns one.
type NiktoParser struct{}

func (p *NiktoParser) Name() string { return "nikto_parser" }

var niktoCriticalWords = []string{"remote code execution", "rce", "command injection", "sql injection", "arbitrary file", "root", "admin access"}
var niktoHighWords = []string{"authentication bypass", "directory traversal", "path traversal", "file inclusion", "xss", "cross-site", "credentials", "password", "sensitive", "backup", "database"}
var niktoMediumWords = []string{"disclosure", "information", "version", "outdated", "deprecated", "header", "cookie", "clickjacking"}
var niktoLowWords = []string{"allowed", "methods", "options", "trace", "etag"}

func niktoSeverity(message string) models.Severity {
	lower := strings.ToLower(message)
	contains := func(words []string) bool {
		for _, w := range words {
			if strings.Contains(lower, w) {
				return true
			}
		}
		return false
	}
	switch {
	case contains(niktoCriticalWords):
		return models.SeverityCritical
	case contains(niktoHighWords):
		return models.SeverityHigh
	case contains(niktoMediumWords):
		return models.SeverityMedium
	case contains(niktoLowWords):
		return models.SeverityLow
	}
	return models.SeverityInfo
}

func (p *NiktoParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		out.AddError("nikto json parse error: %v", err)
		return out, nil
	}

	switch data := doc.(type) {
	case []interface{}:
		for _, item := range data {
			if host, ok := item.(map[string]interface{}); ok {
				p.processHost(host, out)
			}
		}
	case map[string]interface{}:
		if hosts, ok := data["hosts"].([]interface{}); ok {
			for _, item := range hosts {
				if host, ok := item.(map[string]interface{}); ok {
					p.processHost(host, out)
				}
			}
		} else {
			p.processHost(data, out)
		}
	}

	return out, nil
}

func (p *NiktoParser) processHost(hostData map[string]interface{}, out *ParseOutput) {
	ip := stringField(hostData, "ip")
	if ip == "" {
		ip = stringField(hostData, "host")
	}
	hostname := stringField(hostData, "hostname")
	port := hostData["port"]
	banner := stringField(hostData, "banner")

	if ip == "" && hostname == "" {
		return
	}

	target := hostname
	if target == "" {
		target = ip
	}

	assetType := models.AssetTypeDomain
	if ipv4Pattern.MatchString(target) {
		assetType = models.AssetTypeHost
	}

	out.Assets = append(out.Assets, ParsedAsset{
		Type:      assetType,
		Value:     target,
		Hostname:  hostname,
		IPAddress: ip,
		Tags:      []string{"nikto"},
		Metadata: map[string]interface{}{
			"ip":       ip,
			"hostname": hostname,
			"port":     port,
			"banner":   banner,
		},
	})

	vulns, ok := hostData["vulnerabilities"].([]interface{})
	if !ok {
		vulns, _ = hostData["items"].([]interface{})
	}
	for _, item := range vulns {
		if vuln, ok := item.(map[string]interface{}); ok {
			p.processVulnerability(vuln, target, out)
		}
	}
}

func (p *NiktoParser) processVulnerability(vuln map[string]interface{}, target string, out *ParseOutput) {
	vulnID := stringField(vuln, "id")
	if vulnID == "" {
		switch v := vuln["OSVDB"].(type) {
		case string:
			vulnID = v
		case float64:
			vulnID = fmt.Sprintf("%d", int(v))
		}
	}

	message := stringField(vuln, "msg")
	if message == "" {
		message = stringField(vuln, "message")
	}
	if message == "" {
		message = stringField(vuln, "description")
	}
	if message == "" {
		return
	}

	method := stringField(vuln, "method")
	if method == "" {
		method = "GET"
	}
	uri := stringField(vuln, "uri")
	if uri == "" {
		uri = stringField(vuln, "url")
	}

	references := stringList(vuln["references"])
	if vulnID != "" && isDigits(vulnID) {
		references = append(references, "https://osvdb.org/"+vulnID)
	}

	title := "Nikto: " + message
	if len(message) > 100 {
		title = "Nikto: " + message[:100] + "..."
	}

	evidence := ""
	if uri != "" {
		evidence = "URI: " + uri + "\nMethod: " + method
	}

	templateID := ""
	if vulnID != "" {
		templateID = "nikto:" + vulnID
	}

	out.Vulnerabilities = append(out.Vulnerabilities, ParsedVulnerability{
		Title:       title,
		Severity:    niktoSeverity(message),
		Description: message,
		Evidence:    evidence,
		References:  references,
		TemplateID:  templateID,
		URL:         uri,
		AssetValue:  target,
		Tags:        []string{"nikto"},
		Metadata: map[string]interface{}{
			"nikto_id": vulnID,
			"method":   method,
			"uri":      uri,
		},
	})
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
