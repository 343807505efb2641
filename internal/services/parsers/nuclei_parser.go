package parsers

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

var ipv4Pattern = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)

// NucleiParser parses Nuclei JSONL output. Non-JSON lines (banners, status
// messages) are skipped; JSON lines that fail to decode are recorded as
// errors without failing the parse.
type NucleiParser struct{}

func (p *NucleiParser) Name() string { return "nuclei_parser" }

var nucleiSeverityMap = map[string]models.Severity{
	"info":     models.SeverityInfo,
	"low":      models.SeverityLow,
	"medium":   models.SeverityMedium,
	"high":     models.SeverityHigh,
	"critical": models.SeverityCritical,
	"unknown":  models.SeverityInfo,
}

func (p *NucleiParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}
	seenHosts := make(map[string]bool)

	for i, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}

		var finding map[string]interface{}
		if err := json.Unmarshal([]byte(line), &finding); err != nil {
			out.AddError("line %d: %v", i+1, err)
			continue
		}
		p.processFinding(finding, out, seenHosts)
	}

	return out, nil
}

func (p *NucleiParser) processFinding(finding map[string]interface{}, out *ParseOutput, seenHosts map[string]bool) {
	templateID := stringField(finding, "template-id")
	if templateID == "" {
		templateID = stringField(finding, "templateID")
	}
	info, _ := finding["info"].(map[string]interface{})
	if info == nil {
		info = map[string]interface{}{}
	}

	host := stringField(finding, "host")
	matchedAt := stringField(finding, "matched-at")
	if matchedAt == "" {
		matchedAt = stringField(finding, "matched")
	}
	if matchedAt == "" && host == "" {
		return
	}

	if host != "" && !seenHosts[host] {
		seenHosts[host] = true
		p.createURLAsset(host, out)
	}

	severity, ok := nucleiSeverityMap[strings.ToLower(stringField(info, "severity"))]
	if !ok {
		severity = models.SeverityInfo
	}

	name := stringField(info, "name")
	if name == "" {
		name = templateID
	}

	references := stringList(info["reference"])

	classification, _ := info["classification"].(map[string]interface{})
	var cveIDs, cweIDs []string
	var cvssScore *float64
	if classification != nil {
		cveIDs = stringList(classification["cve-id"])
		cweIDs = stringList(classification["cwe-id"])
		switch v := classification["cvss-score"].(type) {
		case float64:
			cvssScore = &v
		case string:
			if score, err := strconv.ParseFloat(v, 64); err == nil {
				cvssScore = &score
			}
		}
	}

	var tags []string
	switch t := info["tags"].(type) {
	case string:
		for _, tag := range strings.Split(t, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	case []interface{}:
		tags = stringList(t)
	}

	request := truncate(stringField(finding, "request"), 5000)
	response := stringField(finding, "response")
	if len(response) > 5000 {
		response = response[:5000] + "\n... [truncated]"
	}

	evidence := strings.Join(stringList(finding["extracted-results"]), "\n")
	if matcherName := stringField(finding, "matcher-name"); matcherName != "" {
		evidence = strings.TrimSpace("Matcher: " + matcherName + "\n" + evidence)
	}

	out.Vulnerabilities = append(out.Vulnerabilities, ParsedVulnerability{
		Title:       name,
		Severity:    severity,
		Description: stringField(info, "description"),
		CVSSScore:   cvssScore,
		CVEIDs:      cveIDs,
		CWEIDs:      cweIDs,
		References:  references,
		URL:         matchedAt,
		Request:     request,
		Response:    response,
		Evidence:    evidence,
		Remediation: stringField(info, "remediation"),
		TemplateID:  templateID,
		AssetValue:  host,
		Tags:        append([]string{"nuclei"}, tags...),
		Metadata: map[string]interface{}{
			"template_id":  templateID,
			"matched_at":   matchedAt,
			"host":         host,
			"type":         stringField(finding, "type"),
			"matcher_name": stringField(finding, "matcher-name"),
		},
	})
}

func (p *NucleiParser) createURLAsset(rawURL string, out *ParseOutput) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return
	}

	out.Assets = append(out.Assets, ParsedAsset{
		Type:  models.AssetTypeURL,
		Value: rawURL,
		Tags:  []string{"nuclei"},
		Metadata: map[string]interface{}{
			"scheme": parsed.Scheme,
			"netloc": parsed.Host,
			"path":   parsed.Path,
		},
	})

	if parsed.Host != "" {
		host := strings.Split(parsed.Host, ":")[0]
		if host != "" && !ipv4Pattern.MatchString(host) {
			out.Assets = append(out.Assets, ParsedAsset{
				Type:       models.AssetTypeDomain,
				Value:      host,
				Hostname:   host,
				Tags:       []string{"nuclei"},
				Metadata:   map[string]interface{}{"source_url": rawURL},
				ParentHint: rawURL,
			})
		}
	}
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func stringList(v interface{}) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []interface{}:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return t
	}
	return nil
}
