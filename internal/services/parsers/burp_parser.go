package parsers

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

var burpSeverityMap = map[string]models.Severity{
	"information": models.SeverityInfo,
	"low":         models.SeverityLow,
	"medium":      models.SeverityMedium,
	"high":        models.SeverityHigh,
	"critical":    models.SeverityCritical,
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	htmlHrefPattern   = regexp.MustCompile(`href=["']([^"']+)["']`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

type burpExport struct {
	Issues []burpIssue `xml:"issue"`
	Items  []burpItem  `xml:"item"`
}

type burpIssue struct {
	Name                  string       `xml:"name"`
	Host                  burpHost     `xml:"host"`
	Path                  string       `xml:"path"`
	Location              string       `xml:"location"`
	Severity              string       `xml:"severity"`
	Confidence            string       `xml:"confidence"`
	Type                  string       `xml:"type"`
	IssueBackground       string       `xml:"issueBackground"`
	IssueDetail           string       `xml:"issueDetail"`
	RemediationBackground string       `xml:"remediationBackground"`
	RemediationDetail     string       `xml:"remediationDetail"`
	References            string       `xml:"references"`
	Request               *burpPayload `xml:"requestresponse>request"`
	Response              *burpPayload `xml:"requestresponse>response"`
}

type burpHost struct {
	IP   string `xml:"ip,attr"`
	Text string `xml:",chardata"`
}

type burpPayload struct {
	Base64 string `xml:"base64,attr"`
	Text   string `xml:",chardata"`
}

type burpItem struct {
	Host     string `xml:"host"`
	Port     string `xml:"port"`
	Protocol string `xml:"protocol"`
	Path     string `xml:"path"`
	Method   string `xml:"method"`
	Status   string `xml:"status"`
	MimeType string `xml:"mimetype"`
}

// BurpParser imports Burp Suite XML exports, both Scanner issue reports and
// HTTP history dumps
type BurpParser struct{}

func (p *BurpParser) Name() string { return "burp_parser" }

func (p *BurpParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}

	raw = strings.TrimPrefix(strings.TrimSpace(raw), "\ufeff")
	if raw == "" {
		return out, nil
	}

	var export burpExport
	if err := xml.Unmarshal([]byte(raw), &export); err != nil {
		return nil, fmt.Errorf("burp xml parse error: %w", err)
	}

	seenURLs := make(map[string]bool)
	for i := range export.Issues {
		p.processIssue(&export.Issues[i], out, seenURLs)
	}
	for i := range export.Items {
		p.processItem(&export.Items[i], out, seenURLs)
	}
	return out, nil
}

func (p *BurpParser) processIssue(issue *burpIssue, out *ParseOutput, seenURLs map[string]bool) {
	name := strings.TrimSpace(issue.Name)
	host := strings.TrimSpace(issue.Host.Text)
	path := strings.TrimSpace(issue.Path)

	protocol := "http"
	if strings.Contains(host, "443") {
		protocol = "https"
	}
	target := ""
	if host != "" {
		if strings.Contains(host, "://") {
			target = host + path
		} else {
			target = protocol + "://" + host + path
		}
	}
	if target == "" || name == "" {
		return
	}

	if !seenURLs[target] {
		seenURLs[target] = true
		metadata := map[string]interface{}{
			"host": host,
			"path": path,
		}
		if parsed, err := url.Parse(target); err == nil {
			metadata["scheme"] = parsed.Scheme
		}
		out.Assets = append(out.Assets, ParsedAsset{
			Type:     models.AssetTypeURL,
			Value:    target,
			Tags:     []string{"burp", "imported"},
			Metadata: metadata,
		})
	}

	description := stripHTML(issue.IssueBackground)
	if detail := stripHTML(issue.IssueDetail); detail != "" {
		description += "\n\nDetails:\n" + detail
	}
	remediation := stripHTML(issue.RemediationBackground)
	if detail := stripHTML(issue.RemediationDetail); detail != "" {
		remediation += "\n\n" + detail
	}

	severity, ok := burpSeverityMap[strings.ToLower(strings.TrimSpace(issue.Severity))]
	if !ok {
		severity = models.SeverityInfo
	}

	var references []string
	for _, m := range htmlHrefPattern.FindAllStringSubmatch(issue.References, -1) {
		references = append(references, m[1])
	}

	request := decodeBurpPayload(issue.Request)
	response := decodeBurpPayload(issue.Response)
	if len(response) > 5000 {
		response = response[:5000] + "\n... [truncated]"
	}

	templateID := ""
	if issue.Type != "" {
		templateID = "burp-" + strings.TrimSpace(issue.Type)
	}

	out.Vulnerabilities = append(out.Vulnerabilities, ParsedVulnerability{
		Title:       name,
		Severity:    severity,
		Description: strings.TrimSpace(description),
		Remediation: strings.TrimSpace(remediation),
		References:  references,
		TemplateID:  templateID,
		Request:     truncate(request, 5000),
		Response:    response,
		URL:         target,
		AssetValue:  target,
		Tags:        []string{"burp", "imported"},
		Metadata: map[string]interface{}{
			"issue_type": strings.TrimSpace(issue.Type),
			"confidence": strings.ToLower(strings.TrimSpace(issue.Confidence)),
			"location":   strings.TrimSpace(issue.Location),
			"host":       host,
			"path":       path,
		},
	})
}

func (p *BurpParser) processItem(item *burpItem, out *ParseOutput, seenURLs map[string]bool) {
	host := strings.TrimSpace(item.Host)
	if host == "" {
		return
	}

	port := strings.TrimSpace(item.Port)
	target := item.Protocol + "://" + host + item.Path
	if port != "" && port != "80" && port != "443" {
		target = item.Protocol + "://" + host + ":" + port + item.Path
	}

	if seenURLs[target] {
		return
	}
	seenURLs[target] = true

	out.Assets = append(out.Assets, ParsedAsset{
		Type:  models.AssetTypeURL,
		Value: target,
		Tags:  []string{"burp", "imported", "http-history"},
		Metadata: map[string]interface{}{
			"host":     host,
			"port":     port,
			"protocol": item.Protocol,
			"path":     item.Path,
			"method":   strings.TrimSpace(item.Method),
			"status":   strings.TrimSpace(item.Status),
			"mimetype": strings.TrimSpace(item.MimeType),
		},
	})
}

func decodeBurpPayload(payload *burpPayload) string {
	if payload == nil || payload.Text == "" {
		return ""
	}
	if strings.EqualFold(payload.Base64, "true") {
		if decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload.Text)); err == nil {
			return string(decoded)
		}
	}
	return payload.Text
}

func stripHTML(text string) string {
	if text == "" {
		return ""
	}
	clean := htmlTagPattern.ReplaceAllString(text, "")
	replacer := strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
	clean = replacer.Replace(clean)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(clean, " "))
}
