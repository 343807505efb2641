package parsers

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

// HTTPXParser parses httpx JSONL output into URL, technology and domain assets
type HTTPXParser struct{}

func (p *HTTPXParser) Name() string { return "httpx_parser" }

func (p *HTTPXParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}
	seenURLs := make(map[string]bool)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}

		var data map[string]interface{}
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			continue
		}
		p.processResult(data, out, seenURLs)
	}

	return out, nil
}

func (p *HTTPXParser) processResult(data map[string]interface{}, out *ParseOutput, seenURLs map[string]bool) {
	target := stringField(data, "url")
	if target == "" {
		target = stringField(data, "input")
	}
	if target == "" || seenURLs[target] {
		return
	}
	seenURLs[target] = true

	var host string
	if parsed, err := url.Parse(target); err == nil {
		host = strings.Split(parsed.Host, ":")[0]
	}

	statusCode := data["status_code"]
	if statusCode == nil {
		statusCode = data["status-code"]
	}
	title := stringField(data, "title")
	contentLength := data["content_length"]
	if contentLength == nil {
		contentLength = data["content-length"]
	}
	contentType := stringField(data, "content_type")
	if contentType == "" {
		contentType = stringField(data, "content-type")
	}
	webServer := stringField(data, "webserver")
	if webServer == "" {
		webServer = stringField(data, "server")
	}
	finalURL := stringField(data, "final_url")
	if finalURL == "" {
		finalURL = stringField(data, "final-url")
	}
	if finalURL == "" {
		finalURL = target
	}

	technologies := stringList(data["tech"])
	if technologies == nil {
		technologies = stringList(data["technologies"])
	}

	metadata := map[string]interface{}{}
	if statusCode != nil {
		metadata["status_code"] = statusCode
	}
	if title != "" {
		metadata["title"] = title
	}
	if contentType != "" {
		metadata["content_type"] = contentType
	}
	if contentLength != nil {
		metadata["content_length"] = contentLength
	}
	if webServer != "" {
		metadata["web_server"] = webServer
	}
	if len(technologies) > 0 {
		metadata["technologies"] = technologies
	}

	tags := []string{"httpx"}
	for i, tech := range technologies {
		if i >= 5 {
			break
		}
		tags = append(tags, tech)
	}

	out.Assets = append(out.Assets, ParsedAsset{
		Type:     models.AssetTypeURL,
		Value:    target,
		Hostname: host,
		Tags:     tags,
		Metadata: metadata,
	})

	out.Results = append(out.Results, ParsedResult{
		Type:       models.ResultTypeEndpoint,
		AssetValue: target,
		ParsedData: map[string]interface{}{
			"url":            target,
			"final_url":      finalURL,
			"status_code":    statusCode,
			"title":          title,
			"content_type":   contentType,
			"content_length": contentLength,
			"web_server":     webServer,
		},
	})

	for _, tech := range technologies {
		out.Assets = append(out.Assets, ParsedAsset{
			Type:       models.AssetTypeTechnology,
			Value:      tech,
			Tags:       []string{"httpx"},
			Metadata:   map[string]interface{}{"source_url": target},
			ParentHint: target,
		})
		out.Results = append(out.Results, ParsedResult{
			Type:       models.ResultTypeTechnology,
			AssetValue: target,
			ParsedData: map[string]interface{}{
				"name": tech,
				"url":  target,
			},
		})
	}

	if host != "" && !ipv4Pattern.MatchString(host) {
		out.Assets = append(out.Assets, ParsedAsset{
			Type:       models.AssetTypeDomain,
			Value:      host,
			Hostname:   host,
			Tags:       []string{"httpx"},
			Metadata:   map[string]interface{}{"source_url": target},
			ParentHint: target,
		})
	}
}
