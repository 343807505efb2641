package parsers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

// Matches lines like
// /admin                (Status: 200) [Size: 1234]
// /images               (Status: 301) [Size: 456] [--> /images/]
var gobusterLinePattern = regexp.MustCompile(`^(/\S*)\s+\(Status:\s*(\d+)\)\s*\[Size:\s*(\d+)\](?:\s*\[--> ([^\]]+)\])?`)

// GobusterParser parses Gobuster directory-mode text output
type GobusterParser struct{}

func (p *GobusterParser) Name() string { return "gobuster_parser" }

func (p *GobusterParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}
	seen := make(map[string]bool)

	baseURL := stringField(params, "target")
	if baseURL == "" {
		baseURL = stringField(params, "url")
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		match := gobusterLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		path := match[1]
		if seen[path] {
			continue
		}
		seen[path] = true

		status, _ := strconv.Atoi(match[2])
		size, _ := strconv.Atoi(match[3])
		redirect := match[4]

		p.addPath(path, status, size, redirect, baseURL, out)
	}

	return out, nil
}

func (p *GobusterParser) addPath(path string, status, size int, redirect, baseURL string, out *ParseOutput) {
	segments := strings.Split(path, "/")
	isFile := strings.Contains(segments[len(segments)-1], ".")

	resultType := models.ResultTypeDirectory
	if isFile {
		resultType = models.ResultTypeFile
	}

	fullURL := path
	if baseURL != "" {
		fullURL = strings.TrimRight(baseURL, "/") + path
	}

	metadata := map[string]interface{}{
		"path":        path,
		"status_code": status,
		"size":        size,
	}
	if redirect != "" {
		metadata["redirect"] = redirect
	}

	out.Assets = append(out.Assets, ParsedAsset{
		Type:       models.AssetTypeEndpoint,
		Value:      fullURL,
		Tags:       []string{"gobuster", "status-" + strconv.Itoa(status)},
		Metadata:   metadata,
		ParentHint: baseURL,
	})

	assetValue := baseURL
	if assetValue == "" {
		assetValue = path
	}
	out.Results = append(out.Results, ParsedResult{
		Type:       resultType,
		AssetValue: assetValue,
		ParsedData: map[string]interface{}{
			"path":        path,
			"full_url":    fullURL,
			"status_code": status,
			"size":        size,
			"redirect":    redirect,
		},
	})
}
