package parsers

import (
	"encoding/json"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

// SubfinderParser parses Subfinder output: JSONL when run with -json, falling
// back to one subdomain per line for plain text
type SubfinderParser struct{}

func (p *SubfinderParser) Name() string { return "subfinder_parser" }

func (p *SubfinderParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}
	seen := make(map[string]bool)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var data map[string]interface{}
		if err := json.Unmarshal([]byte(line), &data); err == nil {
			subdomain := stringField(data, "host")
			if subdomain == "" {
				subdomain = stringField(data, "subdomain")
			}
			if subdomain == "" {
				subdomain = stringField(data, "domain")
			}
			source := stringField(data, "source")
			if source == "" {
				source = strings.Join(stringList(data["sources"]), ",")
			}
			p.addSubdomain(subdomain, source, out, seen)
			continue
		}

		if strings.Contains(line, ".") && !strings.HasPrefix(line, "{") {
			p.addSubdomain(line, "", out, seen)
		}
	}

	return out, nil
}

func (p *SubfinderParser) addSubdomain(subdomain, source string, out *ParseOutput, seen map[string]bool) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" || seen[subdomain] {
		return
	}
	seen[subdomain] = true

	metadata := map[string]interface{}{}
	if source != "" {
		metadata["source"] = source
	}

	out.Assets = append(out.Assets, ParsedAsset{
		Type:     models.AssetTypeSubdomain,
		Value:    subdomain,
		Hostname: subdomain,
		Tags:     []string{"subfinder"},
		Metadata: metadata,
	})

	out.Results = append(out.Results, ParsedResult{
		Type: models.ResultTypeSubdomain,
		ParsedData: map[string]interface{}{
			"subdomain": subdomain,
			"source":    source,
		},
	})
}
