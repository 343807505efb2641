package parsers

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

type ffufReport struct {
	Config struct {
		URL string `json:"url"`
	} `json:"config"`
	Results []ffufResult `json:"results"`
}

type ffufResult struct {
	Input            map[string]string `json:"input"`
	Status           int               `json:"status"`
	Length           int               `json:"length"`
	Words            int               `json:"words"`
	Lines            int               `json:"lines"`
	ContentType      string            `json:"content-type"`
	RedirectLocation string            `json:"redirectlocation"`
	URL              string            `json:"url"`
}

// FFUFParser parses ffuf's single JSON report document
type FFUFParser struct{}

func (p *FFUFParser) Name() string { return "ffuf_parser" }

func (p *FFUFParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}

	var report ffufReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		out.AddError("ffuf json parse error: %v", err)
		return out, nil
	}

	seen := make(map[string]bool)
	for _, item := range report.Results {
		p.processItem(item, report.Config.URL, out, seen)
	}

	return out, nil
}

func (p *FFUFParser) processItem(item ffufResult, baseURL string, out *ParseOutput, seen map[string]bool) {
	fuzzWord := item.Input["FUZZ"]

	target := item.URL
	if target == "" {
		if baseURL != "" {
			target = strings.ReplaceAll(baseURL, "FUZZ", fuzzWord)
		} else {
			target = fuzzWord
		}
	}
	if target == "" || seen[target] {
		return
	}
	seen[target] = true

	segments := strings.Split(target, "/")
	isFile := strings.Contains(fuzzWord, ".") || strings.Contains(segments[len(segments)-1], ".")
	resultType := models.ResultTypeDirectory
	if isFile {
		resultType = models.ResultTypeFile
	}

	metadata := map[string]interface{}{
		"fuzz_word":    fuzzWord,
		"status_code":  item.Status,
		"length":       item.Length,
		"words":        item.Words,
		"lines":        item.Lines,
		"content_type": item.ContentType,
	}
	if item.RedirectLocation != "" {
		metadata["redirect"] = item.RedirectLocation
	}

	out.Assets = append(out.Assets, ParsedAsset{
		Type:       models.AssetTypeEndpoint,
		Value:      target,
		Tags:       []string{"ffuf", "status-" + strconv.Itoa(item.Status)},
		Metadata:   metadata,
		ParentHint: baseURL,
	})

	out.Results = append(out.Results, ParsedResult{
		Type:       resultType,
		AssetValue: target,
		ParsedData: map[string]interface{}{
			"url":          target,
			"fuzz_word":    fuzzWord,
			"status_code":  item.Status,
			"length":       item.Length,
			"words":        item.Words,
			"lines":        item.Lines,
			"content_type": item.ContentType,
			"redirect":     item.RedirectLocation,
		},
	})
}
