package parsers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

type masscanEntry struct {
	IP    string        `json:"ip"`
	Ports []masscanPort `json:"ports"`
}

type masscanPort struct {
	Port   int    `json:"port"`
	Proto  string `json:"proto"`
	Status string `json:"status"`
	Reason string `json:"reason"`
	TTL    int    `json:"ttl"`
}

// MasscanParser parses Masscan JSON output. Masscan's -oJ writer leaves
// trailing commas and sometimes unterminated arrays, so the document is
// repaired first and line-by-line parsing is the fallback.
type MasscanParser struct{}

func (p *MasscanParser) Name() string { return "masscan_parser" }

func (p *MasscanParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}
	seenHosts := make(map[string]bool)

	doc := strings.TrimSpace(raw)
	if doc == "" {
		return out, nil
	}
	doc = strings.TrimSuffix(doc, ",")
	if !strings.HasPrefix(doc, "[") {
		doc = "[" + doc
	}
	if !strings.HasSuffix(doc, "]") {
		doc = doc + "]"
	}

	var entries []masscanEntry
	if err := json.Unmarshal([]byte(doc), &entries); err != nil {
		p.parseLineByLine(raw, out, seenHosts)
		return out, nil
	}

	for _, entry := range entries {
		p.processEntry(entry, out, seenHosts)
	}
	return out, nil
}

func (p *MasscanParser) parseLineByLine(raw string, out *ParseOutput, seenHosts map[string]bool) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(strings.TrimSpace(line), ",")
		if line == "" || line == "[" || line == "]" {
			continue
		}
		var entry masscanEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		p.processEntry(entry, out, seenHosts)
	}
}

func (p *MasscanParser) processEntry(entry masscanEntry, out *ParseOutput, seenHosts map[string]bool) {
	if entry.IP == "" {
		return
	}

	if !seenHosts[entry.IP] {
		seenHosts[entry.IP] = true
		out.Assets = append(out.Assets, ParsedAsset{
			Type:      models.AssetTypeHost,
			Value:     entry.IP,
			IPAddress: entry.IP,
			Tags:      []string{"masscan"},
			Metadata:  map[string]interface{}{},
		})
	}

	for _, port := range entry.Ports {
		if port.Port == 0 {
			continue
		}
		status := port.Status
		if status == "" {
			status = "open"
		}
		if status != "open" {
			continue
		}
		protocol := port.Proto
		if protocol == "" {
			protocol = "tcp"
		}

		out.Assets = append(out.Assets, ParsedAsset{
			Type:      models.AssetTypeService,
			Value:     fmt.Sprintf("%s:%d/%s", entry.IP, port.Port, protocol),
			IPAddress: entry.IP,
			Port:      port.Port,
			Protocol:  protocol,
			Tags:      []string{"masscan"},
			Metadata: map[string]interface{}{
				"ip":       entry.IP,
				"port":     port.Port,
				"protocol": protocol,
				"status":   status,
				"reason":   port.Reason,
				"ttl":      port.TTL,
			},
			ParentHint: entry.IP,
		})

		out.Results = append(out.Results, ParsedResult{
			Type:       models.ResultTypePort,
			AssetValue: entry.IP,
			ParsedData: map[string]interface{}{
				"ip":       entry.IP,
				"port":     port.Port,
				"protocol": protocol,
				"status":   status,
				"reason":   port.Reason,
				"ttl":      port.TTL,
			},
		})
	}
}
