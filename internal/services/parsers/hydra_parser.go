package parsers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

// Matches successful login lines like
// [22][ssh] host: 192.168.1.1   login: admin   password: password123
var hydraSuccessPattern = regexp.MustCompile(`(?i)^\[(\d+)\]\[([^\]]+)\]\s+host:\s*(\S+)\s+login:\s*(\S*)\s+password:\s*(.*)$`)

// HydraParser parses Hydra text output for cracked logins
type HydraParser struct{}

func (p *HydraParser) Name() string { return "hydra_parser" }

func (p *HydraParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}
	seen := make(map[string]bool)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		match := hydraSuccessPattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		p.processMatch(match, out, seen)
	}

	return out, nil
}

func (p *HydraParser) processMatch(match []string, out *ParseOutput, seen map[string]bool) {
	port, _ := strconv.Atoi(match[1])
	service := strings.TrimSpace(match[2])
	host := strings.TrimSpace(match[3])
	username := strings.TrimSpace(match[4])
	password := strings.TrimSpace(match[5])

	key := fmt.Sprintf("%s:%d:%s:%s", host, port, username, password)
	if seen[key] {
		return
	}
	seen[key] = true

	hostType := models.AssetTypeDomain
	if ipv4Pattern.MatchString(host) {
		hostType = models.AssetTypeHost
	}

	out.Assets = append(out.Assets, ParsedAsset{
		Type:  hostType,
		Value: host,
		Port:  port,
		Tags:  []string{"hydra", service},
		Metadata: map[string]interface{}{
			"port":    port,
			"service": service,
		},
	})

	out.Assets = append(out.Assets, ParsedAsset{
		Type:     models.AssetTypeService,
		Value:    fmt.Sprintf("%s:%d/%s", host, port, service),
		Port:     port,
		Service:  service,
		Tags:     []string{"hydra", "credential-found"},
		Metadata: map[string]interface{}{
			"host":             host,
			"port":             port,
			"service":          service,
			"credential_found": true,
		},
		ParentHint: host,
	})

	valid := true
	out.Credentials = append(out.Credentials, ParsedCredential{
		Type:     models.CredentialTypePassword,
		Username: username,
		Password: password,
		Service:  service,
		Host:     host,
		Port:     port,
		IsValid:  &valid,
		Source:   "hydra",
		Metadata: map[string]interface{}{"host": host},
	})
}
