package parsers

import (
	"encoding/json"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

type amassFinding struct {
	Name      string         `json:"name"`
	Domain    string         `json:"domain"`
	Source    string         `json:"source"`
	Tag       string         `json:"tag"`
	Addresses []amassAddress `json:"addresses"`
}

type amassAddress struct {
	IP   string `json:"ip"`
	CIDR string `json:"cidr"`
	ASN  int    `json:"asn"`
	Desc string `json:"desc"`
}

// AmassParser parses Amass JSONL output into domain and host assets
type AmassParser struct{}

func (p *AmassParser) Name() string { return "amass_parser" }

func (p *AmassParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}
	seenDomains := make(map[string]bool)
	seenIPs := make(map[string]bool)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}

		var finding amassFinding
		if err := json.Unmarshal([]byte(line), &finding); err != nil {
			continue
		}
		p.processFinding(finding, out, seenDomains, seenIPs)
	}

	return out, nil
}

func (p *AmassParser) processFinding(finding amassFinding, out *ParseOutput, seenDomains, seenIPs map[string]bool) {
	if finding.Name == "" {
		return
	}

	if !seenDomains[finding.Name] {
		seenDomains[finding.Name] = true

		isSubdomain := finding.Domain != "" &&
			finding.Name != finding.Domain &&
			strings.HasSuffix(finding.Name, "."+finding.Domain)

		tag := "root-domain"
		if isSubdomain {
			tag = "subdomain"
		}

		out.Assets = append(out.Assets, ParsedAsset{
			Type:     models.AssetTypeDomain,
			Value:    finding.Name,
			Hostname: finding.Name,
			Tags:     []string{"amass", tag},
			Metadata: map[string]interface{}{
				"root_domain":  finding.Domain,
				"is_subdomain": isSubdomain,
				"source":       finding.Source,
				"tag":          finding.Tag,
			},
		})
	}

	for _, addr := range finding.Addresses {
		if addr.IP == "" || seenIPs[addr.IP] {
			continue
		}
		seenIPs[addr.IP] = true

		out.Assets = append(out.Assets, ParsedAsset{
			Type:      models.AssetTypeHost,
			Value:     addr.IP,
			IPAddress: addr.IP,
			Tags:      []string{"amass", "discovered-ip"},
			Metadata: map[string]interface{}{
				"cidr":              addr.CIDR,
				"asn":               addr.ASN,
				"desc":              addr.Desc,
				"associated_domain": finding.Name,
			},
			ParentHint: finding.Name,
		})
	}
}
