package parsers

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

var nessusSeverityMap = map[string]models.Severity{
	"0": models.SeverityInfo,
	"1": models.SeverityLow,
	"2": models.SeverityMedium,
	"3": models.SeverityHigh,
	"4": models.SeverityCritical,
}

type nessusReport struct {
	Hosts []nessusHost `xml:"Report>ReportHost"`
}

type nessusHost struct {
	Name       string       `xml:"name,attr"`
	Properties []nessusTag  `xml:"HostProperties>tag"`
	Items      []nessusItem `xml:"ReportItem"`
}

type nessusTag struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type nessusItem struct {
	PluginID           string   `xml:"pluginID,attr"`
	PluginName         string   `xml:"pluginName,attr"`
	Port               string   `xml:"port,attr"`
	Protocol           string   `xml:"protocol,attr"`
	SvcName            string   `xml:"svc_name,attr"`
	Severity           string   `xml:"severity,attr"`
	Description        string   `xml:"description"`
	Solution           string   `xml:"solution"`
	Synopsis           string   `xml:"synopsis"`
	SeeAlso            string   `xml:"see_also"`
	PluginOutput       string   `xml:"plugin_output"`
	CVEs               []string `xml:"cve"`
	CVSSBaseScore      string   `xml:"cvss_base_score"`
	CVSS3BaseScore     string   `xml:"cvss3_base_score"`
	CWE                string   `xml:"cwe"`
	RiskFactor         string   `xml:"risk_factor"`
	ExploitAvailable   string   `xml:"exploit_available"`
	ExploitabilityEase string   `xml:"exploitability_ease"`
}

// NessusParser imports .nessus XML scan exports. Severity 0 (informational)
// items are skipped; CVSSv3 scores take precedence over CVSSv2.
type NessusParser struct{}

func (p *NessusParser) Name() string { return "nessus_parser" }

func (p *NessusParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}

	raw = strings.TrimPrefix(strings.TrimSpace(raw), "\ufeff")
	if raw == "" {
		return out, nil
	}

	var report nessusReport
	if err := xml.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("nessus xml parse error: %w", err)
	}

	seenHosts := make(map[string]bool)
	for i := range report.Hosts {
		p.processHost(&report.Hosts[i], out, seenHosts)
	}
	return out, nil
}

func (p *NessusParser) processHost(host *nessusHost, out *ParseOutput, seenHosts map[string]bool) {
	if host.Name == "" || seenHosts[host.Name] {
		return
	}
	seenHosts[host.Name] = true

	props := make(map[string]string)
	for _, tag := range host.Properties {
		props[tag.Name] = strings.TrimSpace(tag.Value)
	}

	hostIP := props["host-ip"]
	if hostIP == "" {
		hostIP = host.Name
	}

	assetType := models.AssetTypeDomain
	if ipv4Pattern.MatchString(hostIP) || isIPv6Like(hostIP) {
		assetType = models.AssetTypeHost
	}

	out.Assets = append(out.Assets, ParsedAsset{
		Type:      assetType,
		Value:     hostIP,
		IPAddress: hostIP,
		Hostname:  props["host-fqdn"],
		Tags:      []string{"nessus", "imported"},
		Metadata: map[string]interface{}{
			"fqdn":         props["host-fqdn"],
			"os":           props["operating-system"],
			"mac_address":  props["mac-address"],
			"netbios_name": props["netbios-name"],
			"system_type":  props["system-type"],
		},
	})

	for i := range host.Items {
		p.processItem(&host.Items[i], hostIP, out)
	}
}

func (p *NessusParser) processItem(item *nessusItem, host string, out *ParseOutput) {
	if item.Severity == "0" {
		return
	}

	severity, ok := nessusSeverityMap[item.Severity]
	if !ok {
		severity = models.SeverityInfo
	}

	var cvssScore *float64
	if score := parseNessusFloat(item.CVSS3BaseScore); score != nil {
		cvssScore = score
	} else {
		cvssScore = parseNessusFloat(item.CVSSBaseScore)
	}

	var cweIDs []string
	if cwe := strings.TrimSpace(item.CWE); cwe != "" {
		if !strings.HasPrefix(cwe, "CWE-") {
			cwe = "CWE-" + cwe
		}
		cweIDs = []string{cwe}
	}

	var references []string
	for _, ref := range strings.Split(item.SeeAlso, "\n") {
		if ref = strings.TrimSpace(ref); ref != "" {
			references = append(references, ref)
		}
	}

	var cveIDs []string
	for _, cve := range item.CVEs {
		if cve = strings.TrimSpace(cve); cve != "" {
			cveIDs = append(cveIDs, cve)
		}
	}

	title := item.PluginName
	if title == "" {
		title = "Nessus Plugin " + item.PluginID
	}

	description := strings.TrimSpace(item.Description)
	if description == "" {
		description = strings.TrimSpace(item.Synopsis)
	}

	port, _ := strconv.Atoi(item.Port)

	out.Vulnerabilities = append(out.Vulnerabilities, ParsedVulnerability{
		Title:       title,
		Severity:    severity,
		Description: description,
		CVSSScore:   cvssScore,
		CVEIDs:      cveIDs,
		CWEIDs:      cweIDs,
		Evidence:    truncate(strings.TrimSpace(item.PluginOutput), 5000),
		Remediation: strings.TrimSpace(item.Solution),
		References:  references,
		TemplateID:  "nessus-" + item.PluginID,
		AssetValue:  host,
		Port:        port,
		Protocol:    item.Protocol,
		Tags:        []string{"nessus", "imported"},
		Metadata: map[string]interface{}{
			"plugin_id":           item.PluginID,
			"port":                item.Port,
			"protocol":            item.Protocol,
			"service":             item.SvcName,
			"synopsis":            strings.TrimSpace(item.Synopsis),
			"risk_factor":         item.RiskFactor,
			"exploit_available":   item.ExploitAvailable,
			"exploitability_ease": item.ExploitabilityEase,
		},
	})
}

func parseNessusFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func isIPv6Like(s string) bool {
	if !strings.Contains(s, ":") {
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF:", r) {
			return false
		}
	}
	return true
}
