package parsers

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

// vulnScripts are NSE script IDs whose output indicates a vulnerability
var vulnScripts = []string{
	"vulners",
	"vulscan",
	"http-vuln",
	"smb-vuln",
	"ssl-heartbleed",
	"ssl-poodle",
	"ssl-drown",
	"ssl-ccs-injection",
	"sslv2-drown",
	"ms-sql-empty-password",
	"mysql-empty-password",
	"ftp-anon",
	"http-shellshock",
	"smb-double-pulsar-backdoor",
	"smtp-vuln",
}

var smbCVEPattern = regexp.MustCompile(`cve[_-]?(\d{4})[_-]?(\d+)`)

type nmapRun struct {
	Hosts []nmapHost `xml:"host"`
}

type nmapHost struct {
	Status    nmapStatus     `xml:"status"`
	Addresses []nmapAddress  `xml:"address"`
	Hostnames []nmapHostname `xml:"hostnames>hostname"`
	Ports     []nmapPort     `xml:"ports>port"`
	OSMatches []nmapOSMatch  `xml:"os>osmatch"`
}

type nmapStatus struct {
	State string `xml:"state,attr"`
}

type nmapAddress struct {
	Addr     string `xml:"addr,attr"`
	AddrType string `xml:"addrtype,attr"`
}

type nmapHostname struct {
	Name string `xml:"name,attr"`
}

type nmapOSMatch struct {
	Name     string `xml:"name,attr"`
	Accuracy string `xml:"accuracy,attr"`
}

type nmapPort struct {
	Protocol string       `xml:"protocol,attr"`
	PortID   int          `xml:"portid,attr"`
	State    nmapState    `xml:"state"`
	Service  *nmapService `xml:"service"`
	Scripts  []nmapScript `xml:"script"`
}

type nmapState struct {
	State string `xml:"state,attr"`
}

type nmapService struct {
	Name      string `xml:"name,attr"`
	Product   string `xml:"product,attr"`
	Version   string `xml:"version,attr"`
	ExtraInfo string `xml:"extrainfo,attr"`
}

type nmapScript struct {
	ID     string `xml:"id,attr"`
	Output string `xml:"output,attr"`
}

// NmapParser parses Nmap XML output into hosts, services and script findings
type NmapParser struct{}

func (p *NmapParser) Name() string { return "nmap_parser" }

func (p *NmapParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return out, nil
	}

	var run nmapRun
	if err := xml.Unmarshal([]byte(raw), &run); err != nil {
		return nil, fmt.Errorf("nmap xml parse error: %w", err)
	}

	for i := range run.Hosts {
		p.processHost(&run.Hosts[i], out)
	}
	return out, nil
}

func (p *NmapParser) processHost(host *nmapHost, out *ParseOutput) {
	if host.Status.State != "" && host.Status.State != "up" {
		return
	}

	var ipAddr string
	for _, addr := range host.Addresses {
		if addr.AddrType == "ipv4" || addr.AddrType == "ipv6" {
			ipAddr = addr.Addr
		}
	}
	if ipAddr == "" {
		return
	}

	var hostnames []string
	for _, h := range host.Hostnames {
		if h.Name != "" {
			hostnames = append(hostnames, h.Name)
		}
	}

	metadata := map[string]interface{}{
		"ip":        ipAddr,
		"hostnames": hostnames,
	}
	if len(host.OSMatches) > 0 {
		metadata["os"] = host.OSMatches[0].Name
		metadata["os_accuracy"] = host.OSMatches[0].Accuracy
	}

	out.Assets = append(out.Assets, ParsedAsset{
		Type:      models.AssetTypeHost,
		Value:     ipAddr,
		IPAddress: ipAddr,
		Tags:      []string{"nmap"},
		Metadata:  metadata,
	})

	for _, hostname := range hostnames {
		out.Assets = append(out.Assets, ParsedAsset{
			Type:       models.AssetTypeDomain,
			Value:      hostname,
			Hostname:   hostname,
			IPAddress:  ipAddr,
			Tags:       []string{"nmap"},
			Metadata:   map[string]interface{}{"ip": ipAddr},
			ParentHint: ipAddr,
		})
	}

	for i := range host.Ports {
		p.processPort(&host.Ports[i], ipAddr, out)
	}
}

func (p *NmapParser) processPort(port *nmapPort, ipAddr string, out *ParseOutput) {
	if port.State.State != "open" {
		return
	}

	protocol := port.Protocol
	if protocol == "" {
		protocol = "tcp"
	}

	var serviceName, product, version, extraInfo string
	if port.Service != nil {
		serviceName = port.Service.Name
		product = port.Service.Product
		version = port.Service.Version
		extraInfo = port.Service.ExtraInfo
	}

	serviceValue := fmt.Sprintf("%s:%d/%s", ipAddr, port.PortID, protocol)
	tags := []string{"nmap"}
	if serviceName != "" {
		tags = append(tags, serviceName)
	}

	out.Assets = append(out.Assets, ParsedAsset{
		Type:     models.AssetTypeService,
		Value:    serviceValue,
		IPAddress: ipAddr,
		Port:     port.PortID,
		Protocol: protocol,
		Service:  serviceName,
		Version:  version,
		Tags:     tags,
		Metadata: map[string]interface{}{
			"ip":         ipAddr,
			"port":       port.PortID,
			"protocol":   protocol,
			"state":      "open",
			"service":    serviceName,
			"product":    product,
			"version":    version,
			"extra_info": extraInfo,
		},
		ParentHint: ipAddr,
	})

	out.Results = append(out.Results, ParsedResult{
		Type:       models.ResultTypePort,
		AssetValue: ipAddr,
		ParsedData: map[string]interface{}{
			"port":     port.PortID,
			"protocol": protocol,
			"state":    "open",
			"service":  serviceName,
			"product":  product,
			"version":  version,
		},
	})

	if serviceName != "" {
		out.Results = append(out.Results, ParsedResult{
			Type:       models.ResultTypeService,
			AssetValue: ipAddr,
			ParsedData: map[string]interface{}{
				"name":     serviceName,
				"product":  product,
				"version":  version,
				"port":     port.PortID,
				"protocol": protocol,
			},
		})
	}

	for _, script := range port.Scripts {
		p.processScript(script, ipAddr, port.PortID, protocol, out)
	}
}

func (p *NmapParser) processScript(script nmapScript, ipAddr string, port int, protocol string, out *ParseOutput) {
	scriptID := strings.ToLower(script.ID)

	isVulnScript := false
	for _, pattern := range vulnScripts {
		if strings.Contains(scriptID, pattern) {
			isVulnScript = true
			break
		}
	}

	if !isVulnScript {
		out.Results = append(out.Results, ParsedResult{
			Type:       models.ResultTypeRaw,
			AssetValue: ipAddr,
			RawData:    script.Output,
			ParsedData: map[string]interface{}{
				"script_id": script.ID,
				"output":    script.Output,
				"port":      port,
				"protocol":  protocol,
			},
		})
		return
	}

	vulns := p.parseVulnScript(script.ID, script.Output)
	for i := range vulns {
		vulns[i].AssetValue = ipAddr
		vulns[i].Port = port
		vulns[i].Protocol = protocol
		out.Vulnerabilities = append(out.Vulnerabilities, vulns[i])
	}
}

func (p *NmapParser) parseVulnScript(scriptID, output string) []ParsedVulnerability {
	lower := strings.ToLower(scriptID)

	switch {
	case strings.Contains(lower, "vulners"):
		return parseVulnersOutput(output)
	case strings.Contains(lower, "smb-vuln"):
		if v := parseSMBVuln(scriptID, output); v != nil {
			return []ParsedVulnerability{*v}
		}
	case strings.HasPrefix(lower, "ssl-") || strings.HasPrefix(lower, "sslv2-"):
		if v := parseSSLVuln(scriptID, output); v != nil {
			return []ParsedVulnerability{*v}
		}
	case strings.Contains(lower, "http-vuln"):
		if v := parseHTTPVuln(scriptID, output); v != nil {
			return []ParsedVulnerability{*v}
		}
	default:
		if strings.Contains(strings.ToUpper(output), "VULNERABLE") {
			return []ParsedVulnerability{{
				Title:       "Nmap " + scriptID,
				Severity:    models.SeverityMedium,
				Description: "Vulnerability detected by Nmap script: " + scriptID,
				Evidence:    truncate(output, 2000),
				TemplateID:  "nmap:" + scriptID,
				Tags:        []string{"nmap", scriptID},
				Metadata:    map[string]interface{}{"script_id": scriptID},
			}}
		}
	}
	return nil
}

func parseVulnersOutput(output string) []ParsedVulnerability {
	var vulns []ParsedVulnerability

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(strings.ToUpper(line), "CVE-") {
			continue
		}

		parts := strings.Fields(line)
		for _, part := range parts {
			upper := strings.ToUpper(part)
			if !strings.HasPrefix(upper, "CVE-") {
				continue
			}
			cveID := strings.TrimRight(upper, ":")

			var cvss *float64
			for _, p := range parts {
				if score, err := strconv.ParseFloat(p, 64); err == nil && score >= 0 && score <= 10 {
					cvss = &score
					break
				}
			}

			severity := models.SeverityMedium
			if cvss != nil {
				severity = models.SeverityFromCVSS(*cvss)
			}

			vulns = append(vulns, ParsedVulnerability{
				Title:       cveID,
				Severity:    severity,
				Description: line,
				CVSSScore:   cvss,
				CVEIDs:      []string{cveID},
				TemplateID:  "nmap:vulners:" + cveID,
				References:  []string{"https://nvd.nist.gov/vuln/detail/" + cveID},
				Tags:        []string{"nmap", "vulners", cveID},
				Metadata:    map[string]interface{}{"raw_line": line},
			})
			break
		}
	}
	return vulns
}

func parseSMBVuln(scriptID, output string) *ParsedVulnerability {
	if strings.Contains(strings.ToUpper(output), "NOT VULNERABLE") {
		return nil
	}

	var cveIDs []string
	if m := smbCVEPattern.FindStringSubmatch(strings.ToLower(scriptID)); m != nil {
		cveIDs = append(cveIDs, fmt.Sprintf("CVE-%s-%s", m[1], m[2]))
	}

	severity := models.SeverityHigh
	if strings.Contains(strings.ToLower(scriptID), "ms17-010") {
		severity = models.SeverityCritical
		cveIDs = []string{"CVE-2017-0143", "CVE-2017-0144", "CVE-2017-0145"}
	}

	return &ParsedVulnerability{
		Title:       "SMB Vulnerability: " + scriptID,
		Severity:    severity,
		Description: "SMB vulnerability detected: " + scriptID,
		Evidence:    truncate(output, 2000),
		CVEIDs:      cveIDs,
		TemplateID:  "nmap:" + scriptID,
		Tags:        []string{"nmap", "smb", scriptID},
		Metadata:    map[string]interface{}{"script_id": scriptID},
	}
}

func parseSSLVuln(scriptID, output string) *ParsedVulnerability {
	if strings.Contains(strings.ToUpper(output), "NOT VULNERABLE") {
		return nil
	}

	type sslInfo struct {
		title    string
		severity models.Severity
		cveIDs   []string
	}
	known := map[string]sslInfo{
		"ssl-heartbleed":    {"OpenSSL Heartbleed Vulnerability", models.SeverityCritical, []string{"CVE-2014-0160"}},
		"ssl-poodle":        {"SSL POODLE Vulnerability", models.SeverityMedium, []string{"CVE-2014-3566"}},
		"ssl-drown":         {"DROWN Attack Vulnerability", models.SeverityHigh, []string{"CVE-2016-0800"}},
		"ssl-ccs-injection": {"OpenSSL CCS Injection Vulnerability", models.SeverityMedium, []string{"CVE-2014-0224"}},
	}

	info, ok := known[strings.ToLower(scriptID)]
	if !ok {
		info = sslInfo{"SSL/TLS Vulnerability: " + scriptID, models.SeverityMedium, nil}
	}

	return &ParsedVulnerability{
		Title:       info.title,
		Severity:    info.severity,
		Description: "SSL/TLS vulnerability detected by Nmap",
		Evidence:    truncate(output, 2000),
		CVEIDs:      info.cveIDs,
		TemplateID:  "nmap:" + scriptID,
		Tags:        []string{"nmap", "ssl", "tls", scriptID},
		Metadata:    map[string]interface{}{"script_id": scriptID},
	}
}

func parseHTTPVuln(scriptID, output string) *ParsedVulnerability {
	if strings.Contains(strings.ToUpper(output), "NOT VULNERABLE") {
		return nil
	}

	return &ParsedVulnerability{
		Title:       "HTTP Vulnerability: " + scriptID,
		Severity:    models.SeverityHigh,
		Description: "HTTP vulnerability detected: " + scriptID,
		Evidence:    truncate(output, 2000),
		TemplateID:  "nmap:" + scriptID,
		Tags:        []string{"nmap", "http", scriptID},
		Metadata:    map[string]interface{}{"script_id": scriptID},
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
