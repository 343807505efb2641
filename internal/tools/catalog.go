package tools

import "github.com/ternarybob/venator/internal/models"

// catalog returns the built-in tool definitions. Command templates use {name}
// placeholders filled from job parameters at render time.
func catalog() []*models.ToolDefinition {
	return []*models.ToolDefinition{
		{
			Slug:            "nmap",
			Name:            "Nmap",
			Description:     "Network exploration and port scanner",
			Category:        models.CategoryReconnaissance,
			CommandTemplate: "nmap {target} {ports} {scan_type} {scripts} {timing} -oX -",
			Parameters: []models.ToolParameter{
				{Name: "target", Label: "Target", Type: models.ParamTypeTarget, Required: true},
				{Name: "ports", Label: "Ports", Type: models.ParamTypePort, Description: "e.g. -p 1-1000 or -p-", Default: "-p 1-1000"},
				{Name: "scan_type", Label: "Scan type", Type: models.ParamTypeSelect, Default: "-sV"},
				{Name: "scripts", Label: "NSE scripts", Type: models.ParamTypeString, Default: ""},
				{Name: "timing", Label: "Timing template", Type: models.ParamTypeSelect, Default: "-T4"},
			},
			Output:         models.ToolOutput{Format: "xml", Parser: "nmap_parser", CreatesAssets: true, CreatesVulnerabilites: true},
			DefaultTimeout: 3600,
			Tags:           []string{"scanner", "ports", "services"},
		},
		{
			Slug:            "masscan",
			Name:            "Masscan",
			Description:     "Mass IP port scanner",
			Category:        models.CategoryReconnaissance,
			CommandTemplate: "masscan {target} {ports} --rate {rate} -oJ -",
			Parameters: []models.ToolParameter{
				{Name: "target", Type: models.ParamTypeTarget, Required: true},
				{Name: "ports", Type: models.ParamTypePort, Default: "-p 1-65535"},
				{Name: "rate", Type: models.ParamTypeInteger, Default: 1000},
			},
			Output:         models.ToolOutput{Format: "json", Parser: "masscan_parser", CreatesAssets: true},
			DefaultTimeout: 3600,
			RequiresRoot:   true,
			Tags:           []string{"scanner", "ports"},
		},
		{
			Slug:            "subfinder",
			Name:            "Subfinder",
			Description:     "Passive subdomain discovery",
			Category:        models.CategoryReconnaissance,
			CommandTemplate: "subfinder -d {domain} -silent {options}",
			Parameters: []models.ToolParameter{
				{Name: "domain", Type: models.ParamTypeTarget, Required: true},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "text", Parser: "subfinder_parser", CreatesAssets: true},
			DefaultTimeout: 1800,
			Tags:           []string{"subdomains", "passive"},
		},
		{
			Slug:            "amass",
			Name:            "Amass",
			Description:     "In-depth attack surface mapping",
			Category:        models.CategoryReconnaissance,
			CommandTemplate: "amass enum -d {domain} {options}",
			Parameters: []models.ToolParameter{
				{Name: "domain", Type: models.ParamTypeTarget, Required: true},
				{Name: "options", Type: models.ParamTypeString, Default: "-passive"},
			},
			Output:         models.ToolOutput{Format: "text", Parser: "amass_parser", CreatesAssets: true},
			DefaultTimeout: 7200,
			Tags:           []string{"subdomains", "osint"},
		},
		{
			Slug:            "httpx",
			Name:            "httpx",
			Description:     "Fast HTTP probe and technology detector",
			Category:        models.CategoryReconnaissance,
			CommandTemplate: "httpx -u {target} -json -title -tech-detect -status-code {options}",
			Parameters: []models.ToolParameter{
				{Name: "target", Type: models.ParamTypeTarget, Required: true},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "json", Parser: "httpx_parser", CreatesAssets: true},
			DefaultTimeout: 1800,
			Tags:           []string{"http", "probing"},
		},
		{
			Slug:            "nuclei",
			Name:            "Nuclei",
			Description:     "Template-based vulnerability scanner",
			Category:        models.CategoryVulnScanning,
			CommandTemplate: "nuclei -u {target} -jsonl {templates} {severity} {options}",
			Parameters: []models.ToolParameter{
				{Name: "target", Type: models.ParamTypeTarget, Required: true},
				{Name: "templates", Type: models.ParamTypeString, Default: ""},
				{Name: "severity", Type: models.ParamTypeSelect, Default: ""},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "json", Parser: "nuclei_parser", CreatesVulnerabilites: true},
			DefaultTimeout: 7200,
			Tags:           []string{"scanner", "templates", "cve"},
		},
		{
			Slug:            "nikto",
			Name:            "Nikto",
			Description:     "Web server scanner",
			Category:        models.CategoryWebApplication,
			CommandTemplate: "nikto -h {target} {options}",
			Parameters: []models.ToolParameter{
				{Name: "target", Type: models.ParamTypeTarget, Required: true},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "text", Parser: "nikto_parser", CreatesVulnerabilites: true},
			DefaultTimeout: 3600,
			Tags:           []string{"web", "scanner"},
		},
		{
			Slug:            "gobuster",
			Name:            "Gobuster",
			Description:     "Directory and DNS brute-forcer",
			Category:        models.CategoryWebApplication,
			CommandTemplate: "gobuster {mode} -u {target} -w {wordlist} {options}",
			Parameters: []models.ToolParameter{
				{Name: "mode", Type: models.ParamTypeSelect, Default: "dir"},
				{Name: "target", Type: models.ParamTypeTarget, Required: true},
				{Name: "wordlist", Type: models.ParamTypeWordlist, Required: true},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "text", Parser: "gobuster_parser", CreatesAssets: true},
			DefaultTimeout: 3600,
			Tags:           []string{"web", "bruteforce", "directories"},
		},
		{
			Slug:            "ffuf",
			Name:            "ffuf",
			Description:     "Fast web fuzzer",
			Category:        models.CategoryWebApplication,
			CommandTemplate: "ffuf -u {target} -w {wordlist} -of json -o - {options}",
			Parameters: []models.ToolParameter{
				{Name: "target", Type: models.ParamTypeTarget, Description: "URL containing the FUZZ keyword", Required: true},
				{Name: "wordlist", Type: models.ParamTypeWordlist, Required: true},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "json", Parser: "ffuf_parser", CreatesAssets: true},
			DefaultTimeout: 3600,
			Tags:           []string{"web", "fuzzing"},
		},
		{
			Slug:            "whatweb",
			Name:            "WhatWeb",
			Description:     "Web technology fingerprinter",
			Category:        models.CategoryWebApplication,
			CommandTemplate: "whatweb {target} --log-json=- {options}",
			Parameters: []models.ToolParameter{
				{Name: "target", Type: models.ParamTypeTarget, Required: true},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "json", CreatesAssets: true},
			DefaultTimeout: 1800,
			Tags:           []string{"web", "fingerprinting"},
		},
		{
			Slug:            "sqlmap",
			Name:            "sqlmap",
			Description:     "Automatic SQL injection detection and exploitation",
			Category:        models.CategoryWebApplication,
			CommandTemplate: "sqlmap -u {target} --batch {options}",
			Parameters: []models.ToolParameter{
				{Name: "target", Type: models.ParamTypeTarget, Required: true},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "text", Parser: "sqlmap_parser", CreatesVulnerabilites: true, CreatesCredentials: true},
			DefaultTimeout: 7200,
			Tags:           []string{"web", "sqli"},
		},
		{
			Slug:            "wpscan",
			Name:            "WPScan",
			Description:     "WordPress vulnerability scanner",
			Category:        models.CategoryWebApplication,
			CommandTemplate: "wpscan --url {target} --format json {options}",
			Parameters: []models.ToolParameter{
				{Name: "target", Type: models.ParamTypeTarget, Required: true},
				{Name: "options", Type: models.ParamTypeString, Default: "--enumerate vp,vt,u"},
			},
			Output:         models.ToolOutput{Format: "json", Parser: "wpscan_parser", CreatesAssets: true, CreatesVulnerabilites: true, CreatesCredentials: true},
			DefaultTimeout: 3600,
			Tags:           []string{"web", "wordpress"},
		},
		{
			Slug:            "hydra",
			Name:            "Hydra",
			Description:     "Network login brute-forcer",
			Category:        models.CategoryPasswordAttack,
			CommandTemplate: "hydra {target} {service} -L {userlist} -P {passlist} {options}",
			Parameters: []models.ToolParameter{
				{Name: "target", Type: models.ParamTypeTarget, Required: true},
				{Name: "service", Type: models.ParamTypeSelect, Description: "e.g. ssh, ftp, http-post-form", Required: true},
				{Name: "userlist", Type: models.ParamTypeWordlist, Required: true},
				{Name: "passlist", Type: models.ParamTypeWordlist, Required: true},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "text", Parser: "hydra_parser", CreatesCredentials: true},
			DefaultTimeout: 7200,
			Tags:           []string{"bruteforce", "credentials"},
		},
		{
			Slug:            "john",
			Name:            "John the Ripper",
			Description:     "Offline password hash cracker",
			Category:        models.CategoryPasswordAttack,
			CommandTemplate: "john {hashfile} {wordlist} {format} --show",
			Parameters: []models.ToolParameter{
				{Name: "hashfile", Type: models.ParamTypeFile, Required: true},
				{Name: "wordlist", Type: models.ParamTypeWordlist, Default: ""},
				{Name: "format", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "text", Parser: "john_parser", CreatesCredentials: true},
			DefaultTimeout: 86400,
			Tags:           []string{"cracking", "hashes"},
		},
		{
			Slug:            "hashcat",
			Name:            "Hashcat",
			Description:     "GPU-accelerated password recovery",
			Category:        models.CategoryPasswordAttack,
			CommandTemplate: "hashcat -m {mode} {hashfile} {wordlist} {options} --potfile-disable --outfile-format 2",
			Parameters: []models.ToolParameter{
				{Name: "mode", Type: models.ParamTypeInteger, Description: "Hash mode, e.g. 0=MD5, 1000=NTLM", Required: true},
				{Name: "hashfile", Type: models.ParamTypeFile, Required: true},
				{Name: "wordlist", Type: models.ParamTypeWordlist, Default: ""},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "text", Parser: "hashcat_parser", CreatesCredentials: true},
			DefaultTimeout: 86400,
			Tags:           []string{"cracking", "hashes", "gpu"},
		},
		{
			Slug:            "dig",
			Name:            "dig",
			Description:     "DNS lookup utility",
			Category:        models.CategoryReconnaissance,
			CommandTemplate: "dig {record_type} {domain} {options} +noall +answer",
			Parameters: []models.ToolParameter{
				{Name: "domain", Type: models.ParamTypeTarget, Required: true},
				{Name: "record_type", Type: models.ParamTypeSelect, Default: "ANY"},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "text", CreatesAssets: true},
			DefaultTimeout: 300,
			Tags:           []string{"dns"},
		},
		{
			Slug:            "whois",
			Name:            "whois",
			Description:     "Domain registration lookup",
			Category:        models.CategoryReconnaissance,
			CommandTemplate: "whois {domain}",
			Parameters: []models.ToolParameter{
				{Name: "domain", Type: models.ParamTypeTarget, Required: true},
			},
			Output:         models.ToolOutput{Format: "text"},
			DefaultTimeout: 300,
			Tags:           []string{"osint"},
		},
		{
			Slug:            "sslscan",
			Name:            "SSLScan",
			Description:     "SSL/TLS configuration scanner",
			Category:        models.CategoryVulnScanning,
			CommandTemplate: "sslscan {target} {options}",
			Parameters: []models.ToolParameter{
				{Name: "target", Type: models.ParamTypeTarget, Required: true},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "text"},
			DefaultTimeout: 1800,
			Tags:           []string{"tls", "crypto"},
		},
		{
			Slug:            "searchsploit",
			Name:            "SearchSploit",
			Description:     "Exploit-DB offline search",
			Category:        models.CategoryExploitation,
			CommandTemplate: "searchsploit {query} --json",
			Parameters: []models.ToolParameter{
				{Name: "query", Type: models.ParamTypeString, Required: true},
			},
			Output:         models.ToolOutput{Format: "json"},
			DefaultTimeout: 300,
			Tags:           []string{"exploits", "research"},
		},
		{
			Slug:            "theharvester",
			Name:            "theHarvester",
			Description:     "Email, subdomain and name harvester",
			Category:        models.CategoryReconnaissance,
			CommandTemplate: "theHarvester -d {domain} -b {sources} {options}",
			Parameters: []models.ToolParameter{
				{Name: "domain", Type: models.ParamTypeTarget, Required: true},
				{Name: "sources", Type: models.ParamTypeString, Default: "all"},
				{Name: "options", Type: models.ParamTypeString, Default: ""},
			},
			Output:         models.ToolOutput{Format: "text", CreatesAssets: true},
			DefaultTimeout: 1800,
			Tags:           []string{"osint", "emails"},
		},
	}
}
