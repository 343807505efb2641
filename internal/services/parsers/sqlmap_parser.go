package parsers

import (
	"regexp"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

var (
	sqlmapParamPattern     = regexp.MustCompile(`(?i)Parameter:\s*(\S+)\s*\((\w+)\)`)
	sqlmapTypePattern      = regexp.MustCompile(`(?i)Type:\s*(.+)`)
	sqlmapPayloadPattern   = regexp.MustCompile(`(?i)Payload:\s*(.+)`)
	sqlmapDBMSPattern      = regexp.MustCompile(`(?i)\[INFO\]\s*the back-end DBMS is\s+(\S+)`)
	sqlmapTechPattern      = regexp.MustCompile(`(?i)web application technology:\s*(.+)`)
	sqlmapDBListPattern    = regexp.MustCompile(`(?i)available databases \[(\d+)\]:`)
	sqlmapDBNamePattern    = regexp.MustCompile(`(?m)^\[\*\]\s+(\S+)`)
	sqlmapDumpDBPattern    = regexp.MustCompile(`(?i)Database:\s*(\S+)`)
	sqlmapDumpTablePattern = regexp.MustCompile(`(?i)Table:\s*(\S+)`)
)

var sqlmapCredUserColumns = []string{"username", "user", "login", "email"}
var sqlmapCredPassColumns = []string{"password", "passwd", "pass", "hash", "pwd"}

// SQLMapParser parses sqlmap text output: injection points, DBMS and
// technology fingerprints, enumerated databases and credential dumps
type SQLMapParser struct{}

func (p *SQLMapParser) Name() string { return "sqlmap_parser" }

func (p *SQLMapParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}

	target := stringField(params, "target")
	if target == "" {
		target = stringField(params, "url")
	}
	if target == "" {
		target = "unknown"
	}

	seen := make(map[string]bool)
	p.parseInjections(raw, target, out, seen)
	p.parseDBMSInfo(raw, target, out)
	p.parseTechInfo(raw, target, out)
	p.parseDatabases(raw, target, out)
	p.parseDumps(raw, target, out)

	return out, nil
}

func (p *SQLMapParser) parseInjections(raw, target string, out *ParseOutput, seen map[string]bool) {
	sections := strings.Split(raw, "---\n")

	var currentParam, currentMethod string
	for _, section := range sections {
		if m := sqlmapParamPattern.FindStringSubmatch(section); m != nil {
			currentParam = m[1]
			currentMethod = m[2]
		}

		typeMatches := sqlmapTypePattern.FindAllStringSubmatch(section, -1)
		payloadMatches := sqlmapPayloadPattern.FindAllStringSubmatch(section, -1)

		for i, tm := range typeMatches {
			injType := strings.TrimSpace(tm[1])
			if injType == "" || currentParam == "" {
				continue
			}

			key := currentParam + ":" + currentMethod + ":" + injType
			if seen[key] {
				continue
			}
			seen[key] = true

			payload := ""
			if i < len(payloadMatches) {
				payload = strings.TrimSpace(payloadMatches[i][1])
			}

			evidence := "Parameter: " + currentParam + "\nMethod: " + currentMethod + "\nType: " + injType
			if payload != "" {
				evidence += "\nPayload: " + payload
			}

			out.Vulnerabilities = append(out.Vulnerabilities, ParsedVulnerability{
				Title:    "SQL Injection - " + currentParam + " (" + injType + ")",
				Severity: sqlmapSeverity(injType),
				Description: "SQL injection vulnerability found in parameter '" + currentParam +
					"' via " + currentMethod + " request. Injection type: " + injType + ".",
				CWEIDs:    []string{"CWE-89"},
				Evidence:  evidence,
				Parameter: currentParam,
				Remediation: "Use parameterized queries or prepared statements. " +
					"Implement proper input validation and sanitization. " +
					"Apply principle of least privilege to database accounts.",
				References: []string{
					"https://owasp.org/www-community/attacks/SQL_Injection",
					"https://cheatsheetseries.owasp.org/cheatsheets/SQL_Injection_Prevention_Cheat_Sheet.html",
				},
				TemplateID: "sqlmap:" + currentParam + ":" + injType,
				URL:        target,
				AssetValue: target,
				Tags:       []string{"sqlmap", "sql-injection", strings.ReplaceAll(strings.ToLower(injType), " ", "-")},
				Metadata: map[string]interface{}{
					"parameter":      currentParam,
					"method":         currentMethod,
					"injection_type": injType,
					"payload":        payload,
				},
			})
		}
	}
}

func sqlmapSeverity(injectionType string) models.Severity {
	lower := strings.ToLower(injectionType)
	if strings.Contains(lower, "stacked") || strings.Contains(lower, "union") {
		return models.SeverityCritical
	}
	// Any confirmed SQL injection is at least high
	return models.SeverityHigh
}

func (p *SQLMapParser) parseDBMSInfo(raw, target string, out *ParseOutput) {
	m := sqlmapDBMSPattern.FindStringSubmatch(raw)
	if m == nil {
		return
	}
	dbms := strings.TrimSpace(m[1])

	out.Assets = append(out.Assets, ParsedAsset{
		Type:       models.AssetTypeService,
		Value:      target + ":database:" + dbms,
		Service:    dbms,
		Tags:       []string{"sqlmap", "database", strings.ToLower(dbms)},
		Metadata:   map[string]interface{}{"dbms": dbms, "source": "sqlmap"},
		ParentHint: target,
	})

	out.Results = append(out.Results, ParsedResult{
		Type:       models.ResultTypeService,
		Severity:   models.SeverityInfo,
		RawData:    m[0],
		AssetValue: target,
		ParsedData: map[string]interface{}{"dbms": dbms, "target": target},
	})
}

func (p *SQLMapParser) parseTechInfo(raw, target string, out *ParseOutput) {
	m := sqlmapTechPattern.FindStringSubmatch(raw)
	if m == nil {
		return
	}
	for _, tech := range strings.Split(strings.TrimSpace(m[1]), ",") {
		tech = strings.TrimSpace(tech)
		if tech == "" {
			continue
		}
		out.Assets = append(out.Assets, ParsedAsset{
			Type:       models.AssetTypeTechnology,
			Value:      tech,
			Tags:       []string{"sqlmap", "technology"},
			Metadata:   map[string]interface{}{"target": target, "source": "sqlmap"},
			ParentHint: target,
		})
	}
}

func (p *SQLMapParser) parseDatabases(raw, target string, out *ParseOutput) {
	loc := sqlmapDBListPattern.FindStringIndex(raw)
	if loc == nil {
		return
	}

	end := loc[1] + 2000
	if end > len(raw) {
		end = len(raw)
	}
	for _, m := range sqlmapDBNamePattern.FindAllStringSubmatch(raw[loc[1]:end], -1) {
		if m[1] == "" {
			continue
		}
		out.Results = append(out.Results, ParsedResult{
			Type:       models.ResultTypeRaw,
			Severity:   models.SeverityInfo,
			RawData:    "Database: " + m[1],
			AssetValue: target,
			ParsedData: map[string]interface{}{"database_name": m[1], "target": target},
		})
	}
}

func (p *SQLMapParser) parseDumps(raw, target string, out *ParseOutput) {
	for _, dbLoc := range sqlmapDumpDBPattern.FindAllStringSubmatchIndex(raw, -1) {
		dbName := raw[dbLoc[2]:dbLoc[3]]

		window := raw[dbLoc[0]:]
		if len(window) > 500 {
			window = window[:500]
		}
		tableLoc := sqlmapDumpTablePattern.FindStringSubmatchIndex(window)
		if tableLoc == nil {
			continue
		}
		tableName := window[tableLoc[2]:tableLoc[3]]

		tableStart := dbLoc[0] + tableLoc[1]
		sectionEnd := strings.Index(raw[tableStart:], "\n\n")
		if sectionEnd == -1 {
			sectionEnd = 5000
		}
		if tableStart+sectionEnd > len(raw) {
			sectionEnd = len(raw) - tableStart
		}

		p.extractCredentialsFromTable(raw[tableStart:tableStart+sectionEnd], dbName, tableName, target, out)
	}
}

func (p *SQLMapParser) extractCredentialsFromTable(tableText, dbName, tableName, target string, out *ParseOutput) {
	lines := strings.Split(tableText, "\n")

	headerIdx := -1
	var columns []string
	for i, line := range lines {
		if !strings.Contains(line, "|") || strings.HasPrefix(line, "+") {
			continue
		}
		parts := splitTableRow(line)
		if len(parts) == 0 {
			continue
		}
		for _, part := range parts {
			if containsString(sqlmapCredUserColumns, strings.ToLower(part)) ||
				containsString(sqlmapCredPassColumns, strings.ToLower(part)) {
				columns = parts
				headerIdx = i
				break
			}
		}
		if headerIdx >= 0 {
			break
		}
	}
	if headerIdx < 0 {
		return
	}

	userIdx, passIdx := -1, -1
	for idx, col := range columns {
		lower := strings.ToLower(col)
		if userIdx < 0 && containsString(sqlmapCredUserColumns, lower) {
			userIdx = idx
		}
		if passIdx < 0 && containsString(sqlmapCredPassColumns, lower) {
			passIdx = idx
		}
	}
	if userIdx < 0 && passIdx < 0 {
		return
	}

	seen := make(map[string]bool)
	for _, line := range lines[headerIdx+1:] {
		if !strings.Contains(line, "|") || strings.HasPrefix(line, "+") {
			continue
		}
		parts := splitTableRow(line)

		var username, password string
		if userIdx >= 0 && userIdx < len(parts) {
			username = parts[userIdx]
		}
		if passIdx >= 0 && passIdx < len(parts) {
			password = parts[passIdx]
		}
		if username == "" && password == "" {
			continue
		}

		key := username + ":" + password
		if seen[key] {
			continue
		}
		seen[key] = true

		isHash := isDumpHash(password)

		cred := ParsedCredential{
			Type:     models.CredentialTypePassword,
			Username: username,
			Service:  "database",
			URL:      target,
			Source:   "sqlmap",
			Metadata: map[string]interface{}{
				"database": dbName,
				"table":    tableName,
				"target":   target,
			},
		}
		if isHash {
			cred.Type = models.CredentialTypeHash
			cred.HashValue = password
			cred.HashType = "unknown"
		} else {
			cred.Password = password
		}
		out.Credentials = append(out.Credentials, cred)
	}
}

func splitTableRow(line string) []string {
	var parts []string
	for _, part := range strings.Split(line, "|") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func isDumpHash(password string) bool {
	switch len(password) {
	case 32, 40, 64, 128:
	default:
		return false
	}
	for _, r := range password {
		if !strings.ContainsRune("0123456789abcdefABCDEF$.", r) {
			return false
		}
	}
	return true
}
