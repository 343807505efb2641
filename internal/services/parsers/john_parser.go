package parsers

import (
	"regexp"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

var (
	johnCrackedPattern  = regexp.MustCompile(`^([^\s:]+):(.+)$`)
	johnShowPattern     = regexp.MustCompile(`^([^:]+):([^:]+):\d*:\d*:`)
	johnHashTypePattern = regexp.MustCompile(`(?i)Loaded \d+ password hash(?:es)?(?: with \d+ different salts)? \(([^)\[]+)`)

	johnSkipPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^Using default input encoding`),
		regexp.MustCompile(`(?i)^Loaded \d+ password`),
		regexp.MustCompile(`(?i)^Will run \d+ OpenMP`),
		regexp.MustCompile(`(?i)^Press 'q' or Ctrl-C`),
		regexp.MustCompile(`(?i)^Session `),
		regexp.MustCompile(`(?i)^\d+g \d+:`),
		regexp.MustCompile(`(?i)^Warning:`),
		regexp.MustCompile(`(?i)^Note:`),
		regexp.MustCompile(`(?i)^Proceeding with`),
		regexp.MustCompile(`(?i)^Cost \d+ `),
		regexp.MustCompile(`(?i)^\d+ password hash`),
	}

	johnHashTypeMap = map[string]string{
		"raw-md5":    "md5",
		"md5":        "md5",
		"raw-sha1":   "sha1",
		"sha1":       "sha1",
		"raw-sha256": "sha256",
		"sha256":     "sha256",
		"raw-sha512": "sha512",
		"sha512":     "sha512",
		"bcrypt":     "bcrypt",
		"blowfish":   "bcrypt",
		"nt":         "ntlm",
		"ntlm":       "ntlm",
		"lm":         "lm",
		"lanman":     "lm",
		"mysql":      "mysql",
		"mysql-sha1": "mysql",
		"postgres":   "postgres_md5",
		"mssql":      "mssql",
		"oracle":     "oracle",
		"krb5":       "kerberos",
		"kerberos":   "kerberos",
	}
)

// JohnParser parses John the Ripper cracked-password output, both the live
// session format and --show lines
type JohnParser struct{}

func (p *JohnParser) Name() string { return "john_parser" }

func (p *JohnParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}
	seen := make(map[string]bool)

	hashType := detectJohnHashType(raw)

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || johnSkipLine(line) {
			continue
		}

		if m := johnShowPattern.FindStringSubmatch(line); m != nil {
			p.addCredential(m[1], m[2], hashType, out, seen)
			continue
		}

		if m := johnCrackedPattern.FindStringSubmatch(line); m != nil {
			password := m[2]
			// Password fields starting with $ are usually hash remnants
			if strings.HasPrefix(password, "$") || len(password) > 100 {
				continue
			}
			p.addCredential(m[1], password, hashType, out, seen)
		}
	}

	return out, nil
}

func (p *JohnParser) addCredential(identifier, password, hashType string, out *ParseOutput, seen map[string]bool) {
	key := identifier + ":" + password
	if seen[key] {
		return
	}
	seen[key] = true

	isHashIdentifier := strings.HasPrefix(identifier, "$") || looksLikeHexDigest(identifier)

	cred := ParsedCredential{
		Type:     models.CredentialTypeHash,
		Password: password,
		HashType: hashType,
		Source:   "john",
		Metadata: map[string]interface{}{"original_identifier": identifier},
	}
	if isHashIdentifier {
		cred.HashValue = identifier
	} else {
		cred.Username = identifier
	}
	out.Credentials = append(out.Credentials, cred)

	out.Results = append(out.Results, ParsedResult{
		Type:     models.ResultTypeCredential,
		Severity: models.SeverityHigh,
		RawData:  identifier + ":" + password,
		ParsedData: map[string]interface{}{
			"identifier": identifier,
			"password":   password,
			"hash_type":  hashType,
		},
	})
}

func detectJohnHashType(output string) string {
	m := johnHashTypePattern.FindStringSubmatch(output)
	if m == nil {
		return "unknown"
	}

	formatName := strings.ToLower(strings.TrimSpace(m[1]))
	if mapped, ok := johnHashTypeMap[formatName]; ok {
		return mapped
	}
	for key, value := range johnHashTypeMap {
		if strings.Contains(formatName, key) || strings.Contains(key, formatName) {
			return value
		}
	}
	return formatName
}

func johnSkipLine(line string) bool {
	for _, pattern := range johnSkipPatterns {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

func looksLikeHexDigest(s string) bool {
	switch len(s) {
	case 32, 40, 64, 128:
	default:
		return false
	}
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
