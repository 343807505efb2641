package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/venator/internal/models"
)

var hashcatModeNames = map[string]string{
	"0":     "MD5",
	"100":   "SHA1",
	"1400":  "SHA256",
	"1700":  "SHA512",
	"1000":  "NTLM",
	"3000":  "LM",
	"1800":  "SHA512crypt",
	"500":   "MD5crypt",
	"1500":  "DES",
	"5500":  "NetNTLMv1",
	"5600":  "NetNTLMv2",
	"13100": "Kerberos 5 TGS-REP",
	"18200": "Kerberos 5 AS-REP",
	"7500":  "Kerberos 5 AS-REQ",
	"22000": "WPA-PBKDF2-PMKID+EAPOL",
	"2500":  "WPA-EAPOL-PBKDF2",
	"11600": "7-Zip",
	"13400": "KeePass",
	"16800": "WPA-PMKID-PBKDF2",
	"3200":  "bcrypt",
}

var hashcatSkipWords = []string{
	"session", "status", "speed", "progress", "time",
	"recovered", "hashtype", "candidates", "hardware",
}

var (
	hashPrefixPattern = regexp.MustCompile(`^\$[a-z0-9]+\$`)
	pureHexPattern    = regexp.MustCompile(`^[a-fA-F0-9]+$`)
	longHexPattern    = regexp.MustCompile(`^[a-fA-F0-9]{32,}$`)
	usernamePattern   = regexp.MustCompile(`^[\w\-@.\\]+$`)
)

// HashcatParser parses hashcat cracked output in potfile and --show formats.
// Lines are colon-split; the field layout is inferred heuristically since
// --username and salted modes shift the columns.
type HashcatParser struct{}

func (p *HashcatParser) Name() string { return "hashcat_parser" }

func (p *HashcatParser) Parse(raw string, params map[string]interface{}) (*ParseOutput, error) {
	out := &ParseOutput{}
	seen := make(map[string]bool)

	modeHashType := ""
	if params != nil {
		mode := params["mode"]
		if mode == nil {
			mode = params["hash_type"]
		}
		if mode != nil {
			modeStr := formatModeValue(mode)
			if name, ok := hashcatModeNames[modeStr]; ok {
				modeHashType = name
			} else if modeStr != "" {
				modeHashType = "Mode " + modeStr
			}
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, ":") {
			continue
		}

		lower := strings.ToLower(line)
		skip := false
		for _, word := range hashcatSkipWords {
			if strings.Contains(lower, word) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		cred := extractHashcatCredential(line, modeHashType)
		if cred == nil {
			continue
		}
		key := cred.Username + ":" + cred.HashValue + ":" + cred.Password
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Credentials = append(out.Credentials, *cred)
	}

	return out, nil
}

func extractHashcatCredential(line, modeHashType string) *ParsedCredential {
	parts := strings.Split(line, ":")
	if len(parts) < 2 {
		return nil
	}

	var username, hashValue, password, domain string

	switch {
	case len(parts) == 2:
		hashValue = parts[0]
		password = parts[1]
	case len(parts) == 3:
		if looksLikeHashcatUsername(parts[0]) && !looksLikeHashValue(parts[0]) {
			username = parts[0]
			hashValue = parts[1]
			password = parts[2]
		} else {
			// Hash itself contains a colon (salted formats)
			hashValue = parts[0] + ":" + parts[1]
			password = parts[2]
		}
	default:
		if looksLikeHashcatUsername(parts[0]) {
			username = parts[0]
			password = parts[len(parts)-1]
			hashValue = strings.Join(parts[1:len(parts)-1], ":")
		} else {
			password = parts[len(parts)-1]
			hashValue = strings.Join(parts[:len(parts)-1], ":")
		}
	}

	if username != "" {
		if idx := strings.Index(username, "@"); idx >= 0 {
			domain = username[idx+1:]
			username = username[:idx]
		} else if idx := strings.Index(username, `\`); idx >= 0 {
			domain = username[:idx]
			username = username[idx+1:]
		}
	}

	if password == "" || looksLikeHashValue(password) {
		return nil
	}

	hashType := modeHashType
	if hashType == "" {
		hashType = detectHashcatHashType(hashValue)
	}

	return &ParsedCredential{
		Type:      models.CredentialTypePassword,
		Username:  username,
		Password:  password,
		HashValue: hashValue,
		HashType:  hashType,
		Domain:    domain,
		Source:    "hashcat",
		Metadata:  map[string]interface{}{"raw_line": truncate(line, 500)},
	}
}

func looksLikeHashcatUsername(s string) bool {
	if s == "" || strings.HasPrefix(s, "$") || len(s) > 64 {
		return false
	}
	if longHexPattern.MatchString(s) {
		return false
	}
	return usernamePattern.MatchString(s)
}

func looksLikeHashValue(s string) bool {
	if s == "" {
		return false
	}
	if hashPrefixPattern.MatchString(s) {
		return true
	}
	switch len(s) {
	case 32, 40, 64, 128:
		return pureHexPattern.MatchString(s)
	}
	return false
}

func detectHashcatHashType(hashValue string) string {
	switch {
	case hashValue == "":
		return ""
	case strings.HasPrefix(hashValue, "$1$"):
		return "MD5crypt"
	case strings.HasPrefix(hashValue, "$2"):
		return "bcrypt"
	case strings.HasPrefix(hashValue, "$5$"):
		return "SHA256crypt"
	case strings.HasPrefix(hashValue, "$6$"):
		return "SHA512crypt"
	case strings.HasPrefix(hashValue, "$apr1$"):
		return "Apache MD5"
	case len(hashValue) == 32 && pureHexPattern.MatchString(hashValue):
		return "MD5/NTLM"
	case len(hashValue) == 40 && pureHexPattern.MatchString(hashValue):
		return "SHA1"
	case len(hashValue) == 64 && pureHexPattern.MatchString(hashValue):
		return "SHA256"
	}
	return ""
}

func formatModeValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%d", int64(t))
	case int:
		return fmt.Sprintf("%d", t)
	}
	return fmt.Sprintf("%v", v)
}
