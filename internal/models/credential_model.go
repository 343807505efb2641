package models

import "time"

// CredentialType classifies a captured secret
type CredentialType string

const (
	CredentialTypePassword    CredentialType = "password"
	CredentialTypeHash        CredentialType = "hash"
	CredentialTypeAPIKey      CredentialType = "api_key"
	CredentialTypeToken       CredentialType = "token"
	CredentialTypeSSHKey      CredentialType = "ssh_key"
	CredentialTypeCertificate CredentialType = "certificate"
	CredentialTypeCookie      CredentialType = "cookie"
	CredentialTypeUsername    CredentialType = "username"
	CredentialTypeOther       CredentialType = "other"
)

// Credential is a discovered or captured authentication secret. Plaintext
// password material is never stored directly; PasswordEncrypted holds the
// ciphertext produced by the encryption service. Deduplicated by Fingerprint.
type Credential struct {
	ID                string                 `json:"id" badgerhold:"key"`
	ProjectID         string                 `json:"project_id" badgerhold:"index"`
	AssetID           string                 `json:"asset_id,omitempty" badgerhold:"index"`
	CredentialType    CredentialType         `json:"credential_type"`
	Username          string                 `json:"username,omitempty"`
	Domain            string                 `json:"domain,omitempty"`
	PasswordEncrypted string                 `json:"password_encrypted,omitempty"`
	HashValue         string                 `json:"hash_value,omitempty"`
	HashType          string                 `json:"hash_type,omitempty"`
	Service           string                 `json:"service,omitempty"`
	Port              int                    `json:"port,omitempty"`
	URL               string                 `json:"url,omitempty"`
	IsValid           *bool                  `json:"is_valid,omitempty"`
	Source            string                 `json:"source,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	Fingerprint       string                 `json:"fingerprint,omitempty" badgerhold:"index"`
	DiscoveredBy      string                 `json:"discovered_by,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}
