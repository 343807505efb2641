package parsers

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// UpsertCounts summarizes what one upsert pass created and merged
type UpsertCounts struct {
	AssetsCreated          int `json:"assets_created"`
	AssetsUpdated          int `json:"assets_updated"`
	VulnerabilitiesCreated int `json:"vulnerabilities_created"`
	VulnerabilitiesUpdated int `json:"vulnerabilities_updated"`
	CredentialsCreated     int `json:"credentials_created"`
	CredentialsUpdated     int `json:"credentials_updated"`
	ResultsCreated         int `json:"results_created"`
}

// Total returns the number of entities touched
func (c *UpsertCounts) Total() int {
	return c.AssetsCreated + c.AssetsUpdated +
		c.VulnerabilitiesCreated + c.VulnerabilitiesUpdated +
		c.CredentialsCreated + c.CredentialsUpdated +
		c.ResultsCreated
}

// Upserter merges ParseOutput into storage. Assets merge on the natural key
// (project, type, value); vulnerabilities and credentials merge on their
// fingerprints; raw results are always inserted. Credential plaintext goes
// through the encryption service before persistence.
type Upserter struct {
	storage    interfaces.StorageManager
	encryption interfaces.EncryptionService
	logger     arbor.ILogger
}

// NewUpserter creates the upsert engine
func NewUpserter(storage interfaces.StorageManager, encryption interfaces.EncryptionService, logger arbor.ILogger) *Upserter {
	return &Upserter{
		storage:    storage,
		encryption: encryption,
		logger:     logger,
	}
}

// Apply merges everything in output into the job's project. The whole pass
// runs in one storage transaction: an error anywhere rolls back every write,
// so a failed merge never leaves partial entities behind. The returned counts
// feed event notifications and import API responses.
func (u *Upserter) Apply(ctx context.Context, job *models.Job, output *ParseOutput) (*UpsertCounts, error) {
	counts := &UpsertCounts{}
	if output == nil {
		return counts, nil
	}

	err := u.storage.Transact(ctx, func(tx interfaces.UpsertStore) error {
		*counts = UpsertCounts{}

		// value -> persisted asset, so later entities link without a re-query
		assetCache := make(map[string]*models.Asset)

		for i := range output.Assets {
			if err := u.upsertAsset(tx, job, &output.Assets[i], assetCache, counts); err != nil {
				return err
			}
		}
		for i := range output.Assets {
			if err := u.linkParent(tx, job, &output.Assets[i], assetCache); err != nil {
				return err
			}
		}
		for i := range output.Vulnerabilities {
			if err := u.upsertVulnerability(tx, job, &output.Vulnerabilities[i], assetCache, counts); err != nil {
				return err
			}
		}
		for i := range output.Credentials {
			if err := u.upsertCredential(tx, job, &output.Credentials[i], assetCache, counts); err != nil {
				return err
			}
		}
		// Results never merge, but re-parsing the same job must not duplicate
		// rows, so skip fingerprints the job already produced.
		seenResults, err := u.loadResultFingerprints(tx, job.ID)
		if err != nil {
			return err
		}
		for i := range output.Results {
			if err := u.insertResult(tx, job, &output.Results[i], assetCache, seenResults, counts); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info().
		Str("job_id", job.ID).
		Str("project_id", job.ProjectID).
		Int("assets_created", counts.AssetsCreated).
		Int("vulns_created", counts.VulnerabilitiesCreated).
		Int("creds_created", counts.CredentialsCreated).
		Int("results_created", counts.ResultsCreated).
		Msg("Parse output merged into storage")

	return counts, nil
}

func (u *Upserter) upsertAsset(tx interfaces.UpsertStore, job *models.Job, parsed *ParsedAsset, cache map[string]*models.Asset, counts *UpsertCounts) error {
	if parsed.Value == "" {
		return nil
	}

	existing, err := tx.GetAssetByValue(job.ProjectID, parsed.Type, parsed.Value)
	if err != nil {
		return fmt.Errorf("failed to look up asset %q: %w", parsed.Value, err)
	}

	metadata := u.assetMetadata(parsed)

	if existing != nil {
		existing.AddTags(parsed.Tags)
		if existing.Metadata == nil {
			existing.Metadata = make(map[string]interface{})
		}
		for k, v := range metadata {
			existing.Metadata[k] = v
		}
		if parsed.RiskScore > existing.RiskScore {
			existing.RiskScore = parsed.RiskScore
		}
		existing.UpdatedAt = time.Now()
		if err := tx.SaveAsset(existing); err != nil {
			return fmt.Errorf("failed to update asset %q: %w", parsed.Value, err)
		}
		cache[existing.Value] = existing
		counts.AssetsUpdated++
		return nil
	}

	asset := models.NewAsset(common.NewID(), job.ProjectID, parsed.Type, parsed.Value)
	asset.Metadata = metadata
	asset.RiskScore = parsed.RiskScore
	asset.DiscoveredBy = job.ID
	asset.AddTags(parsed.Tags)

	if err := tx.SaveAsset(asset); err != nil {
		return fmt.Errorf("failed to insert asset %q: %w", parsed.Value, err)
	}
	cache[asset.Value] = asset
	counts.AssetsCreated++
	return nil
}

func (u *Upserter) assetMetadata(parsed *ParsedAsset) map[string]interface{} {
	metadata := make(map[string]interface{})
	for k, v := range parsed.Metadata {
		metadata[k] = v
	}
	if parsed.Hostname != "" {
		metadata["hostname"] = parsed.Hostname
	}
	if parsed.IPAddress != "" {
		metadata["ip_address"] = parsed.IPAddress
	}
	if parsed.Port > 0 {
		metadata["port"] = parsed.Port
	}
	if parsed.Protocol != "" {
		metadata["protocol"] = parsed.Protocol
	}
	if parsed.Service != "" {
		metadata["service"] = parsed.Service
	}
	if parsed.Version != "" {
		metadata["version"] = parsed.Version
	}
	return metadata
}

// linkParent records a relation edge when the parser named a parent asset
// and both ends landed in this batch or already exist in the project.
func (u *Upserter) linkParent(tx interfaces.UpsertStore, job *models.Job, parsed *ParsedAsset, cache map[string]*models.Asset) error {
	if parsed.ParentHint == "" || parsed.ParentHint == parsed.Value {
		return nil
	}

	child := cache[parsed.Value]
	if child == nil {
		return nil
	}
	parent, err := u.resolveAsset(tx, job.ProjectID, parsed.ParentHint, cache)
	if err != nil {
		return err
	}
	if parent == nil || parent.ID == child.ID {
		return nil
	}

	// Skip when the edge already exists
	relations, err := tx.GetRelations(child.ID)
	if err != nil {
		return fmt.Errorf("failed to load relations for asset %s: %w", child.ID, err)
	}
	for _, rel := range relations {
		if rel.ParentID == parent.ID && rel.ChildID == child.ID {
			return nil
		}
	}

	relation := &models.AssetRelation{
		ID:           common.NewID(),
		ProjectID:    job.ProjectID,
		ParentID:     parent.ID,
		ChildID:      child.ID,
		RelationType: relationTypeFor(parent.Type, child.Type),
		CreatedAt:    time.Now(),
	}
	if err := tx.SaveRelation(relation); err != nil {
		return fmt.Errorf("failed to save asset relation: %w", err)
	}
	return nil
}

func relationTypeFor(parentType, childType models.AssetType) models.RelationType {
	switch childType {
	case models.AssetTypeService:
		return models.RelationHasService
	case models.AssetTypeTechnology:
		return models.RelationUses
	case models.AssetTypeSubdomain, models.AssetTypeDomain:
		return models.RelationBelongsTo
	case models.AssetTypeHost:
		if parentType == models.AssetTypeDomain || parentType == models.AssetTypeSubdomain {
			return models.RelationResolvesTo
		}
	}
	return models.RelationBelongsTo
}

func (u *Upserter) resolveAsset(tx interfaces.UpsertStore, projectID, value string, cache map[string]*models.Asset) (*models.Asset, error) {
	if value == "" {
		return nil, nil
	}
	if asset, ok := cache[value]; ok {
		return asset, nil
	}
	asset, err := tx.FindAssetByProjectValue(projectID, value)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve asset %q: %w", value, err)
	}
	if asset != nil {
		cache[value] = asset
	}
	return asset, nil
}

func (u *Upserter) upsertVulnerability(tx interfaces.UpsertStore, job *models.Job, parsed *ParsedVulnerability, cache map[string]*models.Asset, counts *UpsertCounts) error {
	if parsed.Title == "" {
		return nil
	}

	assetID := ""
	asset, err := u.resolveAsset(tx, job.ProjectID, parsed.AssetValue, cache)
	if err != nil {
		return err
	}
	if asset != nil {
		assetID = asset.ID
	}

	fingerprint := common.Fingerprint(job.ProjectID, parsed.Title, parsed.TemplateID, assetID)

	existing, err := tx.GetVulnerabilityByFingerprint(job.ProjectID, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to look up vulnerability %q: %w", parsed.Title, err)
	}

	if existing != nil {
		existing.References = unionStrings(existing.References, parsed.References)
		existing.CVEIDs = unionStrings(existing.CVEIDs, parsed.CVEIDs)
		existing.CWEIDs = unionStrings(existing.CWEIDs, parsed.CWEIDs)
		existing.Tags = unionStrings(existing.Tags, parsed.Tags)
		if existing.Metadata == nil {
			existing.Metadata = make(map[string]interface{})
		}
		for k, v := range parsed.Metadata {
			existing.Metadata[k] = v
		}
		if parsed.Evidence != "" {
			existing.Evidence = parsed.Evidence
		}
		if parsed.Request != "" {
			existing.Request = parsed.Request
		}
		if parsed.Response != "" {
			existing.Response = parsed.Response
		}
		existing.UpdatedAt = time.Now()
		if err := tx.SaveVulnerability(existing); err != nil {
			return fmt.Errorf("failed to update vulnerability %q: %w", parsed.Title, err)
		}
		counts.VulnerabilitiesUpdated++
		return nil
	}

	now := time.Now()
	vuln := &models.Vulnerability{
		ID:           common.NewID(),
		ProjectID:    job.ProjectID,
		AssetID:      assetID,
		Title:        parsed.Title,
		Severity:     parsed.Severity,
		Status:       models.VulnStatusOpen,
		Description:  parsed.Description,
		CVSSScore:    parsed.CVSSScore,
		CVEIDs:       parsed.CVEIDs,
		CWEIDs:       parsed.CWEIDs,
		Evidence:     parsed.Evidence,
		Request:      parsed.Request,
		Response:     parsed.Response,
		Remediation:  parsed.Remediation,
		References:   parsed.References,
		Tags:         parsed.Tags,
		TemplateID:   parsed.TemplateID,
		ToolName:     job.ToolName,
		Metadata:     parsed.Metadata,
		Fingerprint:  fingerprint,
		DiscoveredBy: job.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if vuln.Severity == "" {
		vuln.Severity = models.SeverityInfo
	}
	if err := tx.SaveVulnerability(vuln); err != nil {
		return fmt.Errorf("failed to insert vulnerability %q: %w", parsed.Title, err)
	}
	counts.VulnerabilitiesCreated++
	return nil
}

func (u *Upserter) upsertCredential(tx interfaces.UpsertStore, job *models.Job, parsed *ParsedCredential, cache map[string]*models.Asset, counts *UpsertCounts) error {
	if parsed.Username == "" && parsed.Password == "" && parsed.HashValue == "" {
		return nil
	}

	assetValue := parsed.Host
	if assetValue == "" {
		assetValue = parsed.URL
	}
	assetID := ""
	asset, err := u.resolveAsset(tx, job.ProjectID, assetValue, cache)
	if err != nil {
		return err
	}
	if asset != nil {
		assetID = asset.ID
	}

	port := ""
	if parsed.Port > 0 {
		port = fmt.Sprintf("%d", parsed.Port)
	}
	fingerprint := common.Fingerprint(job.ProjectID, parsed.Username, parsed.Service, port, assetID)

	encrypted := ""
	if parsed.Password != "" {
		encrypted, err = u.encryption.Encrypt(parsed.Password)
		if err != nil {
			return fmt.Errorf("failed to encrypt credential for %q: %w", parsed.Username, err)
		}
	}

	existing, err := tx.GetCredentialByFingerprint(job.ProjectID, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to look up credential for %q: %w", parsed.Username, err)
	}

	if existing != nil {
		if encrypted != "" {
			existing.PasswordEncrypted = encrypted
		}
		if parsed.HashValue != "" {
			existing.HashValue = parsed.HashValue
			existing.HashType = parsed.HashType
		}
		if parsed.IsValid != nil {
			existing.IsValid = parsed.IsValid
		}
		if existing.Metadata == nil {
			existing.Metadata = make(map[string]interface{})
		}
		for k, v := range parsed.Metadata {
			existing.Metadata[k] = v
		}
		existing.UpdatedAt = time.Now()
		if err := tx.SaveCredential(existing); err != nil {
			return fmt.Errorf("failed to update credential for %q: %w", parsed.Username, err)
		}
		counts.CredentialsUpdated++
		return nil
	}

	now := time.Now()
	cred := &models.Credential{
		ID:                common.NewID(),
		ProjectID:         job.ProjectID,
		AssetID:           assetID,
		CredentialType:    parsed.Type,
		Username:          parsed.Username,
		Domain:            parsed.Domain,
		PasswordEncrypted: encrypted,
		HashValue:         parsed.HashValue,
		HashType:          parsed.HashType,
		Service:           parsed.Service,
		Port:              parsed.Port,
		URL:               parsed.URL,
		IsValid:           parsed.IsValid,
		Source:            parsed.Source,
		Metadata:          parsed.Metadata,
		Fingerprint:       fingerprint,
		DiscoveredBy:      job.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if cred.CredentialType == "" {
		cred.CredentialType = models.CredentialTypeOther
	}
	if cred.Source == "" {
		cred.Source = job.ToolName
	}
	if err := tx.SaveCredential(cred); err != nil {
		return fmt.Errorf("failed to insert credential for %q: %w", parsed.Username, err)
	}
	counts.CredentialsCreated++
	return nil
}

func (u *Upserter) loadResultFingerprints(tx interfaces.UpsertStore, jobID string) (map[string]bool, error) {
	existing, err := tx.GetResultsByJob(jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load results for job %s: %w", jobID, err)
	}
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		if r.Fingerprint != "" {
			seen[r.Fingerprint] = true
		}
	}
	return seen, nil
}

func (u *Upserter) insertResult(tx interfaces.UpsertStore, job *models.Job, parsed *ParsedResult, cache map[string]*models.Asset, seen map[string]bool, counts *UpsertCounts) error {
	assetID := ""
	asset, err := u.resolveAsset(tx, job.ProjectID, parsed.AssetValue, cache)
	if err != nil {
		return err
	}
	if asset != nil {
		assetID = asset.ID
	}

	fingerprint := common.Fingerprint(job.ID, string(parsed.Type), common.CanonicalJSON(parsed.ParsedData))
	if seen[fingerprint] {
		return nil
	}
	seen[fingerprint] = true

	result := &models.Result{
		ID:          common.NewID(),
		JobID:       job.ID,
		AssetID:     assetID,
		ResultType:  parsed.Type,
		Severity:    parsed.Severity,
		RawData:     parsed.RawData,
		ParsedData:  parsed.ParsedData,
		Fingerprint: fingerprint,
		CreatedAt:   time.Now(),
	}
	if err := tx.SaveResult(result); err != nil {
		return fmt.Errorf("failed to insert result for job %s: %w", job.ID, err)
	}
	counts.ResultsCreated++
	return nil
}

func unionStrings(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[s] = true
	}
	out := existing
	for _, s := range incoming {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
