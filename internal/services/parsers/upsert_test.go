package parsers

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/encryption"
	"github.com/ternarybob/venator/internal/storage/badger"
)

func newTestUpserter(t *testing.T) (*Upserter, interfaces.StorageManager) {
	t.Helper()
	logger := arbor.NewLogger()

	storage, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	enc, err := encryption.NewService("test-key", logger)
	require.NoError(t, err)

	return NewUpserter(storage, enc, logger), storage
}

func testJob(id string) *models.Job {
	return models.NewJob(id, "proj-1", "nmap", nil)
}

func scanOutput() *ParseOutput {
	return &ParseOutput{
		Assets: []ParsedAsset{
			{
				Type:      models.AssetTypeHost,
				Value:     "10.0.0.5",
				IPAddress: "10.0.0.5",
				Tags:      []string{"internal"},
				RiskScore: 3,
			},
			{
				Type:       models.AssetTypeService,
				Value:      "10.0.0.5:22/tcp",
				Port:       22,
				Protocol:   "tcp",
				Service:    "ssh",
				ParentHint: "10.0.0.5",
			},
		},
		Vulnerabilities: []ParsedVulnerability{
			{
				Title:      "Weak SSH ciphers",
				Severity:   models.SeverityHigh,
				AssetValue: "10.0.0.5",
				TemplateID: "ssh-weak-ciphers",
				CVEIDs:     []string{"CVE-2008-5161"},
				Tags:       []string{"ssh"},
			},
		},
		Credentials: []ParsedCredential{
			{
				Type:     models.CredentialTypePassword,
				Username: "root",
				Password: "hunter2",
				Service:  "ssh",
				Host:     "10.0.0.5",
				Port:     22,
				Source:   "hydra",
			},
		},
		Results: []ParsedResult{
			{
				Type:       models.ResultTypePort,
				AssetValue: "10.0.0.5",
				ParsedData: map[string]interface{}{"port": 22, "state": "open"},
			},
		},
	}
}

func TestUpserter_Apply(t *testing.T) {
	upserter, _ := newTestUpserter(t)
	ctx := context.Background()

	counts, err := upserter.Apply(ctx, testJob("job-1"), scanOutput())
	require.NoError(t, err)

	assert.Equal(t, 2, counts.AssetsCreated)
	assert.Equal(t, 0, counts.AssetsUpdated)
	assert.Equal(t, 1, counts.VulnerabilitiesCreated)
	assert.Equal(t, 1, counts.CredentialsCreated)
	assert.Equal(t, 1, counts.ResultsCreated)
}

func TestUpserter_ApplyIsIdempotent(t *testing.T) {
	upserter, storage := newTestUpserter(t)
	ctx := context.Background()
	job := testJob("job-1")

	_, err := upserter.Apply(ctx, job, scanOutput())
	require.NoError(t, err)

	// Re-parsing the same output must merge, never duplicate
	counts, err := upserter.Apply(ctx, job, scanOutput())
	require.NoError(t, err)

	assert.Equal(t, 0, counts.AssetsCreated)
	assert.Equal(t, 2, counts.AssetsUpdated)
	assert.Equal(t, 0, counts.VulnerabilitiesCreated)
	assert.Equal(t, 1, counts.VulnerabilitiesUpdated)
	assert.Equal(t, 0, counts.CredentialsCreated)
	assert.Equal(t, 1, counts.CredentialsUpdated)
	assert.Equal(t, 0, counts.ResultsCreated)

	assets, err := storage.AssetStorage().ListAssets(ctx, "proj-1", "", 100, 0)
	require.NoError(t, err)
	assert.Len(t, assets, 2)

	results, err := storage.ResultStorage().GetResultsByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestUpserter_AssetMergeUnionsTagsAndKeepsMaxRisk(t *testing.T) {
	upserter, storage := newTestUpserter(t)
	ctx := context.Background()

	first := &ParseOutput{Assets: []ParsedAsset{{
		Type:      models.AssetTypeHost,
		Value:     "10.0.0.9",
		Tags:      []string{"internal"},
		RiskScore: 7,
	}}}
	second := &ParseOutput{Assets: []ParsedAsset{{
		Type:      models.AssetTypeHost,
		Value:     "10.0.0.9",
		Tags:      []string{"internal", "dmz"},
		RiskScore: 4,
		Metadata:  map[string]interface{}{"os": "linux"},
	}}}

	_, err := upserter.Apply(ctx, testJob("job-1"), first)
	require.NoError(t, err)
	_, err = upserter.Apply(ctx, testJob("job-2"), second)
	require.NoError(t, err)

	asset, err := storage.AssetStorage().GetAssetByValue(ctx, "proj-1", models.AssetTypeHost, "10.0.0.9")
	require.NoError(t, err)
	require.NotNil(t, asset)

	assert.ElementsMatch(t, []string{"internal", "dmz"}, asset.Tags)
	assert.Equal(t, 7, asset.RiskScore, "lower risk score must not overwrite a higher one")
	assert.Equal(t, "linux", asset.Metadata["os"])
	assert.Equal(t, "job-1", asset.DiscoveredBy)
}

func TestUpserter_VulnerabilityMergeUnionsReferences(t *testing.T) {
	upserter, storage := newTestUpserter(t)
	ctx := context.Background()

	first := &ParseOutput{Vulnerabilities: []ParsedVulnerability{{
		Title:      "Outdated TLS",
		Severity:   models.SeverityHigh,
		TemplateID: "tls-version",
		CVEIDs:     []string{"CVE-2014-3566"},
		References: []string{"https://example.com/poodle"},
	}}}
	second := &ParseOutput{Vulnerabilities: []ParsedVulnerability{{
		Title:      "Outdated TLS",
		Severity:   models.SeverityHigh,
		TemplateID: "tls-version",
		CVEIDs:     []string{"CVE-2014-3566", "CVE-2016-2183"},
		Evidence:   "TLSv1.0 accepted",
	}}}

	_, err := upserter.Apply(ctx, testJob("job-1"), first)
	require.NoError(t, err)
	counts, err := upserter.Apply(ctx, testJob("job-2"), second)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.VulnerabilitiesUpdated)

	vulns, err := storage.VulnerabilityStorage().ListVulnerabilities(ctx, "proj-1", "", 100, 0)
	require.NoError(t, err)
	require.Len(t, vulns, 1)

	assert.ElementsMatch(t, []string{"CVE-2014-3566", "CVE-2016-2183"}, vulns[0].CVEIDs)
	assert.Contains(t, vulns[0].References, "https://example.com/poodle")
	assert.Equal(t, "TLSv1.0 accepted", vulns[0].Evidence)
}

func TestUpserter_CredentialPasswordEncryptedAtRest(t *testing.T) {
	upserter, storage := newTestUpserter(t)
	ctx := context.Background()

	_, err := upserter.Apply(ctx, testJob("job-1"), scanOutput())
	require.NoError(t, err)

	creds, err := storage.CredentialStorage().ListCredentials(ctx, "proj-1", 100, 0)
	require.NoError(t, err)
	require.Len(t, creds, 1)

	cred := creds[0]
	assert.Equal(t, "root", cred.Username)
	assert.NotEmpty(t, cred.PasswordEncrypted)
	assert.NotEqual(t, "hunter2", cred.PasswordEncrypted)
	assert.NotContains(t, cred.PasswordEncrypted, "hunter2")
	assert.NotEmpty(t, cred.Fingerprint)
}

func TestUpserter_ParentLinkCreatesRelation(t *testing.T) {
	upserter, storage := newTestUpserter(t)
	ctx := context.Background()

	_, err := upserter.Apply(ctx, testJob("job-1"), scanOutput())
	require.NoError(t, err)

	service, err := storage.AssetStorage().GetAssetByValue(ctx, "proj-1", models.AssetTypeService, "10.0.0.5:22/tcp")
	require.NoError(t, err)
	require.NotNil(t, service)

	relations, err := storage.AssetStorage().GetRelations(ctx, service.ID)
	require.NoError(t, err)
	require.Len(t, relations, 1)
	assert.Equal(t, models.RelationHasService, relations[0].RelationType)

	// A second pass must not duplicate the edge
	_, err = upserter.Apply(ctx, testJob("job-1"), scanOutput())
	require.NoError(t, err)
	relations, err = storage.AssetStorage().GetRelations(ctx, service.ID)
	require.NoError(t, err)
	assert.Len(t, relations, 1)
}

type failingEncryption struct{}

func (failingEncryption) Encrypt(string) (string, error) {
	return "", fmt.Errorf("encryption key unavailable")
}

func (failingEncryption) Decrypt(string) (string, error) {
	return "", fmt.Errorf("encryption key unavailable")
}

func TestUpserter_ApplyRollsBackOnError(t *testing.T) {
	_, storage := newTestUpserter(t)
	ctx := context.Background()

	// Credential encryption fails after the asset pass; nothing from the
	// batch may remain visible
	broken := NewUpserter(storage, failingEncryption{}, arbor.NewLogger())

	_, err := broken.Apply(ctx, testJob("job-1"), scanOutput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encrypt credential")

	assets, err := storage.AssetStorage().ListAssets(ctx, "proj-1", "", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, assets)

	vulns, err := storage.VulnerabilityStorage().ListVulnerabilities(ctx, "proj-1", "", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, vulns)

	results, err := storage.ResultStorage().GetResultsByJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Empty(t, results)
}
