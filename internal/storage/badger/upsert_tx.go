package badger

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// upsertTx scopes every store operation to one badger transaction
type upsertTx struct {
	store *badgerhold.Store
	txn   *badgerdb.Txn
}

// Transact runs fn against a single read-write transaction. All writes commit
// together when fn returns nil and are discarded when it returns an error.
func (m *Manager) Transact(ctx context.Context, fn func(tx interfaces.UpsertStore) error) error {
	return m.db.Store().Badger().Update(func(txn *badgerdb.Txn) error {
		return fn(&upsertTx{store: m.db.Store(), txn: txn})
	})
}

func (t *upsertTx) GetAssetByValue(projectID string, assetType models.AssetType, value string) (*models.Asset, error) {
	var assets []models.Asset
	query := badgerhold.Where("ProjectID").Eq(projectID).
		And("Type").Eq(assetType).
		And("Value").Eq(value).
		Limit(1)
	if err := t.store.TxFind(t.txn, &assets, query); err != nil {
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	if len(assets) == 0 {
		return nil, nil
	}
	return &assets[0], nil
}

func (t *upsertTx) FindAssetByProjectValue(projectID, value string) (*models.Asset, error) {
	var assets []models.Asset
	query := badgerhold.Where("ProjectID").Eq(projectID).And("Value").Eq(value).Limit(1)
	if err := t.store.TxFind(t.txn, &assets, query); err != nil {
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	if len(assets) == 0 {
		return nil, nil
	}
	return &assets[0], nil
}

func (t *upsertTx) SaveAsset(asset *models.Asset) error {
	if asset.ID == "" {
		return fmt.Errorf("asset ID is required")
	}
	if err := t.store.TxUpsert(t.txn, asset.ID, asset); err != nil {
		return fmt.Errorf("failed to save asset: %w", err)
	}
	return nil
}

func (t *upsertTx) GetRelations(assetID string) ([]*models.AssetRelation, error) {
	var relations []models.AssetRelation
	query := badgerhold.Where("ParentID").Eq(assetID).Or(badgerhold.Where("ChildID").Eq(assetID))
	if err := t.store.TxFind(t.txn, &relations, query); err != nil {
		return nil, fmt.Errorf("failed to get relations: %w", err)
	}

	result := make([]*models.AssetRelation, len(relations))
	for i := range relations {
		result[i] = &relations[i]
	}
	return result, nil
}

func (t *upsertTx) SaveRelation(relation *models.AssetRelation) error {
	if relation.ID == "" {
		return fmt.Errorf("relation ID is required")
	}
	if err := t.store.TxUpsert(t.txn, relation.ID, relation); err != nil {
		return fmt.Errorf("failed to save relation: %w", err)
	}
	return nil
}

func (t *upsertTx) GetVulnerabilityByFingerprint(projectID, fingerprint string) (*models.Vulnerability, error) {
	var vulns []models.Vulnerability
	query := badgerhold.Where("ProjectID").Eq(projectID).And("Fingerprint").Eq(fingerprint).Limit(1)
	if err := t.store.TxFind(t.txn, &vulns, query); err != nil {
		return nil, fmt.Errorf("failed to query vulnerability: %w", err)
	}
	if len(vulns) == 0 {
		return nil, nil
	}
	return &vulns[0], nil
}

func (t *upsertTx) SaveVulnerability(vuln *models.Vulnerability) error {
	if vuln.ID == "" {
		return fmt.Errorf("vulnerability ID is required")
	}
	if err := t.store.TxUpsert(t.txn, vuln.ID, vuln); err != nil {
		return fmt.Errorf("failed to save vulnerability: %w", err)
	}
	return nil
}

func (t *upsertTx) GetCredentialByFingerprint(projectID, fingerprint string) (*models.Credential, error) {
	var creds []models.Credential
	query := badgerhold.Where("ProjectID").Eq(projectID).And("Fingerprint").Eq(fingerprint).Limit(1)
	if err := t.store.TxFind(t.txn, &creds, query); err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	if len(creds) == 0 {
		return nil, nil
	}
	return &creds[0], nil
}

func (t *upsertTx) SaveCredential(cred *models.Credential) error {
	if cred.ID == "" {
		return fmt.Errorf("credential ID is required")
	}
	if err := t.store.TxUpsert(t.txn, cred.ID, cred); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (t *upsertTx) GetResultsByJob(jobID string) ([]*models.Result, error) {
	var results []models.Result
	if err := t.store.TxFind(t.txn, &results, badgerhold.Where("JobID").Eq(jobID).SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("failed to get results by job: %w", err)
	}

	out := make([]*models.Result, len(results))
	for i := range results {
		out[i] = &results[i]
	}
	return out, nil
}

func (t *upsertTx) SaveResult(result *models.Result) error {
	if result.ID == "" {
		return fmt.Errorf("result ID is required")
	}
	if err := t.store.TxUpsert(t.txn, result.ID, result); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}
