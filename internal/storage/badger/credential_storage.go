package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// CredentialStorage implements the CredentialStorage interface for Badger
type CredentialStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewCredentialStorage creates a new CredentialStorage instance
func NewCredentialStorage(db *BadgerDB, logger arbor.ILogger) interfaces.CredentialStorage {
	return &CredentialStorage{
		db:     db,
		logger: logger,
	}
}

func (s *CredentialStorage) SaveCredential(ctx context.Context, cred *models.Credential) error {
	if cred.ID == "" {
		return fmt.Errorf("credential ID is required")
	}
	if err := s.db.Store().Upsert(cred.ID, cred); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (s *CredentialStorage) GetCredential(ctx context.Context, id string) (*models.Credential, error) {
	var cred models.Credential
	if err := s.db.Store().Get(id, &cred); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &cred, nil
}

func (s *CredentialStorage) GetCredentialByFingerprint(ctx context.Context, projectID, fingerprint string) (*models.Credential, error) {
	var creds []models.Credential
	query := badgerhold.Where("ProjectID").Eq(projectID).And("Fingerprint").Eq(fingerprint).Limit(1)
	if err := s.db.Store().Find(&creds, query); err != nil {
		return nil, fmt.Errorf("failed to query credential: %w", err)
	}
	if len(creds) == 0 {
		return nil, nil
	}
	return &creds[0], nil
}

func (s *CredentialStorage) ListCredentials(ctx context.Context, projectID string, limit, offset int) ([]*models.Credential, error) {
	query := badgerhold.Where("ProjectID").Eq(projectID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var creds []models.Credential
	if err := s.db.Store().Find(&creds, query); err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}

	result := make([]*models.Credential, len(creds))
	for i := range creds {
		result[i] = &creds[i]
	}
	return result, nil
}

func (s *CredentialStorage) DeleteCredentialsByProject(ctx context.Context, projectID string) error {
	if err := s.db.Store().DeleteMatching(&models.Credential{}, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return fmt.Errorf("failed to delete credentials by project: %w", err)
	}
	return nil
}
