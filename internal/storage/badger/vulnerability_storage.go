package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// VulnerabilityStorage implements the VulnerabilityStorage interface for Badger
type VulnerabilityStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewVulnerabilityStorage creates a new VulnerabilityStorage instance
func NewVulnerabilityStorage(db *BadgerDB, logger arbor.ILogger) interfaces.VulnerabilityStorage {
	return &VulnerabilityStorage{
		db:     db,
		logger: logger,
	}
}

func (s *VulnerabilityStorage) SaveVulnerability(ctx context.Context, vuln *models.Vulnerability) error {
	if vuln.ID == "" {
		return fmt.Errorf("vulnerability ID is required")
	}
	if err := s.db.Store().Upsert(vuln.ID, vuln); err != nil {
		return fmt.Errorf("failed to save vulnerability: %w", err)
	}
	return nil
}

func (s *VulnerabilityStorage) GetVulnerability(ctx context.Context, id string) (*models.Vulnerability, error) {
	var vuln models.Vulnerability
	if err := s.db.Store().Get(id, &vuln); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vulnerability: %w", err)
	}
	return &vuln, nil
}

func (s *VulnerabilityStorage) GetByFingerprint(ctx context.Context, projectID, fingerprint string) (*models.Vulnerability, error) {
	var vulns []models.Vulnerability
	query := badgerhold.Where("ProjectID").Eq(projectID).And("Fingerprint").Eq(fingerprint).Limit(1)
	if err := s.db.Store().Find(&vulns, query); err != nil {
		return nil, fmt.Errorf("failed to query vulnerability: %w", err)
	}
	if len(vulns) == 0 {
		return nil, nil
	}
	return &vulns[0], nil
}

func (s *VulnerabilityStorage) ListVulnerabilities(ctx context.Context, projectID string, severity models.Severity, limit, offset int) ([]*models.Vulnerability, error) {
	query := badgerhold.Where("ProjectID").Eq(projectID)
	if severity != "" {
		query = query.And("Severity").Eq(severity)
	}
	query = query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Skip(offset)
	}

	var vulns []models.Vulnerability
	if err := s.db.Store().Find(&vulns, query); err != nil {
		return nil, fmt.Errorf("failed to list vulnerabilities: %w", err)
	}

	result := make([]*models.Vulnerability, len(vulns))
	for i := range vulns {
		result[i] = &vulns[i]
	}
	return result, nil
}

func (s *VulnerabilityStorage) DeleteVulnerabilitiesByProject(ctx context.Context, projectID string) error {
	if err := s.db.Store().DeleteMatching(&models.Vulnerability{}, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return fmt.Errorf("failed to delete vulnerabilities by project: %w", err)
	}
	return nil
}

func (s *VulnerabilityStorage) CountBySeverity(ctx context.Context, projectID string) (map[models.Severity]int, error) {
	var vulns []models.Vulnerability
	if err := s.db.Store().Find(&vulns, badgerhold.Where("ProjectID").Eq(projectID)); err != nil {
		return nil, fmt.Errorf("failed to count vulnerabilities: %w", err)
	}

	counts := make(map[models.Severity]int)
	for i := range vulns {
		counts[vulns[i].Severity]++
	}
	return counts, nil
}
