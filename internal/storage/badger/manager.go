package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db         *BadgerDB
	project    interfaces.ProjectStorage
	asset      interfaces.AssetStorage
	job        interfaces.JobStorage
	vuln       interfaces.VulnerabilityStorage
	credential interfaces.CredentialStorage
	result     interfaces.ResultStorage
	workflow   interfaces.WorkflowStorage
	logger     arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	asset := NewAssetStorage(db, logger)
	job := NewJobStorage(db, logger)
	vuln := NewVulnerabilityStorage(db, logger)
	credential := NewCredentialStorage(db, logger)
	result := NewResultStorage(db, logger)
	workflow := NewWorkflowStorage(db, logger)

	manager := &Manager{
		db:         db,
		asset:      asset,
		job:        job,
		vuln:       vuln,
		credential: credential,
		result:     result,
		workflow:   workflow,
		logger:     logger,
	}
	manager.project = NewProjectStorage(db, logger, manager)

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// ProjectStorage returns the Project storage interface
func (m *Manager) ProjectStorage() interfaces.ProjectStorage {
	return m.project
}

// AssetStorage returns the Asset storage interface
func (m *Manager) AssetStorage() interfaces.AssetStorage {
	return m.asset
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// VulnerabilityStorage returns the Vulnerability storage interface
func (m *Manager) VulnerabilityStorage() interfaces.VulnerabilityStorage {
	return m.vuln
}

// CredentialStorage returns the Credential storage interface
func (m *Manager) CredentialStorage() interfaces.CredentialStorage {
	return m.credential
}

// ResultStorage returns the Result storage interface
func (m *Manager) ResultStorage() interfaces.ResultStorage {
	return m.result
}

// WorkflowStorage returns the Workflow storage interface
func (m *Manager) WorkflowStorage() interfaces.WorkflowStorage {
	return m.workflow
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
