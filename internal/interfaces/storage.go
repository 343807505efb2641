package interfaces

import (
	"context"

	"github.com/ternarybob/venator/internal/models"
)

// ProjectStorage - interface for project persistence
type ProjectStorage interface {
	SaveProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]*models.Project, error)
	// DeleteProject removes the project and cascades to every child entity
	DeleteProject(ctx context.Context, id string) error
}

// AssetStorage - interface for asset persistence
type AssetStorage interface {
	SaveAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	// GetAssetByValue looks up the unique (project, type, value) tuple
	GetAssetByValue(ctx context.Context, projectID string, assetType models.AssetType, value string) (*models.Asset, error)
	// FindAssetByProjectValue looks up any asset with the given value in a project
	FindAssetByProjectValue(ctx context.Context, projectID, value string) (*models.Asset, error)
	ListAssets(ctx context.Context, projectID string, assetType models.AssetType, limit, offset int) ([]*models.Asset, error)
	DeleteAsset(ctx context.Context, id string) error
	DeleteAssetsByProject(ctx context.Context, projectID string) error
	CountAssets(ctx context.Context, projectID string) (int, error)

	// Relation operations
	SaveRelation(ctx context.Context, relation *models.AssetRelation) error
	GetRelations(ctx context.Context, assetID string) ([]*models.AssetRelation, error)
	DeleteRelationsByProject(ctx context.Context, projectID string) error
}

// JobListOptions filters job listings
type JobListOptions struct {
	ProjectID     string
	Status        models.JobStatus
	ToolName      string
	WorkflowRunID string
	Limit         int
	Offset        int
}

// JobStorage - interface for job and job output persistence
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)
	GetJobsByStatus(ctx context.Context, status models.JobStatus) ([]*models.Job, error)
	DeleteJobsByProject(ctx context.Context, projectID string) error

	// Output operations
	SaveOutput(ctx context.Context, output *models.JobOutput) error
	GetOutputs(ctx context.Context, jobID string) ([]*models.JobOutput, error)
	CountOutputs(ctx context.Context, jobID string) (int, error)

	// Target operations
	SaveTarget(ctx context.Context, target *models.JobTarget) error
	GetTargets(ctx context.Context, jobID string) ([]*models.JobTarget, error)
}

// VulnerabilityStorage - interface for finding persistence
type VulnerabilityStorage interface {
	SaveVulnerability(ctx context.Context, vuln *models.Vulnerability) error
	GetVulnerability(ctx context.Context, id string) (*models.Vulnerability, error)
	GetByFingerprint(ctx context.Context, projectID, fingerprint string) (*models.Vulnerability, error)
	ListVulnerabilities(ctx context.Context, projectID string, severity models.Severity, limit, offset int) ([]*models.Vulnerability, error)
	DeleteVulnerabilitiesByProject(ctx context.Context, projectID string) error
	CountBySeverity(ctx context.Context, projectID string) (map[models.Severity]int, error)
}

// CredentialStorage - interface for credential persistence
type CredentialStorage interface {
	SaveCredential(ctx context.Context, cred *models.Credential) error
	GetCredential(ctx context.Context, id string) (*models.Credential, error)
	GetCredentialByFingerprint(ctx context.Context, projectID, fingerprint string) (*models.Credential, error)
	ListCredentials(ctx context.Context, projectID string, limit, offset int) ([]*models.Credential, error)
	DeleteCredentialsByProject(ctx context.Context, projectID string) error
}

// ResultStorage - interface for raw result persistence
type ResultStorage interface {
	SaveResult(ctx context.Context, result *models.Result) error
	GetResultsByJob(ctx context.Context, jobID string) ([]*models.Result, error)
	ListResults(ctx context.Context, jobID string, resultType models.ResultType, limit, offset int) ([]*models.Result, error)
	DeleteResultsByJob(ctx context.Context, jobID string) error
}

// WorkflowStorage - interface for workflow and run persistence
type WorkflowStorage interface {
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	ListWorkflows(ctx context.Context, projectID string) ([]*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error
	DeleteWorkflowsByProject(ctx context.Context, projectID string) error

	// Run operations
	SaveRun(ctx context.Context, run *models.WorkflowRun) error
	GetRun(ctx context.Context, id string) (*models.WorkflowRun, error)
	ListRuns(ctx context.Context, workflowID string, limit, offset int) ([]*models.WorkflowRun, error)
	GetRunsByStatus(ctx context.Context, status models.WorkflowStatus) ([]*models.WorkflowRun, error)
	DeleteRunsByProject(ctx context.Context, projectID string) error
}

// UpsertStore is the transactional view a parse-output merge runs against.
// Every lookup and save inside one Transact callback sees the same snapshot
// and commits atomically.
type UpsertStore interface {
	GetAssetByValue(projectID string, assetType models.AssetType, value string) (*models.Asset, error)
	FindAssetByProjectValue(projectID, value string) (*models.Asset, error)
	SaveAsset(asset *models.Asset) error
	GetRelations(assetID string) ([]*models.AssetRelation, error)
	SaveRelation(relation *models.AssetRelation) error
	GetVulnerabilityByFingerprint(projectID, fingerprint string) (*models.Vulnerability, error)
	SaveVulnerability(vuln *models.Vulnerability) error
	GetCredentialByFingerprint(projectID, fingerprint string) (*models.Credential, error)
	SaveCredential(cred *models.Credential) error
	GetResultsByJob(jobID string) ([]*models.Result, error)
	SaveResult(result *models.Result) error
}

// StorageManager provides access to all entity stores
type StorageManager interface {
	ProjectStorage() ProjectStorage
	AssetStorage() AssetStorage
	JobStorage() JobStorage
	VulnerabilityStorage() VulnerabilityStorage
	CredentialStorage() CredentialStorage
	ResultStorage() ResultStorage
	WorkflowStorage() WorkflowStorage
	// Transact runs fn inside one read-write transaction; when fn returns
	// an error nothing it wrote becomes visible
	Transact(ctx context.Context, fn func(tx UpsertStore) error) error
	Close() error
}
