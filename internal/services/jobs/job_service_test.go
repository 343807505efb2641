package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
	"github.com/ternarybob/venator/internal/services/encryption"
	"github.com/ternarybob/venator/internal/services/events"
	"github.com/ternarybob/venator/internal/services/parsers"
	"github.com/ternarybob/venator/internal/services/queue"
	"github.com/ternarybob/venator/internal/services/runner"
	"github.com/ternarybob/venator/internal/storage/badger"
	"github.com/ternarybob/venator/internal/tools"
)

func newTestService(t *testing.T) (*Service, interfaces.StorageManager) {
	t.Helper()
	logger := arbor.NewLogger()

	storage, err := badger.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	eventService := events.NewService(logger)
	t.Cleanup(func() { eventService.Close() })

	// Zero workers: jobs queue up but never execute, keeping status
	// transitions observable
	queueService := queue.NewService(&common.QueueConfig{MaxWorkers: 0, QueueSize: 16}, logger)
	require.NoError(t, queueService.Start())
	t.Cleanup(func() { queueService.Stop() })

	enc, err := encryption.NewService("test-key", logger)
	require.NoError(t, err)

	svc := NewService(
		storage,
		queueService,
		eventService,
		runner.NewService(&common.RunnerConfig{OutputsDir: t.TempDir(), DefaultTimeout: 60}, logger),
		tools.NewRegistry(logger),
		parsers.NewUpserter(storage, enc, logger),
		logger,
	)

	project := models.NewProject("proj-1", "acme engagement")
	require.NoError(t, storage.ProjectStorage().SaveProject(context.Background(), project))
	return svc, storage
}

func TestService_Create(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, "proj-1", "nmap", map[string]interface{}{"target": "10.0.0.5"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "proj-1", job.ProjectID)
	assert.Equal(t, "nmap", job.ToolName)
	assert.Equal(t, "nmap 10.0.0.5 -p 1-1000 -sV -T4 -oX -", job.Command)
	assert.Equal(t, models.JobStatusQueued, job.Status)
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("missing project", func(t *testing.T) {
		_, err := svc.Create(ctx, "", "nmap", nil, nil)
		require.Error(t, err)

		_, err = svc.Create(ctx, "no-such-project", "nmap", map[string]interface{}{"target": "x"}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("unknown tool", func(t *testing.T) {
		_, err := svc.Create(ctx, "proj-1", "ghost-tool", nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown tool")
	})

	t.Run("missing required parameter", func(t *testing.T) {
		_, err := svc.Create(ctx, "proj-1", "nmap", nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing required parameter")
	})
}

func TestService_CronJobStaysPending(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, "proj-1", "nmap", map[string]interface{}{"target": "10.0.0.5"}, &CreateOptions{
		CronExpression: "0 2 * * *",
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
}

func TestService_CancelQueuedJob(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, "proj-1", "nmap", map[string]interface{}{"target": "10.0.0.5"}, nil)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, cancelled.Status)

	// Cancelling a terminal job is an error
	_, err = svc.Cancel(ctx, job.ID)
	require.Error(t, err)

	stored, err := storage.JobStorage().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCancelled, stored.Status)
}

func TestService_RetryClonesJob(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	original, err := svc.Create(ctx, "proj-1", "nmap", map[string]interface{}{"target": "10.0.0.5"}, nil)
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, original.ID)
	require.NoError(t, err)

	retried, err := svc.Retry(ctx, original.ID)
	require.NoError(t, err)

	assert.NotEqual(t, original.ID, retried.ID)
	assert.Equal(t, original.Command, retried.Command)
	assert.Equal(t, original.ToolName, retried.ToolName)
	assert.Equal(t, models.JobStatusQueued, retried.Status)
}

func TestService_Import(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()

	data := "[22][ssh] host: 192.168.1.50   login: root   password: toor123\n"

	job, counts, err := svc.Import(ctx, "proj-1", "hydra", data)
	require.NoError(t, err)

	assert.Equal(t, "import_hydra", job.ToolName)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, counts.CredentialsCreated)
	assert.Greater(t, counts.AssetsCreated, 0)

	creds, err := storage.CredentialStorage().ListCredentials(ctx, "proj-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "root", creds[0].Username)
	assert.NotEqual(t, "toor123", creds[0].PasswordEncrypted)
}

func TestService_ImportValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Import(ctx, "proj-1", "carrier-pigeon", "data")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported import format")

	_, _, err = svc.Import(ctx, "proj-1", "", "data")
	require.Error(t, err)

	_, _, err = svc.Import(ctx, "no-such-project", "nmap", "data")
	require.Error(t, err)
}
