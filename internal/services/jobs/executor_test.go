package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

// saveQueuedJob stores a queued job with an arbitrary command, bypassing the
// tool catalog's command template
func saveQueuedJob(t *testing.T, storage interfaces.StorageManager, command string) *models.Job {
	t.Helper()
	job := models.NewJob(common.NewID(), "proj-1", "nmap", map[string]interface{}{"target": "10.0.0.5"})
	job.Command = command
	job.TimeoutSeconds = 30
	job.MarkQueued()
	require.NoError(t, storage.JobStorage().SaveJob(context.Background(), job))
	return job
}

func TestService_ExecuteStreamsOutput(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()

	job := saveQueuedJob(t, storage, "seq 1 5")
	require.NoError(t, svc.Execute(ctx, job.ID))

	stored, err := storage.JobStorage().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, stored.Status)
	require.NotNil(t, stored.ExitCode)
	assert.Equal(t, 0, *stored.ExitCode)

	outputs, err := storage.JobStorage().GetOutputs(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, outputs, 5)
	for i, output := range outputs {
		assert.Equal(t, i, output.Sequence)
		assert.Equal(t, models.OutputTypeStdout, output.OutputType)
	}
	assert.Equal(t, "1", outputs[0].Content)
	assert.Equal(t, "5", outputs[4].Content)
}

func TestService_ExecuteNonZeroExit(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()

	job := saveQueuedJob(t, storage, "false")
	require.NoError(t, svc.Execute(ctx, job.ID))

	stored, err := storage.JobStorage().GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, stored.Status)
	assert.Equal(t, "Tool exited with code 1", stored.ErrorMessage)
	require.NotNil(t, stored.ExitCode)
	assert.Equal(t, 1, *stored.ExitCode)
}

func TestService_ExecuteSkipsTerminalJob(t *testing.T) {
	svc, storage := newTestService(t)
	ctx := context.Background()

	job := saveQueuedJob(t, storage, "seq 1 3")
	job.MarkCancelled()
	require.NoError(t, storage.JobStorage().SaveJob(ctx, job))

	require.NoError(t, svc.Execute(ctx, job.ID))

	outputs, err := storage.JobStorage().GetOutputs(ctx, job.ID)
	require.NoError(t, err)
	assert.Empty(t, outputs)
}
