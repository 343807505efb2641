package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
)

func newTestQueue(t *testing.T, workers, size int) interfaces.QueueService {
	t.Helper()
	svc := NewService(&common.QueueConfig{MaxWorkers: workers, QueueSize: size}, arbor.NewLogger())
	require.NoError(t, svc.Start())
	t.Cleanup(func() { svc.Stop() })
	return svc
}

func waitForStatus(t *testing.T, svc interfaces.QueueService, taskID string, want interfaces.TaskStatus) *interfaces.TaskRecord {
	t.Helper()
	var record *interfaces.TaskRecord
	require.Eventually(t, func() bool {
		record = svc.Get(taskID)
		return record != nil && record.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return record
}

func TestQueue_ExecutesTasks(t *testing.T) {
	svc := newTestQueue(t, 2, 16)

	var ran atomic.Int32
	id, err := svc.Enqueue("count", func(ctx context.Context) error {
		ran.Add(1)
		return nil
	})
	require.NoError(t, err)

	record := waitForStatus(t, svc, id, interfaces.TaskStatusCompleted)
	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, "count", record.Name)
	assert.NotNil(t, record.StartedAt)
	assert.NotNil(t, record.CompletedAt)
	assert.Empty(t, record.Error)
}

func TestQueue_FailedTaskRecordsError(t *testing.T) {
	svc := newTestQueue(t, 1, 16)

	id, err := svc.Enqueue("boom", func(ctx context.Context) error {
		return fmt.Errorf("tool exited 1")
	})
	require.NoError(t, err)

	record := waitForStatus(t, svc, id, interfaces.TaskStatusFailed)
	assert.Equal(t, "tool exited 1", record.Error)
}

func TestQueue_PanicDoesNotKillWorker(t *testing.T) {
	svc := newTestQueue(t, 1, 16)

	panicID, err := svc.Enqueue("panics", func(ctx context.Context) error {
		panic("unexpected state")
	})
	require.NoError(t, err)

	record := waitForStatus(t, svc, panicID, interfaces.TaskStatusFailed)
	assert.Contains(t, record.Error, "task panic")

	// The single worker must survive and pick up the next task
	okID, err := svc.Enqueue("after-panic", func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
	waitForStatus(t, svc, okID, interfaces.TaskStatusCompleted)
}

func TestQueue_EnqueueRequiresStart(t *testing.T) {
	svc := NewService(&common.QueueConfig{MaxWorkers: 1, QueueSize: 4}, arbor.NewLogger())

	_, err := svc.Enqueue("too-early", func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}

func TestQueue_GetUnknownTask(t *testing.T) {
	svc := newTestQueue(t, 1, 4)
	assert.Nil(t, svc.Get("no-such-task"))
}

func TestQueue_ScheduleRuns(t *testing.T) {
	svc := NewService(&common.QueueConfig{MaxWorkers: 1, QueueSize: 4}, arbor.NewLogger())

	var ticks atomic.Int32
	require.NoError(t, svc.Schedule("tick", 20*time.Millisecond, func(ctx context.Context) error {
		ticks.Add(1)
		return nil
	}))
	require.Error(t, svc.Schedule("bad", 0, func(ctx context.Context) error { return nil }))

	require.NoError(t, svc.Start())
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return ticks.Load() >= 2
	}, 5*time.Second, 10*time.Millisecond)
}
