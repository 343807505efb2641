package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

func newTestManager(t *testing.T) interfaces.StorageManager {
	t.Helper()
	storage, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })
	return storage
}

// Run contexts and node results hold arbitrarily nested JSON-shaped values;
// they must survive a persistence round trip intact.
func TestWorkflowStorage_RunRoundTripNestedContext(t *testing.T) {
	storage := newTestManager(t)
	ctx := context.Background()

	now := time.Now()
	run := &models.WorkflowRun{
		ID:         common.NewID(),
		WorkflowID: "wf-1",
		ProjectID:  "proj-1",
		Status:     models.WorkflowStatusRunning,
		Context: map[string]interface{}{
			"target": "example.com",
			"node_scan_result": map[string]interface{}{
				"exit_code": 0,
				"hosts":     []interface{}{"10.0.0.1", "10.0.0.2"},
				"summary": map[string]interface{}{
					"open_ports": []interface{}{22, 443},
				},
			},
		},
		ExecutionLog: []models.ExecutionLogEntry{
			{
				NodeID:    "scan",
				NodeType:  models.NodeTypeTool,
				Status:    "completed",
				StartedAt: now,
				Result: map[string]interface{}{
					"job_id": "job-1",
					"counts": map[string]interface{}{"assets_created": 3},
				},
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	require.NoError(t, storage.WorkflowStorage().SaveRun(ctx, run))

	loaded, err := storage.WorkflowStorage().GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)

	scanResult, ok := loaded.Context["node_scan_result"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0, scanResult["exit_code"])
	assert.Equal(t, []interface{}{"10.0.0.1", "10.0.0.2"}, scanResult["hosts"])

	summary, ok := scanResult["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{22, 443}, summary["open_ports"])

	require.Len(t, loaded.ExecutionLog, 1)
	counts, ok := loaded.ExecutionLog[0].Result["counts"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 3, counts["assets_created"])
}

func TestWorkflowStorage_GetRunMissing(t *testing.T) {
	storage := newTestManager(t)

	run, err := storage.WorkflowStorage().GetRun(context.Background(), "no-such-run")
	require.NoError(t, err)
	assert.Nil(t, run)
}
