package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/orchestrator"
)

func sampleResult(taskID string, success bool) *orchestrator.TaskResult {
	return &orchestrator.TaskResult{
		TaskID:           taskID,
		Success:          success,
		Results:          []*agent.ExecResult{{WorkerID: "w1", Role: "coder", Response: "done", Success: success}},
		AggregatedOutput: "## coder ✓\n\ndone\n",
		ComplianceStatus: map[string]bool{"pci_dss": true, "audit_logging": true},
		Duration:         1500 * time.Millisecond,
		RolesUsed:        []string{"coder"},
		AuditTrail: []orchestrator.AuditEntry{{
			Type:   "worker",
			Worker: &agent.AuditRecord{ID: "w1", Role: "coder", CreatedAt: time.Now().UTC().Truncate(time.Second)},
		}},
	}
}

// storeConformance exercises the Store contract against any backend.
func storeConformance(t *testing.T, store Store) {
	ctx := context.Background()

	require.NoError(t, store.Ping(ctx))

	// Round trip.
	saved := sampleResult("task_1_a", true)
	require.NoError(t, store.SaveResult(ctx, saved))

	got, err := store.GetResult(ctx, "task_1_a")
	require.NoError(t, err)
	assert.Equal(t, saved.TaskID, got.TaskID)
	assert.Equal(t, saved.AggregatedOutput, got.AggregatedOutput)
	assert.Equal(t, saved.ComplianceStatus, got.ComplianceStatus)
	require.Len(t, got.AuditTrail, 1)
	assert.Equal(t, "worker", got.AuditTrail[0].Type)
	assert.Equal(t, "w1", got.AuditTrail[0].Worker.ID)

	// Missing id.
	_, err = store.GetResult(ctx, "no_such_task")
	assert.ErrorIs(t, err, ErrNotFound)

	// Saving the same id again overwrites.
	updated := sampleResult("task_1_a", false)
	require.NoError(t, store.SaveResult(ctx, updated))
	got, err = store.GetResult(ctx, "task_1_a")
	require.NoError(t, err)
	assert.False(t, got.Success)

	// Recency ordering.
	for i := 2; i <= 5; i++ {
		require.NoError(t, store.SaveResult(ctx, sampleResult(fmt.Sprintf("task_%d_a", i), true)))
	}
	recent, err := store.ListRecent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "task_5_a", recent[0].TaskID)
	assert.Equal(t, "task_4_a", recent[1].TaskID)
	assert.Equal(t, "task_3_a", recent[2].TaskID)

	// Invalid input.
	assert.ErrorIs(t, store.SaveResult(ctx, nil), ErrInvalidInput)
	assert.ErrorIs(t, store.SaveResult(ctx, &orchestrator.TaskResult{}), ErrInvalidInput)
}

func TestMemoryStore(t *testing.T) {
	storeConformance(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer store.Close()
	storeConformance(t, store)
}

func TestRedisStore(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	store := NewRedisStoreWithClient(client, "")
	defer store.Close()
	storeConformance(t, store)
}
