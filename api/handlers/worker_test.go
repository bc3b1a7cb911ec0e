package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/agentcore/agent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// 🧪 WorkerHandler 测试
// =============================================================================

func newTestWorkerHandler(t *testing.T) (*WorkerHandler, *agent.Pool) {
	t.Helper()
	logger := zap.NewNop()
	registry := agent.NewBuiltinRegistry(logger)
	pool := agent.NewPool(registry, echoProvider{}, logger)
	return NewWorkerHandler(pool, logger), pool
}

func TestWorkerHandler_ListWorkers(t *testing.T) {
	handler, pool := newTestWorkerHandler(t)

	_, err := pool.Spawn("coder")
	require.NoError(t, err)
	_, err = pool.Spawn("reviewer")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/workers", nil)

	handler.HandleListWorkers(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	workers, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, workers, 2)
}

func TestWorkerHandler_GetWorkerAudit(t *testing.T) {
	handler, pool := newTestWorkerHandler(t)

	worker, err := pool.Spawn("coder")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/workers/"+worker.ID()+"/audit", nil)
	r.SetPathValue("id", worker.ID())

	handler.HandleGetWorkerAudit(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, worker.ID(), data["agent_id"])
	assert.Equal(t, "coder", data["role"])
}

func TestWorkerHandler_GetWorkerAudit_NotFound(t *testing.T) {
	handler, _ := newTestWorkerHandler(t)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/workers/ghost/audit", nil)
	r.SetPathValue("id", "ghost")

	handler.HandleGetWorkerAudit(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkerHandler_AuditTrail(t *testing.T) {
	handler, pool := newTestWorkerHandler(t)

	worker, err := pool.Spawn("coder")
	require.NoError(t, err)
	pool.Destroy(worker.ID())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/audit", nil)

	handler.HandleAuditTrail(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	records, ok := resp.Data.([]any)
	require.True(t, ok)
	assert.Len(t, records, 1)
}

func TestWorkerHandler_PoolStats(t *testing.T) {
	handler, pool := newTestWorkerHandler(t)

	_, err := pool.Spawn("coder")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/v1/workers/stats", nil)

	handler.HandlePoolStats(w, r)

	require.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["active_agents"])
	assert.Equal(t, float64(10), data["max_agents"])
}
