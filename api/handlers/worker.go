package handlers

import (
	"net/http"

	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/types"
	"go.uber.org/zap"
)

// =============================================================================
// Worker Pool Handler
// =============================================================================

// WorkerHandler worker pool inspection handler
type WorkerHandler struct {
	pool   *agent.Pool
	logger *zap.Logger
}

// NewWorkerHandler creates a worker handler
func NewWorkerHandler(pool *agent.Pool, logger *zap.Logger) *WorkerHandler {
	return &WorkerHandler{pool: pool, logger: logger}
}

// HandleListWorkers lists live workers
// @Summary List workers
// @Tags worker
// @Produce json
// @Success 200 {object} Response{data=[]agent.WorkerSummary} "Worker list"
// @Router /v1/workers [get]
func (h *WorkerHandler) HandleListWorkers(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.pool.List())
}

// HandleGetWorkerAudit returns the audit record of a live worker
// @Summary Worker audit record
// @Tags worker
// @Produce json
// @Param id path string true "Worker ID"
// @Success 200 {object} Response{data=agent.AuditRecord} "Audit record"
// @Failure 404 {object} Response "Worker not found"
// @Router /v1/workers/{id}/audit [get]
func (h *WorkerHandler) HandleGetWorkerAudit(w http.ResponseWriter, r *http.Request) {
	id := extractWorkerID(r)
	if id == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "worker ID is required", h.logger)
		return
	}

	worker, ok := h.pool.Get(id)
	if !ok {
		WriteErrorMessage(w, http.StatusNotFound, types.ErrWorkerNotFound, "worker not found", h.logger)
		return
	}

	WriteSuccess(w, worker.Audit())
}

// HandleAuditTrail returns the merged audit trail of destroyed and live workers
// @Summary Pool audit trail
// @Tags worker
// @Produce json
// @Success 200 {object} Response{data=[]agent.AuditRecord} "Audit trail"
// @Router /v1/audit [get]
func (h *WorkerHandler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.pool.AuditTrail())
}

// HandlePoolStats returns pool occupancy statistics
// @Summary Pool statistics
// @Tags worker
// @Produce json
// @Success 200 {object} Response{data=agent.PoolStats} "Pool stats"
// @Router /v1/workers/stats [get]
func (h *WorkerHandler) HandlePoolStats(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.pool.Stats())
}

// extractWorkerID extracts the worker ID from /v1/workers/{id}/audit paths.
func extractWorkerID(r *http.Request) string {
	if id := r.PathValue("id"); id != "" {
		return id
	}
	return ""
}
