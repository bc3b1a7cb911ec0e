package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/BaSui01/agentcore/audit"
	"github.com/BaSui01/agentcore/internal/metrics"
	"github.com/BaSui01/agentcore/orchestrator"
	"github.com/BaSui01/agentcore/types"
	"go.uber.org/zap"
)

// =============================================================================
// 🎯 任务编排 Handler
// =============================================================================

// TaskHandler 任务提交与查询处理器
type TaskHandler struct {
	orch    *orchestrator.Orchestrator
	store   audit.Store
	metrics *metrics.Collector
	logger  *zap.Logger
}

// TaskSubmitRequest 任务提交请求
type TaskSubmitRequest struct {
	// 任务描述
	Task string `json:"task" binding:"required"`
	// 行业（可选）: fintech, healthcare, legal
	Vertical string `json:"vertical,omitempty"`
	// 合规区域（可选）: india, eu, uk
	Region string `json:"region,omitempty"`
	// 附加合规检查项
	Compliance []string `json:"compliance,omitempty"`
	// 执行模式覆盖: sequential, parallel, pipeline
	Mode string `json:"mode,omitempty"`
	// 是否禁用知识库检索
	SkipContext bool `json:"skip_context,omitempty"`
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(orch *orchestrator.Orchestrator, store audit.Store, collector *metrics.Collector, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		orch:    orch,
		store:   store,
		metrics: collector,
		logger:  logger,
	}
}

// HandleSubmitTask 处理 POST /v1/tasks 请求
// @Summary 提交任务
// @Description 将任务分解为子任务并由多个 Worker 执行
// @Tags task
// @Accept json
// @Produce json
// @Success 200 {object} Response "任务结果"
// @Failure 400 {object} Response "请求无效"
// @Router /v1/tasks [post]
func (h *TaskHandler) HandleSubmitTask(w http.ResponseWriter, r *http.Request) {
	var req TaskSubmitRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if strings.TrimSpace(req.Task) == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "task is required", h.logger)
		return
	}

	opts, err := h.execOptions(req)
	if err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, err.Error(), h.logger)
		return
	}

	result := h.orch.Execute(r.Context(), req.Task, opts...)

	if h.metrics != nil {
		h.metrics.RecordTask(result.Success, req.Vertical, result.Duration, len(result.RolesUsed))
	}

	// 持久化失败不影响响应
	if h.store != nil {
		if err := h.store.SaveResult(r.Context(), result); err != nil {
			h.logger.Warn("failed to persist task result",
				zap.String("task_id", result.TaskID),
				zap.Error(err))
		}
	}

	WriteSuccess(w, result)
}

// execOptions 将请求字段转换为执行选项
func (h *TaskHandler) execOptions(req TaskSubmitRequest) ([]orchestrator.ExecOption, error) {
	opts := make([]orchestrator.ExecOption, 0, 5)

	if req.Vertical != "" {
		opts = append(opts, orchestrator.WithVertical(req.Vertical))
	}
	if req.Region != "" {
		opts = append(opts, orchestrator.WithRegion(req.Region))
	}
	if len(req.Compliance) > 0 {
		opts = append(opts, orchestrator.WithCompliance(req.Compliance...))
	}
	if req.SkipContext {
		opts = append(opts, orchestrator.WithoutContext())
	}

	switch orchestrator.ExecutionMode(req.Mode) {
	case "":
	case orchestrator.ModeSequential, orchestrator.ModeParallel, orchestrator.ModePipeline:
		opts = append(opts, orchestrator.WithMode(orchestrator.ExecutionMode(req.Mode)))
	default:
		return nil, errors.New("mode must be sequential, parallel or pipeline")
	}

	return opts, nil
}

// HandleGetTask 处理 GET /v1/tasks/{id} 请求
// @Summary 查询任务结果
// @Tags task
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} Response "任务结果"
// @Failure 404 {object} Response "任务不存在"
// @Router /v1/tasks/{id} [get]
func (h *TaskHandler) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID := extractPathID(r, "/v1/tasks/")
	if taskID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "task ID is required", h.logger)
		return
	}

	result, err := h.store.GetResult(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, audit.ErrNotFound) {
			WriteErrorMessage(w, http.StatusNotFound, types.ErrTaskNotFound, "task not found", h.logger)
			return
		}
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, "failed to load task result", h.logger)
		return
	}

	WriteSuccess(w, result)
}

// HandleListTasks 处理 GET /v1/tasks 请求
// @Summary 列出最近任务
// @Tags task
// @Produce json
// @Param limit query int false "最大条数（默认 20）"
// @Success 200 {object} Response "任务列表"
// @Router /v1/tasks [get]
func (h *TaskHandler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "limit must be a positive integer", h.logger)
			return
		}
		limit = n
	}

	results, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		WriteErrorMessage(w, http.StatusInternalServerError, types.ErrInternalError, "failed to list task results", h.logger)
		return
	}

	WriteSuccess(w, results)
}

// HandleStats 处理 GET /v1/stats 请求
// @Summary 编排统计
// @Tags task
// @Produce json
// @Success 200 {object} Response "统计信息"
// @Router /v1/stats [get]
func (h *TaskHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.orch.GetStats())
}

// HandleHistory 处理 GET /v1/history 请求（内存中的近期任务摘要）
// @Summary 任务历史摘要
// @Tags task
// @Produce json
// @Success 200 {object} Response "任务摘要列表"
// @Router /v1/history [get]
func (h *TaskHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, h.orch.History())
}

// extractPathID extracts the trailing ID from the URL path.
// Supports both /prefix/{id} (PathValue) and prefix trimming.
func extractPathID(r *http.Request, prefix string) string {
	// Try Go 1.22+ PathValue first
	if id := r.PathValue("id"); id != "" {
		return id
	}
	path := strings.TrimPrefix(r.URL.Path, prefix)
	if path != "" && path != r.URL.Path && !strings.Contains(path, "/") {
		return path
	}
	return ""
}
