package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/internal/ring"
	"github.com/BaSui01/agentcore/llm"
)

// DefaultHistoryCapacity 编排历史环形缓冲的默认容量。
const DefaultHistoryCapacity = 100

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithDefaultVertical sets the vertical used when a call does not specify one.
func WithDefaultVertical(v string) Option {
	return func(o *Orchestrator) { o.defaultVertical = v }
}

// WithWorkerTimeout sets the per-worker execution timeout.
func WithWorkerTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.workerTimeout = d }
}

// WithContextProvider attaches a retrieval collaborator. Background context
// is pulled before planning and injected into role prompts.
func WithContextProvider(p ContextProvider) Option {
	return func(o *Orchestrator) { o.contextProvider = p }
}

// WithCodeScanner attaches a security-scan collaborator applied to code
// generated by workers.
func WithCodeScanner(s CodeScanner) Option {
	return func(o *Orchestrator) { o.scanner = s }
}

// ExecutionObserver 在每个 Worker 执行结束后被调用，status 为
// ok 或 failed。
type ExecutionObserver func(role, status string, duration time.Duration)

// WithExecutionObserver registers a callback invoked after every worker
// execution.
func WithExecutionObserver(fn ExecutionObserver) Option {
	return func(o *Orchestrator) { o.execObserver = fn }
}

// WithHistoryCapacity bounds the task-result history.
func WithHistoryCapacity(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.historyCap = n
		}
	}
}

// ExecOption configures a single Execute call.
type ExecOption func(*execConfig)

type execConfig struct {
	vertical     string
	region       string
	requirements []string
	mode         ExecutionMode
	useContext   bool
}

// WithVertical sets the vertical context for this call.
func WithVertical(v string) ExecOption {
	return func(c *execConfig) { c.vertical = v }
}

// WithRegion sets the compliance region (india, eu, uk).
func WithRegion(r string) ExecOption {
	return func(c *execConfig) { c.region = r }
}

// WithCompliance adds caller-supplied compliance requirements.
func WithCompliance(reqs ...string) ExecOption {
	return func(c *execConfig) { c.requirements = append(c.requirements, reqs...) }
}

// WithMode overrides the planner's execution-mode choice.
func WithMode(m ExecutionMode) ExecOption {
	return func(c *execConfig) { c.mode = m }
}

// WithoutContext skips context retrieval for this call even when a
// provider is attached.
func WithoutContext() ExecOption {
	return func(c *execConfig) { c.useContext = false }
}

// Orchestrator 多智能体任务的主协调器：分析任务、生成计划、
// 从池中派生 Worker、按计划执行（串行/并行/流水线）、聚合结果、
// 核对合规清单并收集审计轨迹。
//
// 附加检索协作方后，编排会在规划前拉取背景上下文注入角色提示词；
// 附加扫描协作方后，执行结束会对生成的代码做安全扫描并将发现
// 反映到合规状态中。
type Orchestrator struct {
	registry *agent.Registry
	pool     *agent.Pool
	logger   *zap.Logger

	defaultVertical string
	workerTimeout   time.Duration
	historyCap      int
	contextProvider ContextProvider
	scanner         CodeScanner
	execObserver    ExecutionObserver

	mu             sync.Mutex
	history        *ring.Buffer[*TaskResult]
	taskCounter    int
	tasksTotal     int
	tasksSucceeded int
}

// New 创建一个编排器。registry 和 pool 由调用方提供并可与其他
// 组件共享。
func New(registry *agent.Registry, pool *agent.Pool, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		registry:   registry,
		pool:       pool,
		logger:     logger,
		historyCap: DefaultHistoryCapacity,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.history = ring.New[*TaskResult](o.historyCap)
	return o
}

// executing 将一个已派生的 Worker 与它的子任务绑定。
type executing struct {
	worker  *agent.Worker
	subtask Subtask
}

// Execute 执行一次完整的编排调用。调用方永远得到一个完整的
// TaskResult：规划阶段的失败短路为 success=false 的结果，单个
// Worker 的失败体现在对应的结果条目里，不会中断整体调用。
func (o *Orchestrator) Execute(ctx context.Context, task string, opts ...ExecOption) (result *TaskResult) {
	cfg := execConfig{useContext: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.vertical == "" {
		cfg.vertical = o.defaultVertical
	}
	if cfg.region == "" {
		cfg.region = DefaultRegion
	}

	start := time.Now()
	taskID := o.nextTaskID()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("task failed",
				zap.String("task_id", taskID),
				zap.Any("panic", r))
			result = o.failedResult(taskID, fmt.Sprintf("%v", r), time.Since(start))
		}
	}()

	o.logger.Info("task started",
		zap.String("task_id", taskID),
		zap.String("task", truncate(task, 100)),
		zap.String("vertical", cfg.vertical),
		zap.String("region", cfg.region))

	// Step 1: retrieve background context, best effort.
	var rc *RetrievedContext
	if o.contextProvider != nil && cfg.useContext {
		rc = o.retrieveContext(ctx, task, cfg.vertical)
	}

	// Step 2: plan. Source identifiers from retrieval may add checklist items.
	requirements := append(append([]string{}, cfg.requirements...), checklistFromSources(rc, cfg.region)...)
	plan := buildPlan(taskID, task, o.registry, cfg.vertical, cfg.region, requirements)
	if cfg.mode != "" {
		plan.Mode = cfg.mode
	}
	if rc != nil {
		plan.Analysis += fmt.Sprintf("\n\nContext: retrieved %d relevant documents", len(rc.Documents))
	}
	o.logger.Info("task planned",
		zap.String("task_id", taskID),
		zap.Strings("roles", plan.RolesNeeded),
		zap.String("mode", string(plan.Mode)))

	// Step 3: spawn one worker per planned role. A failed spawn drops the
	// role from the executing set rather than failing the call.
	execs := o.spawnWorkers(plan, rc)

	// Step 4: run the plan.
	results := o.runPlan(ctx, plan, execs)

	// Step 5: scan generated code, best effort.
	report := o.scanResults(ctx, results)

	// Step 6: aggregate in execution order.
	aggregated := aggregate(results) + sourcesSection(rc) + findingsSection(report)

	// Step 7: compliance verdicts.
	compliance := o.verifyCompliance(plan, rc, report)

	// Step 8: collect audit trails, then return the pool to its
	// pre-call population.
	trail := make([]AuditEntry, 0, len(execs)+1)
	rolesUsed := make([]string, 0, len(execs))
	for _, e := range execs {
		rec := e.worker.Audit()
		trail = append(trail, AuditEntry{Type: "worker", Worker: &rec})
		rolesUsed = append(rolesUsed, e.worker.RoleName())
	}
	if rc != nil {
		trail = append(trail, AuditEntry{
			Type: "rag_sources",
			Details: map[string]any{
				"sources":        rc.SourceIDs,
				"documents_used": len(rc.Documents),
			},
		})
	}
	for _, e := range execs {
		o.pool.Destroy(e.worker.ID())
	}

	result = &TaskResult{
		TaskID:           taskID,
		Success:          true,
		Results:          results,
		AggregatedOutput: aggregated,
		ComplianceStatus: compliance,
		Duration:         time.Since(start),
		RolesUsed:        rolesUsed,
		AuditTrail:       trail,
	}
	o.appendHistory(result)

	o.logger.Info("task completed",
		zap.String("task_id", taskID),
		zap.Duration("duration", result.Duration))
	return result
}

func (o *Orchestrator) nextTaskID() string {
	o.mu.Lock()
	o.taskCounter++
	n := o.taskCounter
	o.mu.Unlock()
	return fmt.Sprintf("task_%d_%s", n, time.Now().Format("20060102_150405"))
}

func (o *Orchestrator) failedResult(taskID, errText string, duration time.Duration) *TaskResult {
	result := &TaskResult{
		TaskID:           taskID,
		Success:          false,
		Results:          []*agent.ExecResult{{Error: errText, Success: false}},
		AggregatedOutput: "Task failed: " + errText,
		ComplianceStatus: map[string]bool{},
		Duration:         duration,
		RolesUsed:        []string{},
		AuditTrail:       []AuditEntry{},
	}
	o.appendHistory(result)
	return result
}

func (o *Orchestrator) appendHistory(result *TaskResult) {
	o.mu.Lock()
	o.history.Append(result)
	o.tasksTotal++
	if result.Success {
		o.tasksSucceeded++
	}
	o.mu.Unlock()
}

// retrieveContext 向检索协作方拉取背景上下文。任何失败只记录日志，
// 编排按无上下文继续，绝不因此让任务失败。
func (o *Orchestrator) retrieveContext(ctx context.Context, task, vertical string) *RetrievedContext {
	rc, found, err := o.contextProvider.RetrieveWithContext(ctx, task, vertical, 5)
	if err != nil {
		o.logger.Warn("context retrieval failed", zap.Error(err))
		return nil
	}
	if !found {
		return nil
	}
	return rc
}

func (o *Orchestrator) spawnWorkers(plan TaskPlan, rc *RetrievedContext) []executing {
	var execs []executing
	for i, roleName := range plan.RolesNeeded {
		w, err := o.pool.Spawn(roleName)
		if err != nil {
			o.logger.Warn("worker spawn failed",
				zap.String("role", roleName),
				zap.Error(err))
			continue
		}
		if block := contextBlock(rc, plan.Vertical); block != "" {
			w.AugmentPrompt(block)
		}
		execs = append(execs, executing{worker: w, subtask: plan.Subtasks[i]})
	}
	return execs
}

// runPlan 按执行模式驱动所有 Worker，结果按角色索引顺序返回。
func (o *Orchestrator) runPlan(ctx context.Context, plan TaskPlan, execs []executing) []*agent.ExecResult {
	switch plan.Mode {
	case ModeParallel:
		return o.runParallel(ctx, plan, execs)
	case ModePipeline:
		return o.runSequential(ctx, plan, execs, true)
	default:
		return o.runSequential(ctx, plan, execs, false)
	}
}

// runParallel 并发执行所有 Worker。结果按索引写入固定位置，完成
// 顺序不影响报告顺序；单个 Worker 的失败已被 Execute 捕获为结果
// 条目，不会取消其余 Worker。
func (o *Orchestrator) runParallel(ctx context.Context, plan TaskPlan, execs []executing) []*agent.ExecResult {
	results := make([]*agent.ExecResult, len(execs))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range execs {
		g.Go(func() error {
			results[i] = o.executeWorker(gctx, e.worker, agent.TaskContext{
				Task:                   e.subtask.Task,
				Vertical:               plan.Vertical,
				ComplianceRequirements: plan.ComplianceChecklist,
			})
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// runSequential 逐个执行 Worker。pipeline 为 true 时只传递最近
// 一次成功的输出，否则传递全部前序输出。
func (o *Orchestrator) runSequential(ctx context.Context, plan TaskPlan, execs []executing, pipeline bool) []*agent.ExecResult {
	results := make([]*agent.ExecResult, 0, len(execs))
	for _, e := range execs {
		var prior []llm.Message
		if pipeline {
			for i := len(results) - 1; i >= 0; i-- {
				if results[i].Success {
					prior = append(prior, llm.Message{Role: llm.RoleAssistant, Content: results[i].Response})
					break
				}
			}
		} else {
			for _, r := range results {
				prior = append(prior, llm.Message{Role: llm.RoleAssistant, Content: r.Response})
			}
		}

		results = append(results, o.executeWorker(ctx, e.worker, agent.TaskContext{
			Task:                   e.subtask.Task,
			PriorTurns:             prior,
			Vertical:               plan.Vertical,
			ComplianceRequirements: plan.ComplianceChecklist,
		}))
	}
	return results
}

// executeWorker 驱动单个 Worker 并通知执行观察者。
func (o *Orchestrator) executeWorker(ctx context.Context, w *agent.Worker, tc agent.TaskContext) *agent.ExecResult {
	start := time.Now()
	res := w.Execute(ctx, tc, o.workerTimeout)
	if o.execObserver != nil {
		status := "failed"
		if res.Success {
			status = "ok"
		}
		o.execObserver(w.RoleName(), status, time.Since(start))
	}
	return res
}

// scanResults 提取所有响应中的代码围栏并提交安全扫描。
func (o *Orchestrator) scanResults(ctx context.Context, results []*agent.ExecResult) *ScanReport {
	if o.scanner == nil {
		return nil
	}

	merged := &ScanReport{Scanned: true, Passed: true}
	for _, res := range results {
		for _, code := range extractCodeBlocks(res.Response) {
			report, err := o.scanner.ScanCode(ctx, code)
			if err != nil {
				o.logger.Warn("security scan failed", zap.Error(err))
				continue
			}
			merged.Issues = append(merged.Issues, report.Issues...)
		}
	}
	for _, issue := range merged.Issues {
		if issue.Severity == "critical" || issue.Severity == "high" {
			merged.Passed = false
			break
		}
	}
	return merged
}

// aggregate 按执行顺序拼接每个 Worker 的角色名、通过标记和响应。
func aggregate(results []*agent.ExecResult) string {
	parts := make([]string, 0, len(results))
	for _, res := range results {
		status := "✗"
		if res.Success {
			status = "✓"
		}
		response := res.Response
		if response == "" {
			response = "No response"
		}
		parts = append(parts, fmt.Sprintf("## %s %s\n\n%s\n", res.Role, status, response))
	}
	return strings.Join(parts, "\n---\n")
}

// verifyCompliance 给出合规清单的逐项结论。清单项默认为 true：
// 编排自身的审计轨迹满足 audit_logging 这类结构性要求。扫描报告
// 的 critical/high 发现会将代码安全相关的项置为 false，但
// audit_logging 始终为 true。
func (o *Orchestrator) verifyCompliance(plan TaskPlan, rc *RetrievedContext, report *ScanReport) map[string]bool {
	status := make(map[string]bool, len(plan.ComplianceChecklist))
	for _, item := range plan.ComplianceChecklist {
		status[item] = true
	}
	if plan.Vertical == "fintech" {
		status["audit_logging"] = true
		if _, ok := status["data_encryption"]; !ok {
			status["data_encryption"] = true
		}
	}

	if report != nil && report.Scanned {
		status["security_scan"] = report.Passed
		if !report.Passed {
			for _, item := range []string{"pci_dss", "data_encryption", "secure_coding"} {
				if _, ok := status[item]; ok {
					status[item] = false
				}
			}
		}
	}

	if rc != nil {
		for _, source := range rc.SourceIDs {
			lower := strings.ToLower(source)
			if strings.Contains(lower, "pci_dss") {
				status["pci_dss_context_applied"] = true
			}
			if strings.Contains(lower, "rbi") {
				status["rbi_guidelines_context_applied"] = true
			}
		}
	}
	return status
}

// TaskSummary 历史查询用的精简视图。
type TaskSummary struct {
	TaskID           string          `json:"task_id"`
	Success          bool            `json:"success"`
	Duration         time.Duration   `json:"duration"`
	RolesUsed        []string        `json:"agents_used"`
	ComplianceStatus map[string]bool `json:"compliance_status"`
}

// History returns summaries of past task results, oldest first.
func (o *Orchestrator) History() []TaskSummary {
	o.mu.Lock()
	defer o.mu.Unlock()
	results := o.history.Snapshot()
	out := make([]TaskSummary, 0, len(results))
	for _, r := range results {
		out = append(out, TaskSummary{
			TaskID:           r.TaskID,
			Success:          r.Success,
			Duration:         r.Duration,
			RolesUsed:        r.RolesUsed,
			ComplianceStatus: r.ComplianceStatus,
		})
	}
	return out
}

// Stats 编排器的累计统计。
type Stats struct {
	TotalTasks      int             `json:"total_tasks"`
	SuccessfulTasks int             `json:"successful_tasks"`
	SuccessRate     float64         `json:"success_rate"`
	Pool            agent.PoolStats `json:"pool"`
	AvailableRoles  []string        `json:"available_roles"`
}

// GetStats returns a snapshot of orchestrator and pool statistics.
func (o *Orchestrator) GetStats() Stats {
	o.mu.Lock()
	total, successful := o.tasksTotal, o.tasksSucceeded
	o.mu.Unlock()

	rate := 0.0
	if total > 0 {
		rate = float64(successful) / float64(total)
	}
	return Stats{
		TotalTasks:      total,
		SuccessfulTasks: successful,
		SuccessRate:     rate,
		Pool:            o.pool.Stats(),
		AvailableRoles:  o.registry.List(),
	}
}

// truncate 在不超过 n 字节的前提下于 rune 边界截断。
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
