package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/internal/ring"
	"github.com/BaSui01/agentcore/llm"
)

const (
	// DefaultExecutionTimeout 单次执行的默认超时时间。
	DefaultExecutionTimeout = 60 * time.Second

	// DefaultLogCapacity 状态历史和操作日志的环形缓冲容量。
	DefaultLogCapacity = 100
)

// TaskContext 携带一次执行所需的全部输入，按值传入 Execute，
// Worker 执行结束后不保留其引用。
type TaskContext struct {
	Task                   string
	PriorTurns             []llm.Message
	Scratch                map[string]any
	ParentWorkerID         string
	Vertical               string
	ComplianceRequirements []string
}

// ExecResult 是单个 Worker 一次执行的结果。Execute 永远返回
// 一个完整的结果对象，超时和失败都体现在 Success 和 Error 字段上。
type ExecResult struct {
	WorkerID    string       `json:"worker_id"`
	Role        string       `json:"role"`
	Response    string       `json:"response,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
	Error       string       `json:"error,omitempty"`
	Success     bool         `json:"success"`
}

// AuditRecord 是 Worker 的完整审计快照，供合规审查序列化使用。
type AuditRecord struct {
	ID           string        `json:"id"`
	Role         string        `json:"role"`
	CreatedAt    time.Time     `json:"created_at"`
	StateHistory []StateChange `json:"state_history"`
	ActionLog    []Action      `json:"action_log"`
	Children     []string      `json:"children_ids"`
}

// ChildFactory 由 Worker 的所属池实现，用于派生子 Worker。
type ChildFactory interface {
	SpawnChild(roleName, parentID string) (*Worker, error)
}

// Worker 是绑定单一角色的任务执行单元。它持有自己的状态机、
// 有界审计日志和可选的生成后端引用（共享、不拥有）。
// Worker 由创建它的池独占管理，id 在池生命周期内唯一且不复用。
type Worker struct {
	mu sync.RWMutex

	id        string
	role      Role
	provider  llm.Provider
	tools     map[string]ToolFunc
	state     State
	parentID  string
	children  []string
	createdAt time.Time

	stateHistory *ring.Buffer[StateChange]
	actionLog    *ring.Buffer[Action]

	factory ChildFactory
	logger  *zap.Logger
}

// NewWorker 创建一个处于 Spawned 状态的 Worker。provider 可以为 nil，
// 此时执行会合成确定性的占位响应。
func NewWorker(role Role, provider llm.Provider, parentID string, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Worker{
		id:           uuid.NewString(),
		role:         role,
		provider:     provider,
		tools:        make(map[string]ToolFunc),
		state:        StateIdle,
		parentID:     parentID,
		createdAt:    time.Now(),
		stateHistory: ring.New[StateChange](DefaultLogCapacity),
		actionLog:    ring.New[Action](DefaultLogCapacity),
		logger:       logger,
	}
	w.stateHistory.Append(StateChange{To: StateIdle, Timestamp: time.Now()})
	w.mustTransition(StateSpawned)
	for _, name := range role.Tools {
		w.tools[name] = NoopTool(name)
	}
	return w
}

// ID returns the worker's unique identifier.
func (w *Worker) ID() string { return w.id }

// RoleName returns the name of the worker's current role.
func (w *Worker) RoleName() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.role.Name
}

// State returns the worker's current state.
func (w *Worker) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// ParentID returns the id of the worker that spawned this one, if any.
func (w *Worker) ParentID() string { return w.parentID }

// Children returns the ids of all child workers spawned by this worker.
func (w *Worker) Children() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]string, len(w.children))
	copy(out, w.children)
	return out
}

// setFactory 由池在创建后注入，使 Worker 能派生子 Worker。
func (w *Worker) setFactory(f ChildFactory) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.factory = f
}

// Transition 将 Worker 迁移到目标状态。非法迁移返回错误，
// 合法迁移会追加到状态历史。终态之后不允许任何迁移。
func (w *Worker) Transition(to State) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.transitionLocked(to)
}

func (w *Worker) transitionLocked(to State) error {
	if !CanTransition(w.state, to) {
		return &ErrInvalidTransition{From: w.state, To: to}
	}
	w.recordState(w.state, to)
	w.state = to
	return nil
}

// mustTransition 用于内部已知合法的迁移路径。
func (w *Worker) mustTransition(to State) {
	if err := w.transitionLocked(to); err != nil {
		w.logger.Error("illegal state transition",
			zap.String("worker_id", w.id),
			zap.String("from", string(w.state)),
			zap.String("to", string(to)))
	}
}

func (w *Worker) recordState(from, to State) {
	w.stateHistory.Append(StateChange{From: from, To: to, Timestamp: time.Now()})
}

func (w *Worker) logAction(name string, details map[string]any) {
	w.mu.Lock()
	role := w.role.Name
	w.actionLog.Append(Action{Name: name, Details: details, Role: role, Timestamp: time.Now()})
	w.mu.Unlock()
}

// AssumeRole 替换当前角色并合并其声明的工具。已绑定的工具保留，
// 新声明但未绑定的工具得到一个占位实现。
func (w *Worker) AssumeRole(role Role) {
	w.mu.Lock()
	old := w.role.Name
	w.role = role
	for _, name := range role.Tools {
		if _, ok := w.tools[name]; !ok {
			w.tools[name] = NoopTool(name)
		}
	}
	w.mu.Unlock()

	w.logAction("role_switch", map[string]any{
		"from": old,
		"to":   role.Name,
	})
	w.logger.Info("role switched",
		zap.String("worker_id", w.id),
		zap.String("from", old),
		zap.String("to", role.Name))
}

// BindTool 为某个工具名绑定真实实现，覆盖占位实现。
func (w *Worker) BindTool(name string, fn ToolFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tools[name] = fn
}

// AugmentPrompt 在角色提示词后追加一段背景上下文。
func (w *Worker) AugmentPrompt(block string) {
	if block == "" {
		return
	}
	w.mu.Lock()
	w.role.PromptTemplate += "\n\n" + block
	w.mu.Unlock()
	w.logAction("prompt_augmented", map[string]any{"chars": len(block)})
}

// Execute 在超时约束下执行一个任务。timeout 为零时使用默认值。
//
// 执行流程：迁移到 Working，构造消息序列，调用生成后端（无后端时
// 合成占位响应），扫描响应中的工具调用标记并执行，最后迁移到
// Completed 或 Failed。任何失败路径都返回完整的结果对象，
// 不会向调用方抛出异常。
func (w *Worker) Execute(ctx context.Context, tc TaskContext, timeout time.Duration) *ExecResult {
	if timeout <= 0 {
		timeout = DefaultExecutionTimeout
	}

	w.mu.Lock()
	w.mustTransition(StateWorking)
	w.mu.Unlock()

	w.logAction("execute_start", map[string]any{
		"task":    truncate(tc.Task, 100),
		"timeout": timeout.Seconds(),
	})

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	response, err := w.generate(execCtx, tc)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			w.mu.Lock()
			w.mustTransition(StateFailed)
			w.mu.Unlock()
			w.logAction("execute_timeout", map[string]any{
				"timeout_seconds": timeout.Seconds(),
			})
			w.logger.Error("worker execution timed out",
				zap.String("worker_id", w.id),
				zap.Duration("timeout", timeout))
			return &ExecResult{
				WorkerID: w.id,
				Role:     w.RoleName(),
				Error:    fmt.Sprintf("execution timed out after %gs", timeout.Seconds()),
				Success:  false,
			}
		}

		w.mu.Lock()
		w.mustTransition(StateFailed)
		w.mu.Unlock()
		w.logAction("execute_failed", map[string]any{"error": err.Error()})
		w.logger.Error("worker execution failed",
			zap.String("worker_id", w.id),
			zap.Error(err))
		return &ExecResult{
			WorkerID: w.id,
			Role:     w.RoleName(),
			Error:    err.Error(),
			Success:  false,
		}
	}

	toolResults := invokeMarkedTools(execCtx, response, w.snapshotTools())

	w.mu.Lock()
	w.mustTransition(StateCompleted)
	w.mu.Unlock()
	w.logAction("execute_complete", map[string]any{"success": true})

	return &ExecResult{
		WorkerID:    w.id,
		Role:        w.RoleName(),
		Response:    response,
		ToolResults: toolResults,
		Success:     true,
	}
}

func (w *Worker) generate(ctx context.Context, tc TaskContext) (string, error) {
	w.mu.RLock()
	provider := w.provider
	prompt := w.role.PromptTemplate
	w.mu.RUnlock()

	if provider == nil {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return fmt.Sprintf("[No backend attached] Would process: %s", tc.Task), nil
	}

	messages := make([]llm.Message, 0, len(tc.PriorTurns)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: prompt})
	messages = append(messages, tc.PriorTurns...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: tc.Task})

	return provider.Generate(ctx, messages)
}

func (w *Worker) snapshotTools() map[string]ToolFunc {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]ToolFunc, len(w.tools))
	for name, fn := range w.tools {
		out[name] = fn
	}
	return out
}

// SpawnChild 请求所属池创建一个子 Worker 处理子任务。自身迁移到
// Waiting 状态，由调用方负责在子任务结束后恢复（Completed/Failed）。
func (w *Worker) SpawnChild(roleName, task string) (*Worker, error) {
	w.mu.RLock()
	factory := w.factory
	w.mu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("worker %s has no owning pool", w.id)
	}

	if err := w.Transition(StateWaiting); err != nil {
		return nil, err
	}

	child, err := factory.SpawnChild(roleName, w.id)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.children = append(w.children, child.ID())
	w.mu.Unlock()

	w.logAction("spawn_child", map[string]any{
		"child_id":   child.ID(),
		"child_role": child.RoleName(),
		"task":       truncate(task, 100),
	})
	w.logger.Info("child worker spawned",
		zap.String("parent_id", w.id),
		zap.String("child_id", child.ID()),
		zap.String("child_role", child.RoleName()))

	return child, nil
}

// destroy 由池调用，迁移到终态并记录销毁动作。
func (w *Worker) destroy() {
	w.mu.Lock()
	w.mustTransition(StateDestroyed)
	w.mu.Unlock()
	w.logAction("destroyed", map[string]any{})
}

// Audit 返回 Worker 当前的完整审计快照。
func (w *Worker) Audit() AuditRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	children := make([]string, len(w.children))
	copy(children, w.children)
	return AuditRecord{
		ID:           w.id,
		Role:         w.role.Name,
		CreatedAt:    w.createdAt,
		StateHistory: w.stateHistory.Snapshot(),
		ActionLog:    w.actionLog.Snapshot(),
		Children:     children,
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
