package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/llm"
	"github.com/BaSui01/agentcore/types"
)

// DefaultMaxWorkers 池的默认最大并发 Worker 数。
const DefaultMaxWorkers = 10

// PoolStats 是池的即时统计快照。
type PoolStats struct {
	ActiveWorkers  int           `json:"active_agents"`
	MaxWorkers     int           `json:"max_agents"`
	TotalSpawned   int           `json:"total_spawned"`
	StateBreakdown map[State]int `json:"state_breakdown"`
}

// Spawn 尝试的结果标签，传给 SpawnObserver。
const (
	SpawnStatusOK       = "ok"
	SpawnStatusCapacity = "capacity"
	SpawnStatusNotFound = "not_found"
)

// SpawnObserver 在每次 spawn 尝试后被调用，status 为 SpawnStatus* 之一。
type SpawnObserver func(role, status string)

// PoolOption configures a Pool at construction time.
type PoolOption func(*Pool)

// WithSpawnObserver registers a callback invoked after every spawn attempt.
func WithSpawnObserver(fn SpawnObserver) PoolOption {
	return func(p *Pool) { p.spawnObserver = fn }
}

// WithMaxWorkers sets the maximum live population. Values below one fall
// back to the default.
func WithMaxWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.maxWorkers = n
		}
	}
}

// WithAdapters registers per-role fine-tuned adapter paths. When the
// attached backend supports adapter management, the pool activates the
// role's adapter before each spawn, best effort.
func WithAdapters(adapters map[string]string) PoolOption {
	return func(p *Pool) {
		p.adapters = adapters
	}
}

// SpawnOption configures a single spawn call.
type SpawnOption func(*spawnConfig)

type spawnConfig struct {
	parentID       string
	tools          map[string]ToolFunc
	adapterVersion string
}

// WithParent marks the new worker as a child of parentID.
func WithParent(parentID string) SpawnOption {
	return func(c *spawnConfig) { c.parentID = parentID }
}

// WithTools binds extra tool implementations onto the new worker.
func WithTools(tools map[string]ToolFunc) SpawnOption {
	return func(c *spawnConfig) { c.tools = tools }
}

// WithAdapterVersion selects which adapter version to activate for the
// role. Defaults to "latest".
func WithAdapterVersion(v string) SpawnOption {
	return func(c *spawnConfig) { c.adapterVersion = v }
}

// Pool 管理一组存活的 Worker：创建、跟踪、清理和销毁，并强制
// 最大并发数约束。容量检查和插入在同一把锁下完成，保证并发
// spawn 不会突破上限。
type Pool struct {
	mu       sync.Mutex
	live     map[string]*Worker
	history  []AuditRecord
	registry *Registry
	provider llm.Provider
	adapters map[string]string

	maxWorkers    int
	totalSpawned  int
	spawnObserver SpawnObserver
	logger        *zap.Logger
}

// NewPool 创建一个空池。provider 可以为 nil。
func NewPool(registry *Registry, provider llm.Provider, logger *zap.Logger, opts ...PoolOption) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{
		live:       make(map[string]*Worker),
		registry:   registry,
		provider:   provider,
		maxWorkers: DefaultMaxWorkers,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Spawn 创建一个新 Worker 并加入池中。池已满时先做一次机会性清理，
// 回收终态 Worker 的名额；仍然满则返回容量错误。未知角色名返回
// not-found 错误。适配器激活失败只记录日志，不阻塞创建。
func (p *Pool) Spawn(roleName string, opts ...SpawnOption) (*Worker, error) {
	cfg := spawnConfig{adapterVersion: "latest"}
	for _, opt := range opts {
		opt(&cfg)
	}

	role, ok := p.registry.Get(roleName)
	if !ok {
		p.observeSpawn(roleName, SpawnStatusNotFound)
		return nil, types.NewRoleNotFoundError(roleName)
	}

	p.activateAdapter(role, cfg.adapterVersion)

	p.mu.Lock()
	if len(p.live) >= p.maxWorkers {
		p.cleanupLocked()
	}
	if len(p.live) >= p.maxWorkers {
		p.mu.Unlock()
		p.observeSpawn(roleName, SpawnStatusCapacity)
		return nil, types.NewCapacityError(p.maxWorkers)
	}

	w := NewWorker(role, p.provider, cfg.parentID, p.logger)
	w.setFactory(p)
	for name, fn := range cfg.tools {
		w.BindTool(name, fn)
	}
	p.live[w.ID()] = w
	p.totalSpawned++
	p.mu.Unlock()

	p.observeSpawn(roleName, SpawnStatusOK)
	p.logger.Info("worker spawned",
		zap.String("worker_id", w.ID()),
		zap.String("role", roleName),
		zap.String("parent_id", cfg.parentID))
	return w, nil
}

// observeSpawn 通知观察者一次 spawn 尝试。必须在不持锁时调用。
func (p *Pool) observeSpawn(role, status string) {
	if p.spawnObserver != nil {
		p.spawnObserver(role, status)
	}
}

// activateAdapter 尽力激活角色对应的微调适配器。
func (p *Pool) activateAdapter(role Role, version string) {
	path, ok := p.adapters[role.Name]
	if !ok || p.provider == nil {
		return
	}
	mgr, ok := p.provider.(llm.AdapterManager)
	if !ok {
		return
	}

	tag := role.Name + ":" + version
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := mgr.LoadAdapter(ctx, path, tag); err != nil {
		p.logger.Warn("adapter load failed",
			zap.String("role", role.Name),
			zap.String("adapter", tag),
			zap.Error(err))
		return
	}
	if err := mgr.SetActiveAdapter(ctx, tag); err != nil {
		p.logger.Warn("adapter activation failed",
			zap.String("role", role.Name),
			zap.String("adapter", tag),
			zap.Error(err))
	}
}

// SpawnChild implements ChildFactory for workers owned by this pool.
func (p *Pool) SpawnChild(roleName, parentID string) (*Worker, error) {
	return p.Spawn(roleName, WithParent(parentID))
}

// SpawnForTask 根据任务文本匹配角色并为每个匹配角色创建一个 Worker。
// 没有匹配时回退到单个默认角色。循环中途遇到容量错误则提前停止，
// 已创建的 Worker 正常返回，调用不整体失败。
func (p *Pool) SpawnForTask(task, vertical string, opts ...SpawnOption) []*Worker {
	roles := p.registry.FindForTask(task, vertical)
	if len(roles) == 0 {
		roles = []string{"coder"}
	}

	var workers []*Worker
	for _, roleName := range roles {
		w, err := p.Spawn(roleName, opts...)
		if err != nil {
			p.logger.Warn("spawn failed",
				zap.String("role", roleName),
				zap.Error(err))
			if types.IsCode(err, types.ErrPoolCapacity) {
				break
			}
			continue
		}
		workers = append(workers, w)
	}

	p.logger.Info("workers spawned for task",
		zap.String("task", truncate(task, 50)),
		zap.Strings("roles", roles),
		zap.Int("count", len(workers)))
	return workers
}

// Get returns a live worker by id.
func (p *Pool) Get(id string) (*Worker, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	w, ok := p.live[id]
	return w, ok
}

// WorkerSummary 是单个存活 Worker 的简要视图。
type WorkerSummary struct {
	ID       string   `json:"id"`
	Role     string   `json:"role"`
	State    State    `json:"state"`
	ParentID string   `json:"parent,omitempty"`
	Children []string `json:"children,omitempty"`
}

// List returns a summary of every live worker.
func (p *Pool) List() []WorkerSummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]WorkerSummary, 0, len(p.live))
	for _, w := range p.live {
		out = append(out, WorkerSummary{
			ID:       w.ID(),
			Role:     w.RoleName(),
			State:    w.State(),
			ParentID: w.ParentID(),
			Children: w.Children(),
		})
	}
	return out
}

// Destroy 销毁一个 Worker：归档审计快照到历史列表并从存活集合移除。
// id 不存在时为幂等空操作。
func (p *Pool) Destroy(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyLocked(id)
}

func (p *Pool) destroyLocked(id string) {
	w, ok := p.live[id]
	if !ok {
		return
	}
	w.destroy()
	p.history = append(p.history, w.Audit())
	delete(p.live, id)
	p.logger.Info("worker destroyed", zap.String("worker_id", id))
}

// cleanupLocked 回收已到终态的 Worker。调用方必须持有锁。
func (p *Pool) cleanupLocked() {
	var reclaimed []string
	for id, w := range p.live {
		if IsTerminal(w.State()) {
			reclaimed = append(reclaimed, id)
		}
	}
	for _, id := range reclaimed {
		p.destroyLocked(id)
	}
	if len(reclaimed) > 0 {
		p.logger.Info("terminal workers reclaimed", zap.Int("count", len(reclaimed)))
	}
}

// DestroyAll tears down every live worker.
func (p *Pool) DestroyAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.live {
		p.destroyLocked(id)
	}
	p.logger.Info("all workers destroyed")
}

// AuditTrail 返回完整审计轨迹：历史归档加上存活 Worker 的即时快照。
// 每次调用按需生成，不做缓存。
func (p *Pool) AuditTrail() []AuditRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]AuditRecord, 0, len(p.history)+len(p.live))
	out = append(out, p.history...)
	for _, w := range p.live {
		out = append(out, w.Audit())
	}
	return out
}

// Stats returns a snapshot of the pool's population.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	breakdown := make(map[State]int)
	for _, w := range p.live {
		breakdown[w.State()]++
	}
	return PoolStats{
		ActiveWorkers:  len(p.live),
		MaxWorkers:     p.maxWorkers,
		TotalSpawned:   p.totalSpawned,
		StateBreakdown: breakdown,
	}
}
