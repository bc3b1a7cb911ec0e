package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/api/handlers"
	"github.com/BaSui01/agentcore/audit"
	"github.com/BaSui01/agentcore/config"
	"github.com/BaSui01/agentcore/internal/metrics"
	"github.com/BaSui01/agentcore/internal/server"
	"github.com/BaSui01/agentcore/llm"
	"github.com/BaSui01/agentcore/llm/retry"
	"github.com/BaSui01/agentcore/orchestrator"
	"github.com/BaSui01/agentcore/retrieval"
	"github.com/BaSui01/agentcore/scan"
)

// =============================================================================
// 🖥️ Server 结构
// =============================================================================

// Server 是 AgentCore 的主服务器
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	// 核心组件
	registry *agent.Registry
	pool     *agent.Pool
	orch     *orchestrator.Orchestrator
	store    audit.Store

	// 服务器管理器
	httpManager    *server.Manager
	metricsManager *server.Manager

	// Handlers
	healthHandler *handlers.HealthHandler
	taskHandler   *handlers.TaskHandler
	roleHandler   *handlers.RoleHandler
	workerHandler *handlers.WorkerHandler

	// 指标收集器
	metricsCollector *metrics.Collector

	// Rate limiter 生命周期管理
	rateLimiterCancel context.CancelFunc
}

// NewServer 创建新的服务器实例
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
	}
}

// =============================================================================
// 🚀 启动流程
// =============================================================================

// Start 启动所有服务
func (s *Server) Start() error {
	// 1. 初始化指标收集器。先于核心组件创建，Worker 指标的观察者
	// 在 initCore 里接入池和编排器。
	s.metricsCollector = metrics.NewCollector("agentcore", func() (int, int) {
		if s.pool == nil {
			return 0, 0
		}
		stats := s.pool.Stats()
		return stats.ActiveWorkers, stats.MaxWorkers
	}, s.logger)

	// 2. 初始化编排核心
	if err := s.initCore(); err != nil {
		return fmt.Errorf("failed to init orchestration core: %w", err)
	}

	// 3. 初始化 Handlers
	s.initHandlers()

	// 4. 启动 HTTP 服务器
	if err := s.startHTTPServer(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	// 5. 启动 Metrics 服务器
	if err := s.startMetricsServer(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	s.logger.Info("All servers started",
		zap.Int("http_port", s.cfg.Server.HTTPPort),
		zap.Int("metrics_port", s.cfg.Server.MetricsPort),
	)

	return nil
}

// =============================================================================
// 🔧 初始化方法
// =============================================================================

// initCore 构建角色注册表、Worker 池、审计存储与编排器
func (s *Server) initCore() error {
	// 角色注册表：内置角色 + 可选的自定义角色目录
	s.registry = agent.NewBuiltinRegistry(s.logger)
	if dir := s.cfg.Roles.Dir; dir != "" {
		n, err := s.registry.LoadDir(dir)
		if err != nil {
			s.logger.Warn("failed to load custom roles", zap.String("dir", dir), zap.Error(err))
		} else {
			s.logger.Info("custom roles loaded", zap.String("dir", dir), zap.Int("count", n))
		}
	}

	// 生成后端
	provider := s.buildProvider()

	// Worker 池
	poolOpts := []agent.PoolOption{
		agent.WithMaxWorkers(s.cfg.Pool.MaxWorkers),
		agent.WithSpawnObserver(s.metricsCollector.RecordWorkerSpawn),
	}
	if len(s.cfg.Pool.Adapters) > 0 {
		poolOpts = append(poolOpts, agent.WithAdapters(s.cfg.Pool.Adapters))
	}
	s.pool = agent.NewPool(s.registry, provider, s.logger, poolOpts...)

	// 审计存储
	store, err := s.buildStore()
	if err != nil {
		return err
	}
	s.store = store

	// 编排器
	orchOpts := []orchestrator.Option{
		orchestrator.WithWorkerTimeout(s.cfg.Pool.WorkerTimeout),
		orchestrator.WithHistoryCapacity(s.cfg.Orchestrator.HistoryCapacity),
		orchestrator.WithExecutionObserver(s.metricsCollector.RecordWorkerExecution),
	}
	if s.cfg.Orchestrator.DefaultVertical != "" {
		orchOpts = append(orchOpts, orchestrator.WithDefaultVertical(s.cfg.Orchestrator.DefaultVertical))
	}
	if s.cfg.Orchestrator.ScanEnabled {
		orchOpts = append(orchOpts, orchestrator.WithCodeScanner(scan.New(s.logger)))
	}
	if s.cfg.Orchestrator.RetrievalEnabled {
		kb := retrieval.NewMemoryProvider(s.logger)
		seeded := retrieval.SeedFintechDocs(kb, s.cfg.Orchestrator.DefaultRegion)
		s.logger.Info("retrieval knowledge base seeded",
			zap.String("region", s.cfg.Orchestrator.DefaultRegion),
			zap.Int("documents", seeded))
		orchOpts = append(orchOpts, orchestrator.WithContextProvider(kb))
	}
	s.orch = orchestrator.New(s.registry, s.pool, s.logger, orchOpts...)

	return nil
}

// buildProvider 根据配置构建生成后端。
// 未配置外部后端时回退到 Stub，保证离线可跑通整条编排链路。
func (s *Server) buildProvider() llm.Provider {
	var base llm.Provider

	switch s.cfg.LLM.Provider {
	case "", "stub":
		base = llm.NewStubProvider()
		s.logger.Info("using stub generation backend")
	default:
		s.logger.Warn("unknown llm provider, falling back to stub",
			zap.String("provider", s.cfg.LLM.Provider))
		base = llm.NewStubProvider()
	}

	policy := &retry.Policy{
		MaxAttempts:   s.cfg.LLM.MaxRetries,
		InitialDelay:  s.cfg.LLM.RetryInitialDelay,
		MaxDelay:      s.cfg.LLM.RetryMaxDelay,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
	return llm.NewResilientProvider(base, policy, s.logger)
}

// buildStore 根据配置构建审计存储
func (s *Server) buildStore() (audit.Store, error) {
	switch audit.StoreType(s.cfg.Audit.Store) {
	case audit.StoreTypeMemory, "":
		s.logger.Info("using in-memory audit store")
		return audit.NewMemoryStore(), nil

	case audit.StoreTypeSQLite:
		store, err := audit.OpenSQLite(s.cfg.Audit.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite audit store: %w", err)
		}
		s.logger.Info("using sqlite audit store", zap.String("path", s.cfg.Audit.SQLitePath))
		return store, nil

	case audit.StoreTypePostgres:
		store, err := audit.OpenPostgres(s.cfg.Database.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres audit store: %w", err)
		}
		s.logger.Info("using postgres audit store", zap.String("host", s.cfg.Database.Host))
		return store, nil

	case audit.StoreTypeRedis:
		store, err := audit.NewRedisStore(audit.RedisConfig{
			Addr:      s.cfg.Redis.Addr,
			Password:  s.cfg.Redis.Password,
			DB:        s.cfg.Redis.DB,
			KeyPrefix: s.cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open redis audit store: %w", err)
		}
		s.logger.Info("using redis audit store", zap.String("addr", s.cfg.Redis.Addr))
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported audit store: %s", s.cfg.Audit.Store)
	}
}

// initHandlers 初始化所有 handlers
func (s *Server) initHandlers() {
	s.healthHandler = handlers.NewHealthHandler(s.logger)
	s.healthHandler.RegisterCheck(handlers.NewStoreHealthCheck("audit_store", s.store.Ping))

	s.taskHandler = handlers.NewTaskHandler(s.orch, s.store, s.metricsCollector, s.logger)
	s.roleHandler = handlers.NewRoleHandler(s.registry, s.logger)
	s.workerHandler = handlers.NewWorkerHandler(s.pool, s.logger)

	s.logger.Info("Handlers initialized")
}

// =============================================================================
// 🌐 HTTP 服务器
// =============================================================================

// startHTTPServer 启动 HTTP 服务器
func (s *Server) startHTTPServer() error {
	mux := http.NewServeMux()

	// ========================================
	// 健康检查端点
	// ========================================
	mux.HandleFunc("GET /health", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /healthz", s.healthHandler.HandleHealth)
	mux.HandleFunc("GET /ready", s.healthHandler.HandleReady)
	mux.HandleFunc("GET /readyz", s.healthHandler.HandleReady)

	// 版本信息端点
	mux.HandleFunc("GET /version", s.healthHandler.HandleVersion(Version, BuildTime, GitCommit))

	// ========================================
	// API 路由
	// ========================================
	mux.HandleFunc("POST /v1/tasks", s.taskHandler.HandleSubmitTask)
	mux.HandleFunc("GET /v1/tasks", s.taskHandler.HandleListTasks)
	mux.HandleFunc("GET /v1/tasks/{id}", s.taskHandler.HandleGetTask)
	mux.HandleFunc("GET /v1/history", s.taskHandler.HandleHistory)
	mux.HandleFunc("GET /v1/stats", s.taskHandler.HandleStats)

	mux.HandleFunc("GET /v1/roles", s.roleHandler.HandleListRoles)
	mux.HandleFunc("POST /v1/roles", s.roleHandler.HandleRegisterRole)
	mux.HandleFunc("GET /v1/roles/{id}", s.roleHandler.HandleGetRole)

	mux.HandleFunc("GET /v1/workers", s.workerHandler.HandleListWorkers)
	mux.HandleFunc("GET /v1/workers/stats", s.workerHandler.HandlePoolStats)
	mux.HandleFunc("GET /v1/workers/{id}/audit", s.workerHandler.HandleGetWorkerAudit)
	mux.HandleFunc("GET /v1/audit", s.workerHandler.HandleAuditTrail)

	// ========================================
	// 构建中间件链
	// ========================================
	rateLimiterCtx, rateLimiterCancel := context.WithCancel(context.Background())
	s.rateLimiterCancel = rateLimiterCancel
	handler := Chain(mux,
		Recovery(s.logger),
		RequestID(),
		SecurityHeaders(),
		RequestLogger(s.logger),
		MetricsMiddleware(s.metricsCollector),
		RateLimiter(rateLimiterCtx, float64(s.cfg.Server.RateLimitRPS), s.cfg.Server.RateLimitBurst, s.logger),
	)

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.HTTPPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		IdleTimeout:     2 * s.cfg.Server.ReadTimeout,
		MaxHeaderBytes:  1 << 20, // 1 MB
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.httpManager = server.NewManager(handler, serverConfig, s.logger)

	if err := s.httpManager.Start(); err != nil {
		return err
	}

	s.logger.Info("HTTP server started", zap.Int("port", s.cfg.Server.HTTPPort))
	return nil
}

// =============================================================================
// 📊 Metrics 服务器
// =============================================================================

// startMetricsServer 启动 Metrics 服务器
func (s *Server) startMetricsServer() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	serverConfig := server.Config{
		Addr:            fmt.Sprintf(":%d", s.cfg.Server.MetricsPort),
		ReadTimeout:     s.cfg.Server.ReadTimeout,
		WriteTimeout:    s.cfg.Server.WriteTimeout,
		ShutdownTimeout: s.cfg.Server.ShutdownTimeout,
	}

	s.metricsManager = server.NewManager(mux, serverConfig, s.logger)

	if err := s.metricsManager.Start(); err != nil {
		return err
	}

	s.logger.Info("Metrics server started", zap.Int("port", s.cfg.Server.MetricsPort))
	return nil
}

// =============================================================================
// 🛑 关闭流程
// =============================================================================

// WaitForShutdown 等待关闭信号并优雅关闭
func (s *Server) WaitForShutdown() {
	if s.httpManager != nil {
		s.httpManager.WaitForShutdown()
	}

	s.Shutdown()
}

// Shutdown 优雅关闭所有服务
func (s *Server) Shutdown() {
	s.logger.Info("Starting graceful shutdown...")

	ctx := context.Background()

	// 1. 停止 rate limiter 清理 goroutine
	if s.rateLimiterCancel != nil {
		s.rateLimiterCancel()
	}

	// 2. 关闭 HTTP 服务器
	if s.httpManager != nil {
		if err := s.httpManager.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
		}
	}

	// 3. 关闭 Metrics 服务器
	if s.metricsManager != nil {
		if err := s.metricsManager.Shutdown(ctx); err != nil {
			s.logger.Error("Metrics server shutdown error", zap.Error(err))
		}
	}

	// 4. 销毁存活的 Worker，落盘审计
	if s.pool != nil {
		s.pool.DestroyAll()
	}

	// 5. 关闭审计存储
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("Audit store close error", zap.Error(err))
		}
	}

	s.logger.Info("Graceful shutdown completed")
}
