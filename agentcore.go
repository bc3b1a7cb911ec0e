// Package agentcore provides a top-level convenience entry point for building
// a complete orchestration engine with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/agentcore"
//
//	engine, err := agentcore.New()
//	engine, err := agentcore.New(agentcore.WithProvider(myBackend), agentcore.WithMaxWorkers(20))
//
//	result := engine.Execute(ctx, "Implement and review a payment parser")
//
// The engine bundles the role registry, worker pool and orchestrator; callers
// needing finer control should assemble the pieces from agent/ and
// orchestrator/ directly.
package agentcore

import (
	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/llm"
	"github.com/BaSui01/agentcore/orchestrator"
	"github.com/BaSui01/agentcore/scan"
	"go.uber.org/zap"
)

// Option configures the engine created by [New].
type Option func(*options)

type options struct {
	provider   llm.Provider
	logger     *zap.Logger
	maxWorkers int
	vertical   string
	scanner    bool
	retriever  orchestrator.ContextProvider
	rolesDir   string
}

// WithProvider sets the generation backend. Defaults to the offline stub.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithLogger sets a custom zap logger. Defaults to zap.NewNop().
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMaxWorkers caps the concurrent worker population.
func WithMaxWorkers(n int) Option {
	return func(o *options) { o.maxWorkers = n }
}

// WithVertical sets the default industry vertical for task execution.
func WithVertical(v string) Option {
	return func(o *options) { o.vertical = v }
}

// WithSecurityScanning enables the built-in rule-based code scanner.
func WithSecurityScanning() Option {
	return func(o *options) { o.scanner = true }
}

// WithContextProvider attaches a knowledge retrieval collaborator.
func WithContextProvider(p orchestrator.ContextProvider) Option {
	return func(o *options) { o.retriever = p }
}

// WithRolesDir loads additional role definitions from a directory of YAML files.
func WithRolesDir(dir string) Option {
	return func(o *options) { o.rolesDir = dir }
}

// Engine 将角色注册表、Worker 池与编排器捆绑为一个可直接使用的整体。
type Engine struct {
	*orchestrator.Orchestrator

	Registry *agent.Registry
	Pool     *agent.Pool
}

// New creates an [Engine] with the built-in role set and sensible defaults.
func New(opts ...Option) (*Engine, error) {
	o := &options{
		logger:     zap.NewNop(),
		maxWorkers: agent.DefaultMaxWorkers,
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.provider == nil {
		o.provider = llm.NewStubProvider()
	}

	registry := agent.NewBuiltinRegistry(o.logger)
	if o.rolesDir != "" {
		if _, err := registry.LoadDir(o.rolesDir); err != nil {
			return nil, err
		}
	}

	pool := agent.NewPool(registry, o.provider, o.logger, agent.WithMaxWorkers(o.maxWorkers))

	orchOpts := make([]orchestrator.Option, 0, 3)
	if o.vertical != "" {
		orchOpts = append(orchOpts, orchestrator.WithDefaultVertical(o.vertical))
	}
	if o.scanner {
		orchOpts = append(orchOpts, orchestrator.WithCodeScanner(scan.New(o.logger)))
	}
	if o.retriever != nil {
		orchOpts = append(orchOpts, orchestrator.WithContextProvider(o.retriever))
	}

	return &Engine{
		Orchestrator: orchestrator.New(registry, pool, o.logger, orchOpts...),
		Registry:     registry,
		Pool:         pool,
	}, nil
}
