package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/llm/retry"
)

// ResilientProvider 用重试策略包装底层 Provider。
// 只有对外部后端的 Generate 调用走重试；进程内逻辑不经过本包装。
type ResilientProvider struct {
	inner   Provider
	retryer retry.Retryer
	logger  *zap.Logger
}

// NewResilientProvider 创建带重试的 Provider 包装。
// policy 为 nil 时使用默认策略。
func NewResilientProvider(inner Provider, policy *retry.Policy, logger *zap.Logger) *ResilientProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResilientProvider{
		inner:   inner,
		retryer: retry.NewBackoffRetryer(policy, logger),
		logger:  logger.With(zap.String("component", "resilient_provider"), zap.String("provider", inner.Name())),
	}
}

// Generate 调用底层 Provider，瞬时失败时按策略重试。
// 截止时间由 ctx 控制：Worker 超时到期后重试等待会立即中止。
func (p *ResilientProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	return retry.DoWithResultTyped[string](p.retryer, ctx, func() (string, error) {
		return p.inner.Generate(ctx, messages)
	})
}

// Name 返回底层 Provider 标识。
func (p *ResilientProvider) Name() string { return p.inner.Name() }

// LoadAdapter 透传给底层 Provider（若支持 adapter 管理）。
func (p *ResilientProvider) LoadAdapter(ctx context.Context, path, tag string) error {
	if am, ok := p.inner.(AdapterManager); ok {
		return am.LoadAdapter(ctx, path, tag)
	}
	return nil
}

// SetActiveAdapter 透传给底层 Provider（若支持 adapter 管理）。
func (p *ResilientProvider) SetActiveAdapter(ctx context.Context, tag string) error {
	if am, ok := p.inner.(AdapterManager); ok {
		return am.SetActiveAdapter(ctx, tag)
	}
	return nil
}

// UnloadAdapter 透传给底层 Provider（若支持 adapter 管理）。
func (p *ResilientProvider) UnloadAdapter(ctx context.Context, tag string) error {
	if am, ok := p.inner.(AdapterManager); ok {
		return am.UnloadAdapter(ctx, tag)
	}
	return nil
}
