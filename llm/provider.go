package llm

import (
	"context"
	"fmt"
	"strings"
)

// Role 消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message 发送给生成后端的单条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Provider 定义了统一的文本生成后端接口。
// 编排引擎只依赖 Generate 一个能力；具体后端（本地模型、远程 API）
// 由调用方注入，缺省时 Worker 会退化为确定性的占位响应。
type Provider interface {
	// Generate 发起同步生成请求，返回完整文本响应。
	// 实现必须尊重 ctx 的截止时间：Worker 的执行超时依赖它。
	Generate(ctx context.Context, messages []Message) (string, error)

	// Name 返回 Provider 的唯一标识。
	Name() string
}

// AdapterManager 是生成后端的可选扩展：按角色热切换微调 adapter。
// Pool 在 spawn 前尽力激活角色对应的 adapter；后端不实现本接口时跳过。
type AdapterManager interface {
	// LoadAdapter 加载指定路径的 adapter 并以 tag 命名。
	LoadAdapter(ctx context.Context, path, tag string) error

	// SetActiveAdapter 将已加载的 adapter 设为当前生效版本。
	SetActiveAdapter(ctx context.Context, tag string) error

	// UnloadAdapter 卸载指定 adapter，释放资源。
	UnloadAdapter(ctx context.Context, tag string) error
}

// StubProvider 无后端时的占位实现：回显固定格式的占位响应。
// 用于本地开发、测试以及后端暂不可用时的降级路径。
type StubProvider struct{}

// NewStubProvider 创建占位 Provider。
func NewStubProvider() *StubProvider { return &StubProvider{} }

// Generate 返回确定性的占位响应（取最后一条用户消息作为任务文本）。
func (s *StubProvider) Generate(ctx context.Context, messages []Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	task := ""
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			task = messages[i].Content
			break
		}
	}
	return fmt.Sprintf("[stub] Would process: %s", strings.TrimSpace(task)), nil
}

// Name 返回 Provider 标识。
func (s *StubProvider) Name() string { return "stub" }
