// MockProvider 的生成后端测试模拟实现。
//
// 支持固定响应、逐次脚本、延迟与错误注入场景。
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/agentcore/llm"
)

// --- MockProvider 结构 ---

// MockProvider 是 llm.Provider 的模拟实现
type MockProvider struct {
	mu sync.Mutex

	// 固定响应（无脚本时使用）
	response string

	// 逐次脚本：第 n 次调用返回第 n 项，耗尽后回退到固定响应
	script []string

	// 错误注入
	err error

	// 每次调用前的延迟（用于超时测试）
	delay time.Duration

	// 调用记录
	calls    int
	seen     [][]llm.Message
	adapters []string
	active   string
}

// NewMockProvider 创建新的 MockProvider
func NewMockProvider() *MockProvider {
	return &MockProvider{response: "mock response"}
}

// WithResponse 设置固定响应
func (m *MockProvider) WithResponse(response string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.response = response
	return m
}

// WithScript 设置逐次响应脚本
func (m *MockProvider) WithScript(responses ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = responses
	return m
}

// WithError 注入错误
func (m *MockProvider) WithError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithDelay 设置每次调用前的延迟
func (m *MockProvider) WithDelay(delay time.Duration) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
	return m
}

// --- llm.Provider 实现 ---

// Generate 返回脚本或固定响应
func (m *MockProvider) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	m.mu.Lock()
	call := m.calls
	m.calls++
	m.seen = append(m.seen, messages)
	response := m.response
	if call < len(m.script) {
		response = m.script[call]
	}
	err := m.err
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if err != nil {
		return "", err
	}
	return response, nil
}

// Name 返回后端名称
func (m *MockProvider) Name() string { return "mock" }

// --- llm.AdapterManager 实现 ---

// LoadAdapter 记录加载的适配器
func (m *MockProvider) LoadAdapter(ctx context.Context, path, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.adapters = append(m.adapters, tag)
	return nil
}

// SetActiveAdapter 记录激活的适配器
func (m *MockProvider) SetActiveAdapter(ctx context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.active = tag
	return nil
}

// UnloadAdapter 移除适配器记录
func (m *MockProvider) UnloadAdapter(ctx context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == tag {
		m.active = ""
	}
	return nil
}

// --- 检查方法 ---

// Calls 返回 Generate 的调用次数
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Seen 返回每次调用收到的消息
func (m *MockProvider) Seen() [][]llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]llm.Message, len(m.seen))
	copy(out, m.seen)
	return out
}

// LoadedAdapters 返回已加载的适配器标签
func (m *MockProvider) LoadedAdapters() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.adapters))
	copy(out, m.adapters)
	return out
}

// ActiveAdapter 返回当前激活的适配器标签
func (m *MockProvider) ActiveAdapter() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
