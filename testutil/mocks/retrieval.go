// MockContextProvider 与 MockScanner 的编排能力测试模拟实现。
package mocks

import (
	"context"
	"sync"

	"github.com/BaSui01/agentcore/orchestrator"
)

// --- MockContextProvider 结构 ---

// MockContextProvider 是 orchestrator.ContextProvider 的模拟实现
type MockContextProvider struct {
	mu sync.Mutex

	rc    *orchestrator.RetrievedContext
	found bool
	err   error

	calls   int
	queries []string
}

// NewMockContextProvider 创建新的 MockContextProvider
func NewMockContextProvider() *MockContextProvider {
	return &MockContextProvider{}
}

// WithContext 设置检索结果
func (m *MockContextProvider) WithContext(rc *orchestrator.RetrievedContext) *MockContextProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rc = rc
	m.found = rc != nil
	return m
}

// WithError 注入错误
func (m *MockContextProvider) WithError(err error) *MockContextProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// RetrieveWithContext 返回配置的检索结果
func (m *MockContextProvider) RetrieveWithContext(ctx context.Context, query, vertical string, n int) (*orchestrator.RetrievedContext, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, false, m.err
	}
	return m.rc, m.found, nil
}

// Calls 返回检索调用次数
func (m *MockContextProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Queries 返回收到的查询
func (m *MockContextProvider) Queries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.queries))
	copy(out, m.queries)
	return out
}

// --- MockScanner 结构 ---

// MockScanner 是 orchestrator.CodeScanner 的模拟实现
type MockScanner struct {
	mu sync.Mutex

	issues []orchestrator.Issue
	err    error

	calls   int
	scanned []string
}

// NewMockScanner 创建新的 MockScanner
func NewMockScanner() *MockScanner {
	return &MockScanner{}
}

// WithIssues 设置扫描结果
func (m *MockScanner) WithIssues(issues ...orchestrator.Issue) *MockScanner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = issues
	return m
}

// WithError 注入错误
func (m *MockScanner) WithError(err error) *MockScanner {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// ScanCode 返回配置的扫描结果
func (m *MockScanner) ScanCode(ctx context.Context, code string) (*orchestrator.ScanReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.scanned = append(m.scanned, code)
	if m.err != nil {
		return nil, m.err
	}

	passed := true
	for _, issue := range m.issues {
		if issue.Severity == "critical" || issue.Severity == "high" {
			passed = false
		}
	}
	return &orchestrator.ScanReport{
		Scanned: true,
		Passed:  passed,
		Issues:  m.issues,
	}, nil
}

// Calls 返回扫描调用次数
func (m *MockScanner) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
