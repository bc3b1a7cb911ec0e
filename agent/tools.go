package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// ToolFunc is a single tool binding invoked when a worker's response carries
// an inline [TOOL:name] marker. Tools run inside the worker's timeout scope.
type ToolFunc func(ctx context.Context) (string, error)

// ToolResult records the outcome of one tool invocation.
type ToolResult struct {
	Tool    string `json:"tool"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// NoopTool returns a placeholder binding for a tool name declared by a role
// but not backed by a real executable. Unknown names are bound explicitly
// rather than silently dropped.
func NoopTool(name string) ToolFunc {
	return func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return fmt.Sprintf("Tool %s executed", name), nil
	}
}

// toolMarker formats the inline marker a response uses to request a tool.
func toolMarker(name string) string {
	return "[TOOL:" + name + "]"
}

// invokeMarkedTools 扫描响应中的工具调用标记并逐个执行。
// 每个工具调用独立捕获失败，互不影响，也不影响整体执行结果。
func invokeMarkedTools(ctx context.Context, response string, tools map[string]ToolFunc) []ToolResult {
	var results []ToolResult

	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !strings.Contains(response, toolMarker(name)) {
			continue
		}
		out, err := tools[name](ctx)
		if err != nil {
			results = append(results, ToolResult{Tool: name, Error: err.Error(), Success: false})
			continue
		}
		results = append(results, ToolResult{Tool: name, Result: out, Success: true})
	}

	return results
}
