// Package testutil 提供测试辅助函数与模拟实现。
//
// 子包 mocks 包含 llm.Provider、orchestrator.ContextProvider、
// orchestrator.CodeScanner 的脚本化模拟，供各包测试复用。
package testutil
