// Package handlers 提供 AgentCore HTTP API 的请求处理器。
//
// 包含任务提交与查询、角色管理、Worker 池巡检、
// 健康检查以及统一的响应与错误映射辅助函数。
package handlers
