// Package agent 提供任务执行的核心构件：角色注册表、带状态机和
// 有界审计日志的 Worker，以及强制并发上限的 Worker 池。
//
// Worker 的生命周期由池独占管理，执行结果永远以完整的结果对象
// 返回，超时和失败不会越过执行边界向上抛出。
package agent
