// Package orchestrator 实现多智能体任务的编排：任务分析与规划、
// Worker 派生、串行/并行/流水线执行、结果聚合、合规核对与审计
// 轨迹收集。可选地接入检索协作方（背景上下文注入）和安全扫描
// 协作方（生成代码检查）。
package orchestrator
