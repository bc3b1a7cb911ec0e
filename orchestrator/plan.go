package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/agentcore/agent"
)

// ExecutionMode 决定计划中各子任务的调度方式。
type ExecutionMode string

const (
	// ModeSequential 逐个执行，每个 Worker 能看到前序 Worker 的完整输出。
	ModeSequential ExecutionMode = "sequential"
	// ModeParallel 并发执行，结果按角色索引顺序收集。
	ModeParallel ExecutionMode = "parallel"
	// ModePipeline 逐个执行，但只向后传递最近一次成功的输出。
	ModePipeline ExecutionMode = "pipeline"
)

// Subtask 是计划中分配给单个角色的工作项。
type Subtask struct {
	Role string `json:"role"`
	Task string `json:"task"`
}

// TaskPlan 是一次编排调用的执行计划，创建后不再修改。
// Subtasks 与 RolesNeeded 按索引对齐，一一对应。
type TaskPlan struct {
	TaskID              string        `json:"task_id"`
	OriginalTask        string        `json:"original_task"`
	Analysis            string        `json:"analysis"`
	RolesNeeded         []string      `json:"roles_needed"`
	Subtasks            []Subtask     `json:"subtasks"`
	Mode                ExecutionMode `json:"execution_mode"`
	ComplianceChecklist []string      `json:"compliance_checklist"`
	Vertical            string        `json:"vertical,omitempty"`
	Region              string        `json:"region,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
}

// TaskResult 是一次编排调用的完整结果，追加到有界历史中。
type TaskResult struct {
	TaskID           string              `json:"task_id"`
	Success          bool                `json:"success"`
	Results          []*agent.ExecResult `json:"results"`
	AggregatedOutput string              `json:"aggregated_output"`
	ComplianceStatus map[string]bool     `json:"compliance_status"`
	Duration         time.Duration       `json:"duration"`
	RolesUsed        []string            `json:"agents_used"`
	AuditTrail       []AuditEntry        `json:"audit_trail"`
}

// AuditEntry 审计轨迹条目：要么是一个 Worker 的快照，要么是一条
// 编排层自身的补充记录（例如检索来源）。
type AuditEntry struct {
	Type    string             `json:"type"`
	Worker  *agent.AuditRecord `json:"worker,omitempty"`
	Details map[string]any     `json:"details,omitempty"`
}

// DefaultRegion 未指定时使用的合规区域。
const DefaultRegion = "india"

// verticalChecklists 各行业强制附加的合规检查项。
var verticalChecklists = map[string][]string{
	"fintech":    {"pci_dss", "data_encryption", "audit_logging"},
	"healthcare": {"hipaa", "phi_protection", "access_control"},
	"government": {"fedramp", "security_clearance", "data_sovereignty"},
}

// regionChecklists fintech 行业各区域追加的监管检查项。
var regionChecklists = map[string][]string{
	"india": {"rbi", "dpdp"},
	"eu":    {"gdpr", "psd2", "dora"},
	"uk":    {"uk_gdpr", "fca", "psr"},
}

// buildPlan 分析任务并产出执行计划：匹配角色（无匹配时回退到
// 单个默认角色）、应用区域前缀、选择执行模式（超过两个角色并行，
// 否则串行）、按角色生成子任务并按行业和区域播种合规清单。
func buildPlan(taskID, task string, registry *agent.Registry, vertical, region string, requirements []string) TaskPlan {
	roles := registry.FindForTask(task, vertical)
	if len(roles) == 0 {
		roles = []string{"coder"}
	}
	roles = applyRegionPrefix(roles, region, registry)

	mode := ModeSequential
	if len(roles) > 2 {
		mode = ModeParallel
	}

	subtasks := make([]Subtask, 0, len(roles))
	for _, role := range roles {
		subtasks = append(subtasks, Subtask{
			Role: role,
			Task: fmt.Sprintf("[%s] %s", strings.ToUpper(role), task),
		})
	}

	checklist := dedupe(append(append([]string{}, requirements...), seedChecklist(vertical, region)...))

	return TaskPlan{
		TaskID:              taskID,
		OriginalTask:        task,
		Analysis:            fmt.Sprintf("Task requires %d agent(s): %s [region=%s]", len(roles), strings.Join(roles, ", "), region),
		RolesNeeded:         roles,
		Subtasks:            subtasks,
		Mode:                mode,
		ComplianceChecklist: checklist,
		Vertical:            vertical,
		Region:              region,
		CreatedAt:           time.Now(),
	}
}

func seedChecklist(vertical, region string) []string {
	items := append([]string{}, verticalChecklists[vertical]...)
	if vertical == "fintech" {
		items = append(items, regionChecklists[region]...)
	}
	return items
}

// applyRegionPrefix 将角色名映射到区域专属版本。india 不加前缀，
// 只过滤掉其他区域的角色；eu/uk 优先使用注册表中存在的
// "<region>_<role>" 变体，不存在时回退到原始角色。
func applyRegionPrefix(roles []string, region string, registry *agent.Registry) []string {
	if region == DefaultRegion || region == "" {
		var out []string
		for _, r := range roles {
			if strings.HasPrefix(r, "eu_") || strings.HasPrefix(r, "uk_") {
				continue
			}
			out = append(out, r)
		}
		if len(out) == 0 {
			return roles
		}
		return out
	}

	prefix := region + "_"
	var out []string
	for _, r := range roles {
		if strings.HasPrefix(r, "eu_") || strings.HasPrefix(r, "uk_") {
			if strings.HasPrefix(r, prefix) {
				out = append(out, r)
			}
			continue
		}
		regional := prefix + r
		if _, ok := registry.Get(regional); ok {
			out = append(out, regional)
		} else {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return roles
	}
	return out
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		if it == "" || seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
	}
	return out
}
