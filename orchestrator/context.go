package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// RetrievedContext 是检索协作方返回的背景材料，一次编排调用内
// 消费，核心层不持久化。
type RetrievedContext struct {
	Documents   []string  `json:"documents"`
	SourceIDs   []string  `json:"source_ids"`
	Scores      []float64 `json:"relevance_scores"`
	ContextText string    `json:"context_text"`
	Vertical    string    `json:"vertical"`
}

// ContextProvider 为任务检索背景知识。Found 为 false 表示没有
// 相关内容，调用方按无上下文处理。
type ContextProvider interface {
	RetrieveWithContext(ctx context.Context, query, vertical string, n int) (*RetrievedContext, bool, error)
}

// Issue 安全扫描发现的单个问题。
type Issue struct {
	RuleID         string `json:"rule_id"`
	Severity       string `json:"severity"`
	RuleName       string `json:"rule_name"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation,omitempty"`
	Line           int    `json:"line,omitempty"`
	Snippet        string `json:"snippet,omitempty"`
}

// ScanReport 一次代码扫描的汇总结果。Passed 为 true 当且仅当
// 没有 critical/high 级别的问题。
type ScanReport struct {
	Scanned bool    `json:"scanned"`
	Passed  bool    `json:"passed"`
	Issues  []Issue `json:"issues"`
}

// CodeScanner 对生成的代码做安全扫描。
type CodeScanner interface {
	ScanCode(ctx context.Context, code string) (*ScanReport, error)
}

var fencedCodeRe = regexp.MustCompile("(?s)```(?:\\w+)?\\n(.*?)```")

// extractCodeBlocks 提取响应中所有 markdown 代码围栏的内容。
func extractCodeBlocks(text string) []string {
	if !strings.Contains(text, "```") {
		return nil
	}
	var blocks []string
	for _, m := range fencedCodeRe.FindAllStringSubmatch(text, -1) {
		blocks = append(blocks, m[1])
	}
	return blocks
}

// sourceChecklistKeywords 检索来源标识中出现这些关键字时，
// 对应的合规项被追加进计划清单。区域限定的关键字只在该区域生效。
var sourceChecklistKeywords = []struct {
	keyword string
	item    string
	region  string
}{
	{keyword: "pci", item: "pci_dss"},
	{keyword: "rbi", item: "rbi_guidelines", region: "india"},
	{keyword: "dpdp", item: "dpdp", region: "india"},
	{keyword: "gdpr", item: "gdpr", region: "eu"},
	{keyword: "psd2", item: "psd2", region: "eu"},
	{keyword: "dora", item: "dora", region: "eu"},
	{keyword: "uk_gdpr", item: "uk_gdpr", region: "uk"},
	{keyword: "fca", item: "fca", region: "uk"},
	{keyword: "psr", item: "psr", region: "uk"},
}

// checklistFromSources 根据检索来源标识推导额外的合规清单项。
func checklistFromSources(rc *RetrievedContext, region string) []string {
	if rc == nil {
		return nil
	}
	var items []string
	for _, source := range rc.SourceIDs {
		lower := strings.ToLower(source)
		for _, kw := range sourceChecklistKeywords {
			if kw.region != "" && kw.region != region {
				continue
			}
			if strings.Contains(lower, kw.keyword) {
				items = append(items, kw.item)
			}
		}
	}
	return dedupe(items)
}

// contextBlock 渲染追加到角色提示词后的背景上下文段落。
func contextBlock(rc *RetrievedContext, vertical string) string {
	if rc == nil || rc.ContextText == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "## Relevant Knowledge Base Context (%s)\n\n", vertical)
	b.WriteString(rc.ContextText)
	b.WriteString("\n\n### Sources:\n")
	sources := rc.SourceIDs
	if len(sources) > 5 {
		sources = sources[:5]
	}
	for _, s := range sources {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\n---\nApply the above context when generating your response. Cite sources where applicable.")
	return b.String()
}

// sourcesSection 渲染聚合输出末尾的知识库来源段落。
func sourcesSection(rc *RetrievedContext) string {
	if rc == nil || len(rc.SourceIDs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n---\n## Knowledge Base Sources\n\n")
	for i, source := range rc.SourceIDs {
		score := 0.0
		if i < len(rc.Scores) {
			score = rc.Scores[i]
		}
		fmt.Fprintf(&b, "%d. %s (relevance: %.2f)\n", i+1, source, score)
	}
	return b.String()
}

// findingsSection 渲染聚合输出末尾的安全扫描发现段落，最多展示五条。
func findingsSection(report *ScanReport) string {
	if report == nil || len(report.Issues) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\n---\n## Security Scan Findings\n\n")
	issues := report.Issues
	if len(issues) > 5 {
		issues = issues[:5]
	}
	for _, issue := range issues {
		fmt.Fprintf(&b, "- **%s** %s: %s - %s\n", strings.ToUpper(issue.Severity), issue.RuleID, issue.RuleName, issue.Description)
		if issue.Recommendation != "" {
			fmt.Fprintf(&b, "  - Recommendation: %s\n", issue.Recommendation)
		}
	}
	return b.String()
}
