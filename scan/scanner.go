package scan

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/orchestrator"
)

// Severity levels, most severe first.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

var severityRank = map[string]int{
	SeverityCritical: 0,
	SeverityHigh:     1,
	SeverityMedium:   2,
	SeverityLow:      3,
}

// rule 一条安全检查规则：任意一个 pattern 命中即报告一个问题。
type rule struct {
	id             string
	name           string
	severity       string
	patterns       []*regexp.Regexp
	description    string
	recommendation string
}

// 规则集覆盖生成代码中最常见的几类缺陷：注入、硬编码凭据、
// 弱加密、明文传输、SSRF、危险反序列化、CSRF 缺失、未校验输入
// 和调试残留。模式是行级启发式，偏向召回而不是精确。
var rules = []rule{
	{
		id:       "SEC001",
		name:     "SQL Injection",
		severity: SeverityCritical,
		patterns: compile(
			`execute\s*\(\s*["'].*%[sd]`,
			`execute\s*\(\s*f["']`,
			`execute\s*\(\s*["'].*\+`,
			`(?i)query\s*\(\s*["'][^"']*["']\s*\+`,
		),
		description:    "SQL query built with string concatenation or formatting",
		recommendation: "Use parameterized queries with placeholders",
	},
	{
		id:       "SEC002",
		name:     "Cross-Site Scripting (XSS)",
		severity: SeverityHigh,
		patterns: compile(
			`innerHTML\s*=`,
			`document\.write\s*\(`,
			`dangerouslySetInnerHTML`,
		),
		description:    "Potential XSS vulnerability through unescaped output",
		recommendation: "Escape all user-controlled data before rendering",
	},
	{
		id:       "SEC003",
		name:     "Hardcoded Secret",
		severity: SeverityCritical,
		patterns: compile(
			`password\s*=\s*["'][^"']{8,}["']`,
			`api_key\s*=\s*["'][^"']{16,}["']`,
			`secret\s*=\s*["'][^"']{8,}["']`,
			`token\s*=\s*["'][^"']{20,}["']`,
			`private_key\s*=\s*["']`,
		),
		description:    "Hardcoded secret or credential detected",
		recommendation: "Use environment variables or secret management",
	},
	{
		id:       "SEC004",
		name:     "Insecure HTTP",
		severity: SeverityMedium,
		patterns: compile(
			`http://[\w.-]+`,
		),
		// Local URLs are filtered out after matching, RE2 has no lookahead.
		description:    "HTTP used instead of HTTPS for non-local URL",
		recommendation: "Use HTTPS for all external communications",
	},
	{
		id:       "SEC005",
		name:     "Weak Cryptographic Algorithm",
		severity: SeverityHigh,
		patterns: compile(
			`(?i)md5\s*\(`,
			`(?i)sha1\s*\(`,
			`crypto/md5`,
			`crypto/sha1`,
			`crypto/des`,
			`RC4`,
		),
		description:    "Weak or deprecated cryptographic algorithm detected",
		recommendation: "Use SHA-256 or stronger for hashing, AES-256 for encryption",
	},
	{
		id:       "SEC006",
		name:     "Command Injection",
		severity: SeverityCritical,
		patterns: compile(
			`os\.system\s*\([^)]*\+`,
			`subprocess\.(call|run)\s*\(\s*["'][^"']*\+`,
			`shell=True`,
			`exec\.Command\s*\(\s*"sh"\s*,\s*"-c"`,
		),
		description:    "Potential command injection vulnerability",
		recommendation: "Use subprocess with list arguments, avoid shell=True",
	},
	{
		id:       "SEC007",
		name:     "Path Traversal",
		severity: SeverityHigh,
		patterns: compile(
			`\.\./`,
			`open\s*\([^)]*\+[^)]*\)`,
		),
		description:    "Potential path traversal vulnerability",
		recommendation: "Validate and sanitize file paths, use absolute paths",
	},
	{
		id:       "SEC008",
		name:     "Server-Side Request Forgery",
		severity: SeverityHigh,
		patterns: compile(
			`requests\.(get|post|put)\s*\([^)]*\+`,
			`urllib\.request\.urlopen\s*\([^)]*\+`,
			`http\.Get\s*\([^)]*\+`,
		),
		description:    "Potential SSRF vulnerability with user-controlled URL",
		recommendation: "Validate and whitelist allowed URLs",
	},
	{
		id:       "SEC009",
		name:     "Insecure Deserialization",
		severity: SeverityCritical,
		patterns: compile(
			`pickle\.loads?\s*\(`,
			`yaml\.unsafe_load`,
			`marshal\.loads`,
		),
		description:    "Insecure deserialization detected",
		recommendation: "Use safe deserialization methods, validate input",
	},
	{
		id:       "SEC010",
		name:     "Debug Mode Enabled",
		severity: SeverityMedium,
		patterns: compile(
			`(?i)debug\s*=\s*true`,
		),
		description:    "Debug mode enabled in production code",
		recommendation: "Disable debug mode in production",
	},
	{
		id:       "SEC011",
		name:     "Missing CSRF Protection",
		severity: SeverityMedium,
		patterns: compile(
			`@csrf_exempt`,
			`csrf_protect\s*=\s*False`,
		),
		description:    "CSRF protection disabled",
		recommendation: "Enable CSRF protection for state-changing endpoints",
	},
	{
		id:       "SEC012",
		name:     "Sensitive Data in Logs",
		severity: SeverityHigh,
		patterns: compile(
			`(?i)log(?:ger)?\.[a-z]+\s*\([^)]*password`,
			`(?i)print\s*\([^)]*password`,
			`(?i)log(?:ger)?\.[a-z]+\s*\([^)]*card_number`,
		),
		description:    "Potentially logging sensitive data",
		recommendation: "Never log passwords, tokens, or PII",
	},
	{
		id:       "SEC013",
		name:     "Missing Input Validation",
		severity: SeverityMedium,
		patterns: compile(
			`request\.(args|form|json)\.get\s*\([^)]+\)[^.]*[+\-*/]`,
			`int\s*\(\s*request\.`,
		),
		description:    "User input used without validation",
		recommendation: "Validate and sanitize all user inputs",
	},
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}

// Scanner 基于规则对代码做逐行安全扫描。无状态，可并发使用。
type Scanner struct {
	logger *zap.Logger
}

// New creates a scanner. A nil logger falls back to a no-op.
func New(logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{logger: logger}
}

// ScanCode 逐行匹配规则集并汇总发现。Passed 为 true 当且仅当
// 没有 critical/high 级别的问题。同一行同一规则只报告一次。
func (s *Scanner) ScanCode(ctx context.Context, code string) (*orchestrator.ScanReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var issues []orchestrator.Issue
	for lineNo, line := range strings.Split(code, "\n") {
		for _, r := range rules {
			for _, re := range r.patterns {
				if re.MatchString(line) {
					if r.id == "SEC004" && isLocalURL(line) {
						break
					}
					issues = append(issues, orchestrator.Issue{
						RuleID:         r.id,
						Severity:       r.severity,
						RuleName:       r.name,
						Description:    r.description,
						Recommendation: r.recommendation,
						Line:           lineNo + 1,
						Snippet:        strings.TrimSpace(truncate(line, 120)),
					})
					break
				}
			}
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return severityRank[issues[i].Severity] < severityRank[issues[j].Severity]
	})

	passed := true
	for _, issue := range issues {
		if issue.Severity == SeverityCritical || issue.Severity == SeverityHigh {
			passed = false
			break
		}
	}

	if len(issues) > 0 {
		s.logger.Debug("scan found issues",
			zap.Int("count", len(issues)),
			zap.Bool("passed", passed))
	}

	return &orchestrator.ScanReport{Scanned: true, Passed: passed, Issues: issues}, nil
}

func isLocalURL(line string) bool {
	return strings.Contains(line, "http://localhost") ||
		strings.Contains(line, "http://127.0.0.1")
}

// truncate 在不超过 n 字节的前提下于 rune 边界截断。
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
