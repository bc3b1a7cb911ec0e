package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/agent"
	"github.com/BaSui01/agentcore/llm"
)

// funcProvider delegates generation to a test-supplied function.
type funcProvider struct {
	fn func(ctx context.Context, messages []llm.Message) (string, error)
}

func (f *funcProvider) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	return f.fn(ctx, messages)
}

func (f *funcProvider) Name() string { return "func" }

// fakeRetriever is a scripted ContextProvider.
type fakeRetriever struct {
	rc    *RetrievedContext
	found bool
	err   error
	calls atomic.Int32
}

func (f *fakeRetriever) RetrieveWithContext(ctx context.Context, query, vertical string, n int) (*RetrievedContext, bool, error) {
	f.calls.Add(1)
	return f.rc, f.found, f.err
}

// fakeScanner is a scripted CodeScanner.
type fakeScanner struct {
	issues  []Issue
	err     error
	scanned atomic.Int32
}

func (f *fakeScanner) ScanCode(ctx context.Context, code string) (*ScanReport, error) {
	f.scanned.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	passed := true
	for _, i := range f.issues {
		if i.Severity == "critical" || i.Severity == "high" {
			passed = false
		}
	}
	return &ScanReport{Scanned: true, Passed: passed, Issues: f.issues}, nil
}

func newTestOrchestrator(t *testing.T, provider llm.Provider, opts ...Option) (*Orchestrator, *agent.Pool) {
	t.Helper()
	registry := agent.NewBuiltinRegistry(nil)
	pool := agent.NewPool(registry, provider, zap.NewNop())
	return New(registry, pool, zap.NewNop(), opts...), pool
}

func echoProvider() *funcProvider {
	return &funcProvider{fn: func(ctx context.Context, messages []llm.Message) (string, error) {
		return "done: " + messages[len(messages)-1].Content, nil
	}}
}

func TestExecuteSimpleTask(t *testing.T) {
	o, pool := newTestOrchestrator(t, echoProvider())
	res := o.Execute(context.Background(), "hello")

	require.True(t, res.Success)
	assert.Equal(t, []string{"coder"}, res.RolesUsed)
	assert.Contains(t, res.AggregatedOutput, "## coder ✓")
	assert.Contains(t, res.AggregatedOutput, "[CODER] hello")
	assert.Greater(t, res.Duration, time.Duration(0))
	require.Len(t, res.Results, 1)
	assert.True(t, res.Results[0].Success)

	// Workers are torn down after every call.
	assert.Equal(t, 0, pool.Stats().ActiveWorkers)
	require.Len(t, res.AuditTrail, 1)
	assert.Equal(t, "worker", res.AuditTrail[0].Type)
	// Snapshots are taken before teardown.
	assert.Equal(t, agent.StateCompleted, res.AuditTrail[0].Worker.StateHistory[len(res.AuditTrail[0].Worker.StateHistory)-1].To)
}

func TestExecuteParallelOrderPreserved(t *testing.T) {
	// Three matching roles force parallel mode; the reviewer subtask
	// fails while its siblings succeed.
	provider := &funcProvider{fn: func(ctx context.Context, messages []llm.Message) (string, error) {
		task := messages[len(messages)-1].Content
		if strings.HasPrefix(task, "[REVIEWER]") {
			return "", errors.New("reviewer backend down")
		}
		return "ok", nil
	}}
	o, _ := newTestOrchestrator(t, provider)

	res := o.Execute(context.Background(), "Review this code for security vulnerabilities")

	require.True(t, res.Success)
	require.Len(t, res.Results, 3)
	assert.Equal(t, "coder", res.Results[0].Role)
	assert.Equal(t, "reviewer", res.Results[1].Role)
	assert.Equal(t, "security", res.Results[2].Role)
	assert.True(t, res.Results[0].Success)
	assert.False(t, res.Results[1].Success)
	assert.True(t, res.Results[2].Success)
	assert.Contains(t, res.AggregatedOutput, "## reviewer ✗")
}

func TestExecuteSequentialThreadsPriorTurns(t *testing.T) {
	var turnCounts []int
	provider := &funcProvider{fn: func(ctx context.Context, messages []llm.Message) (string, error) {
		// system + prior assistant turns + current user task
		turnCounts = append(turnCounts, len(messages))
		return "step output", nil
	}}
	o, _ := newTestOrchestrator(t, provider)

	res := o.Execute(context.Background(), "implement and test the parser")

	require.True(t, res.Success)
	require.Len(t, res.Results, 2)
	assert.Equal(t, []int{2, 3}, turnCounts)
}

func TestExecutePipelineThreadsOnlyLatestSuccess(t *testing.T) {
	var seen [][]llm.Message
	call := 0
	provider := &funcProvider{fn: func(ctx context.Context, messages []llm.Message) (string, error) {
		seen = append(seen, messages)
		call++
		if call == 2 {
			return "", errors.New("middle step failed")
		}
		return "output " + string(rune('0'+call)), nil
	}}
	o, _ := newTestOrchestrator(t, provider)

	res := o.Execute(context.Background(), "Review this code for security vulnerabilities", WithMode(ModePipeline))

	require.Len(t, res.Results, 3)
	// First call: no prior turns. Second: output 1. Third: still output 1,
	// because the failed middle step contributes nothing.
	assert.Len(t, seen[0], 2)
	require.Len(t, seen[1], 3)
	assert.Equal(t, "output 1", seen[1][1].Content)
	require.Len(t, seen[2], 3)
	assert.Equal(t, "output 1", seen[2][1].Content)
}

func TestExecuteFintechCompliance(t *testing.T) {
	o, _ := newTestOrchestrator(t, echoProvider())
	res := o.Execute(context.Background(), "implement the payment gateway",
		WithVertical("fintech"), WithRegion("eu"), WithCompliance("sox"))

	require.True(t, res.Success)
	for _, item := range []string{"sox", "pci_dss", "data_encryption", "audit_logging", "gdpr", "psd2", "dora"} {
		v, ok := res.ComplianceStatus[item]
		assert.True(t, ok, "missing compliance item %s", item)
		assert.True(t, v, "compliance item %s should pass", item)
	}
}

func TestExecuteWithRetrievedContext(t *testing.T) {
	retriever := &fakeRetriever{
		rc: &RetrievedContext{
			Documents:   []string{"doc1", "doc2"},
			SourceIDs:   []string{"pci_dss_v4.pdf", "rbi_master_directions.md"},
			Scores:      []float64{0.91, 0.72},
			ContextText: "Card data must be tokenized at rest.",
			Vertical:    "fintech",
		},
		found: true,
	}
	var sawContext bool
	provider := &funcProvider{fn: func(ctx context.Context, messages []llm.Message) (string, error) {
		if strings.Contains(messages[0].Content, "Card data must be tokenized") {
			sawContext = true
		}
		return "ok", nil
	}}
	o, _ := newTestOrchestrator(t, provider, WithContextProvider(retriever))

	res := o.Execute(context.Background(), "implement the payment flow", WithVertical("fintech"))

	require.True(t, res.Success)
	assert.True(t, sawContext, "worker prompt should carry retrieved context")
	assert.Contains(t, res.AggregatedOutput, "Knowledge Base Sources")
	assert.Contains(t, res.AggregatedOutput, "pci_dss_v4.pdf (relevance: 0.91)")

	// Source identifiers add checklist items and context-applied flags.
	assert.True(t, res.ComplianceStatus["rbi_guidelines"])
	assert.True(t, res.ComplianceStatus["pci_dss_context_applied"])
	assert.True(t, res.ComplianceStatus["rbi_guidelines_context_applied"])

	last := res.AuditTrail[len(res.AuditTrail)-1]
	assert.Equal(t, "rag_sources", last.Type)
	assert.Equal(t, 2, last.Details["documents_used"])
}

func TestExecuteRetrievalFailureDegradesGracefully(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("vector store unreachable")}
	o, _ := newTestOrchestrator(t, echoProvider(), WithContextProvider(retriever))

	res := o.Execute(context.Background(), "implement the payment flow", WithVertical("fintech"))

	require.True(t, res.Success)
	assert.Equal(t, int32(1), retriever.calls.Load())
	assert.NotContains(t, res.AggregatedOutput, "Knowledge Base Sources")
}

func TestExecuteWithoutContextSkipsRetrieval(t *testing.T) {
	retriever := &fakeRetriever{found: true, rc: &RetrievedContext{ContextText: "x"}}
	o, _ := newTestOrchestrator(t, echoProvider(), WithContextProvider(retriever))

	res := o.Execute(context.Background(), "hello", WithoutContext())
	require.True(t, res.Success)
	assert.Equal(t, int32(0), retriever.calls.Load())
}

func TestExecuteSecurityScanFlipsCompliance(t *testing.T) {
	provider := &funcProvider{fn: func(ctx context.Context, messages []llm.Message) (string, error) {
		return "Here you go:\n```python\npassword = \"supersecret123\"\n```\n", nil
	}}
	scanner := &fakeScanner{issues: []Issue{{
		RuleID:         "SEC003",
		Severity:       "critical",
		RuleName:       "Hardcoded Secret",
		Description:    "Hardcoded secret or credential detected",
		Recommendation: "Use environment variables or secret management",
	}}}
	o, _ := newTestOrchestrator(t, provider, WithCodeScanner(scanner))

	res := o.Execute(context.Background(), "implement the login handler",
		WithVertical("fintech"))

	require.True(t, res.Success)
	assert.Positive(t, scanner.scanned.Load())
	assert.False(t, res.ComplianceStatus["security_scan"])
	assert.False(t, res.ComplianceStatus["pci_dss"])
	assert.False(t, res.ComplianceStatus["data_encryption"])
	// The orchestration itself satisfies audit logging, scan or not.
	assert.True(t, res.ComplianceStatus["audit_logging"])
	assert.Contains(t, res.AggregatedOutput, "Security Scan Findings")
	assert.Contains(t, res.AggregatedOutput, "**CRITICAL** SEC003: Hardcoded Secret")
	assert.Contains(t, res.AggregatedOutput, "Recommendation: Use environment variables or secret management")
}

func TestExecuteCleanScanPasses(t *testing.T) {
	provider := &funcProvider{fn: func(ctx context.Context, messages []llm.Message) (string, error) {
		return "```go\nfunc add(a, b int) int { return a + b }\n```", nil
	}}
	scanner := &fakeScanner{}
	o, _ := newTestOrchestrator(t, provider, WithCodeScanner(scanner))

	res := o.Execute(context.Background(), "implement addition", WithVertical("fintech"))

	require.True(t, res.Success)
	assert.True(t, res.ComplianceStatus["security_scan"])
	assert.True(t, res.ComplianceStatus["pci_dss"])
	assert.NotContains(t, res.AggregatedOutput, "Security Scan Findings")
}

func TestExecuteFailedWorkerDoesNotFailTask(t *testing.T) {
	provider := &funcProvider{fn: func(ctx context.Context, messages []llm.Message) (string, error) {
		return "", errors.New("backend exploded")
	}}
	o, _ := newTestOrchestrator(t, provider)

	res := o.Execute(context.Background(), "hello")

	require.True(t, res.Success)
	require.Len(t, res.Results, 1)
	assert.False(t, res.Results[0].Success)
	assert.Contains(t, res.AggregatedOutput, "## coder ✗")
	assert.Contains(t, res.AggregatedOutput, "No response")
}

func TestHistoryAndStats(t *testing.T) {
	o, _ := newTestOrchestrator(t, echoProvider())

	for i := 0; i < 3; i++ {
		res := o.Execute(context.Background(), "hello")
		require.True(t, res.Success)
	}

	history := o.History()
	require.Len(t, history, 3)
	for _, h := range history {
		assert.True(t, h.Success)
		assert.Equal(t, []string{"coder"}, h.RolesUsed)
	}

	stats := o.GetStats()
	assert.Equal(t, 3, stats.TotalTasks)
	assert.Equal(t, 3, stats.SuccessfulTasks)
	assert.InDelta(t, 1.0, stats.SuccessRate, 0.001)
	assert.Contains(t, stats.AvailableRoles, "coder")
}

func TestHistoryIsBounded(t *testing.T) {
	o, _ := newTestOrchestrator(t, echoProvider(), WithHistoryCapacity(2))

	var lastID string
	for i := 0; i < 5; i++ {
		lastID = o.Execute(context.Background(), "hello").TaskID
	}

	history := o.History()
	require.Len(t, history, 2)
	assert.Equal(t, lastID, history[1].TaskID)

	// Cumulative counters survive history eviction.
	assert.Equal(t, 5, o.GetStats().TotalTasks)
}

func TestExecuteTaskIDsDistinct(t *testing.T) {
	o, _ := newTestOrchestrator(t, echoProvider())
	a := o.Execute(context.Background(), "hello").TaskID
	b := o.Execute(context.Background(), "hello").TaskID
	assert.NotEqual(t, a, b)
}

func TestExecutionObserverReceivesEveryWorker(t *testing.T) {
	type obs struct {
		role   string
		status string
	}
	var mu sync.Mutex
	var seen []obs

	o, _ := newTestOrchestrator(t, echoProvider(), WithExecutionObserver(func(role, status string, d time.Duration) {
		mu.Lock()
		seen = append(seen, obs{role, status})
		mu.Unlock()
		assert.GreaterOrEqual(t, d, time.Duration(0))
	}))

	res := o.Execute(context.Background(), "implement and test the parser", WithMode(ModeSequential))
	require.True(t, res.Success)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, len(res.RolesUsed))
	for i, s := range seen {
		assert.Equal(t, res.RolesUsed[i], s.role)
		assert.Equal(t, "ok", s.status)
	}
}

func TestExecutionObserverReportsFailure(t *testing.T) {
	failing := &funcProvider{fn: func(ctx context.Context, messages []llm.Message) (string, error) {
		return "", errors.New("backend down")
	}}

	var mu sync.Mutex
	statuses := map[string]int{}
	o, _ := newTestOrchestrator(t, failing, WithExecutionObserver(func(role, status string, d time.Duration) {
		mu.Lock()
		statuses[status]++
		mu.Unlock()
	}))

	o.Execute(context.Background(), "implement the parser")

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, statuses["ok"])
	assert.Greater(t, statuses["failed"], 0)
}
