package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/BaSui01/agentcore/llm"
)

// scriptedProvider returns canned responses or errors, optionally after a delay.
type scriptedProvider struct {
	response string
	err      error
	delay    time.Duration
}

func (s *scriptedProvider) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *scriptedProvider) Name() string { return "scripted" }

func testRole() Role {
	return Role{
		Name:           "coder",
		PromptTemplate: "You write code.",
		Tools:          []string{"linter"},
	}
}

func TestWorkerStartsSpawned(t *testing.T) {
	w := NewWorker(testRole(), nil, "", nil)
	assert.NotEmpty(t, w.ID())
	assert.Equal(t, StateSpawned, w.State())
	assert.Equal(t, "coder", w.RoleName())

	audit := w.Audit()
	require.Len(t, audit.StateHistory, 2)
	assert.Equal(t, StateIdle, audit.StateHistory[0].To)
	assert.Equal(t, StateSpawned, audit.StateHistory[1].To)
}

func TestWorkerExecuteWithoutBackend(t *testing.T) {
	w := NewWorker(testRole(), nil, "", nil)
	res := w.Execute(context.Background(), TaskContext{Task: "build a parser"}, 0)

	require.True(t, res.Success)
	assert.Equal(t, "[No backend attached] Would process: build a parser", res.Response)
	assert.Equal(t, w.ID(), res.WorkerID)
	assert.Equal(t, StateCompleted, w.State())
}

func TestWorkerExecuteWithBackend(t *testing.T) {
	provider := &scriptedProvider{response: "here is the code"}
	w := NewWorker(testRole(), provider, "", nil)

	res := w.Execute(context.Background(), TaskContext{
		Task:       "write a sort function",
		PriorTurns: []llm.Message{{Role: llm.RoleAssistant, Content: "earlier output"}},
	}, 0)

	require.True(t, res.Success)
	assert.Equal(t, "here is the code", res.Response)
	assert.Empty(t, res.Error)
}

func TestWorkerExecuteTimeout(t *testing.T) {
	provider := &scriptedProvider{response: "too late", delay: time.Second}
	w := NewWorker(testRole(), provider, "", nil)

	res := w.Execute(context.Background(), TaskContext{Task: "slow task"}, 20*time.Millisecond)

	require.False(t, res.Success)
	assert.Empty(t, res.Response)
	assert.Contains(t, res.Error, "timed out after")
	assert.Equal(t, StateFailed, w.State())

	timeouts := 0
	for _, a := range w.Audit().ActionLog {
		if a.Name == "execute_timeout" {
			timeouts++
		}
	}
	assert.Equal(t, 1, timeouts)
}

func TestWorkerExecuteBackendError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("model unavailable")}
	w := NewWorker(testRole(), provider, "", nil)

	res := w.Execute(context.Background(), TaskContext{Task: "anything"}, 0)

	require.False(t, res.Success)
	assert.Equal(t, "model unavailable", res.Error)
	assert.Equal(t, StateFailed, w.State())
}

func TestWorkerRetryAfterFailure(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("transient")}
	w := NewWorker(testRole(), provider, "", nil)

	res := w.Execute(context.Background(), TaskContext{Task: "first try"}, 0)
	require.False(t, res.Success)

	provider.err = nil
	provider.response = "recovered"
	res = w.Execute(context.Background(), TaskContext{Task: "second try"}, 0)
	require.True(t, res.Success)
	assert.Equal(t, "recovered", res.Response)
}

func TestWorkerToolInvocation(t *testing.T) {
	provider := &scriptedProvider{response: "running checks [TOOL:linter] done"}
	w := NewWorker(testRole(), provider, "", nil)
	w.BindTool("linter", func(ctx context.Context) (string, error) {
		return "no issues found", nil
	})

	res := w.Execute(context.Background(), TaskContext{Task: "lint it"}, 0)

	require.True(t, res.Success)
	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, "linter", res.ToolResults[0].Tool)
	assert.Equal(t, "no issues found", res.ToolResults[0].Result)
	assert.True(t, res.ToolResults[0].Success)
}

func TestWorkerToolFailureDoesNotFailExecution(t *testing.T) {
	provider := &scriptedProvider{response: "[TOOL:linter]"}
	w := NewWorker(testRole(), provider, "", nil)
	w.BindTool("linter", func(ctx context.Context) (string, error) {
		return "", errors.New("lint crashed")
	})

	res := w.Execute(context.Background(), TaskContext{Task: "lint it"}, 0)

	require.True(t, res.Success)
	require.Len(t, res.ToolResults, 1)
	assert.False(t, res.ToolResults[0].Success)
	assert.Equal(t, "lint crashed", res.ToolResults[0].Error)
}

func TestWorkerDeclaredToolGetsPlaceholder(t *testing.T) {
	provider := &scriptedProvider{response: "[TOOL:linter]"}
	w := NewWorker(testRole(), provider, "", nil)

	res := w.Execute(context.Background(), TaskContext{Task: "lint it"}, 0)

	require.True(t, res.Success)
	require.Len(t, res.ToolResults, 1)
	assert.Equal(t, "Tool linter executed", res.ToolResults[0].Result)
}

func TestAssumeRoleMergesTools(t *testing.T) {
	w := NewWorker(testRole(), nil, "", nil)
	w.AssumeRole(Role{
		Name:           "reviewer",
		PromptTemplate: "You review code.",
		Tools:          []string{"static_analyzer"},
	})

	assert.Equal(t, "reviewer", w.RoleName())
	tools := w.snapshotTools()
	assert.Contains(t, tools, "linter")
	assert.Contains(t, tools, "static_analyzer")

	var switched bool
	for _, a := range w.Audit().ActionLog {
		if a.Name == "role_switch" {
			switched = true
			assert.Equal(t, "coder", a.Details["from"])
			assert.Equal(t, "reviewer", a.Details["to"])
		}
	}
	assert.True(t, switched)
}

func TestAugmentPrompt(t *testing.T) {
	provider := &scriptedProvider{response: "ok"}
	w := NewWorker(testRole(), provider, "", nil)
	w.AugmentPrompt("Background: the payment flow uses tokenized cards.")

	res := w.Execute(context.Background(), TaskContext{Task: "go"}, 0)
	require.True(t, res.Success)

	var augmented bool
	for _, a := range w.Audit().ActionLog {
		if a.Name == "prompt_augmented" {
			augmented = true
		}
	}
	assert.True(t, augmented)
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	w := NewWorker(testRole(), nil, "", nil)

	err := w.Transition(StateCompleted)
	var invalid *ErrInvalidTransition
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StateSpawned, invalid.From)
	assert.Equal(t, StateCompleted, invalid.To)
	assert.Equal(t, StateSpawned, w.State())
}

func TestBoundedActionLogProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		appends := rapid.IntRange(1, 350).Draw(t, "appends")
		w := NewWorker(testRole(), nil, "", nil)
		for i := 1; i <= appends; i++ {
			w.logAction("probe", map[string]any{"seq": i})
		}

		log := w.Audit().ActionLog
		want := appends
		if want > DefaultLogCapacity {
			want = DefaultLogCapacity
		}
		require.Len(t, log, want)
		assert.Equal(t, appends, log[len(log)-1].Details["seq"])
	})
}

func TestTimeoutIdempotence(t *testing.T) {
	provider := &scriptedProvider{response: "never", delay: time.Second}
	w := NewWorker(testRole(), provider, "", nil)

	for i := 0; i < 3; i++ {
		res := w.Execute(context.Background(), TaskContext{Task: fmt.Sprintf("round %d", i)}, 10*time.Millisecond)
		require.False(t, res.Success)
		assert.Equal(t, StateFailed, w.State())
	}

	timeouts := 0
	for _, a := range w.Audit().ActionLog {
		if a.Name == "execute_timeout" {
			timeouts++
		}
	}
	assert.Equal(t, 3, timeouts)
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	s := "审计日志必须完整保留全部执行记录"
	for n := 0; n <= len(s); n++ {
		got := truncate(s, n)
		assert.True(t, utf8.ValidString(got), "truncate(%q, %d) produced invalid UTF-8", s, n)
		assert.LessOrEqual(t, len(got), n, "truncate exceeded byte budget at %d", n)
	}
	assert.Equal(t, "short", truncate("short", 100))
}

func TestTruncateRuneBoundaryProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		n := rapid.IntRange(0, 200).Draw(t, "n")
		got := truncate(s, n)
		if utf8.ValidString(s) && !utf8.ValidString(got) {
			t.Fatalf("truncate(%q, %d) = %q is invalid UTF-8", s, n, got)
		}
		if len(got) > len(s) || (len(s) > n && len(got) > n) {
			t.Fatalf("truncate(%q, %d) = %q exceeds budget", s, n, got)
		}
	})
}
