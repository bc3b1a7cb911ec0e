package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/agentcore/types"
)

func newTestPool(t *testing.T, opts ...PoolOption) *Pool {
	t.Helper()
	return NewPool(NewBuiltinRegistry(nil), nil, zap.NewNop(), opts...)
}

func TestPoolSpawn(t *testing.T) {
	p := newTestPool(t)
	w, err := p.Spawn("coder")
	require.NoError(t, err)
	assert.Equal(t, StateSpawned, w.State())

	got, ok := p.Get(w.ID())
	require.True(t, ok)
	assert.Same(t, w, got)
}

func TestPoolSpawnUnknownRole(t *testing.T) {
	p := newTestPool(t)
	_, err := p.Spawn("timelord")
	require.Error(t, err)
	assert.Equal(t, types.ErrRoleNotFound, types.GetErrorCode(err))
}

func TestPoolCapacityEnforced(t *testing.T) {
	p := newTestPool(t, WithMaxWorkers(2))

	_, err := p.Spawn("coder")
	require.NoError(t, err)
	_, err = p.Spawn("tester")
	require.NoError(t, err)

	_, err = p.Spawn("reviewer")
	require.Error(t, err)
	assert.Equal(t, types.ErrPoolCapacity, types.GetErrorCode(err))
	assert.Equal(t, 2, p.Stats().ActiveWorkers)
}

func TestPoolCleanupReclaimsTerminalSlots(t *testing.T) {
	p := newTestPool(t, WithMaxWorkers(2))

	w1, err := p.Spawn("coder")
	require.NoError(t, err)
	_, err = p.Spawn("tester")
	require.NoError(t, err)

	// Finishing a worker frees its slot on the next spawn attempt.
	res := w1.Execute(context.Background(), TaskContext{Task: "quick job"}, 0)
	require.True(t, res.Success)

	w3, err := p.Spawn("reviewer")
	require.NoError(t, err)
	assert.NotNil(t, w3)

	stats := p.Stats()
	assert.Equal(t, 2, stats.ActiveWorkers)
	assert.Equal(t, 3, stats.TotalSpawned)
}

func TestPoolWorkerIDsUnique(t *testing.T) {
	p := newTestPool(t, WithMaxWorkers(100))
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		w, err := p.Spawn("coder")
		require.NoError(t, err)
		require.False(t, seen[w.ID()], "duplicate worker id %s", w.ID())
		seen[w.ID()] = true
	}
}

func TestPoolConcurrentSpawnNeverExceedsMax(t *testing.T) {
	const max = 5
	p := newTestPool(t, WithMaxWorkers(max))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Spawn("coder")
		}()
	}
	wg.Wait()

	assert.Equal(t, max, p.Stats().ActiveWorkers)
}

func TestSpawnForTask(t *testing.T) {
	p := newTestPool(t)
	workers := p.SpawnForTask("Review this code for security vulnerabilities", "")

	var roles []string
	for _, w := range workers {
		roles = append(roles, w.RoleName())
	}
	assert.Equal(t, []string{"coder", "reviewer", "security"}, roles)
}

func TestSpawnForTaskDefaultsToCoder(t *testing.T) {
	p := newTestPool(t)
	workers := p.SpawnForTask("hello", "")
	require.Len(t, workers, 1)
	assert.Equal(t, "coder", workers[0].RoleName())
}

func TestSpawnForTaskStopsAtCapacity(t *testing.T) {
	p := newTestPool(t, WithMaxWorkers(2))
	workers := p.SpawnForTask("Review this code for security vulnerabilities", "")

	// Three roles match but only two slots exist; the call degrades
	// instead of failing outright.
	require.Len(t, workers, 2)
	assert.Equal(t, "coder", workers[0].RoleName())
	assert.Equal(t, "reviewer", workers[1].RoleName())
}

func TestPoolDestroy(t *testing.T) {
	p := newTestPool(t)
	w, err := p.Spawn("coder")
	require.NoError(t, err)

	p.Destroy(w.ID())
	_, ok := p.Get(w.ID())
	assert.False(t, ok)
	assert.Equal(t, StateDestroyed, w.State())

	// Idempotent: a second destroy of the same id is a no-op.
	p.Destroy(w.ID())
	trail := p.AuditTrail()
	require.Len(t, trail, 1)
	assert.Equal(t, w.ID(), trail[0].ID)
}

func TestPoolDestroyAll(t *testing.T) {
	p := newTestPool(t)
	for _, role := range []string{"coder", "tester", "reviewer"} {
		_, err := p.Spawn(role)
		require.NoError(t, err)
	}

	p.DestroyAll()
	assert.Equal(t, 0, p.Stats().ActiveWorkers)
	assert.Len(t, p.AuditTrail(), 3)
}

func TestPoolAuditTrailMergesHistoryAndLive(t *testing.T) {
	p := newTestPool(t)
	w1, err := p.Spawn("coder")
	require.NoError(t, err)
	w2, err := p.Spawn("tester")
	require.NoError(t, err)

	p.Destroy(w1.ID())

	trail := p.AuditTrail()
	require.Len(t, trail, 2)
	assert.Equal(t, w1.ID(), trail[0].ID)
	assert.Equal(t, w2.ID(), trail[1].ID)

	// Archived snapshot records the teardown.
	last := trail[0].StateHistory[len(trail[0].StateHistory)-1]
	assert.Equal(t, StateDestroyed, last.To)
}

func TestSpawnChildThroughPool(t *testing.T) {
	p := newTestPool(t)
	parent, err := p.Spawn("orchestrator")
	require.NoError(t, err)

	// A worker must be working before it can wait on a child.
	require.NoError(t, parent.Transition(StateWorking))

	child, err := parent.SpawnChild("coder", "implement the subtask")
	require.NoError(t, err)
	assert.Equal(t, StateWaiting, parent.State())
	assert.Equal(t, parent.ID(), child.ParentID())
	assert.Equal(t, []string{child.ID()}, parent.Children())

	_, ok := p.Get(child.ID())
	assert.True(t, ok)
}

// adapterProvider records adapter calls so activation can be asserted.
type adapterProvider struct {
	scriptedProvider
	mu     sync.Mutex
	loaded []string
	active []string
	fail   bool
}

func (a *adapterProvider) LoadAdapter(ctx context.Context, path, tag string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return assert.AnError
	}
	a.loaded = append(a.loaded, path+"@"+tag)
	return nil
}

func (a *adapterProvider) SetActiveAdapter(ctx context.Context, tag string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = append(a.active, tag)
	return nil
}

func (a *adapterProvider) UnloadAdapter(ctx context.Context, tag string) error { return nil }

func TestPoolActivatesRoleAdapter(t *testing.T) {
	provider := &adapterProvider{scriptedProvider: scriptedProvider{response: "ok"}}
	p := NewPool(NewBuiltinRegistry(nil), provider, zap.NewNop(),
		WithAdapters(map[string]string{"coder": "/models/adapters/coder"}))

	_, err := p.Spawn("coder")
	require.NoError(t, err)
	assert.Equal(t, []string{"/models/adapters/coder@coder:latest"}, provider.loaded)
	assert.Equal(t, []string{"coder:latest"}, provider.active)

	// Roles without a registered adapter skip activation entirely.
	_, err = p.Spawn("tester")
	require.NoError(t, err)
	assert.Len(t, provider.loaded, 1)
}

func TestPoolAdapterFailureDoesNotBlockSpawn(t *testing.T) {
	provider := &adapterProvider{fail: true}
	p := NewPool(NewBuiltinRegistry(nil), provider, zap.NewNop(),
		WithAdapters(map[string]string{"coder": "/models/adapters/coder"}))

	w, err := p.Spawn("coder")
	require.NoError(t, err)
	assert.NotNil(t, w)
}

func TestPoolStatsBreakdown(t *testing.T) {
	p := newTestPool(t)
	w, err := p.Spawn("coder")
	require.NoError(t, err)
	_, err = p.Spawn("tester")
	require.NoError(t, err)

	res := w.Execute(context.Background(), TaskContext{Task: "job"}, 0)
	require.True(t, res.Success)

	stats := p.Stats()
	assert.Equal(t, 1, stats.StateBreakdown[StateCompleted])
	assert.Equal(t, 1, stats.StateBreakdown[StateSpawned])
}

func TestPoolSpawnObserver(t *testing.T) {
	type attempt struct{ role, status string }
	var mu sync.Mutex
	var seen []attempt
	p := newTestPool(t, WithMaxWorkers(1), WithSpawnObserver(func(role, status string) {
		mu.Lock()
		seen = append(seen, attempt{role, status})
		mu.Unlock()
	}))

	_, err := p.Spawn("coder")
	require.NoError(t, err)
	_, err = p.Spawn("tester")
	require.Error(t, err)
	_, err = p.Spawn("timelord")
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 3)
	assert.Equal(t, attempt{"coder", SpawnStatusOK}, seen[0])
	assert.Equal(t, attempt{"tester", SpawnStatusCapacity}, seen[1])
	assert.Equal(t, attempt{"timelord", SpawnStatusNotFound}, seen[2])
}
