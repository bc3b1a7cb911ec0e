package agentcore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/agentcore/testutil/mocks"
)

func TestNewDefaults(t *testing.T) {
	engine, err := New()
	require.NoError(t, err)
	require.NotNil(t, engine)

	assert.NotNil(t, engine.Registry)
	assert.NotNil(t, engine.Pool)
	assert.Len(t, engine.Registry.List(), 8)
	assert.Equal(t, 10, engine.Pool.Stats().MaxWorkers)
}

func TestNewWithOptions(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponse("engine output")

	engine, err := New(
		WithProvider(provider),
		WithMaxWorkers(3),
		WithVertical("fintech"),
		WithSecurityScanning(),
	)
	require.NoError(t, err)
	assert.Equal(t, 3, engine.Pool.Stats().MaxWorkers)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := engine.Execute(ctx, "implement a ledger reconciliation job")
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.TaskID)
	assert.Greater(t, provider.Calls(), 0)
}

func TestNewBadRolesDir(t *testing.T) {
	_, err := New(WithRolesDir("/nonexistent/roles"))
	assert.Error(t, err)
}
