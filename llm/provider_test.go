package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubProviderEchoesLastUserMessage(t *testing.T) {
	p := NewStubProvider()

	out, err := p.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "You are a coder."},
		{Role: RoleUser, Content: "earlier turn"},
		{Role: RoleAssistant, Content: "ack"},
		{Role: RoleUser, Content: "write a parser"},
	})

	require.NoError(t, err)
	assert.Equal(t, "[stub] Would process: write a parser", out)
	assert.Equal(t, "stub", p.Name())
}

func TestStubProviderRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStubProvider().Generate(ctx, []Message{{Role: RoleUser, Content: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}
