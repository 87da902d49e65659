package prompts

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptText(t *testing.T, r *mcp.GetPromptResult) string {
	t.Helper()
	require.Len(t, r.Messages, 1)
	tc, ok := r.Messages[0].Content.(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestDesignPrompt(t *testing.T) {
	p := NewDesignPrompt()
	assert.Equal(t, "deepframe-design", p.Definition().Name)

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"title": "Needs"}
	r, err := p.Handle(context.Background(), req)
	require.NoError(t, err)
	text := promptText(t, r)
	assert.Contains(t, text, "deepframe_framework_create` with title='Needs'")
	assert.Contains(t, text, "CONDITIONAL")

	req.Params.Arguments = map[string]string{"framework_id": "f1"}
	r, err = p.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, promptText(t, r), "framework_id='f1'")
}

func TestTagPrompt(t *testing.T) {
	p := NewTagPrompt()

	_, err := p.Handle(context.Background(), mcp.GetPromptRequest{})
	assert.Error(t, err)

	req := mcp.GetPromptRequest{}
	req.Params.Arguments = map[string]string{"framework_id": "f1", "excerpt": "Wells are dry."}
	r, err := p.Handle(context.Background(), req)
	require.NoError(t, err)
	text := promptText(t, r)
	assert.Contains(t, text, "> Wells are dry.")
	assert.Contains(t, text, "deepframe_condition_evaluate")
}
