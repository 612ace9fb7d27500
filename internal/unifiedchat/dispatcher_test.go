package unifiedchat

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollamageek/gateway/pkg/models"
)

type fakeGenerator struct {
	tools []models.Tool
}

func (f *fakeGenerator) Generate(ctx context.Context, phase models.Phase, projectCtx models.ProjectContext, userRequest string) ([]models.Tool, error) {
	return f.tools, nil
}

type fakeChat struct {
	body json.RawMessage
}

func (f *fakeChat) Chat(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	return f.body, nil
}

func chatBody(content string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{"message": map[string]any{"content": content}})
	return raw
}

func TestHandle_SimpleChat(t *testing.T) {
	d := New(&fakeGenerator{}, &fakeChat{body: chatBody("hello there")}, "llama3.1:8b", nil)

	resp, err := d.Handle(context.Background(), "what is the capital of France?", models.ProjectContext{})
	require.NoError(t, err)
	assert.Equal(t, "simple_chat", resp["type"])
	assert.Equal(t, "hello there", resp["message"])
}

func TestHandle_PlanningTask(t *testing.T) {
	d := New(&fakeGenerator{}, &fakeChat{body: chatBody("1. do x 2. do y")}, "llama3.1:8b", nil)

	resp, err := d.Handle(context.Background(), "outline an approach to add authentication", models.ProjectContext{})
	require.NoError(t, err)
	assert.Equal(t, "planning_task", resp["type"])
	assert.Equal(t, "1. do x 2. do y", resp["plan"])
}

func TestHandle_ExecutionSimple(t *testing.T) {
	params, _ := json.Marshal(map[string]any{"path": "notes.txt", "content": ""})
	gen := &fakeGenerator{tools: []models.Tool{{Name: models.ToolCreateFile, Params: params}}}
	d := New(gen, &fakeChat{}, "llama3.1:8b", nil)

	resp, err := d.Handle(context.Background(), "create a file called notes.txt", models.ProjectContext{})
	require.NoError(t, err)
	assert.Equal(t, "execution_task", resp["type"])
	assert.Equal(t, "execution_simple", resp["actionType"])
	assert.Equal(t, false, resp["requiresApproval"])
	tools, ok := resp["tools"].([]models.Tool)
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Equal(t, models.ToolCreateFile, tools[0].Name)
}

func TestHandle_ExecutionComplexRequiresApproval(t *testing.T) {
	gen := &fakeGenerator{tools: []models.Tool{{Name: models.ToolCreateFile}, {Name: models.ToolRunTerminal}}}
	d := New(gen, &fakeChat{}, "llama3.1:8b", nil)

	resp, err := d.Handle(context.Background(), "build the entire project from scratch and then deploy it", models.ProjectContext{})
	require.NoError(t, err)
	assert.Equal(t, "execution_complex", resp["actionType"])
	assert.Equal(t, true, resp["requiresApproval"])
}
