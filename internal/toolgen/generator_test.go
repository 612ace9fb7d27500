package toolgen

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollamageek/gateway/pkg/models"
)

type fakeChatCaller struct {
	body json.RawMessage
	err  error
}

func (f *fakeChatCaller) Chat(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	return f.body, f.err
}

func phaseFor(name string) models.Phase {
	return models.Phase{Name: name, Description: "scaffold the project", Tools: []string{"create_file"}}
}

func TestGenerate_ParsesJSONPlan(t *testing.T) {
	body, _ := json.Marshal(map[string]any{
		"message": map[string]any{
			"content": `[{"name":"create_file","params":{"path":"index.js","content":"x"},"priority":2}]`,
		},
	})
	caller := &fakeChatCaller{body: body}
	g := New(caller, "llama3.1:8b", nil)

	tools, err := g.Generate(context.Background(), phaseFor("scaffold"), models.ProjectContext{ProjectName: "app"}, "build a node app")
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, models.ToolCreateFile, tools[0].Name)

	var params map[string]any
	require.NoError(t, json.Unmarshal(tools[0].Params, &params))
	assert.Equal(t, "app/index.js", params["path"])
}

func TestGenerate_ParsesNumberedPlan(t *testing.T) {
	body, _ := json.Marshal(map[string]any{
		"message": map[string]any{
			"content": "1. Tool: create_directory\n- path: src\n2. Tool: create_file\n- path: src/main.py\n- content: print(1)\n",
		},
	})
	caller := &fakeChatCaller{body: body}
	g := New(caller, "llama3.1:8b", nil)

	tools, err := g.Generate(context.Background(), phaseFor("scaffold"), models.ProjectContext{ProjectName: "app"}, "build a python app")
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, models.ToolCreateDirectory, tools[0].Name)
	assert.Equal(t, models.ToolCreateFile, tools[1].Name)
	assert.Greater(t, tools[0].Priority, tools[1].Priority)
}

func TestGenerate_FallsBackToTemplateOnUnparseableResponse(t *testing.T) {
	body, _ := json.Marshal(map[string]any{
		"message": map[string]any{"content": "I cannot help with that."},
	})
	caller := &fakeChatCaller{body: body}
	g := New(caller, "llama3.1:8b", nil)

	tools, err := g.Generate(context.Background(), phaseFor("scaffold"), models.ProjectContext{ProjectName: "app"}, "build a python script")
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, models.ToolCreateFile, tools[0].Name)

	var params map[string]any
	require.NoError(t, json.Unmarshal(tools[0].Params, &params))
	assert.Equal(t, "app/main.py", params["path"])
}

func TestGenerate_FallsBackOnBackendError(t *testing.T) {
	caller := &fakeChatCaller{err: assertError{}}
	g := New(caller, "llama3.1:8b", nil)

	tools, err := g.Generate(context.Background(), phaseFor("scaffold"), models.ProjectContext{ProjectName: "app"}, "build a node express server")
	require.NoError(t, err)
	assert.NotEmpty(t, tools)
}

func TestContainment_RejectsAbsolutePathEscapingWorkspace(t *testing.T) {
	params, _ := json.Marshal(map[string]any{"path": "/etc/passwd"})
	tools := []models.Tool{{Name: models.ToolCreateFile, Params: params}}

	result := applyContainment(tools, models.ProjectContext{ProjectName: "app"})
	assert.Empty(t, result)
}

type assertError struct{}

func (assertError) Error() string { return "backend unreachable" }
