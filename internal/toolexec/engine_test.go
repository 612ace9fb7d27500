package toolexec

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollamageek/gateway/pkg/models"
)

func TestCreateFile_AppendsJSExtensionAndCreatesParents(t *testing.T) {
	root := t.TempDir()
	e := New(root, nil, nil)

	params, _ := json.Marshal(models.CreateFileParams{Path: "src/index", Content: "console.log(1)"})
	result := e.Execute(context.Background(), models.Tool{Name: models.ToolCreateFile, Params: params})

	require.True(t, result.Success)
	data, err := os.ReadFile(filepath.Join(root, "src", "index.js"))
	require.NoError(t, err)
	assert.Equal(t, "console.log(1)", string(data))
}

func TestCreateFile_RejectsPathEscapingWorkspace(t *testing.T) {
	root := t.TempDir()
	e := New(root, nil, nil)

	params, _ := json.Marshal(models.CreateFileParams{Path: "../../etc/passwd", Content: "x"})
	result := e.Execute(context.Background(), models.Tool{Name: models.ToolCreateFile, Params: params})

	assert.False(t, result.Success)
}

func TestEditFile_FailsWhenAbsent(t *testing.T) {
	root := t.TempDir()
	e := New(root, nil, nil)

	params, _ := json.Marshal(models.EditFileParams{Path: "missing.txt", Content: "x"})
	result := e.Execute(context.Background(), models.Tool{Name: models.ToolEditFile, Params: params})

	assert.False(t, result.Success)
}

func TestExecutePhase_CriticalFailureStopsRemainingTools(t *testing.T) {
	root := t.TempDir()
	e := New(root, nil, nil)

	badParams, _ := json.Marshal(models.EditFileParams{Path: "missing.txt", Content: "x"})
	goodParams, _ := json.Marshal(models.CreateFileParams{Path: "ok.txt", Content: "y"})

	tools := []models.Tool{
		{Name: models.ToolEditFile, Params: badParams, Priority: 2, Critical: true},
		{Name: models.ToolCreateFile, Params: goodParams, Priority: 1},
	}

	outcome := e.ExecutePhase(context.Background(), tools)

	require.Error(t, outcome.CriticalError)
	require.Len(t, outcome.Results, 2)
	assert.False(t, outcome.Results[0].Typed.Success)
	assert.True(t, outcome.Results[1].Skipped)

	_, err := os.Stat(filepath.Join(root, "ok.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestExecutePhase_WaitsForIntraPhaseDependency(t *testing.T) {
	root := t.TempDir()
	e := New(root, nil, nil)

	dirParams, _ := json.Marshal(models.CreateDirectoryParams{Path: "pkg"})
	fileParams, _ := json.Marshal(models.CreateFileParams{Path: "pkg/file.go", Content: "package pkg"})

	tools := []models.Tool{
		{Name: models.ToolCreateFile, Params: fileParams, Priority: 2, Dependencies: []string{string(models.ToolCreateDirectory)}},
		{Name: models.ToolCreateDirectory, Params: dirParams, Priority: 1},
	}

	outcome := e.ExecutePhase(context.Background(), tools)

	require.Nil(t, outcome.CriticalError)
	for _, r := range outcome.Results {
		assert.True(t, r.Typed.Success || !r.Skipped)
	}
	_, err := os.Stat(filepath.Join(root, "pkg", "file.go"))
	assert.NoError(t, err)
}

func TestRunTerminal_NonZeroExitStillReportsSuccess(t *testing.T) {
	root := t.TempDir()
	e := New(root, nil, nil)

	params, _ := json.Marshal(models.RunTerminalParams{Command: "exit 1"})
	result := e.Execute(context.Background(), models.Tool{Name: models.ToolRunTerminal, Params: params})

	require.True(t, result.Success, "run_terminal returns success once dispatched, independent of exit code")
	assert.NotEmpty(t, result.Error, "the exit error is still surfaced for diagnostics")
}

func TestExecutePhase_RunTerminalNonZeroExitDoesNotFailPhase(t *testing.T) {
	root := t.TempDir()
	e := New(root, nil, nil)

	params, _ := json.Marshal(models.RunTerminalParams{Command: "exit 1"})
	tools := []models.Tool{
		{Name: models.ToolRunTerminal, Params: params, Priority: 1, Critical: true},
	}

	outcome := e.ExecutePhase(context.Background(), tools)

	require.Nil(t, outcome.CriticalError, "run_terminal is critical-by-name but a non-zero exit is not a tool failure")
	require.Len(t, outcome.Results, 1)
	assert.True(t, outcome.Results[0].Typed.Success)
}

type fakeInvalidator struct{ paths []string }

func (f *fakeInvalidator) Invalidate(path string) { f.paths = append(f.paths, path) }

func TestCreateFile_InvalidatesContextCache(t *testing.T) {
	root := t.TempDir()
	inv := &fakeInvalidator{}
	e := New(root, inv, nil)

	params, _ := json.Marshal(models.CreateFileParams{Path: "a.txt", Content: "x"})
	_ = e.Execute(context.Background(), models.Tool{Name: models.ToolCreateFile, Params: params})

	assert.Contains(t, inv.paths, "a.txt")
}
