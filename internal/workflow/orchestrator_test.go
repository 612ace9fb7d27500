package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollamageek/gateway/internal/toolexec"
	"github.com/ollamageek/gateway/pkg/models"
)

type fakeGenerator struct {
	tools []models.Tool
	err   error
}

func (f *fakeGenerator) Generate(ctx context.Context, phase models.Phase, projectCtx models.ProjectContext, userRequest string) ([]models.Tool, error) {
	return f.tools, f.err
}

type fakeExecutor struct {
	outcome toolexec.PhaseOutcome
}

func (f *fakeExecutor) ExecutePhase(ctx context.Context, tools []models.Tool) toolexec.PhaseOutcome {
	return f.outcome
}

func TestStartWorkflow_UnknownTemplateErrors(t *testing.T) {
	o := New(NewStore(0), &fakeGenerator{}, &fakeExecutor{}, nil)
	_, err := o.StartWorkflow("nonexistent", models.ProjectContext{}, "build something")
	assert.Error(t, err)
}

func TestExecuteNextPhase_AdvancesThroughAllPhases(t *testing.T) {
	gen := &fakeGenerator{tools: []models.Tool{{Name: models.ToolCreateFile}}}
	exec := &fakeExecutor{outcome: toolexec.PhaseOutcome{}}
	o := New(NewStore(0), gen, exec, nil)

	wf, err := o.StartWorkflow("nodejs_api", models.ProjectContext{ProjectName: "app"}, "build an api")
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowReady, wf.Status)

	for i := 0; i < len(wf.Phases); i++ {
		wf, err = o.ExecuteNextPhase(context.Background(), wf.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, models.WorkflowCompleted, wf.Status)
	assert.Len(t, wf.CompletedPhases, 3)
}

func TestExecuteNextPhase_CriticalFailureMarksPhaseFailed(t *testing.T) {
	gen := &fakeGenerator{tools: []models.Tool{{Name: models.ToolRunTerminal}}}
	exec := &fakeExecutor{outcome: toolexec.PhaseOutcome{CriticalError: errors.New("boom")}}
	o := New(NewStore(0), gen, exec, nil)

	wf, err := o.StartWorkflow("nodejs_api", models.ProjectContext{ProjectName: "app"}, "build an api")
	require.NoError(t, err)

	wf, err = o.ExecuteNextPhase(context.Background(), wf.ID)
	require.Error(t, err)
	assert.Equal(t, models.WorkflowPhaseFailed, wf.Status)
	require.Len(t, wf.FailedPhases, 1)
	assert.Equal(t, "project_setup", wf.FailedPhases[0].Phase)
}

func TestExecuteNextPhase_RefusesWhenPaused(t *testing.T) {
	o := New(NewStore(0), &fakeGenerator{}, &fakeExecutor{}, nil)
	wf, err := o.StartWorkflow("nodejs_api", models.ProjectContext{}, "build an api")
	require.NoError(t, err)

	_, err = o.Pause(wf.ID)
	require.NoError(t, err)

	_, err = o.ExecuteNextPhase(context.Background(), wf.ID)
	assert.Error(t, err)
}

func TestPauseResumeCancel(t *testing.T) {
	o := New(NewStore(0), &fakeGenerator{}, &fakeExecutor{}, nil)
	wf, err := o.StartWorkflow("nodejs_api", models.ProjectContext{}, "build an api")
	require.NoError(t, err)

	wf, err = o.Pause(wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowPaused, wf.Status)

	wf, err = o.Resume(wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowReady, wf.Status)

	wf, err = o.Cancel(wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowCancelled, wf.Status)

	_, err = o.Cancel(wf.ID)
	assert.Error(t, err)
}
