// Package workflow implements the Workflow Orchestrator (spec §4.9): a
// state machine that advances a templated multi-phase plan one phase at a
// time, delegating tool synthesis to the Smart Tool Generator and tool
// dispatch to the Tool Execution Engine. Grounded on the teacher's
// internal/agent state machine (initializing/ready/running/done states
// driven by explicit caller-invoked steps rather than a background loop).
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ollamageek/gateway/internal/toolexec"
	"github.com/ollamageek/gateway/pkg/models"
)

// newWorkflowID mints an id of the form workflow_<unix-ts>_<rand> (spec §3:
// "id (workflow_<ts>_<rand>)"), using a uuid-derived random suffix rather
// than a bare uuid as the whole id.
func newWorkflowID() string {
	rand := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "workflow_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + rand
}

// ErrPhaseWaiting signals that the next phase's dependencies are not yet
// satisfied (spec §8 scenario 6: "returns {status:waiting,
// dependencies:[...]} and does not increment currentPhase"). Distinct from
// the other invalid-state errors: it is a normal, retryable outcome rather
// than a client mistake.
var ErrPhaseWaiting = errors.New("phase dependencies not satisfied")

// ToolGenerator synthesizes a tool plan for one phase. Implemented by
// *toolgen.Generator.
type ToolGenerator interface {
	Generate(ctx context.Context, phase models.Phase, projectCtx models.ProjectContext, userRequest string) ([]models.Tool, error)
}

// PhaseExecutor dispatches a phase's tool list. Implemented by
// *toolexec.Engine.
type PhaseExecutor interface {
	ExecutePhase(ctx context.Context, tools []models.Tool) toolexec.PhaseOutcome
}

// Orchestrator drives workflows through their state machine (spec §4.9).
type Orchestrator struct {
	store     *Store
	generator ToolGenerator
	executor  PhaseExecutor
	logger    *slog.Logger
}

// New creates an Orchestrator.
func New(store *Store, generator ToolGenerator, executor PhaseExecutor, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{store: store, generator: generator, executor: executor, logger: logger}
}

// StartWorkflow instantiates a workflow from a named template (spec §4.9's
// `startWorkflow`). The workflow begins in `initializing` and transitions
// immediately to `ready` once its phase list is populated.
func (o *Orchestrator) StartWorkflow(templateName string, projectCtx models.ProjectContext, userRequest string) (*models.Workflow, error) {
	phases, ok := Templates[templateName]
	if !ok {
		return nil, models.NewError(models.KindBadRequest, "unknown workflow template: "+templateName, nil)
	}

	wf := &models.Workflow{
		ID:          newWorkflowID(),
		Type:        templateName,
		Status:      models.WorkflowInitializing,
		Phases:      append([]models.Phase{}, phases...),
		Context:     projectCtx,
		UserRequest: userRequest,
		StartTime:   time.Now(),
	}
	wf.Status = models.WorkflowReady
	o.store.Put(wf)
	return wf, nil
}

// ExecuteNextPhase advances the workflow by exactly one phase (spec §4.9's
// `executeNextPhase` six-step procedure): locate the workflow, verify it can
// advance, check the next phase's dependencies, generate its tool plan,
// execute it, and record the outcome.
func (o *Orchestrator) ExecuteNextPhase(ctx context.Context, id string) (*models.Workflow, error) {
	wf, ok := o.store.Get(id)
	if !ok {
		return nil, models.NewError(models.KindWorkflowNotFound, "workflow not found: "+id, nil)
	}

	if wf.Status != models.WorkflowReady {
		return nil, models.NewError(models.KindInvalidWorkflowState, "workflow is not ready to advance: "+string(wf.Status), nil)
	}

	if wf.CurrentPhase >= len(wf.Phases) {
		wf.Status = models.WorkflowCompleted
		o.store.Put(wf)
		return wf, nil
	}

	phase := wf.Phases[wf.CurrentPhase]
	if !wf.DependenciesSatisfied(phase) {
		return wf, ErrPhaseWaiting
	}

	wf.Status = models.WorkflowExecuting
	wf.CurrentPhaseStartTime = time.Now()
	o.store.Put(wf)

	tools, err := o.generator.Generate(ctx, phase, wf.Context, wf.UserRequest)
	if err != nil {
		wf.Status = models.WorkflowPhaseFailed
		wf.FailedPhases = append(wf.FailedPhases, models.PhaseFailure{Phase: phase.Name, Error: err.Error(), At: time.Now()})
		wf.Errors = append(wf.Errors, err.Error())
		o.store.Put(wf)
		return wf, err
	}

	outcome := o.executor.ExecutePhase(ctx, tools)
	wf.TotalExecutionTime += time.Since(wf.CurrentPhaseStartTime)

	if outcome.CriticalError != nil {
		wf.Status = models.WorkflowPhaseFailed
		wf.FailedPhases = append(wf.FailedPhases, models.PhaseFailure{Phase: phase.Name, Error: outcome.CriticalError.Error(), At: time.Now()})
		wf.Errors = append(wf.Errors, outcome.CriticalError.Error())
		o.store.Put(wf)
		return wf, outcome.CriticalError
	}

	wf.CompletedPhases = append(wf.CompletedPhases, phase.Name)
	wf.CurrentPhase++
	if wf.CurrentPhase >= len(wf.Phases) {
		wf.Status = models.WorkflowCompleted
	} else {
		wf.Status = models.WorkflowReady
	}
	o.store.Put(wf)
	return wf, nil
}

// Pause transitions a non-terminal workflow to `paused` (spec §4.9).
func (o *Orchestrator) Pause(id string) (*models.Workflow, error) {
	wf, ok := o.store.Get(id)
	if !ok {
		return nil, models.NewError(models.KindWorkflowNotFound, "workflow not found: "+id, nil)
	}
	if wf.Status.IsTerminal() {
		return nil, models.NewError(models.KindInvalidWorkflowState, "cannot pause a terminal workflow", nil)
	}
	wf.Status = models.WorkflowPaused
	o.store.Put(wf)
	return wf, nil
}

// Resume transitions a paused workflow back to `ready`.
func (o *Orchestrator) Resume(id string) (*models.Workflow, error) {
	wf, ok := o.store.Get(id)
	if !ok {
		return nil, models.NewError(models.KindWorkflowNotFound, "workflow not found: "+id, nil)
	}
	if wf.Status != models.WorkflowPaused {
		return nil, models.NewError(models.KindInvalidWorkflowState, "workflow is not paused", nil)
	}
	wf.Status = models.WorkflowReady
	o.store.Put(wf)
	return wf, nil
}

// Cancel transitions any non-terminal workflow to `cancelled`.
func (o *Orchestrator) Cancel(id string) (*models.Workflow, error) {
	wf, ok := o.store.Get(id)
	if !ok {
		return nil, models.NewError(models.KindWorkflowNotFound, "workflow not found: "+id, nil)
	}
	if wf.Status.IsTerminal() {
		return nil, models.NewError(models.KindInvalidWorkflowState, "workflow already terminal", nil)
	}
	wf.Status = models.WorkflowCancelled
	o.store.Put(wf)
	return wf, nil
}

// Get returns the workflow for id, or a KindWorkflowNotFound error.
func (o *Orchestrator) Get(id string) (*models.Workflow, error) {
	wf, ok := o.store.Get(id)
	if !ok {
		return nil, models.NewError(models.KindWorkflowNotFound, "workflow not found: "+id, nil)
	}
	return wf, nil
}

// History returns the completed and failed phase record for a workflow
// (SPEC_FULL.md's GET /api/workflows/:id/history addition).
func (o *Orchestrator) History(id string) (*models.Workflow, error) {
	return o.Get(id)
}

// List returns every known workflow.
func (o *Orchestrator) List() []*models.Workflow {
	return o.store.List()
}

// Cleanup forces an immediate sweep, mirroring the scheduled sweeper
// (spec §6's POST /api/workflows/cleanup).
func (o *Orchestrator) Cleanup() int {
	return o.store.Sweep()
}
