package models

import "time"

// WorkflowStatus is the workflow state machine's set of states (spec §3/§4.9).
type WorkflowStatus string

const (
	WorkflowInitializing WorkflowStatus = "initializing"
	WorkflowReady        WorkflowStatus = "ready"
	WorkflowExecuting    WorkflowStatus = "executing"
	WorkflowPaused       WorkflowStatus = "paused"
	WorkflowPhaseFailed  WorkflowStatus = "phase_failed"
	WorkflowFailed       WorkflowStatus = "failed"
	WorkflowCompleted    WorkflowStatus = "completed"
	WorkflowCancelled    WorkflowStatus = "cancelled"
)

// IsTerminal reports whether the workflow can no longer advance.
func (s WorkflowStatus) IsTerminal() bool {
	switch s {
	case WorkflowCompleted, WorkflowFailed, WorkflowCancelled:
		return true
	default:
		return false
	}
}

// PhaseFailure records a failed phase attempt (spec §3's failedPhases).
type PhaseFailure struct {
	Phase string    `json:"phase"`
	Error string    `json:"error"`
	At    time.Time `json:"at"`
}

// Phase is a named group of tools within a workflow template (spec §3).
type Phase struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Tools         []string `json:"tools"`
	Dependencies  []string `json:"dependencies,omitempty"`
	EstimatedTime string   `json:"estimatedTime"`
	Complexity    string   `json:"complexity"`
}

// ProjectContext describes the project a workflow operates on, supplied by
// the caller of POST /api/workflows (spec §6).
type ProjectContext struct {
	ProjectType string `json:"projectType,omitempty"`
	ProjectName string `json:"projectName,omitempty"`
	TargetDir   string `json:"targetDir,omitempty"`
}

// Workflow is a single stateful execution of a template (spec §3).
type Workflow struct {
	ID                   string            `json:"id"`
	Type                 string            `json:"type"`
	Status               WorkflowStatus    `json:"status"`
	Phases               []Phase           `json:"phases"`
	CurrentPhase         int               `json:"currentPhase"`
	CompletedPhases      []string          `json:"completedPhases"`
	FailedPhases         []PhaseFailure    `json:"failedPhases,omitempty"`
	Context              ProjectContext    `json:"context"`
	UserRequest          string            `json:"userRequest"`
	StartTime            time.Time         `json:"startTime"`
	CurrentPhaseStartTime time.Time        `json:"currentPhaseStartTime,omitempty"`
	TotalExecutionTime   time.Duration     `json:"totalExecutionTime,omitempty"`
	Errors               []string          `json:"errors,omitempty"`
}

// HasCompleted reports whether name is present in CompletedPhases.
func (w *Workflow) HasCompleted(name string) bool {
	for _, c := range w.CompletedPhases {
		if c == name {
			return true
		}
	}
	return false
}

// DependenciesSatisfied reports whether every dependency of phase is in
// CompletedPhases (spec §3's Phase invariant).
func (w *Workflow) DependenciesSatisfied(phase Phase) bool {
	for _, dep := range phase.Dependencies {
		if !w.HasCompleted(dep) {
			return false
		}
	}
	return true
}

// Progress returns completion percentage 0-100.
func (w *Workflow) Progress() int {
	if len(w.Phases) == 0 {
		return 0
	}
	return (len(w.CompletedPhases) * 100) / len(w.Phases)
}
