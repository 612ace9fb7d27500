// Package toolexec implements the Tool Execution Engine (spec §4.7): a
// closed dispatcher over the fixed tool vocabulary, honoring per-phase
// priority order and intra-phase dependencies, with critical-tool failures
// propagated to the caller so the Workflow Orchestrator can fail the phase.
// Grounded on the teacher's internal/agent/tool_registry.go (name-keyed
// dispatch table with pre-execution validation) and
// internal/links/runner.go (exec.CommandContext-based shell spawning).
package toolexec

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ollamageek/gateway/pkg/models"
)

// Invalidator lets the engine notify the Smart Context Manager that a file
// it just wrote is stale in the context cache (SPEC_FULL.md addition).
type Invalidator interface {
	Invalidate(path string)
}

// Engine dispatches tools within a phase (spec §4.7).
type Engine struct {
	workspaceRoot string
	invalidator   Invalidator
	logger        *slog.Logger

	// commandTimeout bounds run_terminal and derived (git/install/test/lint)
	// invocations.
	commandTimeout time.Duration
}

// New creates an Engine rooted at workspaceRoot, the directory all relative
// tool paths are resolved against (spec §4.7's "normalizes leading / to
// workspace-relative").
func New(workspaceRoot string, invalidator Invalidator, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{workspaceRoot: workspaceRoot, invalidator: invalidator, logger: logger, commandTimeout: 60 * time.Second}
}

// Result is the outcome of one tool invocation.
type Result struct {
	Tool    models.Tool
	Typed   models.TypedResult
	Skipped bool
}

// PhaseOutcome is the aggregated result of executing a phase's tool list.
type PhaseOutcome struct {
	Results       []Result
	CriticalError error
}

// ExecutePhase runs tools in priority order, honoring intra-phase
// dependencies, and stops (without running the remainder) on the first
// critical failure (spec §4.7: "tools within a phase are executed in
// priority order; a tool listing dependencies waits until those have
// succeeded in the same phase... any critical tool failure fails the
// phase").
func (e *Engine) ExecutePhase(ctx context.Context, tools []models.Tool) PhaseOutcome {
	remaining := make([]models.Tool, len(tools))
	copy(remaining, tools)
	sort.SliceStable(remaining, func(i, j int) bool { return remaining[i].Priority > remaining[j].Priority })

	succeeded := map[string]bool{}
	outcome := PhaseOutcome{Results: make([]Result, 0, len(remaining))}

	for len(remaining) > 0 && outcome.CriticalError == nil {
		progressed := false
		var stillWaiting []models.Tool

		for _, tool := range remaining {
			if outcome.CriticalError != nil {
				stillWaiting = append(stillWaiting, tool)
				continue
			}
			if !dependenciesMet(tool, succeeded) {
				stillWaiting = append(stillWaiting, tool)
				continue
			}

			progressed = true
			typed := e.Execute(ctx, tool)
			outcome.Results = append(outcome.Results, Result{Tool: tool, Typed: typed})

			if typed.Success {
				succeeded[string(tool.Name)] = true
				continue
			}

			e.logger.Warn("tool execution failed", "tool", tool.Name, "error", typed.Error, "critical", tool.IsCritical())
			if tool.IsCritical() {
				outcome.CriticalError = fmt.Errorf("critical tool %s failed: %s", tool.Name, typed.Error)
			}
		}

		remaining = stillWaiting
		if !progressed {
			// Unsatisfiable dependencies (or a critical failure mid-pass):
			// the rest of the phase cannot proceed.
			break
		}
	}

	for _, tool := range remaining {
		outcome.Results = append(outcome.Results, Result{Tool: tool, Skipped: true})
	}

	return outcome
}

func dependenciesMet(tool models.Tool, succeeded map[string]bool) bool {
	for _, dep := range tool.Dependencies {
		if !succeeded[dep] {
			return false
		}
	}
	return true
}

// Execute dispatches a single tool by name (spec §4.7's closed vocabulary).
func (e *Engine) Execute(ctx context.Context, tool models.Tool) models.TypedResult {
	switch tool.Name {
	case models.ToolCreateFile:
		return e.createFile(tool.Params)
	case models.ToolEditFile:
		return e.editFile(tool.Params)
	case models.ToolCreateDirectory:
		return e.createDirectory(tool.Params)
	case models.ToolRunTerminal:
		return e.runTerminal(ctx, tool.Params)
	case models.ToolGitOperation:
		return e.gitOperation(ctx, tool.Params)
	case models.ToolInstallDependency:
		return e.installDependency(ctx, tool.Params)
	case models.ToolRunTests:
		return e.runTests(ctx, tool.Params)
	case models.ToolConfigureLinter:
		return e.configureLinter(ctx, tool.Params)
	case models.ToolSearchFiles:
		return e.searchFiles(tool.Params)
	default:
		return errResult(models.KindInvalidPlan, fmt.Sprintf("unknown tool: %s", tool.Name))
	}
}

func errResult(kind models.ErrorKind, msg string) models.TypedResult {
	return models.TypedResult{Success: false, Error: msg}
}

func okResult(data any) models.TypedResult {
	raw, err := json.Marshal(data)
	if err != nil {
		return errResult(models.KindInternal, err.Error())
	}
	return models.TypedResult{Success: true, Data: raw}
}

// resolvePath normalizes a leading "/" to workspace-relative (spec §4.7)
// and rejects any path that would escape the workspace root.
func (e *Engine) resolvePath(path string) (string, error) {
	clean := strings.TrimPrefix(path, "/")
	joined := filepath.Join(e.workspaceRoot, clean)
	root, err := filepath.Abs(e.workspaceRoot)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	if abs != root && !strings.HasPrefix(abs, root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace root: %s", path)
	}
	return abs, nil
}

func (e *Engine) createFile(params json.RawMessage) models.TypedResult {
	var p models.CreateFileParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(models.KindMissingParam, "invalid create_file params: "+err.Error())
	}
	path := p.Path
	if path == "" {
		path = p.Name
	}
	if path == "" {
		return errResult(models.KindMissingParam, "create_file requires path or name")
	}
	if filepath.Ext(path) == "" && !strings.HasSuffix(path, "/") {
		path += ".js"
	}

	abs, err := e.resolvePath(path)
	if err != nil {
		return errResult(models.KindWriteFailure, err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return errResult(models.KindWriteFailure, "create parent directories: "+err.Error())
	}
	if err := os.WriteFile(abs, []byte(p.Content), 0o644); err != nil {
		return errResult(models.KindWriteFailure, "write file: "+err.Error())
	}
	e.invalidate(abs)
	return okResult(map[string]string{"path": path})
}

func (e *Engine) editFile(params json.RawMessage) models.TypedResult {
	var p models.EditFileParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(models.KindMissingParam, "invalid edit_file params: "+err.Error())
	}
	if p.Path == "" {
		return errResult(models.KindMissingParam, "edit_file requires path")
	}
	abs, err := e.resolvePath(p.Path)
	if err != nil {
		return errResult(models.KindWriteFailure, err.Error())
	}
	if _, err := os.Stat(abs); err != nil {
		return errResult(models.KindNotFound, "file does not exist: "+p.Path)
	}
	if err := os.WriteFile(abs, []byte(p.Content), 0o644); err != nil {
		return errResult(models.KindWriteFailure, "write file: "+err.Error())
	}
	e.invalidate(abs)
	return okResult(map[string]string{"path": p.Path})
}

func (e *Engine) createDirectory(params json.RawMessage) models.TypedResult {
	var p models.CreateDirectoryParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(models.KindMissingParam, "invalid create_directory params: "+err.Error())
	}
	if p.Path == "" {
		return errResult(models.KindMissingParam, "create_directory requires path")
	}
	abs, err := e.resolvePath(p.Path)
	if err != nil {
		return errResult(models.KindWriteFailure, err.Error())
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return errResult(models.KindWriteFailure, "create directory: "+err.Error())
	}
	return okResult(map[string]string{"path": p.Path})
}

// runTerminal runs command through "sh -c" and waits for it to exit (or for
// the engine's command timeout), returning its combined output. It does not
// return before the command has exited. A non-zero exit still yields
// Success, with the exit error in Error.
func (e *Engine) runTerminal(ctx context.Context, params json.RawMessage) models.TypedResult {
	var p models.RunTerminalParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(models.KindMissingParam, "invalid run_terminal params: "+err.Error())
	}
	if strings.TrimSpace(p.Command) == "" {
		return errResult(models.KindMissingParam, "run_terminal requires command")
	}

	runCtx, cancel := context.WithTimeout(ctx, e.commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", p.Command)
	dir := e.workspaceRoot
	if p.Cwd != "" {
		if abs, err := e.resolvePath(p.Cwd); err == nil {
			dir = abs
		}
	}
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	result := okResult(map[string]string{"command": p.Command, "output": string(output)})
	if err != nil {
		// A non-zero exit does not itself count as a tool failure (spec
		// §4.7: run_terminal's error table lists only MissingParam). Surface
		// the exit error for diagnostics without flipping Success.
		result.Error = err.Error()
	}
	return result
}

// runShell dispatches command and reports failure on a non-zero exit,
// unlike runTerminal above: git_operation, install_dependency, run_tests,
// and configure_linter are not carved out of spec §4.7's exit-code-driven
// failure the way run_terminal is.
func (e *Engine) runShell(ctx context.Context, command, cwd string) models.TypedResult {
	runCtx, cancel := context.WithTimeout(ctx, e.commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	dir := e.workspaceRoot
	if cwd != "" {
		if abs, err := e.resolvePath(cwd); err == nil {
			dir = abs
		}
	}
	cmd.Dir = dir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return models.TypedResult{
			Success: false,
			Data:    json.RawMessage(mustMarshal(map[string]string{"command": command, "output": string(output)})),
			Error:   err.Error(),
		}
	}
	return okResult(map[string]string{"command": command, "output": string(output)})
}

func mustMarshal(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// gitOperation emits the corresponding git command via the shell (spec §4.7).
func (e *Engine) gitOperation(ctx context.Context, params json.RawMessage) models.TypedResult {
	var p models.GitOperationParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(models.KindMissingParam, "invalid git_operation params: "+err.Error())
	}
	if p.Operation == "" {
		return errResult(models.KindMissingParam, "git_operation requires operation")
	}

	var command string
	switch p.Operation {
	case "init":
		command = "git init"
	case "add":
		command = "git add ."
	case "commit":
		if p.CommitMessage == "" {
			return errResult(models.KindMissingParam, "git_operation commit requires commit_message")
		}
		command = fmt.Sprintf("git commit -m %q", p.CommitMessage)
	case "push":
		command = "git push"
	default:
		command = "git " + p.Operation
	}
	return e.runShell(ctx, command, "")
}

// installDependency emits the appropriate package-manager command (spec
// §4.7).
func (e *Engine) installDependency(ctx context.Context, params json.RawMessage) models.TypedResult {
	var p models.InstallDependencyParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(models.KindMissingParam, "invalid install_dependency params: "+err.Error())
	}
	if len(p.Packages) == 0 {
		return errResult(models.KindMissingParam, "install_dependency requires packages")
	}

	manager := p.Manager
	if manager == "" {
		manager = defaultManager(p.Language)
	}

	var command string
	switch manager {
	case "pip":
		command = "pip install " + strings.Join(p.Packages, " ")
	case "cargo":
		command = "cargo add " + strings.Join(p.Packages, " ")
	case "go":
		command = "go get " + strings.Join(p.Packages, " ")
	default: // npm
		command = "npm install " + strings.Join(p.Packages, " ")
		if p.Dev {
			command += " --save-dev"
		}
	}
	return e.runShell(ctx, command, "")
}

func defaultManager(language string) string {
	switch models.Language(strings.ToLower(language)) {
	case models.LangPython:
		return "pip"
	case models.LangRust:
		return "cargo"
	case models.LangGo:
		return "go"
	default:
		return "npm"
	}
}

func (e *Engine) runTests(ctx context.Context, params json.RawMessage) models.TypedResult {
	var p models.RunTestsParams
	_ = json.Unmarshal(params, &p)
	command := p.Command
	if command == "" {
		command = "npm test"
	}
	return e.runShell(ctx, command, "")
}

func (e *Engine) configureLinter(ctx context.Context, params json.RawMessage) models.TypedResult {
	var p models.ConfigureLinterParams
	_ = json.Unmarshal(params, &p)
	linter := p.Linter
	if linter == "" {
		linter = "eslint"
	}
	command := fmt.Sprintf("npx %s --init", linter)
	return e.runShell(ctx, command, "")
}

func (e *Engine) searchFiles(params json.RawMessage) models.TypedResult {
	var p models.SearchFilesParams
	if err := json.Unmarshal(params, &p); err != nil {
		return errResult(models.KindMissingParam, "invalid search_files params: "+err.Error())
	}
	if p.Pattern == "" {
		return errResult(models.KindMissingParam, "search_files requires pattern")
	}
	dir := e.workspaceRoot
	if p.Dir != "" {
		if abs, err := e.resolvePath(p.Dir); err == nil {
			dir = abs
		}
	}

	var matches []string
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if ok, _ := filepath.Match(p.Pattern, filepath.Base(path)); ok {
			rel, relErr := filepath.Rel(e.workspaceRoot, path)
			if relErr != nil {
				rel = path
			}
			matches = append(matches, rel)
		}
		return nil
	})
	return okResult(map[string]any{"matches": matches})
}

func (e *Engine) invalidate(path string) {
	if e.invalidator == nil {
		return
	}
	rel, err := filepath.Rel(e.workspaceRoot, path)
	if err != nil {
		rel = path
	}
	e.invalidator.Invalidate(rel)
}
