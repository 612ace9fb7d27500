package models

import "encoding/json"

// ToolName is the closed vocabulary of tools the engine can dispatch
// (spec §3/§4.7).
type ToolName string

const (
	ToolCreateFile        ToolName = "create_file"
	ToolEditFile          ToolName = "edit_file"
	ToolCreateDirectory   ToolName = "create_directory"
	ToolRunTerminal       ToolName = "run_terminal"
	ToolGitOperation      ToolName = "git_operation"
	ToolInstallDependency ToolName = "install_dependency"
	ToolRunTests          ToolName = "run_tests"
	ToolConfigureLinter   ToolName = "configure_linter"
	ToolSearchFiles       ToolName = "search_files"
)

// criticalByName lists tools that are critical purely by virtue of their
// name (spec §4.7: "any critical tool failure fails the phase").
var criticalByName = map[ToolName]bool{
	ToolCreateDirectory: true,
	ToolCreateFile:      true,
	ToolRunTerminal:     true,
}

// Tool is a single planned tool invocation. Params carries the
// tool-specific argument struct as raw JSON (TypedArgs, see SPEC_FULL.md);
// the engine decodes it into the concrete per-tool struct before dispatch.
type Tool struct {
	Name         ToolName        `json:"name"`
	Params       json.RawMessage `json:"params"`
	Critical     bool            `json:"critical"`
	Priority     int             `json:"priority"`
	Dependencies []string        `json:"dependencies,omitempty"`
}

// IsCritical reports whether this tool must succeed for its phase to
// continue, honoring an explicit flag or the name-based default.
func (t Tool) IsCritical() bool {
	return t.Critical || criticalByName[t.Name]
}

// TypedResult is the typed envelope every tool handler returns
// (SPEC_FULL.md's TypedArgs/TypedResult pattern).
type TypedResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// CreateFileParams is the param struct for create_file.
type CreateFileParams struct {
	Path    string `json:"path"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content,omitempty"`
}

// EditFileParams is the param struct for edit_file.
type EditFileParams struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// CreateDirectoryParams is the param struct for create_directory.
type CreateDirectoryParams struct {
	Path string `json:"path"`
}

// RunTerminalParams is the param struct for run_terminal.
type RunTerminalParams struct {
	Command string `json:"command"`
	Cwd     string `json:"cwd,omitempty"`
}

// GitOperationParams is the param struct for git_operation.
type GitOperationParams struct {
	Operation     string `json:"operation"`
	CommitMessage string `json:"commit_message,omitempty"`
}

// InstallDependencyParams is the param struct for install_dependency.
type InstallDependencyParams struct {
	Language string   `json:"language,omitempty"`
	Manager  string   `json:"manager,omitempty"`
	Packages []string `json:"packages,omitempty"`
	Dev      bool     `json:"dev,omitempty"`
}

// RunTestsParams is the param struct for run_tests.
type RunTestsParams struct {
	Command string `json:"command,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// ConfigureLinterParams is the param struct for configure_linter.
type ConfigureLinterParams struct {
	Linter string `json:"linter,omitempty"`
	Config string `json:"config,omitempty"`
}

// SearchFilesParams is the param struct for search_files.
type SearchFilesParams struct {
	Pattern string `json:"pattern"`
	Dir     string `json:"dir,omitempty"`
}

// RequiredParams describes, per tool, the required-for-validation field
// names. Used by GET /api/tools (spec §6) and by the Smart Tool
// Generator's tool schemas; the Tool Execution Engine does not call it.
func RequiredParams(name ToolName) []string {
	switch name {
	case ToolCreateFile:
		return nil // path or name, validated specially
	case ToolEditFile:
		return []string{"path", "content"}
	case ToolCreateDirectory:
		return []string{"path"}
	case ToolRunTerminal:
		return []string{"command"}
	case ToolGitOperation:
		return []string{"operation"}
	case ToolInstallDependency:
		return []string{"packages"}
	case ToolRunTests, ToolConfigureLinter:
		return nil
	case ToolSearchFiles:
		return []string{"pattern"}
	default:
		return nil
	}
}

// AllToolNames lists the closed tool vocabulary in a stable order, used by
// GET /api/tools.
func AllToolNames() []ToolName {
	return []ToolName{
		ToolCreateFile, ToolEditFile, ToolCreateDirectory, ToolRunTerminal,
		ToolGitOperation, ToolInstallDependency, ToolRunTests,
		ToolConfigureLinter, ToolSearchFiles,
	}
}
