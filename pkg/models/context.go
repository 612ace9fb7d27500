package models

// FileOrigin describes why a file was pulled into request context.
type FileOrigin string

const (
	OriginExplicitReference       FileOrigin = "explicit_reference"
	OriginProjectStructure        FileOrigin = "project_structure"
	OriginParentProjectStructure  FileOrigin = "parent_project_structure"
)

// FileRef is a single file surfaced to the model as context.
type FileRef struct {
	Path   string     `json:"path"`
	Origin FileOrigin `json:"origin"`
}

// Dependencies is the runtime/dev dependency manifest summary (spec §3).
type Dependencies struct {
	Runtime []string `json:"runtime"`
	Dev     []string `json:"dev"`
}

// GitStatus is a best-effort VCS porcelain-status summary.
type GitStatus struct {
	ChangedCount int      `json:"changedCount"`
	Sample       []string `json:"sample"`
}

// ContextMethod records how a Context was produced.
type ContextMethod string

const (
	MethodHeuristic ContextMethod = "heuristic"
	MethodHybrid    ContextMethod = "hybrid"
	MethodFallback  ContextMethod = "fallback"
)

// Context is the workspace context assembled for a request (spec §3).
type Context struct {
	Files        []FileRef     `json:"files"`
	Dependencies *Dependencies `json:"dependencies,omitempty"`
	GitStatus    *GitStatus    `json:"gitStatus,omitempty"`
	Reasoning    string        `json:"reasoning"`
	Method       ContextMethod `json:"method"`
}

// FallbackContext is returned whenever heuristic gathering fails (spec §4.4
// failure policy and §8's "context fallback totality" law).
func FallbackContext(reasoning string) Context {
	return Context{
		Files:     []FileRef{},
		Reasoning: reasoning,
		Method:    MethodFallback,
	}
}
