package smartcontext

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ollamageek/gateway/pkg/models"
)

// Enhancer extends a heuristically-built Context with AI-derived detail
// (spec §4.4 step 3). Implementations must be idempotent and
// side-effect-free on a cache miss. A nil Enhancer disables AI enhancement
// entirely; the manager still returns a well-formed heuristic Context.
type Enhancer interface {
	Enhance(ctx context.Context, base models.Context, content string) (models.Context, error)
}

// Manager implements the Smart Context Manager (spec §4.4).
type Manager struct {
	cache    *lru
	enhancer Enhancer
	cwd      string
	logger   *slog.Logger
}

// New creates a Manager rooted at cwd (the gateway process's working
// directory, used for file/dependency/VCS discovery).
func New(cwd string, enhancer Enhancer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cache: newLRU(), enhancer: enhancer, cwd: cwd, logger: logger}
}

// Invalidate drops cached entries whose Files list includes path, letting
// callers (the Tool Execution Engine, after create_file/edit_file) evict
// stale context for files it just changed (SPEC_FULL.md addition).
func (m *Manager) Invalidate(path string) {
	m.cache.mu.Lock()
	defer m.cache.mu.Unlock()
	for key, entry := range m.cache.entries {
		for _, f := range entry.Files {
			if f.Path == path {
				delete(m.cache.entries, key)
				break
			}
		}
	}
	kept := m.cache.order[:0]
	for _, key := range m.cache.order {
		if _, ok := m.cache.entries[key]; ok {
			kept = append(kept, key)
		}
	}
	m.cache.order = kept
}

// GetSmartContext assembles workspace context for a request (spec §4.4).
// It never returns an error: any underlying failure yields a fallback
// Context (spec §8's "context fallback totality" law).
func (m *Manager) GetSmartContext(ctx context.Context, content string, taskType models.TaskType, complexity models.Complexity) models.Context {
	key := CacheKey(content, taskType)
	if cached, ok := m.cache.get(key); ok {
		return cached
	}

	result := m.buildHeuristic(content, taskType)

	if m.shouldEnhance(content, taskType, complexity) && m.enhancer != nil {
		enhanced, err := m.enhancer.Enhance(ctx, result, content)
		if err != nil {
			m.logger.Debug("AI context enhancement failed, using heuristic context", "error", err)
		} else {
			enhanced.Method = models.MethodHybrid
			result = enhanced
		}
	}

	m.cache.put(key, result)
	return result
}

func (m *Manager) buildHeuristic(content string, taskType models.TaskType) (result models.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("context heuristics panicked, using fallback", "panic", r)
			result = models.FallbackContext("heuristic gathering failed")
		}
	}()

	lower := strings.ToLower(content)
	isCodingish := taskType == models.TaskCoding || containsAny(lower, codingContentKeywords)

	var files []models.FileRef
	var deps *models.Dependencies
	var git *models.GitStatus
	var reasoningParts []string

	if isCodingish {
		files = explicitFileReferences(content, m.cwd)
		if len(files) == 0 {
			files = enumerateProjectFiles(m.cwd, 5, 3)
			reasoningParts = append(reasoningParts, "no explicit file references; enumerated project structure")
		} else {
			reasoningParts = append(reasoningParts, "resolved explicit file references from the prompt")
		}

		deps = readDependencies(m.cwd, detectLanguageHint(lower))
		if deps != nil {
			reasoningParts = append(reasoningParts, "attached dependency manifest summary")
		}
	}

	if containsAny(lower, gitKeywords) || isCodingish {
		git = gitStatus(m.cwd)
		if git != nil {
			reasoningParts = append(reasoningParts, "attached VCS status")
		}
	}

	if len(reasoningParts) == 0 {
		reasoningParts = append(reasoningParts, "no coding or VCS signal detected; returning empty context")
	}

	return models.Context{
		Files:        files,
		Dependencies: deps,
		GitStatus:    git,
		Reasoning:    strings.Join(reasoningParts, "; "),
		Method:       models.MethodHeuristic,
	}
}

// shouldEnhance decides whether to invoke the AI enhancement hook (spec
// §4.4 step 3: "complexity is very_high, or coding content length > 200, or
// prompt mentions architecture/design" — the length trigger is scoped to
// coding content, mirroring step 2's isCodingish gate).
func (m *Manager) shouldEnhance(content string, taskType models.TaskType, complexity models.Complexity) bool {
	if complexity == models.ComplexityVeryHigh {
		return true
	}
	lower := strings.ToLower(content)
	isCodingish := taskType == models.TaskCoding || containsAny(lower, codingContentKeywords)
	if isCodingish && len(content) > 200 {
		return true
	}
	return containsAny(lower, architectureKeywords)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// detectLanguageHint is a lightweight, local heuristic distinct from the
// Embedding Classifier's language detection: it only needs enough
// precision to pick a manifest file, not to drive model selection.
func detectLanguageHint(lower string) models.Language {
	switch {
	case strings.Contains(lower, "python") || strings.Contains(lower, ".py"):
		return models.LangPython
	case strings.Contains(lower, "rust") || strings.Contains(lower, "cargo"):
		return models.LangRust
	case strings.Contains(lower, "golang") || strings.Contains(lower, ".go"):
		return models.LangGo
	default:
		return models.LangJavaScript
	}
}
