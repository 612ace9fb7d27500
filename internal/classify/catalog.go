// Package classify implements the Embedding Classifier (spec §4.3): a
// deterministic, pure function from (prompt, backend inventory, category
// catalog) to a Classification. The task type comes from the keyword
// catalog alone; an embedding requested when several categories match does
// not affect the result. Grounded on the teacher's keyword-routing conventions in
// internal/commands (command matching by keyword) and
// internal/agent/providers (model preference lists), generalized into a
// standalone catalog here since the teacher has no single classifier
// analogue.
package classify

import "github.com/ollamageek/gateway/pkg/models"

// codingKeywords are nouns/topics suggestive of a coding task.
var codingKeywords = []string{
	"function", "class", "code", "program", "script", "algorithm", "bug",
	"api", "endpoint", "variable", "loop", "array", "struct", "interface",
	"compile", "syntax", "library", "package", "module", "repository",
}

// codingVerbs must co-occur with a coding keyword to avoid false positives
// on incidental nouns (spec §4.3 step 1).
var codingVerbs = []string{
	"write", "implement", "debug", "fix", "refactor", "build", "create",
	"optimize", "test", "review", "generate", "develop",
}

var technicalAnalysisKeywords = []string{
	"analyze", "analysis", "compare", "evaluate", "benchmark", "performance",
	"architecture", "design pattern", "trade-off", "tradeoff", "scalability",
	"explain how", "why does",
}

var embeddingsKeywords = []string{
	"embed", "embedding", "vector", "similarity", "semantic search", "cosine",
}

var veryHighComplexityKeywords = []string{
	"distributed system", "microservice", "scalability", "enterprise",
	"production-grade", "concurrency", "race condition", "consensus",
	"multi-threaded", "fault-tolerant", "high availability",
}

var highComplexityKeywords = []string{
	"architecture", "design", "refactor", "optimize", "integration",
	"migration", "security", "authentication", "performance",
}

var mediumComplexityKeywords = []string{
	"implement", "feature", "api", "database", "algorithm", "test",
}

var planningKeywords = []string{"design", "architecture", "plan", "strategy"}

// languageKeywords maps each supported language to its detection keywords,
// checked in the order below (first match wins, spec §4.3 step 3).
var languageOrder = []models.Language{
	models.LangPython, models.LangTypeScript, models.LangJavaScript,
	models.LangJava, models.LangCPP, models.LangRust, models.LangGo,
	models.LangSQL, models.LangDocker, models.LangBash,
}

var languageKeywords = map[models.Language][]string{
	models.LangPython:     {"python", ".py", "django", "flask", "pandas", "numpy"},
	models.LangTypeScript: {"typescript", ".ts", ".tsx", "interface ", "type "},
	models.LangJavaScript: {"javascript", "node.js", "nodejs", ".js", "react", "express"},
	models.LangJava:       {"java", ".java", "spring", "maven", "gradle"},
	models.LangCPP:        {"c++", "cpp", ".cpp", ".hpp", "std::"},
	models.LangRust:       {"rust", ".rs", "cargo", "tokio"},
	models.LangGo:         {"golang", " go ", ".go", "goroutine", "go func"},
	models.LangSQL:        {"sql", "select ", "postgres", "mysql", "query"},
	models.LangDocker:     {"docker", "dockerfile", "container", "kubernetes", "k8s"},
	models.LangBash:       {"bash", "shell script", ".sh", "terminal command"},
}

// taskModelPreferences lists each task type's ordered backend model
// preferences (spec §4.3 step 4). Entries are matched against the backend
// inventory by exact name, falling back to a prefix-before-":" match.
var taskModelPreferences = map[models.TaskType][]string{
	models.TaskCoding:            {"qwen2.5-coder:14b", "qwen2.5-coder:7b", "deepseek-coder:6.7b", "codellama:13b", "llama3.1:8b"},
	models.TaskTechnicalAnalysis: {"llama3.1:70b", "llama3.1:8b", "mixtral:8x7b"},
	models.TaskGeneral:           {"llama3.1:8b", "mistral:7b", "phi3:14b"},
	models.TaskEmbeddings:        {"nomic-embed-text:latest"},
}

// languageModelPreferences overrides the coding task's preference list for
// a detected language (spec §4.3 step 4: "a language-preference sublist
// overrides").
var languageModelPreferences = map[models.Language][]string{
	models.LangPython:     {"qwen2.5-coder:14b", "deepseek-coder:6.7b"},
	models.LangJavaScript: {"qwen2.5-coder:14b", "codellama:13b"},
	models.LangTypeScript: {"qwen2.5-coder:14b", "codellama:13b"},
	models.LangGo:         {"qwen2.5-coder:14b", "codellama:13b"},
	models.LangRust:       {"qwen2.5-coder:14b", "deepseek-coder:6.7b"},
}

// veryHighCodingModels are preferred, in order, when complexity is
// very_high (spec §4.3 step 4: "prefer the largest available coding model
// if present").
var veryHighCodingModels = []string{"qwen2.5-coder:32b", "deepseek-coder:33b", "codellama:34b", "qwen2.5-coder:14b"}
