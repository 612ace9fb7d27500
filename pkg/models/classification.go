package models

// TaskType is the coarse category a request is classified into (spec §3).
type TaskType string

const (
	TaskCoding             TaskType = "coding"
	TaskTechnicalAnalysis  TaskType = "technical_analysis"
	TaskGeneral            TaskType = "general"
	TaskEmbeddings         TaskType = "embeddings"
)

// Complexity is the estimated difficulty of a request.
type Complexity string

const (
	ComplexityLow       Complexity = "low"
	ComplexityMedium    Complexity = "medium"
	ComplexityHigh      Complexity = "high"
	ComplexityVeryHigh  Complexity = "very_high"
)

// Language is the detected programming language of a coding request.
type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangJava       Language = "java"
	LangCPP        Language = "cpp"
	LangRust       Language = "rust"
	LangGo         Language = "go"
	LangSQL        Language = "sql"
	LangBash       Language = "bash"
	LangDocker     Language = "docker"
	LangGeneral    Language = "general"
)

// Classification is the derived, pure-function output of the Embedding
// Classifier for a single request (spec §3, §4.3).
type Classification struct {
	TaskType         TaskType   `json:"taskType"`
	Complexity       Complexity `json:"complexity"`
	Language         Language   `json:"language"`
	RecommendedModel string     `json:"recommendedModel"`
	EstimatedTokens  int        `json:"estimatedTokens"`
	NeedsPlanning    bool       `json:"needsPlanning"`
	PlanningSteps    []string   `json:"planningSteps,omitempty"`
	Reasoning        string     `json:"reasoning"`
}

// DefaultClassification is returned when a request carries no inspectable
// content (spec §4.3 and §8 boundary behavior: "empty messages array").
func DefaultClassification(defaultModel string) Classification {
	return Classification{
		TaskType:         TaskGeneral,
		Complexity:       ComplexityMedium,
		Language:         LangGeneral,
		RecommendedModel: defaultModel,
		EstimatedTokens:  0,
		NeedsPlanning:    false,
		Reasoning:        "no inspectable content; using default classification",
	}
}
