package classify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ollamageek/gateway/pkg/models"
)

// Embedder is the narrow interface the classifier needs from the Backend
// Client: the embedding call made when several categories match (spec
// §4.3 step 1).
// Implemented by *backend.Client.
type Embedder interface {
	Embeddings(ctx context.Context, model, prompt string) ([]float64, error)
}

// Classifier implements the Embedding Classifier (spec §4.3).
type Classifier struct {
	embedder       Embedder
	embeddingModel string
	defaultModel   string
	logger         *slog.Logger
}

// New creates a Classifier. embedder may be nil, in which case the
// embedding request is skipped (spec §4.3: "failure to obtain embeddings
// degrades gracefully to pure keyword matching").
func New(embedder Embedder, embeddingModel, defaultModel string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{embedder: embedder, embeddingModel: embeddingModel, defaultModel: defaultModel, logger: logger}
}

// Classify derives a Classification for req against the backend's current
// model inventory (spec §4.3). It is deterministic given an unchanged
// category catalog and the same inputs (spec §8 classifier-determinism
// invariant).
func (c *Classifier) Classify(ctx context.Context, req *models.Request, inventory []string) models.Classification {
	content, ok := req.LastUserMessage()
	if !ok || strings.TrimSpace(content) == "" {
		return models.DefaultClassification(c.defaultModel)
	}

	lower := strings.ToLower(content)

	taskType := c.classifyTaskType(ctx, lower)
	complexity := classifyComplexity(lower)
	language := classifyLanguage(lower)
	model := c.selectModel(taskType, language, complexity, inventory)
	needsPlanning := complexity == models.ComplexityVeryHigh ||
		(taskType == models.TaskCoding && complexity == models.ComplexityHigh) ||
		containsAny(lower, planningKeywords)

	return models.Classification{
		TaskType:         taskType,
		Complexity:       complexity,
		Language:         language,
		RecommendedModel: model,
		EstimatedTokens:  estimateTokens(content),
		NeedsPlanning:    needsPlanning,
		PlanningSteps:    planningSteps(needsPlanning, taskType),
		Reasoning:        reasoning(taskType, complexity, language),
	}
}

// classifyTaskType matches in fixed priority order (spec §4.3 step 1):
// coding, technical_analysis, embeddings, general. Coding additionally
// requires a verb-form indicator. When more than one category's keywords
// match, an embedding of the prompt is requested, but the returned vector
// is not compared with anything and does not change the result: the
// priority order above always decides. A failed call (or a nil embedder)
// only skips that request.
func (c *Classifier) classifyTaskType(ctx context.Context, lower string) models.TaskType {
	codingMatch := containsAny(lower, codingKeywords) && containsAny(lower, codingVerbs)
	technicalMatch := containsAny(lower, technicalAnalysisKeywords)
	embeddingsMatch := containsAny(lower, embeddingsKeywords)

	matches := 0
	if codingMatch {
		matches++
	}
	if technicalMatch {
		matches++
	}
	if embeddingsMatch {
		matches++
	}

	if matches > 1 && c.embedder != nil {
		if _, err := c.embedder.Embeddings(ctx, c.embeddingModel, lower); err != nil {
			c.logger.Debug("embedding tie-break unavailable, falling back to keyword order", "error", err)
		}
		// The vector is discarded; the keyword priority order below decides.
	}

	switch {
	case codingMatch:
		return models.TaskCoding
	case technicalMatch:
		return models.TaskTechnicalAnalysis
	case embeddingsMatch:
		return models.TaskEmbeddings
	default:
		return models.TaskGeneral
	}
}

func classifyComplexity(lower string) models.Complexity {
	switch {
	case containsAny(lower, veryHighComplexityKeywords):
		return models.ComplexityVeryHigh
	case containsAny(lower, highComplexityKeywords):
		return models.ComplexityHigh
	case containsAny(lower, mediumComplexityKeywords):
		return models.ComplexityMedium
	default:
		return models.ComplexityLow
	}
}

func classifyLanguage(lower string) models.Language {
	for _, lang := range languageOrder {
		if containsAny(lower, languageKeywords[lang]) {
			return lang
		}
	}
	return models.LangGeneral
}

func (c *Classifier) selectModel(taskType models.TaskType, language models.Language, complexity models.Complexity, inventory []string) string {
	if complexity == models.ComplexityVeryHigh {
		if m := firstAvailable(veryHighCodingModels, inventory); m != "" {
			return m
		}
	}

	if taskType == models.TaskCoding {
		if sublist, ok := languageModelPreferences[language]; ok {
			if m := firstAvailable(sublist, inventory); m != "" {
				return m
			}
		}
	}

	prefs := taskModelPreferences[taskType]
	if m := firstAvailable(prefs, inventory); m != "" {
		return m
	}
	if len(prefs) > 0 {
		return prefs[0]
	}
	return c.defaultModel
}

func firstAvailable(preferred, inventory []string) string {
	for _, want := range preferred {
		for _, have := range inventory {
			if have == want || prefixMatches(have, want) {
				return have
			}
		}
	}
	return ""
}

// prefixMatches tolerates tag drift by comparing the portion before ":"
// (spec §4.5's "fallback resolver matches on the prefix before :").
func prefixMatches(have, want string) bool {
	return prefixBeforeColon(have) == prefixBeforeColon(want)
}

func prefixBeforeColon(s string) string {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// estimateTokens is a coarse length-based estimate (~4 chars/token),
// used only to populate Classification.EstimatedTokens for client
// telemetry; it is not used for truncation decisions.
func estimateTokens(content string) int {
	return len(content)/4 + 1
}

func planningSteps(needsPlanning bool, taskType models.TaskType) []string {
	if !needsPlanning {
		return nil
	}
	steps := []string{"Understand requirements", "Identify constraints and risks"}
	if taskType == models.TaskCoding {
		steps = append(steps, "Sketch the architecture", "Implement incrementally", "Validate with tests")
	} else {
		steps = append(steps, "Outline an approach", "Validate the approach")
	}
	return steps
}

func reasoning(taskType models.TaskType, complexity models.Complexity, language models.Language) string {
	var b strings.Builder
	b.WriteString("classified as ")
	b.WriteString(string(taskType))
	b.WriteString(" (complexity=")
	b.WriteString(string(complexity))
	if language != models.LangGeneral {
		b.WriteString(", language=")
		b.WriteString(string(language))
	}
	b.WriteString(")")
	return b.String()
}
