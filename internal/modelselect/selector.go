// Package modelselect implements the Model Selector (spec §4.5): a
// stateless mapping from a Classification plus the backend's model
// inventory to a concrete model name to dispatch upstream. Grounded on the
// teacher's internal/agent/routing/router.go, which resolves a requested
// provider/model pair against a live candidate list with a fallback chain
// when the preferred target is unavailable; generalized here into a single
// honor-unless-mismatched rule with prefix-before-colon fallback matching,
// since the gateway has one backend rather than a provider registry.
package modelselect

import (
	"strings"

	"github.com/ollamageek/gateway/pkg/models"
)

// Selector resolves the concrete backend model name for a request.
type Selector struct{}

// New creates a Selector. It carries no state: resolution is a pure
// function of its arguments (spec §4.5).
func New() *Selector {
	return &Selector{}
}

// Select implements spec §4.5's resolution rule: honor the client's
// requested model when it exists verbatim in the inventory, unless the
// classifier strongly prefers another for a mismatched task type; otherwise
// substitute the classifier's recommendation. Falls back to prefix-before-
// colon matching to tolerate tag drift.
func (s *Selector) Select(requestedModel string, classification models.Classification, inventory []string) string {
	if requestedModel != "" && inInventory(requestedModel, inventory) {
		if s.stronglyPrefersOther(requestedModel, classification) {
			return classification.RecommendedModel
		}
		return requestedModel
	}

	if requestedModel != "" {
		if m := resolveByPrefix(requestedModel, inventory); m != "" {
			return m
		}
	}

	return classification.RecommendedModel
}

// stronglyPrefersOther reports a high-confidence task-type mismatch: the
// client asked for a model whose name suggests a different specialization
// than what the classifier determined (spec §4.5: "unless the classifier
// strongly prefers another (task-type mismatch with high confidence)").
func (s *Selector) stronglyPrefersOther(requestedModel string, classification models.Classification) bool {
	if classification.Complexity != models.ComplexityVeryHigh {
		return false
	}
	if classification.TaskType != models.TaskCoding {
		return false
	}
	lower := strings.ToLower(requestedModel)
	// A non-coding-oriented model name requested for a very_high complexity
	// coding task is the one case the spec singles out as worth overriding.
	for _, hint := range []string{"code", "coder", "codellama", "deepseek"} {
		if strings.Contains(lower, hint) {
			return false
		}
	}
	return classification.RecommendedModel != ""
}

func inInventory(model string, inventory []string) bool {
	for _, have := range inventory {
		if have == model {
			return true
		}
	}
	return false
}

// resolveByPrefix matches on the portion of the model name before ":" to
// tolerate tag drift (spec §4.5).
func resolveByPrefix(model string, inventory []string) string {
	want := prefixBeforeColon(model)
	for _, have := range inventory {
		if prefixBeforeColon(have) == want {
			return have
		}
	}
	return ""
}

func prefixBeforeColon(s string) string {
	if i := strings.IndexByte(s, ':'); i >= 0 {
		return s[:i]
	}
	return s
}
