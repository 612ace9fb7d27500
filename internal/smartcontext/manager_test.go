package smartcontext

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ollamageek/gateway/pkg/models"
)

type countingEnhancer struct {
	calls int
	err   error
}

func (e *countingEnhancer) Enhance(ctx context.Context, base models.Context, content string) (models.Context, error) {
	e.calls++
	if e.err != nil {
		return models.Context{}, e.err
	}
	base.Reasoning += "; enhanced"
	base.Method = models.MethodHybrid
	return base, nil
}

func TestGetSmartContext_CacheHitSkipsHeuristics(t *testing.T) {
	m := New(t.TempDir(), nil, nil)

	first := m.GetSmartContext(context.Background(), "a plain general question", models.TaskGeneral, models.ComplexityLow)
	second := m.GetSmartContext(context.Background(), "a plain general question", models.TaskGeneral, models.ComplexityLow)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("cache hit returned a different Context (-first +second):\n%s", diff)
	}
	require.Equal(t, 1, m.cache.size())
}

func TestGetSmartContext_EnhancementRunsOnceThenCaches(t *testing.T) {
	enhancer := &countingEnhancer{}
	m := New(t.TempDir(), enhancer, nil)

	longPrompt := "design the architecture for a new distributed coding service: " +
		"implement a fault-tolerant module with extensive edge cases and integration points."
	first := m.GetSmartContext(context.Background(), longPrompt, models.TaskCoding, models.ComplexityHigh)
	require.Equal(t, models.MethodHybrid, first.Method)
	require.Equal(t, 1, enhancer.calls)

	second := m.GetSmartContext(context.Background(), longPrompt, models.TaskCoding, models.ComplexityHigh)
	require.Equal(t, 1, enhancer.calls, "cache hit must not re-invoke the enhancement hook")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("cached enhanced Context diverged (-first +second):\n%s", diff)
	}
}

func TestGetSmartContext_EnhancerFailureFallsBackToHeuristic(t *testing.T) {
	enhancer := &countingEnhancer{err: errors.New("backend unavailable")}
	m := New(t.TempDir(), enhancer, nil)

	longPrompt := "design the architecture for a new distributed coding service with many integration points and edge cases to validate."
	result := m.GetSmartContext(context.Background(), longPrompt, models.TaskCoding, models.ComplexityHigh)

	require.Equal(t, models.MethodHeuristic, result.Method)
	require.Equal(t, 1, enhancer.calls)
}

func TestGetSmartContext_NeverPanicsOnBadWorkspace(t *testing.T) {
	m := New("/nonexistent/workspace/path/for/gateway/tests", nil, nil)
	result := m.GetSmartContext(context.Background(), "write a coding function", models.TaskCoding, models.ComplexityLow)
	require.NotNil(t, result)
}

func TestGetSmartContext_LongNonCodingPromptDoesNotTriggerEnhancement(t *testing.T) {
	enhancer := &countingEnhancer{}
	m := New(t.TempDir(), enhancer, nil)

	longGeneralPrompt := "tell me a long story about a journey across several countries, " +
		"describing the weather, the people met along the way, and the food eaten at every stop. " +
		"Mention the music heard in the evenings and the trains taken between the cities."
	require.Greater(t, len(longGeneralPrompt), 200)

	result := m.GetSmartContext(context.Background(), longGeneralPrompt, models.TaskGeneral, models.ComplexityLow)

	require.Equal(t, models.MethodHeuristic, result.Method)
	require.Equal(t, 0, enhancer.calls, "the length trigger must be scoped to coding content, not any long prompt")
}

func TestInvalidate_DropsEntriesReferencingPath(t *testing.T) {
	m := New(t.TempDir(), nil, nil)
	key := CacheKey("general question", models.TaskGeneral)
	m.cache.put(key, models.Context{Files: []models.FileRef{{Path: "main.go", Origin: models.OriginExplicitReference}}})

	m.Invalidate("main.go")

	_, ok := m.cache.get(key)
	require.False(t, ok)
}
