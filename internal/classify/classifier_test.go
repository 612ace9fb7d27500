package classify

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ollamageek/gateway/pkg/models"
)

func TestClassifyCodingPython(t *testing.T) {
	c := New(nil, "nomic-embed-text:latest", "llama3.1:8b", nil)
	req := &models.Request{Messages: []models.Message{
		{Role: "user", Content: "Write a Python function to sort a list"},
	}}
	result := c.Classify(context.Background(), req, []string{"qwen2.5-coder:14b", "llama3.1:8b"})

	require.Equal(t, models.TaskCoding, result.TaskType)
	require.Equal(t, models.LangPython, result.Language)
	require.Equal(t, models.ComplexityLow, result.Complexity)
	require.Equal(t, "qwen2.5-coder:14b", result.RecommendedModel)
	require.NotEmpty(t, result.Reasoning)
}

func TestClassifyEmptyMessagesReturnsDefault(t *testing.T) {
	c := New(nil, "nomic-embed-text:latest", "llama3.1:8b", nil)
	result := c.Classify(context.Background(), &models.Request{}, nil)
	require.Equal(t, models.DefaultClassification("llama3.1:8b"), result)
}

func TestClassifyCodingNounWithoutVerbIsNotCoding(t *testing.T) {
	c := New(nil, "nomic-embed-text:latest", "llama3.1:8b", nil)
	req := &models.Request{Messages: []models.Message{
		{Role: "user", Content: "What is a function in mathematics?"},
	}}
	result := c.Classify(context.Background(), req, nil)
	require.NotEqual(t, models.TaskCoding, result.TaskType)
}

func TestClassifyVeryHighPrefersLargestCodingModel(t *testing.T) {
	c := New(nil, "nomic-embed-text:latest", "llama3.1:8b", nil)
	req := &models.Request{Messages: []models.Message{
		{Role: "user", Content: "Implement a distributed system with consensus and fault-tolerant replication in rust"},
	}}
	result := c.Classify(context.Background(), req, []string{"qwen2.5-coder:32b", "llama3.1:8b"})
	require.Equal(t, models.ComplexityVeryHigh, result.Complexity)
	require.Equal(t, "qwen2.5-coder:32b", result.RecommendedModel)
	require.True(t, result.NeedsPlanning)
}

func TestClassifyPlanningKeywordTriggersPlanning(t *testing.T) {
	c := New(nil, "nomic-embed-text:latest", "llama3.1:8b", nil)
	req := &models.Request{Messages: []models.Message{
		{Role: "user", Content: "What is the best architecture strategy for this service?"},
	}}
	result := c.Classify(context.Background(), req, nil)
	require.True(t, result.NeedsPlanning)
}

func TestClassifyDeterministic(t *testing.T) {
	c := New(nil, "nomic-embed-text:latest", "llama3.1:8b", nil)
	req := &models.Request{Messages: []models.Message{
		{Role: "user", Content: "Write a Python function to sort a list"},
	}}
	a := c.Classify(context.Background(), req, []string{"llama3.1:8b"})
	b := c.Classify(context.Background(), req, []string{"llama3.1:8b"})
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("classification is not deterministic (-first +second):\n%s", diff)
	}
}
