// Package unifiedchat implements the Unified Chat Endpoint (spec §4.10): a
// single entry point that classifies a free-form prompt into simple chat,
// plan-only, or tool-execution intent, and shapes its response accordingly.
// Grounded on the teacher's internal/agent top-level dispatch (one request
// routed to one of several response modes based on a classification step).
// The decision procedure is a keyword matcher local to this package
// (decide); it does not use the classify package.
package unifiedchat

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/ollamageek/gateway/pkg/models"
)

// ToolGenerator synthesizes a tool plan for a phase. Implemented by
// *toolgen.Generator.
type ToolGenerator interface {
	Generate(ctx context.Context, phase models.Phase, projectCtx models.ProjectContext, userRequest string) ([]models.Tool, error)
}

// ChatCaller performs a non-streaming chat completion. Implemented by
// *backend.Client.
type ChatCaller interface {
	Chat(ctx context.Context, payload map[string]any) (json.RawMessage, error)
}

// Decision is the auxiliary classification result that drives dispatch
// (spec §4.10: "{intent, confidence, complexity, approach, requiresApproval,
// actionType}").
type Decision struct {
	Intent           string  `json:"intent"`
	Confidence       float64 `json:"confidence"`
	Complexity       string  `json:"complexity"`
	Approach         string  `json:"approach"`
	RequiresApproval bool    `json:"requiresApproval"`
	ActionType       string  `json:"actionType,omitempty"`
}

// executionVerbs indicate the prompt wants the gateway to act on the
// workspace rather than merely answer or plan.
var executionVerbs = []string{
	"create", "make", "build", "write", "add", "delete", "remove", "install",
	"run", "execute", "fix", "update", "refactor", "generate", "commit",
	"configure", "set up", "setup",
}

// planningOnlyKeywords indicate the prompt wants a plan, not action.
var planningOnlyKeywords = []string{
	"plan for", "how would you", "outline", "design a", "propose a", "what's the approach",
}

// complexActionKeywords push an execution intent from simple to complex,
// requiring out-of-band approval before the gateway would act (spec §4.10).
var complexActionKeywords = []string{
	"and then", "multiple", "entire project", "full application", "from scratch",
	"deploy", "migrate", "refactor the", "architecture",
}

// Dispatcher implements POST /api/chat/unified (spec §4.10).
type Dispatcher struct {
	generator ToolGenerator
	chat      ChatCaller
	model     string
	logger    *slog.Logger
}

// New creates a Dispatcher.
func New(generator ToolGenerator, chat ChatCaller, model string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{generator: generator, chat: chat, model: model, logger: logger}
}

// decide classifies prompt into a dispatch Decision (spec §4.10's auxiliary
// classification call). Pure keyword matching, no backend round trip: the
// gateway must decide which backend call (if any) to make, so the decision
// itself cannot depend on one.
func decide(prompt string) Decision {
	lower := strings.ToLower(prompt)

	hasExecution := containsAny(lower, executionVerbs)
	hasPlanningOnly := containsAny(lower, planningOnlyKeywords)
	hasComplex := containsAny(lower, complexActionKeywords)

	switch {
	case hasPlanningOnly:
		return Decision{Intent: "planning", Confidence: 0.7, Complexity: "medium", Approach: "plan-only response"}
	case hasExecution && hasComplex:
		return Decision{Intent: "execution", Confidence: 0.8, Complexity: "high", Approach: "multi-step tool execution", RequiresApproval: true, ActionType: "execution_complex"}
	case hasExecution:
		return Decision{Intent: "execution", Confidence: 0.75, Complexity: "low", Approach: "single-step tool execution", RequiresApproval: false, ActionType: "execution_simple"}
	default:
		return Decision{Intent: "simple_chat", Confidence: 0.6, Complexity: "low", Approach: "direct response"}
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// Handle dispatches prompt per its decided intent and returns one of the
// four response shapes from spec §4.10.
func (d *Dispatcher) Handle(ctx context.Context, prompt string, projectCtx models.ProjectContext) (map[string]any, error) {
	decision := decide(prompt)

	switch decision.Intent {
	case "execution":
		return d.handleExecution(ctx, prompt, projectCtx, decision)
	case "planning":
		return d.handlePlanning(ctx, prompt)
	default:
		return d.handleSimpleChat(ctx, prompt)
	}
}

func (d *Dispatcher) handleSimpleChat(ctx context.Context, prompt string) (map[string]any, error) {
	text, err := d.askBackend(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":    "simple_chat",
		"message": text,
	}, nil
}

func (d *Dispatcher) handlePlanning(ctx context.Context, prompt string) (map[string]any, error) {
	planPrompt := "Provide a concise, plan-only response (no execution) for: " + prompt
	text, err := d.askBackend(ctx, planPrompt)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":    "planning_task",
		"message": "Here is a proposed plan.",
		"plan":    text,
	}, nil
}

func (d *Dispatcher) handleExecution(ctx context.Context, prompt string, projectCtx models.ProjectContext, decision Decision) (map[string]any, error) {
	phase := models.Phase{
		Name:        "unified_execution",
		Description: prompt,
		Tools:       []string{"create_file", "edit_file", "run_terminal"},
	}
	tools, err := d.generator.Generate(ctx, phase, projectCtx, prompt)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":             "execution_task",
		"message":          "Prepared a tool plan for this request.",
		"tools":            tools,
		"actionType":       decision.ActionType,
		"requiresApproval": decision.RequiresApproval,
	}, nil
}

func (d *Dispatcher) askBackend(ctx context.Context, prompt string) (string, error) {
	body, err := d.chat.Chat(ctx, map[string]any{
		"model": d.model,
		"messages": []models.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	var env struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return "", models.NewError(models.KindUpstreamFailure, "decode chat response", err)
	}
	if env.Message.Content != "" {
		return env.Message.Content, nil
	}
	return env.Response, nil
}
