// Package toolgen implements the Smart Tool Generator (spec §4.8): it asks
// the backend to synthesize a tool plan for one workflow phase, parses the
// response (JSON first, then a numbered-list fallback format), enforces
// workspace containment, and substitutes a deterministic template when
// parsing is exhausted. Grounded on the teacher's
// internal/agent/toolconv/openai.go (the openai.Tool schema shape reused
// here for the JSON tool-plan form) and internal/agent/providers/ollama.go's
// prompt/response plumbing.
package toolgen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ollamageek/gateway/pkg/models"
)

// ChatCaller is the narrow backend surface the generator needs: a
// non-streaming chat completion. Implemented by *backend.Client.
type ChatCaller interface {
	Chat(ctx context.Context, payload map[string]any) (json.RawMessage, error)
}

// Generator synthesizes a tool plan for a workflow phase (spec §4.8).
type Generator struct {
	backend ChatCaller
	model   string
	logger  *slog.Logger
}

// New creates a Generator. model is the backend model used for plan
// synthesis (typically the gateway's DefaultModel).
func New(backend ChatCaller, model string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{backend: backend, model: model, logger: logger}
}

// Generate produces a validated tool list for phase, given the project
// context and the user's original request (spec §4.8).
func (g *Generator) Generate(ctx context.Context, phase models.Phase, projectCtx models.ProjectContext, userRequest string) ([]models.Tool, error) {
	prompt := buildPrompt(phase, projectCtx, userRequest)
	payload := map[string]any{
		"model": g.model,
		"messages": []models.Message{
			{Role: "system", Content: "You are a build planner. Respond with either a JSON array of tool objects or a numbered plan. Never include prose outside the plan."},
			{Role: "user", Content: prompt},
		},
		// Ollama's OpenAI-compatible chat payload accepts a "tools" field
		// shaped like OpenAI's function-calling schema; advertising it here
		// nudges capable backend models toward the JSON plan form this
		// package parses first.
		"tools": toolSchemasFor(phase.Tools),
	}

	body, err := g.backend.Chat(ctx, payload)
	if err != nil {
		g.logger.Warn("tool plan synthesis call failed, using fallback template", "phase", phase.Name, "error", err)
		return applyContainment(fallbackTemplate(userRequest, phase), projectCtx), nil
	}

	text := extractMessageContent(body)

	if tools, ok := parseJSONPlan(text); ok {
		return applyContainment(applyDefaults(tools, projectCtx), projectCtx), nil
	}
	if tools, ok := parseNumberedPlan(text); ok {
		return applyContainment(applyDefaults(tools, projectCtx), projectCtx), nil
	}

	g.logger.Debug("tool plan parse failed, using fallback template", "phase", phase.Name)
	return applyContainment(fallbackTemplate(userRequest, phase), projectCtx), nil
}

// toolSchemasFor converts the closed tool vocabulary named by a phase into
// OpenAI function-calling schemas, the same conversion shape the teacher's
// internal/agent/toolconv/openai.go applies to its own tool definitions.
// The gateway has no LLM-facing function-call loop of its own; this is
// advisory context for backend models that understand the "tools" field
// rather than a dispatch path the generator parses responses against.
func toolSchemasFor(names []string) []openai.Tool {
	tools := make([]openai.Tool, 0, len(names))
	for _, name := range names {
		toolName := models.ToolName(name)
		properties := map[string]any{}
		for _, field := range models.RequiredParams(toolName) {
			properties[field] = map[string]any{"type": "string"}
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        name,
				Description: "gateway workflow tool: " + name,
				Parameters: map[string]any{
					"type":       "object",
					"properties": properties,
					"required":   models.RequiredParams(toolName),
				},
			},
		})
	}
	return tools
}

func buildPrompt(phase models.Phase, projectCtx models.ProjectContext, userRequest string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s\nDescription: %s\nExpected tools: %s\n", phase.Name, phase.Description, strings.Join(phase.Tools, ", "))
	if projectCtx.ProjectName != "" {
		fmt.Fprintf(&b, "Project: %s\n", projectCtx.ProjectName)
	}
	if projectCtx.TargetDir != "" {
		fmt.Fprintf(&b, "Target directory: %s\n", projectCtx.TargetDir)
	}
	fmt.Fprintf(&b, "User request: %s\n", userRequest)
	b.WriteString("Emit a JSON array, each element {\"name\":..., \"params\":{...}, \"critical\":bool, \"priority\":int}.")
	return b.String()
}

type chatResponseEnvelope struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Response string `json:"response"`
}

func extractMessageContent(body json.RawMessage) string {
	var env chatResponseEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	if env.Message.Content != "" {
		return env.Message.Content
	}
	return env.Response
}

// planToolJSON is the JSON-plan wire shape (spec §4.8).
type planToolJSON struct {
	Name         string          `json:"name"`
	Params       json.RawMessage `json:"params"`
	Critical     bool            `json:"critical"`
	Priority     int             `json:"priority"`
	Dependencies []string        `json:"dependencies"`
}

func parseJSONPlan(text string) ([]models.Tool, bool) {
	trimmed := strings.TrimSpace(stripCodeFence(text))
	if trimmed == "" || trimmed[0] != '[' {
		return nil, false
	}
	var raw []planToolJSON
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, false
	}
	tools := make([]models.Tool, 0, len(raw))
	for _, r := range raw {
		if r.Name == "" {
			continue
		}
		params := r.Params
		if len(params) == 0 {
			params = json.RawMessage("{}")
		}
		tools = append(tools, models.Tool{
			Name:         models.ToolName(r.Name),
			Params:       params,
			Critical:     r.Critical,
			Priority:     r.Priority,
			Dependencies: r.Dependencies,
		})
	}
	if len(tools) == 0 {
		return nil, false
	}
	return tools, true
}

func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
	}
	return strings.TrimSpace(trimmed)
}

// numberedHeaderPattern matches "N. Tool: <name>" headers (spec §4.8).
var numberedHeaderPattern = regexp.MustCompile(`^\s*(\d+)\.\s*Tool:\s*(\S+)\s*$`)

// numberedFieldPattern matches "- key: value" lines under a header.
var numberedFieldPattern = regexp.MustCompile(`^\s*-\s*([\w_]+):\s*(.+?)\s*$`)

func parseNumberedPlan(text string) ([]models.Tool, bool) {
	lines := strings.Split(text, "\n")
	var tools []models.Tool
	var current *models.Tool
	fields := map[string]string{}

	flush := func() {
		if current == nil {
			return
		}
		params := fieldsToParams(current.Name, fields)
		current.Params = params
		tools = append(tools, *current)
		current = nil
		fields = map[string]string{}
	}

	for _, line := range lines {
		if m := numberedHeaderPattern.FindStringSubmatch(line); m != nil {
			flush()
			n, _ := strconv.Atoi(m[1])
			current = &models.Tool{Name: models.ToolName(m[2]), Priority: 1000 - n}
			continue
		}
		if current == nil {
			continue
		}
		if m := numberedFieldPattern.FindStringSubmatch(line); m != nil {
			fields[strings.ToLower(m[1])] = m[2]
		}
	}
	flush()

	if len(tools) == 0 {
		return nil, false
	}
	return tools, true
}

func fieldsToParams(name models.ToolName, fields map[string]string) json.RawMessage {
	m := map[string]any{}
	switch name {
	case models.ToolCreateFile:
		if v, ok := fields["path"]; ok {
			m["path"] = v
		} else if v, ok := fields["name"]; ok {
			m["name"] = v
		}
		if v, ok := fields["content"]; ok {
			m["content"] = v
		}
	case models.ToolEditFile:
		m["path"] = fields["path"]
		m["content"] = fields["content"]
	case models.ToolCreateDirectory:
		m["path"] = fields["path"]
	case models.ToolRunTerminal:
		m["command"] = fields["command"]
		if v, ok := fields["cwd"]; ok {
			m["cwd"] = v
		}
	case models.ToolGitOperation:
		m["operation"] = fields["operation"]
		if v, ok := fields["commit_message"]; ok {
			m["commit_message"] = v
		}
	case models.ToolInstallDependency:
		if v, ok := fields["packages"]; ok {
			m["packages"] = strings.Split(v, ",")
		}
		if v, ok := fields["manager"]; ok {
			m["manager"] = v
		}
	case models.ToolSearchFiles:
		m["pattern"] = fields["pattern"]
		if v, ok := fields["dir"]; ok {
			m["dir"] = v
		}
	default:
		for k, v := range fields {
			m[k] = v
		}
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}

// applyDefaults fills in project name / target dir defaults for tools that
// omit a path (spec §4.8: "apply defaults from projectContext").
func applyDefaults(tools []models.Tool, projectCtx models.ProjectContext) []models.Tool {
	for i := range tools {
		tools[i] = defaultOneTool(tools[i], projectCtx)
	}
	return tools
}

func defaultOneTool(tool models.Tool, projectCtx models.ProjectContext) models.Tool {
	switch tool.Name {
	case models.ToolCreateFile, models.ToolEditFile, models.ToolCreateDirectory:
		var m map[string]any
		if err := json.Unmarshal(tool.Params, &m); err != nil {
			return tool
		}
		p, _ := m["path"].(string)
		if p == "" {
			if name, ok := m["name"].(string); ok {
				p = name
			}
		}
		if p == "" && projectCtx.ProjectName != "" {
			p = projectCtx.ProjectName
			m["path"] = p
			if raw, err := json.Marshal(m); err == nil {
				tool.Params = raw
			}
		}
	}
	return tool
}

// applyContainment returns tools unchanged when projectContext.ProjectName
// is empty. Otherwise it drops tools whose absolute path lies outside
// "/<ProjectName>" and prefixes relative paths with ProjectName (spec
// §4.8: "enforce workspace containment").
func applyContainment(tools []models.Tool, projectCtx models.ProjectContext) []models.Tool {
	if projectCtx.ProjectName == "" {
		return tools
	}
	out := make([]models.Tool, 0, len(tools))
	for _, tool := range tools {
		contained, ok := containOneTool(tool, projectCtx.ProjectName)
		if ok {
			out = append(out, contained)
		}
	}
	return out
}

func containOneTool(tool models.Tool, projectName string) (models.Tool, bool) {
	switch tool.Name {
	case models.ToolCreateFile, models.ToolEditFile, models.ToolCreateDirectory, models.ToolSearchFiles:
		var m map[string]any
		if err := json.Unmarshal(tool.Params, &m); err != nil {
			return tool, true
		}
		key := "path"
		if tool.Name == models.ToolSearchFiles {
			key = "dir"
			if _, ok := m[key]; !ok {
				return tool, true
			}
		}
		p, _ := m[key].(string)
		if p == "" {
			return tool, true
		}
		if path.IsAbs(p) {
			clean := path.Clean(p)
			if !strings.HasPrefix(clean, "/"+projectName) {
				return tool, false
			}
			return tool, true
		}
		if !strings.HasPrefix(p, projectName+"/") && p != projectName {
			m[key] = path.Join(projectName, p)
			if raw, err := json.Marshal(m); err == nil {
				tool.Params = raw
			}
		}
		return tool, true
	default:
		return tool, true
	}
}

// fallbackTemplate substitutes a deterministic tool list keyed on keyword
// detection in the user request (spec §4.8: "node/python/ruby/perl/
// arduino/generic-file").
func fallbackTemplate(userRequest string, phase models.Phase) []models.Tool {
	lower := strings.ToLower(userRequest)
	switch {
	case strings.Contains(lower, "python"):
		return []models.Tool{toolOf(models.ToolCreateFile, map[string]any{"path": "main.py", "content": "def main():\n    pass\n\n\nif __name__ == \"__main__\":\n    main()\n"}, true, 1)}
	case strings.Contains(lower, "ruby"):
		return []models.Tool{toolOf(models.ToolCreateFile, map[string]any{"path": "main.rb", "content": "def main\nend\n\nmain\n"}, true, 1)}
	case strings.Contains(lower, "perl"):
		return []models.Tool{toolOf(models.ToolCreateFile, map[string]any{"path": "main.pl", "content": "#!/usr/bin/perl\nuse strict;\nuse warnings;\n"}, true, 1)}
	case strings.Contains(lower, "arduino"):
		return []models.Tool{toolOf(models.ToolCreateFile, map[string]any{"path": "sketch.ino", "content": "void setup() {}\n\nvoid loop() {}\n"}, true, 1)}
	case strings.Contains(lower, "node") || strings.Contains(lower, "javascript") || strings.Contains(lower, "express"):
		return []models.Tool{
			toolOf(models.ToolCreateFile, map[string]any{"path": "package.json", "content": "{\n  \"name\": \"app\",\n  \"version\": \"1.0.0\"\n}\n"}, true, 2),
			toolOf(models.ToolCreateFile, map[string]any{"path": "index.js", "content": "console.log('ready');\n"}, true, 1),
		}
	default:
		return []models.Tool{toolOf(models.ToolCreateFile, map[string]any{"path": strings.ReplaceAll(strings.ToLower(phase.Name), " ", "_") + ".txt", "content": phase.Description}, false, 1)}
	}
}

func toolOf(name models.ToolName, params map[string]any, critical bool, priority int) models.Tool {
	raw, _ := json.Marshal(params)
	return models.Tool{Name: name, Params: raw, Critical: critical, Priority: priority}
}
