// Package streamproxy implements the Streaming Proxy (spec §4.6): the
// chat/generate passthrough that classifies, enriches, and dispatches a
// request to the backend, rewriting the model name in the response without
// buffering the stream. Grounded on the teacher's
// internal/agent/providers/ollama.go streaming loop (bufio.Scanner over
// NDJSON lines, one decoded object per line) combined with
// internal/web/api.go's whitelist-and-decode request handling.
package streamproxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ollamageek/gateway/internal/backend"
	"github.com/ollamageek/gateway/internal/classify"
	"github.com/ollamageek/gateway/internal/modelselect"
	"github.com/ollamageek/gateway/internal/sessionstore"
	"github.com/ollamageek/gateway/internal/smartcontext"
	"github.com/ollamageek/gateway/pkg/models"
)

// maxLineBuffer bounds a single NDJSON line (spec §5 backpressure: never
// buffer unbounded memory even though individual backend tokens are small).
const maxLineBuffer = 1 << 20

// Proxy wires the classifier, context manager, model selector, session
// store, and backend client into the request pipeline described by spec §2's
// data-flow diagram.
type Proxy struct {
	Backend    *backend.Client
	Sessions   *sessionstore.Store
	Classifier *classify.Classifier
	Context    *smartcontext.Manager
	Selector   *modelselect.Selector
	Logger     *slog.Logger
}

// New builds a Proxy from its collaborators.
func New(be *backend.Client, sessions *sessionstore.Store, classifier *classify.Classifier, ctxMgr *smartcontext.Manager, selector *modelselect.Selector, logger *slog.Logger) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Proxy{Backend: be, Sessions: sessions, Classifier: classifier, Context: ctxMgr, Selector: selector, Logger: logger}
}

// Plan is the resolved per-request decision the proxy made before dispatch,
// surfaced to callers for the `_ollamaGeek` side-band object (spec §6).
type Plan struct {
	OriginalModel  string
	SelectedModel  string
	Classification models.Classification
	Context        models.Context
	SessionID      string
	UserAgent      string
}

// Prepare classifies req, assembles context, and selects the upstream
// model, without performing the dispatch itself. Shared by /api/chat and
// /api/generate (spec §4.6 step 1 and §6).
func (p *Proxy) Prepare(ctx context.Context, req *models.Request, userAgent string) Plan {
	inventory := p.inventory(ctx)
	content, _ := req.LastUserMessage()
	classification := p.Classifier.Classify(ctx, req, inventory)
	smartCtx := p.Context.GetSmartContext(ctx, content, classification.TaskType, classification.Complexity)
	selected := p.Selector.Select(req.Model, classification, inventory)

	sessionID := ""
	if p.Sessions != nil {
		sessionID = p.Sessions.GetOrAssign(userAgent, req.Model, len(req.Messages))
	}

	return Plan{
		OriginalModel:  req.Model,
		SelectedModel:  selected,
		Classification: classification,
		Context:        smartCtx,
		SessionID:      sessionID,
		UserAgent:      userAgent,
	}
}

func (p *Proxy) inventory(ctx context.Context) []string {
	tags, err := p.Backend.Tags(ctx)
	if err != nil {
		p.Logger.Debug("backend inventory unavailable, proceeding without it", "error", err)
		return nil
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}

// buildPayload constructs the whitelisted upstream payload (spec §4.6 step
// 2): model is always replaced; messages, stream, and the optional
// passthrough fields are forwarded verbatim. No other request field ever
// reaches the backend.
func buildPayload(req *models.Request, selectedModel string, stream bool) map[string]any {
	payload := map[string]any{
		"model":  selectedModel,
		"stream": stream,
	}
	if len(req.Messages) > 0 {
		payload["messages"] = req.Messages
	}
	if req.Prompt != "" {
		payload["prompt"] = req.Prompt
	}
	if len(req.Options) > 0 {
		payload["options"] = json.RawMessage(req.Options)
	}
	if len(req.Template) > 0 {
		payload["template"] = json.RawMessage(req.Template)
	}
	if len(req.Context) > 0 {
		payload["context"] = json.RawMessage(req.Context)
	}
	if len(req.KeepAlive) > 0 {
		payload["keep_alive"] = json.RawMessage(req.KeepAlive)
	}
	return payload
}

// Chat implements POST /api/chat (spec §4.6, §6). It streams when the
// client requested streaming, otherwise awaits the full response. The
// session store is updated only after a successful, uncancelled
// termination (spec §4.6 step 6; spec §5 cancellation: "the session is not
// updated").
func (p *Proxy) Chat(w http.ResponseWriter, r *http.Request, req *models.Request, plan Plan) error {
	ctx := r.Context()
	payload := buildPayload(req, plan.SelectedModel, req.WantsStream())

	if !req.WantsStream() {
		return p.chatNonStreaming(ctx, w, req, plan, payload)
	}
	return p.chatStreaming(ctx, w, r, req, plan, payload)
}

// Generate implements POST /api/generate (spec §6: "proxy to backend (with
// classification + context for generate)"). It shares the model-selection
// and rewrite machinery with Chat but carries no session history.
func (p *Proxy) Generate(w http.ResponseWriter, r *http.Request, req *models.Request, plan Plan) error {
	ctx := r.Context()
	payload := buildPayload(req, plan.SelectedModel, req.WantsStream())

	if !req.WantsStream() {
		body, err := p.Backend.Generate(ctx, payload)
		if err != nil {
			return err
		}
		var decoded map[string]any
		if err := json.Unmarshal(body, &decoded); err != nil {
			decoded = map[string]any{}
		}
		decoded["model"] = plan.SelectedModel + " (gateway-enhanced)"
		decoded["_ollamaGeek"] = map[string]any{
			"originalModel": plan.OriginalModel,
			"selectedModel": plan.SelectedModel,
			"taskType":      plan.Classification.TaskType,
			"complexity":    plan.Classification.Complexity,
			"reasoning":     plan.Classification.Reasoning,
		}
		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(decoded)
	}

	upstream, err := p.Backend.StreamGenerate(ctx, payload)
	if err != nil {
		return err
	}
	defer upstream.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Transfer-Encoding", "chunked")
	flusher, canFlush := w.(http.Flusher)

	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBuffer)

	first := true
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		out := line
		if first {
			out = rewriteFirstChunkModel(line, plan.SelectedModel)
			first = false
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return err
		}
		if canFlush {
			flusher.Flush()
		}
		if isDone(line) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return models.NewError(models.KindUpstreamFailure, "stream read failed", err)
	}
	return nil
}

func (p *Proxy) chatNonStreaming(ctx context.Context, w http.ResponseWriter, req *models.Request, plan Plan, payload map[string]any) error {
	body, err := p.Backend.Chat(ctx, payload)
	if err != nil {
		return err
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		decoded = map[string]any{}
	}
	decoded["model"] = plan.SelectedModel + " (gateway-enhanced)"
	decoded["_ollamaGeek"] = map[string]any{
		"originalModel": plan.OriginalModel,
		"selectedModel": plan.SelectedModel,
		"taskType":      plan.Classification.TaskType,
		"complexity":    plan.Classification.Complexity,
		"reasoning":     plan.Classification.Reasoning,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(decoded); err != nil {
		return err
	}

	p.updateSession(plan.SessionID, req, extractAssistantContent(decoded))
	return nil
}

func (p *Proxy) chatStreaming(ctx context.Context, w http.ResponseWriter, r *http.Request, req *models.Request, plan Plan, payload map[string]any) error {
	upstream, err := p.Backend.StreamChat(ctx, payload)
	if err != nil {
		return err
	}
	defer upstream.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Transfer-Encoding", "chunked")
	flusher, canFlush := w.(http.Flusher)

	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBuffer)

	var assistantContent strings.Builder
	first := true
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			// Client disconnected: abort without touching the session
			// (spec §5: "the aborted turn is discarded").
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		out := line
		if first {
			out = rewriteFirstChunkModel(line, plan.SelectedModel)
			first = false
		}
		collectAssistantContent(&assistantContent, line)

		if _, err := w.Write(out); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return err
		}
		if canFlush {
			flusher.Flush()
		}

		if isDone(line) {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return models.NewError(models.KindUpstreamFailure, "stream read failed", err)
	}

	p.updateSession(plan.SessionID, req, assistantContent.String())
	return nil
}

// rewriteFirstChunkModel performs the single textual substitution of the
// first chunk's "model" field (spec §4.6 step 4, §8 invariant: "at most one
// textual substitution... subsequent chunks are byte-identical"). Only the
// compact form "model":<value> is matched; a line with whitespace around
// that colon is passed through unchanged.
func rewriteFirstChunkModel(line []byte, selectedModel string) []byte {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(line, &obj); err != nil {
		return line
	}
	original, ok := obj["model"]
	if !ok {
		return line
	}
	rewritten, err := json.Marshal(selectedModel + " (gateway-enhanced)")
	if err != nil {
		return line
	}
	return bytes.Replace(line, append([]byte(`"model":`), original...), append([]byte(`"model":`), rewritten...), 1)
}

type chunkEnvelope struct {
	Done    bool `json:"done"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Response string `json:"response"`
}

func isDone(line []byte) bool {
	var c chunkEnvelope
	if err := json.Unmarshal(line, &c); err != nil {
		return false
	}
	return c.Done
}

func collectAssistantContent(b *strings.Builder, line []byte) {
	var c chunkEnvelope
	if err := json.Unmarshal(line, &c); err != nil {
		return
	}
	if c.Message.Content != "" {
		b.WriteString(c.Message.Content)
	} else if c.Response != "" {
		b.WriteString(c.Response)
	}
}

func extractAssistantContent(decoded map[string]any) string {
	if msg, ok := decoded["message"].(map[string]any); ok {
		if content, ok := msg["content"].(string); ok {
			return content
		}
	}
	if resp, ok := decoded["response"].(string); ok {
		return resp
	}
	return ""
}

func (p *Proxy) updateSession(sessionID string, req *models.Request, assistantContent string) {
	if p.Sessions == nil || sessionID == "" {
		return
	}
	history := p.Sessions.History(sessionID)
	merged := append(append([]models.Message{}, history...), req.Messages...)
	if assistantContent != "" {
		merged = append(merged, models.Message{Role: "assistant", Content: assistantContent})
	}
	p.Sessions.Update(sessionID, merged)
}
