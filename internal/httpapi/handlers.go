package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ollamageek/gateway/internal/workflow"
	"github.com/ollamageek/gateway/pkg/models"
)

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return models.NewError(models.KindBadRequest, "missing request body", nil)
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return models.NewError(models.KindBadRequest, "invalid JSON body", err)
	}
	return nil
}

// handleHealth implements GET /health (spec §6).
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "ollamageek-gateway",
		"timestamp": time.Now(),
	})
}

// handleSessions implements GET /api/sessions.
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, s.sessions.Stats())
}

// handleTags proxies GET /api/tags to the backend.
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.backend.Tags(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"models": tags})
}

// handleGenerate implements POST /api/generate (spec §6: classification +
// context for generate).
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.Request
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	plan := s.proxy.Prepare(r.Context(), &req, r.UserAgent())
	if err := s.proxy.Generate(w, r, &req, plan); err != nil {
		s.writeError(w, r, err)
		return
	}
}

type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// handleEmbeddings implements POST /api/embeddings.
func (s *Server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	var req embeddingsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	embedding, err := s.backend.Embeddings(r.Context(), req.Model, req.Prompt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"embedding": embedding})
}

type modelNameRequest struct {
	Name string `json:"name"`
}

// handlePull implements POST /api/pull.
func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	var req modelNameRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := s.backend.Pull(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// handlePush implements POST /api/push.
func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var req modelNameRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	body, err := s.backend.Push(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

// handleChat implements POST /api/chat (spec §4.6, §6).
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.Request
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	plan := s.proxy.Prepare(r.Context(), &req, r.UserAgent())
	if err := s.proxy.Chat(w, r, &req, plan); err != nil {
		s.writeError(w, r, err)
		return
	}
}

type unifiedChatRequest struct {
	Prompt  string                `json:"prompt"`
	Context models.ProjectContext `json:"context"`
}

// handleChatUnified implements POST /api/chat/unified (spec §4.10).
func (s *Server) handleChatUnified(w http.ResponseWriter, r *http.Request) {
	var req unifiedChatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	resp, err := s.dispatcher.Handle(r.Context(), req.Prompt, req.Context)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, resp)
}

// handlePlanEnhanced implements POST /api/plan/enhanced (spec §6:
// "{success, plan: {description, tools, context}}").
func (s *Server) handlePlanEnhanced(w http.ResponseWriter, r *http.Request) {
	var req unifiedChatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	classification := models.DefaultClassification(s.cfg.DefaultModel)
	smartCtx := s.context.GetSmartContext(r.Context(), req.Prompt, classification.TaskType, classification.Complexity)

	phase := models.Phase{Name: "enhanced_plan", Description: req.Prompt, Tools: []string{"create_file", "edit_file", "run_terminal"}}
	tools, err := s.generator.Generate(r.Context(), phase, req.Context, req.Prompt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"success": true,
		"plan": map[string]any{
			"description": req.Prompt,
			"tools":       tools,
			"context":     smartCtx,
		},
	})
}

// handleListTools implements GET /api/tools (spec §6).
func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	names := models.AllToolNames()
	out := make([]map[string]any, 0, len(names))
	for _, name := range names {
		out = append(out, map[string]any{
			"name":           name,
			"requiredParams": models.RequiredParams(name),
		})
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"tools": out})
}

type workflowCreateRequest struct {
	UserRequest    string                `json:"userRequest"`
	ProjectContext models.ProjectContext `json:"projectContext"`
}

// templateForProjectType resolves a built-in template name from the
// caller's projectType hint (spec §6's POST /api/workflows doesn't name a
// `type` field explicitly; this derivation is this module's resolution of
// that omission, recorded in DESIGN.md).
func templateForProjectType(projectType string) string {
	switch projectType {
	case "fullstack", "fullstack_react", "react":
		return "fullstack_react"
	default:
		return "nodejs_api"
	}
}

// handleWorkflowCreate implements POST /api/workflows (spec §6, §8
// scenario 5).
func (s *Server) handleWorkflowCreate(w http.ResponseWriter, r *http.Request) {
	var req workflowCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	template := templateForProjectType(req.ProjectContext.ProjectType)
	wf, err := s.orchestrator.StartWorkflow(template, req.ProjectContext, req.UserRequest)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var nextPhase *models.Phase
	if len(wf.Phases) > 0 {
		nextPhase = &wf.Phases[0]
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"workflowId": wf.ID,
		"workflow":   wf,
		"nextPhase":  nextPhase,
	})
}

// handleWorkflowList implements GET /api/workflows.
func (s *Server) handleWorkflowList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"workflows": s.orchestrator.List()})
}

// handleWorkflowGet implements GET /api/workflows/{id}.
func (s *Server) handleWorkflowGet(w http.ResponseWriter, r *http.Request) {
	wf, err := s.orchestrator.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, wf)
}

// handleWorkflowPhases implements GET /api/workflows/{id}/phases.
func (s *Server) handleWorkflowPhases(w http.ResponseWriter, r *http.Request) {
	wf, err := s.orchestrator.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"phases": wf.Phases, "currentPhase": wf.CurrentPhase})
}

// handleWorkflowHistory implements GET /api/workflows/{id}/history
// (SPEC_FULL.md addition).
func (s *Server) handleWorkflowHistory(w http.ResponseWriter, r *http.Request) {
	wf, err := s.orchestrator.History(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"completedPhases": wf.CompletedPhases,
		"failedPhases":    wf.FailedPhases,
		"errors":          wf.Errors,
	})
}

// handleWorkflowExecute implements POST /api/workflows/{id}/execute (spec
// §6, §8 scenarios 5-6). Dependency-wait and contained phase failures are
// reported as 200 status documents rather than error envelopes, since
// neither is a client mistake (spec §7: "contained to their phase").
func (s *Server) handleWorkflowExecute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wf, err := s.orchestrator.ExecuteNextPhase(r.Context(), id)

	if errors.Is(err, workflow.ErrPhaseWaiting) {
		var deps []string
		if wf != nil && wf.CurrentPhase < len(wf.Phases) {
			deps = wf.Phases[wf.CurrentPhase].Dependencies
		}
		writeJSON(w, s.logger, http.StatusOK, map[string]any{"status": "waiting", "dependencies": deps})
		return
	}
	if err != nil && wf != nil && wf.Status == models.WorkflowPhaseFailed {
		writeJSON(w, s.logger, http.StatusOK, map[string]any{"status": "phase_failed", "workflow": wf})
		return
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if wf.Status == models.WorkflowCompleted {
		writeJSON(w, s.logger, http.StatusOK, map[string]any{"status": "completed", "workflow": wf, "progress": wf.Progress()})
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"status": "phase_completed", "workflow": wf})
}

// handleWorkflowPause implements POST /api/workflows/{id}/pause.
func (s *Server) handleWorkflowPause(w http.ResponseWriter, r *http.Request) {
	wf, err := s.orchestrator.Pause(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, wf)
}

// handleWorkflowResume implements POST /api/workflows/{id}/resume.
func (s *Server) handleWorkflowResume(w http.ResponseWriter, r *http.Request) {
	wf, err := s.orchestrator.Resume(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, wf)
}

// handleWorkflowDelete implements DELETE /api/workflows/{id}.
func (s *Server) handleWorkflowDelete(w http.ResponseWriter, r *http.Request) {
	wf, err := s.orchestrator.Cancel(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, wf)
}

// handleWorkflowCleanup implements POST /api/workflows/cleanup.
func (s *Server) handleWorkflowCleanup(w http.ResponseWriter, r *http.Request) {
	evicted := s.orchestrator.Cleanup()
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"evicted": evicted})
}
