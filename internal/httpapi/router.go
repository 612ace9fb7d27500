// Package httpapi is the gateway's HTTP surface (spec §6): it decodes
// requests, dispatches to the Streaming Proxy, Workflow Orchestrator, and
// Unified Chat Dispatcher, and renders the structured error envelope on
// failure. Grounded on the teacher's internal/web package: a stdlib
// http.ServeMux wired up in one setupRoutes-style method, with logging
// middleware applied in Handler.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/ollamageek/gateway/internal/backend"
	"github.com/ollamageek/gateway/internal/config"
	"github.com/ollamageek/gateway/internal/sessionstore"
	"github.com/ollamageek/gateway/internal/smartcontext"
	"github.com/ollamageek/gateway/internal/streamproxy"
	"github.com/ollamageek/gateway/internal/toolexec"
	"github.com/ollamageek/gateway/internal/unifiedchat"
	"github.com/ollamageek/gateway/internal/workflow"
)

// Server wires the gateway's components into the HTTP surface.
type Server struct {
	cfg          config.Config
	backend      *backend.Client
	sessions     *sessionstore.Store
	context      *smartcontext.Manager
	proxy        *streamproxy.Proxy
	engine       *toolexec.Engine
	orchestrator *workflow.Orchestrator
	dispatcher   *unifiedchat.Dispatcher
	generator    unifiedchat.ToolGenerator

	mux       *http.ServeMux
	logger    *slog.Logger
	startTime time.Time
}

// Deps bundles the Server's collaborators (spec §2's component wiring).
type Deps struct {
	Config       config.Config
	Backend      *backend.Client
	Sessions     *sessionstore.Store
	Context      *smartcontext.Manager
	Proxy        *streamproxy.Proxy
	Engine       *toolexec.Engine
	Orchestrator *workflow.Orchestrator
	Dispatcher   *unifiedchat.Dispatcher
	Generator    unifiedchat.ToolGenerator
	Logger       *slog.Logger
}

// New builds a Server and registers its routes.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:          deps.Config,
		backend:      deps.Backend,
		sessions:     deps.Sessions,
		context:      deps.Context,
		proxy:        deps.Proxy,
		engine:       deps.Engine,
		orchestrator: deps.Orchestrator,
		dispatcher:   deps.Dispatcher,
		generator:    deps.Generator,
		mux:          http.NewServeMux(),
		logger:       logger,
		startTime:    time.Now(),
	}
	s.routes()
	return s
}

// Handler returns the fully wrapped http.Handler (spec §6's HTTP surface).
func (s *Server) Handler() http.Handler {
	return loggingMiddleware(s.logger)(s.mux)
}

func (s *Server) routes() {
	classTimeout := s.cfg.ClassificationTimeout
	if classTimeout <= 0 {
		classTimeout = 30 * time.Second
	}
	chatTimeout := s.cfg.ChatTimeout
	if chatTimeout <= 0 {
		chatTimeout = 120 * time.Second
	}
	withChat := withTimeout(chatTimeout)
	withClass := withTimeout(classTimeout)

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/sessions", s.handleSessions)
	s.mux.HandleFunc("GET /api/tags", s.handleTags)

	s.mux.Handle("POST /api/generate", withChat(http.HandlerFunc(s.handleGenerate)))
	s.mux.Handle("POST /api/embeddings", withClass(http.HandlerFunc(s.handleEmbeddings)))
	s.mux.HandleFunc("POST /api/pull", s.handlePull)
	s.mux.HandleFunc("POST /api/push", s.handlePush)

	s.mux.Handle("POST /api/chat", withChat(http.HandlerFunc(s.handleChat)))
	s.mux.Handle("POST /api/chat/unified", withChat(http.HandlerFunc(s.handleChatUnified)))
	s.mux.Handle("POST /api/plan/enhanced", withChat(http.HandlerFunc(s.handlePlanEnhanced)))

	s.mux.HandleFunc("GET /api/tools", s.handleListTools)

	s.mux.HandleFunc("POST /api/workflows", s.handleWorkflowCreate)
	s.mux.HandleFunc("GET /api/workflows", s.handleWorkflowList)
	s.mux.HandleFunc("GET /api/workflows/{id}", s.handleWorkflowGet)
	s.mux.HandleFunc("GET /api/workflows/{id}/phases", s.handleWorkflowPhases)
	s.mux.HandleFunc("GET /api/workflows/{id}/history", s.handleWorkflowHistory)
	s.mux.Handle("POST /api/workflows/{id}/execute", withChat(http.HandlerFunc(s.handleWorkflowExecute)))
	s.mux.HandleFunc("POST /api/workflows/{id}/pause", s.handleWorkflowPause)
	s.mux.HandleFunc("POST /api/workflows/{id}/resume", s.handleWorkflowResume)
	s.mux.HandleFunc("DELETE /api/workflows/{id}", s.handleWorkflowDelete)
	s.mux.HandleFunc("POST /api/workflows/cleanup", s.handleWorkflowCleanup)
}
