package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollamageek/gateway/internal/backend"
	"github.com/ollamageek/gateway/internal/classify"
	"github.com/ollamageek/gateway/internal/config"
	"github.com/ollamageek/gateway/internal/modelselect"
	"github.com/ollamageek/gateway/internal/sessionstore"
	"github.com/ollamageek/gateway/internal/smartcontext"
	"github.com/ollamageek/gateway/internal/streamproxy"
	"github.com/ollamageek/gateway/internal/toolexec"
	"github.com/ollamageek/gateway/internal/unifiedchat"
	"github.com/ollamageek/gateway/internal/workflow"
	"github.com/ollamageek/gateway/pkg/models"
)

type fakeGenerator struct{}

func (fakeGenerator) Generate(ctx context.Context, phase models.Phase, projectCtx models.ProjectContext, userRequest string) ([]models.Tool, error) {
	params, _ := json.Marshal(models.CreateFileParams{Path: "notes.txt", Content: "ok"})
	return []models.Tool{{Name: models.ToolCreateFile, Priority: 1, Params: params}}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{"models": []map[string]string{{"name": "llama3.1:8b"}}})
		case "/api/chat":
			_ = json.NewEncoder(w).Encode(map[string]any{"model": "llama3.1:8b", "message": map[string]any{"role": "assistant", "content": "hi"}, "done": true})
		}
	}))
	t.Cleanup(backendSrv.Close)

	be := backend.New(backend.Config{BaseURL: backendSrv.URL})
	sessions := sessionstore.New(50, 0)
	classifier := classify.New(nil, "nomic-embed-text:latest", "llama3.1:8b", nil)
	ctxMgr := smartcontext.New(t.TempDir(), nil, nil)
	selector := modelselect.New()
	proxy := streamproxy.New(be, sessions, classifier, ctxMgr, selector, nil)
	engine := toolexec.New(t.TempDir(), ctxMgr, nil)
	store := workflow.NewStore(0)
	orchestrator := workflow.New(store, fakeGenerator{}, engine, nil)
	dispatcher := unifiedchat.New(fakeGenerator{}, be, "llama3.1:8b", nil)

	return New(Deps{
		Config:       config.Default(),
		Backend:      be,
		Sessions:     sessions,
		Context:      ctxMgr,
		Proxy:        proxy,
		Engine:       engine,
		Orchestrator: orchestrator,
		Dispatcher:   dispatcher,
		Generator:    fakeGenerator{},
	})
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestChat_NonStreaming(t *testing.T) {
	s := newTestServer(t)
	body := `{"model":"llama3.1:8b","messages":[{"role":"user","content":"write a python function"}],"stream":false}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Contains(t, decoded["model"], "gateway-enhanced")
}

func TestWorkflowLifecycle(t *testing.T) {
	s := newTestServer(t)

	createBody := `{"userRequest":"create a REST API","projectContext":{"projectType":"nodejs","projectName":"svc","targetDir":"/tmp/svc"}}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/workflows", strings.NewReader(createBody)))
	require.Equal(t, http.StatusOK, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id, ok := created["workflowId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)

	for i := 0; i < 3; i++ {
		rec = httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/workflows/"+id+"/execute", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/workflows/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var wf models.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wf))
	assert.Equal(t, models.WorkflowCompleted, wf.Status)
}

func TestUnifiedChat_ExecutionSimple(t *testing.T) {
	s := newTestServer(t)
	body := `{"prompt":"create a file called notes.txt","context":{}}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat/unified", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "execution_task", decoded["type"])
}
