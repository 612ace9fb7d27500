package streamproxy

import (
	"bufio"
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
	"github.com/ollamageek/gateway/internal/modelselect"
	"github.com/ollamageek/gateway/internal/sessionstore"
	"github.com/ollamageek/gateway/internal/smartcontext"
	"github.com/ollamageek/gateway/pkg/models"
)

func newTestProxy(t *testing.T, backendURL string) *Proxy {
	t.Helper()
	be := backend.New(backend.Config{BaseURL: backendURL})
	sessions := sessionstore.New(50, 0)
	classifier := classify.New(nil, "nomic-embed-text:latest", "llama3.1:8b", nil)
	ctxMgr := smartcontext.New(t.TempDir(), nil, nil)
	selector := modelselect.New()
	return New(be, sessions, classifier, ctxMgr, selector, nil)
}

func TestChat_StreamingRewritesFirstChunkModelOnly(t *testing.T) {
	lines := []string{
		`{"model":"llama3.1:8b","message":{"role":"assistant","content":"Hello"},"done":false}`,
		`{"model":"llama3.1:8b","message":{"role":"assistant","content":" world"},"done":false}`,
		`{"model":"llama3.1:8b","message":{"role":"assistant","content":""},"done":true}`,
	}

	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{"models": []map[string]string{{"name": "llama3.1:8b"}}})
		case "/api/chat":
			w.Header().Set("Content-Type", "application/x-ndjson")
			for _, l := range lines {
				_, _ = w.Write([]byte(l + "\n"))
			}
		}
	}))
	defer backendSrv.Close()

	p := newTestProxy(t, backendSrv.URL)

	req := &models.Request{Model: "llama3.1:8b", Messages: []models.Message{{Role: "user", Content: "Write a Python function to sort a list"}}}
	plan := p.Prepare(context.Background(), req, "test-agent")
	assert.Equal(t, models.TaskCoding, plan.Classification.TaskType)

	rec := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	err := p.Chat(rec, httpReq, req, plan)
	require.NoError(t, err)

	body := rec.Body.String()
	scanner := bufio.NewScanner(strings.NewReader(body))
	var got []string
	for scanner.Scan() {
		got = append(got, scanner.Text())
	}
	require.Len(t, got, 3)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(got[0]), &first))
	assert.Equal(t, "llama3.1:8b (gateway-enhanced)", first["model"])

	assert.JSONEq(t, lines[1], got[1])
	assert.Contains(t, got[2], `"done":true`)
}

func TestChat_NonStreamingAddsSideBand(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(map[string]any{"models": []map[string]string{{"name": "llama3.1:8b"}}})
		case "/api/chat":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"model":   "llama3.1:8b",
				"message": map[string]any{"role": "assistant", "content": "done"},
				"done":    true,
			})
		}
	}))
	defer backendSrv.Close()

	p := newTestProxy(t, backendSrv.URL)
	req := &models.Request{
		Model:     "llama3.1:8b",
		Messages:  []models.Message{{Role: "user", Content: "Write a Python function to sort a list"}},
		StreamSet: true,
		StreamRaw: false,
	}
	plan := p.Prepare(context.Background(), req, "test-agent")

	rec := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	require.NoError(t, p.Chat(rec, httpReq, req, plan))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, "llama3.1:8b (gateway-enhanced)", decoded["model"])
	side, ok := decoded["_ollamaGeek"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "coding", side["taskType"])
	assert.NotEmpty(t, side["reasoning"])
}
