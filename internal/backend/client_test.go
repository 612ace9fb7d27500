package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ollamageek/gateway/pkg/models"
)

func TestTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_ = json.NewEncoder(w).Encode(tagsResponse{Models: []ModelInfo{{Name: "llama3.1:8b"}}})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	tags, err := c.Tags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 1)
	require.Equal(t, "llama3.1:8b", tags[0].Name)
}

func TestStatusErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		kind   models.ErrorKind
	}{
		{http.StatusBadRequest, models.KindBadRequest},
		{http.StatusNotFound, models.KindModelNotFound},
		{http.StatusInternalServerError, models.KindUpstreamFailure},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte("boom"))
		}))
		c := New(Config{BaseURL: srv.URL})
		_, err := c.Tags(context.Background())
		require.Error(t, err)
		require.Equal(t, tc.kind, models.KindOf(err))
		srv.Close()
	}
}

func TestStreamChatForwardsNDJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"model":"llama3.1:8b","message":{"role":"assistant","content":"hi"},"done":false}` + "\n"))
		_, _ = w.Write([]byte(`{"model":"llama3.1:8b","done":true}` + "\n"))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL})
	body, err := c.StreamChat(context.Background(), map[string]any{"model": "llama3.1:8b"})
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Contains(t, string(data), `"done":true`)
}

func TestEmbeddingsRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embeddingsResponse{Embedding: []float64{0.1, 0.2}})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, ClassificationRPS: 100})
	vec, err := c.Embeddings(context.Background(), "nomic-embed-text:latest", "hello")
	require.NoError(t, err)
	require.Equal(t, []float64{0.1, 0.2}, vec)
}
