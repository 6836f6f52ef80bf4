package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karthickst/agenticosv2.0/internal/domain"
	"github.com/karthickst/agenticosv2.0/internal/service"
)

func sseServer(t *testing.T, gotKey *string, gotBody *map[string]any, deltas ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotKey = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(gotBody))

		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, d := range deltas {
			payload, _ := json.Marshal(map[string]any{
				"type":  "content_block_delta",
				"index": 0,
				"delta": map[string]any{"type": "text_delta", "text": d},
			})
			fmt.Fprintf(w, "event: content_block_delta\ndata: %s\n\n", payload)
		}
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	}))
}

func TestStreamCollectsTextDeltas(t *testing.T) {
	var key string
	var body map[string]any
	srv := sseServer(t, &key, &body, "# Functional", " Spec")
	defer srv.Close()

	g := NewGenerator(Config{APIKey: "server-key", BaseURL: srv.URL}, nil)

	var chunks []string
	out, err := g.Stream(context.Background(), service.GenerateRequest{
		Model:     "claude-sonnet-4-5-20250929",
		Prompt:    "write it",
		MaxTokens: 4096,
	}, func(s string) { chunks = append(chunks, s) })
	require.NoError(t, err)

	assert.Equal(t, "# Functional Spec", out)
	assert.Equal(t, []string{"# Functional", " Spec"}, chunks)
	assert.Equal(t, "server-key", key)
	assert.Equal(t, "claude-sonnet-4-5-20250929", body["model"])
	assert.Equal(t, float64(4096), body["max_tokens"])
	assert.Equal(t, true, body["stream"])
}

func TestStreamRequestKeyOverrides(t *testing.T) {
	var key string
	var body map[string]any
	srv := sseServer(t, &key, &body, "ok")
	defer srv.Close()

	g := NewGenerator(Config{BaseURL: srv.URL}, nil)
	_, err := g.Stream(context.Background(), service.GenerateRequest{Model: "m", Prompt: "p", MaxTokens: 10, APIKey: "user-key"}, func(string) {})
	require.NoError(t, err)
	assert.Equal(t, "user-key", key)
}

func TestStreamWithoutKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	g := NewGenerator(Config{BaseURL: "http://127.0.0.1:1"}, nil)
	_, err := g.Stream(context.Background(), service.GenerateRequest{Model: "m", Prompt: "p", MaxTokens: 10}, func(string) {})
	assert.ErrorIs(t, err, domain.ErrGeneratorNotReady)
}

func TestStreamSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	}))
	defer srv.Close()

	g := NewGenerator(Config{APIKey: "bad", BaseURL: srv.URL}, nil)
	_, err := g.Stream(context.Background(), service.GenerateRequest{Model: "m", Prompt: "p", MaxTokens: 10}, func(string) {})
	require.Error(t, err)
}
