package openai

import (
	"context"
	stdjson "encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/llm"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Keys = llm.StaticKey("test-key")
	return NewProviderWithConfig(cfg)
}

func TestEmbedSingle(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, stdjson.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "text-embedding-ada-002", body["model"])
		assert.Equal(t, "hello world", body["input"])

		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[0.1,0.2,0.3]}]}`))
	})

	vec, err := p.EmbedSingle(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedBatchOrdersByIndex(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[2]},{"index":0,"embedding":[1]}]}`))
	})

	vecs, err := p.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1}, {2}}, vecs)
}

func TestComplete(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var body chatRequest
		require.NoError(t, stdjson.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		assert.Equal(t, 300, body.MaxTokens)
		assert.InDelta(t, 0.7, body.Temperature, 1e-9)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, llm.RoleSystem, body.Messages[0].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hi there"}}]}`))
	})

	out, err := p.Complete(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "hello"},
	}, llm.CompletionOptions{MaxTokens: 300, Temperature: llm.DefaultTemperature})
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
}

func TestCompleteDefaultMaxTokens(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		require.NoError(t, stdjson.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 1000, body.MaxTokens)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	_, err := p.Complete(context.Background(), nil, llm.CompletionOptions{Temperature: llm.DefaultTemperature})
	require.NoError(t, err)
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   *errors.Errno
	}{
		{"unauthorized", http.StatusUnauthorized, errors.ErrAuth},
		{"forbidden", http.StatusForbidden, errors.ErrAuth},
		{"rate limited", http.StatusTooManyRequests, errors.ErrUpstream},
		{"server error", http.StatusInternalServerError, errors.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope"}}`))
			})

			_, err := p.Complete(context.Background(), nil, llm.CompletionOptions{})
			assert.True(t, stderrors.Is(err, tt.want), "got %v", err)

			_, err = p.EmbedSingle(context.Background(), "x")
			assert.True(t, stderrors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestNoChoicesIsServiceError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := p.Complete(context.Background(), nil, llm.CompletionOptions{})
	assert.True(t, stderrors.Is(err, errors.ErrUpstream))
}

func TestKeyResolvedPerCall(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	key := "first"
	p, err := NewProvider(map[string]any{
		"base_url": srv.URL,
		"key_source": llm.KeySourceFunc(func(context.Context) (string, error) {
			return key, nil
		}),
	})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), nil, llm.CompletionOptions{})
	require.NoError(t, err)
	key = "second"
	_, err = p.Complete(context.Background(), nil, llm.CompletionOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer first", "Bearer second"}, seen)
}

func TestMissingKeyIsConfigError(t *testing.T) {
	_, err := NewProvider(map[string]any{})
	assert.Error(t, err)

	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent without a key")
	})
	p.config.Keys = llm.StaticKey("")

	_, err = p.EmbedSingle(context.Background(), "x")
	assert.True(t, stderrors.Is(err, errors.ErrConfig))
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, llm.ListProviders(), ProviderName)
}
