package store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/llm"
	"github.com/kart-io/knowledge-clone/pkg/options/vectorstore"
	"github.com/kart-io/knowledge-clone/pkg/utils/json"
)

func newPinecone(t *testing.T, handler http.HandlerFunc, key string) *PineconeStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts := vectorstore.NewOptions()
	opts.Pinecone.Host = srv.URL + "/"
	opts.Pinecone.Timeout = 5 * time.Second
	return NewPineconeStore(opts, llm.StaticKey(key))
}

func TestPinecone_Upsert(t *testing.T) {
	var got map[string]any
	s := newPinecone(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vectors/upsert", r.URL.Path)
		assert.Equal(t, "pc-key", r.Header.Get("Api-Key"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = w.Write([]byte(`{"upsertedCount":1}`))
	}, "pc-key")

	doc := Document{ID: "my-notes.txt", Metadata: Metadata{Source: "My Notes.txt", Timestamp: "2024-05-01T10:00:00Z", Title: "My Notes.txt"}}
	require.NoError(t, s.Upsert(context.Background(), doc, []float32{0.5, 0.25}))

	assert.Equal(t, "knowledge-clone", got["namespace"])
	vectors := got["vectors"].([]any)
	require.Len(t, vectors, 1)
	v := vectors[0].(map[string]any)
	assert.Equal(t, "my-notes.txt", v["id"])
	assert.Equal(t, []any{0.5, 0.25}, v["values"])
	md := v["metadata"].(map[string]any)
	assert.Equal(t, "My Notes.txt", md["source"])
	assert.NotContains(t, md, "content")
}

func TestPinecone_Query(t *testing.T) {
	s := newPinecone(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		var req map[string]any
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, float64(3), req["topK"])
		assert.Equal(t, true, req["includeMetadata"])
		assert.Equal(t, "knowledge-clone", req["namespace"])

		_, _ = w.Write([]byte(`{"matches":[
			{"id":"a","score":0.9,"metadata":{"source":"a.txt","content":"alpha"}},
			{"id":"b","score":0.4,"metadata":{"source":"b.txt"}}]}`))
	}, "pc-key")

	matches, err := s.Query(context.Background(), []float32{1}, 3)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, Match{ID: "a", Source: "a.txt", Score: 0.9, Snippet: "alpha"}, matches[0])
	assert.Equal(t, NoContent, matches[1].Snippet)
}

func TestPinecone_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   *errors.Errno
	}{
		{"unauthorized", http.StatusUnauthorized, errors.ErrAuth},
		{"forbidden", http.StatusForbidden, errors.ErrAuth},
		{"server error", http.StatusInternalServerError, errors.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newPinecone(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}, "pc-key")
			_, err := s.Query(context.Background(), []float32{1}, 3)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPinecone_MissingKey(t *testing.T) {
	called := false
	s := newPinecone(t, func(http.ResponseWriter, *http.Request) { called = true }, "")

	err := s.Upsert(context.Background(), Document{ID: "x"}, []float32{1})
	assert.ErrorIs(t, err, errors.ErrConfig)
	assert.False(t, called)
}
