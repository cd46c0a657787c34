package handler_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/knowledge-clone/internal/clone/biz"
	"github.com/kart-io/knowledge-clone/internal/clone/handler"
	"github.com/kart-io/knowledge-clone/internal/clone/router"
	"github.com/kart-io/knowledge-clone/internal/clone/store"
	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/llm"
	"github.com/kart-io/knowledge-clone/pkg/options/clone"
	"github.com/kart-io/knowledge-clone/pkg/options/settings"
	"github.com/kart-io/knowledge-clone/pkg/utils/json"
)

type stubLLM struct {
	embedErr error
	chatErr  error
	reply    string
}

func (s *stubLLM) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := s.EmbedSingle(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubLLM) EmbedSingle(context.Context, string) ([]float32, error) {
	if s.embedErr != nil {
		return nil, s.embedErr
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubLLM) Complete(context.Context, []llm.Message, llm.CompletionOptions) (string, error) {
	return s.reply, s.chatErr
}

func (s *stubLLM) Name() string { return "stub" }

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	RequestID string          `json:"request_id"`
}

type testServer struct {
	engine *gin.Engine
	llm    *stubLLM
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stub := &stubLLM{reply: "an answer"}
	cfg := biz.NewConfigProvider(store.NewMemorySettings(), settings.NewOptions(), nil)
	vectors := store.NewMemoryStore()
	composer := biz.NewComposer(stub, vectors, biz.StubRetriever{}, stub, nil, nil)
	chat := biz.NewChatService(composer, cfg, 0)
	ingester := biz.NewIngester(stub, vectors, cfg, clone.NewOptions().Upload)

	engine := gin.New()
	router.Register(engine, handler.New(chat, cfg, ingester, settings.NewOptions()))
	return &testServer{engine: engine, llm: stub}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *testServer) upload(t *testing.T, filename string, content []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.serve(t, req)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w, env := s.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPost, "/v1/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var session biz.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.Len(t, session.Transcript, 1)
	assert.Equal(t, biz.Greeting, session.Transcript[0].DisplayContent)

	w, env = s.do(t, http.MethodPost, "/v1/sessions/"+session.ID+"/turns", `{"prompt":"what is in my notes?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var result biz.TurnResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Fatal)
	assert.Equal(t, "an answer", result.Turn.DisplayContent)

	w, env = s.do(t, http.MethodGet, "/v1/sessions/"+session.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &session))
	assert.Len(t, session.Transcript, 3)
}

func TestSubmitTurn_Errors(t *testing.T) {
	s := newTestServer(t)
	_, env := s.do(t, http.MethodPost, "/v1/sessions", "")
	var session biz.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &session))

	w, env := s.do(t, http.MethodPost, "/v1/sessions/"+session.ID+"/turns", `{"prompt":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrInvalidParam.Code, env.Code)
	assert.Contains(t, env.Message, "prompt")

	w, env = s.do(t, http.MethodPost, "/v1/sessions/unknown/turns", `{"prompt":"hi"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errors.ErrSessionNotFound.Code, env.Code)

	w, _ = s.do(t, http.MethodPost, "/v1/sessions/"+session.ID+"/turns", `{bad json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitTurn_FatalIsStillOK(t *testing.T) {
	s := newTestServer(t)
	s.llm.chatErr = errors.ErrAuth

	_, env := s.do(t, http.MethodPost, "/v1/sessions", "")
	var session biz.SessionView
	require.NoError(t, json.Unmarshal(env.Data, &session))

	w, env := s.do(t, http.MethodPost, "/v1/sessions/"+session.ID+"/turns", `{"prompt":"hello"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var result biz.TurnResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Fatal)
	assert.Equal(t, biz.FallbackMessage, result.Turn.DisplayContent)
}

func TestSettings(t *testing.T) {
	s := newTestServer(t)

	_, env := s.do(t, http.MethodGet, "/v1/settings", "")
	assert.JSONEq(t, `{"vectorPercentage":75,"resultLength":200,"summarizeThreshold":500,"webPercentage":25}`, string(env.Data))

	w, env := s.do(t, http.MethodPut, "/v1/settings", `{"vectorPercentage":30,"resultLength":500}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"vectorPercentage":30,"resultLength":500,"summarizeThreshold":500,"webPercentage":70}`, string(env.Data))

	for _, body := range []string{
		`{"vectorPercentage":101}`,
		`{"resultLength":250}`,
		`{"summarizeThreshold":50}`,
	} {
		w, env = s.do(t, http.MethodPut, "/v1/settings", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, errors.ErrInvalidParam.Code, env.Code, body)
	}
}

func TestCredentials(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(t, http.MethodPut, "/v1/credentials", `{"openaiApiKey":"sk-test-abcdef1234"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var statuses []biz.CredentialStatus
	require.NoError(t, json.Unmarshal(env.Data, &statuses))
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Overridden)
	assert.Equal(t, "sk-****1234", statuses[0].Masked)
	assert.False(t, statuses[1].Configured)
	assert.NotContains(t, w.Body.String(), "sk-test-abcdef1234")

	_, env = s.do(t, http.MethodPut, "/v1/credentials", `{"openaiApiKey":""}`)
	require.NoError(t, json.Unmarshal(env.Data, &statuses))
	assert.False(t, statuses[0].Overridden)

	w, _ = s.do(t, http.MethodPut, "/v1/credentials", `{"pineconeApiKey":"has space"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocuments(t *testing.T) {
	s := newTestServer(t)

	w, env := s.upload(t, "Project Plan.md", []byte("# Plan\nship it"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result biz.IngestResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "project-plan.md", result.ID)

	_, env = s.do(t, http.MethodGet, "/v1/documents", "")
	assert.JSONEq(t, `{"knowledgeSources":["Project Plan.md"]}`, string(env.Data))

	w, env = s.upload(t, "photo.jpg", []byte("jpeg"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errors.ErrUnsupportedDocument.Code, env.Code)

	w, _ = s.do(t, http.MethodPost, "/v1/documents", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocuments_UpstreamFailure(t *testing.T) {
	s := newTestServer(t)
	s.llm.embedErr = errors.ErrAuth

	w, env := s.upload(t, "notes.txt", []byte("text"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, errors.ErrAuth.Code, env.Code)
	assert.Equal(t, biz.UploadFailedMessage, env.Message)
}

func TestNoRoute(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
