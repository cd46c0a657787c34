package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/id"
	mwopts "github.com/kart-io/knowledge-clone/pkg/options/middleware"
	"github.com/kart-io/knowledge-clone/pkg/utils/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine() *gin.Engine {
	opts := mwopts.NewOptions()
	r := gin.New()
	r.Use(Recovery(), RequestID(*opts.RequestID), Logger(*opts.Logger))
	return r
}

func TestRequestID_Generated(t *testing.T) {
	r := newEngine()
	var fromCtx string
	r.GET("/x", func(c *gin.Context) {
		fromCtx = GetRequestID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	rid := w.Header().Get("X-Request-ID")
	assert.True(t, id.IsValidULID(rid))
	assert.Equal(t, rid, fromCtx)
}

func TestRequestID_Propagated(t *testing.T) {
	r := newEngine()
	r.GET("/x", func(c *gin.Context) { response.OK(c, nil) })

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "client-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "client-id", w.Header().Get("X-Request-ID"))
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "client-id", body.RequestID)
}

func TestRecovery(t *testing.T) {
	r := newEngine()
	r.GET("/panic", func(*gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errors.ErrPanic.Code, body.Code)
	assert.Contains(t, body.Message, "kaboom")
	assert.NotEmpty(t, body.RequestID)
}

func TestRecovery_HandlerCalled(t *testing.T) {
	called := false
	r := gin.New()
	r.Use(RecoveryWithOptions(*mwopts.NewRecoveryOptions(), func(_ *gin.Context, err any, stack []byte) {
		called = true
		assert.Equal(t, "boom", err)
		assert.NotEmpty(t, stack)
	}))
	r.GET("/", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}
