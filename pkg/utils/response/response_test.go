package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/knowledge-clone/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, h gin.HandlerFunc, header map[string]string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		c.Set(RequestIDKey, "req-1")
		h(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestOK(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) { OK(c, gin.H{"id": "x"}) }, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, "success", body.Message)
	assert.Equal(t, "req-1", body.RequestID)
	assert.NotZero(t, body.Timestamp)
	assert.Equal(t, map[string]any{"id": "x"}, body.Data)
}

func TestFail_Errno(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		Fail(c, fmt.Errorf("submit: %w", errors.ErrTurnInFlight))
	}, nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, errors.ErrTurnInFlight.Code, body.Code)
	assert.Equal(t, errors.ErrTurnInFlight.MessageEN, body.Message)
	assert.Nil(t, body.Data)
}

func TestFail_PlainErrorHidesCause(t *testing.T) {
	w, body := serve(t, func(c *gin.Context) {
		Fail(c, fmt.Errorf("secret detail"))
	}, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errors.ErrInternal.Code, body.Code)
	assert.NotContains(t, body.Message, "secret")
}

func TestFail_Chinese(t *testing.T) {
	_, body := serve(t, func(c *gin.Context) { Fail(c, errors.ErrSessionNotFound) },
		map[string]string{"Accept-Language": "zh-CN,zh;q=0.9"})

	assert.Equal(t, errors.ErrSessionNotFound.MessageZH, body.Message)
}

func TestResponse_HTTPStatusLookup(t *testing.T) {
	r := &Response{Code: errors.ErrDocumentTooLarge.Code}
	assert.Equal(t, http.StatusRequestEntityTooLarge, r.HTTPStatus())
	assert.False(t, r.IsSuccess())
	assert.True(t, Success(nil).IsSuccess())
}
