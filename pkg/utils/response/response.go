// Package response provides the unified API response envelope.
package response

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/knowledge-clone/pkg/errors"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// Message is a human-readable message
	Message string `json:"message"`

	// Data contains the response payload
	Data any `json:"data,omitempty"`

	// RequestID is the unique request identifier for tracing
	RequestID string `json:"request_id,omitempty"`

	// Timestamp is the response timestamp (Unix milliseconds)
	Timestamp int64 `json:"timestamp,omitempty"`

	httpCode int
}

// Success creates a successful response with data.
func Success(data any) *Response {
	return &Response{
		Code:     errors.OK.Code,
		Message:  "success",
		Data:     data,
		httpCode: http.StatusOK,
	}
}

// Err creates an error response from an Errno.
// The message of a wrapped cause is not exposed.
func Err(e *errors.Errno, lang string) *Response {
	if e == nil {
		return Success(nil)
	}
	return &Response{
		Code:     e.Code,
		Message:  e.Message(lang),
		httpCode: e.HTTPStatus(),
	}
}

// HTTPStatus returns the HTTP status code for this response.
func (r *Response) HTTPStatus() int {
	if r.httpCode != 0 {
		return r.httpCode
	}
	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Code == errors.OK.Code
}

// OK writes a success envelope.
func OK(c *gin.Context, data any) {
	write(c, Success(data))
}

// Fail writes an error envelope; any error is converted with errors.FromError.
func Fail(c *gin.Context, err error) {
	e := errors.FromError(err)
	write(c, Err(e, Language(c)))
}

// AbortFail writes an error envelope and aborts the handler chain.
func AbortFail(c *gin.Context, err error) {
	Fail(c, err)
	c.Abort()
}

// Language picks "zh" when the client prefers Chinese, "en" otherwise.
func Language(c *gin.Context) string {
	if lang := c.GetHeader("Accept-Language"); len(lang) >= 2 && lang[:2] == "zh" {
		return "zh"
	}
	return "en"
}

func write(c *gin.Context, r *Response) {
	r.RequestID = c.GetString(RequestIDKey)
	r.Timestamp = time.Now().UnixMilli()
	c.JSON(r.HTTPStatus(), r)
}
