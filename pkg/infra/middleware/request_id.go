package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/knowledge-clone/pkg/id"
	mwopts "github.com/kart-io/knowledge-clone/pkg/options/middleware"
	"github.com/kart-io/knowledge-clone/pkg/utils/response"
)

type requestIDKey struct{}

// RequestID returns a middleware that assigns a ULID request id unless the
// client supplied one, echoes it in the response header and stores it in
// both the gin context and the request context.
func RequestID(opts mwopts.RequestIDOptions) gin.HandlerFunc {
	header := opts.Header
	if header == "" {
		header = mwopts.NewRequestIDOptions().Header
	}

	return func(c *gin.Context) {
		rid := c.GetHeader(header)
		if rid == "" {
			rid = id.NewULID()
		}

		c.Header(header, rid)
		c.Set(response.RequestIDKey, rid)
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}

// WithRequestID stores the request id in ctx.
func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// GetRequestID returns the request id from ctx, or "".
func GetRequestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}
