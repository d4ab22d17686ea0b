package middleware

import (
	"context"
	"fmt"
	"strings"

	"debugoj/pkg/utils/contextkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	traceIDHeader   = "X-Trace-Id"
	requestIDHeader = "X-Request-Id"
)

// TraceContextMiddleware puts trace and request ids into the gin and request
// contexts and echoes them on the response.
func TraceContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ctx = bindID(c, ctx, traceIDHeader, contextkey.TraceID)
		ctx = bindID(c, ctx, requestIDHeader, contextkey.RequestID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bindID(c *gin.Context, ctx context.Context, header string, key fmt.Stringer) context.Context {
	id := strings.TrimSpace(c.GetHeader(header))
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(key.String(), id)
	c.Writer.Header().Set(header, id)
	return context.WithValue(ctx, key, id)
}
