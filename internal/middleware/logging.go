package middleware

import (
	"github.com/chainguard-dev/clog"
	"github.com/gin-gonic/gin"
)

// RequestLogger puts a request-scoped logger on the request context.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		log := clog.FromContext(ctx).With(
			"method", c.Request.Method,
			"path", c.FullPath(),
			"client_ip", ClientIP(c),
		)
		c.Request = c.Request.WithContext(clog.WithLogger(ctx, log))
		c.Next()
	}
}
