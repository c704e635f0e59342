package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
)

// CORS echoes the request origin when it is allowed and falls back to the
// first allowed origin otherwise. Preflight requests end here with 204.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		allow := origin
		if !slices.Contains(allowedOrigins, origin) {
			allow = ""
			if len(allowedOrigins) > 0 {
				allow = allowedOrigins[0]
			}
		}

		h := c.Writer.Header()
		if allow != "" {
			h.Set("Access-Control-Allow-Origin", allow)
		}
		h.Set("Access-Control-Allow-Headers", "Content-Type, X-Requested-With")
		h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		h.Add("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
