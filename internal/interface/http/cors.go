package http

import "github.com/gin-gonic/gin"

// corsMiddleware injects CORS headers so the Cloud Run frontend can call the API.
// An empty allowedOrigins list, or one containing "*", allows any origin;
// otherwise only a request Origin found in the list is echoed back.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAny := len(allowedOrigins) == 0
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
		allowAny = allowAny || o == "*"
	}
	return func(c *gin.Context) {
		headers := c.Writer.Header()
		if allowAny {
			headers.Set("Access-Control-Allow-Origin", "*")
		} else if origin := c.GetHeader("Origin"); allowed[origin] {
			headers.Set("Access-Control-Allow-Origin", origin)
		}
		headers.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		headers.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
