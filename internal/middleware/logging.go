package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"guru-chat/internal/infrastructure/logger"
)

// LoggingMiddleware logs every request once it has been handled.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		event := logger.Info()
		if status >= 400 {
			event = logger.Warn()
		}
		if status >= 500 {
			event = logger.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("user_id", UserID(c)).
			Msg("request")
	}
}
