package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"guru-chat/internal/infrastructure/logger"
	httpHandler "guru-chat/internal/pkg/chat/presentation/http"
)

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error

// RegisterRoutes mounts the health check and all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, deps httpHandler.Dependencies, checks map[string]HealthCheck) {
	r.GET("/health", health(checks))

	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, deps)
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn().Err(err).Str("check", name).Msg("health check failed")
				report[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "checks": report})
	}
}
