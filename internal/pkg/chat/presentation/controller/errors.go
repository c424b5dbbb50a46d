package controller

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"guru-chat/internal/infrastructure/logger"
	"guru-chat/internal/middleware"
	chat "guru-chat/internal/pkg/chat/application/domain"
	"guru-chat/internal/pkg/chat/application/usecase"
)

const requestTimeout = 3 * time.Second

// errorStatus maps use case errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, chat.ErrNotParticipant):
		return http.StatusForbidden
	case chat.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrConversationNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrDirectoryUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		// store details stay in the log
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// caller returns the authenticated user or answers 401.
func caller(c *gin.Context) (string, bool) {
	id := middleware.UserID(c)
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return "", false
	}
	return id, true
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}
