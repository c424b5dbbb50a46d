package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"guru-chat/internal/pkg/chat/application/usecase"
)

// deleteTimeout is longer than requestTimeout: large conversations take several batches.
const deleteTimeout = 30 * time.Second

type DeleteConversationController struct {
	UC *usecase.DeleteConversationUseCase
}

func NewDeleteConversationController(uc *usecase.DeleteConversationUseCase) *DeleteConversationController {
	return &DeleteConversationController{UC: uc}
}

func (h *DeleteConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), deleteTimeout)
		defer cancel()

		_, err := h.UC.Execute(ctx, usecase.DeleteConversationInput{ConversationID: c.Param("id"), RequesterID: userID})
		if err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
