package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"guru-chat/internal/pkg/chat/application/usecase"
)

type MarkReadController struct {
	UC *usecase.MarkReadUseCase
}

func NewMarkReadController(uc *usecase.MarkReadUseCase) *MarkReadController {
	return &MarkReadController{UC: uc}
}

// Handle answers 204 whether or not a counter existed.
func (h *MarkReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()

		if _, err := h.UC.Execute(ctx, usecase.MarkReadInput{ConversationID: c.Param("id"), UserID: userID}); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
