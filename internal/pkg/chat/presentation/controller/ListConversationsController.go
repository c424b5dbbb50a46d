package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"guru-chat/internal/pkg/chat/application/usecase"
)

type ListConversationsController struct {
	UC *usecase.ListConversationsUseCase
}

func NewListConversationsController(uc *usecase.ListConversationsUseCase) *ListConversationsController {
	return &ListConversationsController{UC: uc}
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()

		entries, err := h.UC.Execute(ctx, usecase.ListConversationsInput{UserID: userID})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversations": entries, "count": len(entries)})
	}
}
