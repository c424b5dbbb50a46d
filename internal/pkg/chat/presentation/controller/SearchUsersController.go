package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"guru-chat/internal/pkg/chat/application/usecase"
)

type SearchUsersController struct {
	UC *usecase.SearchUsersUseCase
}

func NewSearchUsersController(uc *usecase.SearchUsersUseCase) *SearchUsersController {
	return &SearchUsersController{UC: uc}
}

func (h *SearchUsersController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}
		ctx, cancel := requestContext(c)
		defer cancel()

		users, err := h.UC.Execute(ctx, usecase.SearchUsersInput{Query: c.Query("q"), ViewerID: userID})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}
