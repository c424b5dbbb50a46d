package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"guru-chat/internal/pkg/chat/application/usecase"
)

// GetMessageController handles fetching a page of a conversation (one controller per endpoint)
type GetMessageController struct {
	UC *usecase.ListMessagesUseCase
}

func NewGetMessageController(uc *usecase.ListMessagesUseCase) *GetMessageController {
	return &GetMessageController{UC: uc}
}

func (h *GetMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}

		limit := usecase.DefaultMessagePageSize
		offset := 0
		if v := c.Query("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		if v := c.Query("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}
		if limit > usecase.MaxMessagePageSize {
			limit = usecase.MaxMessagePageSize
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		msgs, err := h.UC.Execute(ctx, usecase.ListMessagesInput{
			ConversationID: c.Param("id"),
			ViewerID:       userID,
			Limit:          limit,
			Offset:         offset,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"messages": msgs,
			"limit":    limit,
			"offset":   offset,
			"count":    len(msgs),
		})
	}
}
