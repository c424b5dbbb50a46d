package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"guru-chat/internal/pkg/chat/application/usecase"
)

// SendMessageController handles the send-message endpoint only (one controller per endpoint)
type SendMessageController struct {
	UC *usecase.SendMessageUseCase
}

func NewSendMessageController(uc *usecase.SendMessageUseCase) *SendMessageController {
	return &SendMessageController{UC: uc}
}

// sendMessageRequest is the DTO for the HTTP request body
type sendMessageRequest struct {
	Text            string  `json:"text"`
	ClientMessageID *string `json:"client_message_id"`
}

// Handle stores the message synchronously and answers with the stored copy.
func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		msg, err := h.UC.Execute(ctx, usecase.SendMessageInput{
			SenderID:        userID,
			RecipientID:     c.Param("id"),
			Text:            req.Text,
			ClientMessageID: req.ClientMessageID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, msg)
	}
}
