package http

import (
	"github.com/gin-gonic/gin"

	"guru-chat/internal/infrastructure/realtime"
	feedport "guru-chat/internal/infrastructure/realtime/port"
	"guru-chat/internal/middleware"
	"guru-chat/internal/pkg/chat/application/usecase"
	repository "guru-chat/internal/pkg/chat/persistence/repository/port"
	"guru-chat/internal/pkg/chat/presentation/controller"
	directory "guru-chat/internal/repository/port"
)

// Dependencies are the adapters the chat endpoints are built from.
type Dependencies struct {
	Repo      repository.ChatRepository
	Feed      feedport.ChangeFeed
	Directory directory.UserDirectory
	Notifier  usecase.Notifier
	Sockets   *realtime.Router
	Auth      middleware.TokenValidator

	// SendLimiter throttles sends over HTTP and websocket. Nil disables it.
	SendLimiter *middleware.RateLimiter

	// AllowedOrigins gates browser websocket upgrades like the CORS middleware does.
	AllowedOrigins []string
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
// Path parameters share the name "id" because gin requires one wildcard name per segment.
func RegisterRoutes(g *gin.RouterGroup, d Dependencies) {
	send := usecase.NewSendMessageUseCase(d.Repo, d.Feed, d.Notifier)
	markRead := usecase.NewMarkReadUseCase(d.Repo, d.Feed)
	conversations := usecase.NewSubscribeConversationsUseCase(d.Repo, d.Feed)

	sendMsgCtl := controller.NewSendMessageController(send)
	getMsgCtl := controller.NewGetMessageController(usecase.NewListMessagesUseCase(d.Repo))
	readCtl := controller.NewMarkReadController(markRead)
	deleteCtl := controller.NewDeleteConversationController(usecase.NewDeleteConversationUseCase(d.Repo, d.Feed))
	listCtl := controller.NewListConversationsController(usecase.NewListConversationsUseCase(d.Repo, d.Directory))
	searchCtl := controller.NewSearchUsersController(usecase.NewSearchUsersUseCase(d.Directory))
	socketCtl := controller.NewChatSocketController(
		d.Sockets,
		send,
		usecase.NewSubscribeMessagesUseCase(d.Repo, d.Feed),
		usecase.NewWatchInboxUseCase(conversations, d.Directory),
		markRead,
	).WithAllowedOrigins(d.AllowedOrigins)

	sendHandlers := []gin.HandlerFunc{sendMsgCtl.Handle()}
	if d.SendLimiter != nil {
		socketCtl.WithLimiter(d.SendLimiter)
		sendHandlers = append([]gin.HandlerFunc{middleware.RateLimitMiddleware(d.SendLimiter)}, sendHandlers...)
	}

	g.Use(middleware.AuthMiddleware(d.Auth))

	// GET /api/v1/chat/conversations -> inbox of the caller
	g.GET("/chat/conversations", listCtl.Handle())

	// GET /api/v1/chat/ws -> websocket endpoint for realtime chat
	g.GET("/chat/ws", socketCtl.Handle())

	// POST /api/v1/chat/:peerId/messages -> send a message to a peer
	g.POST("/chat/:id/messages", sendHandlers...)

	// GET /api/v1/chat/:conversationId/messages -> page through a conversation
	g.GET("/chat/:id/messages", getMsgCtl.Handle())

	// POST /api/v1/chat/:conversationId/read -> reset the caller's unread counter
	g.POST("/chat/:id/read", readCtl.Handle())

	// DELETE /api/v1/chat/:conversationId -> delete the conversation and its messages
	g.DELETE("/chat/:id", deleteCtl.Handle())

	// GET /api/v1/users/search?q= -> directory search
	g.GET("/users/search", searchCtl.Handle())
}
