package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"guru-chat/internal/infrastructure/logger"
	"guru-chat/internal/infrastructure/realtime"
	"guru-chat/internal/middleware"
	chat "guru-chat/internal/pkg/chat/application/domain"
	"guru-chat/internal/pkg/chat/application/stream"
	"guru-chat/internal/pkg/chat/application/usecase"
)

const inboxKey = "inbox"

// Limiter gates message frames per user.
type Limiter interface {
	Allow(key string) bool
}

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
// Each session may hold one live message view per conversation plus one inbox view.
type ChatSocketController struct {
	router          *realtime.Router
	sendMessageUC   *usecase.SendMessageUseCase
	subscribeUC     *usecase.SubscribeMessagesUseCase
	watchInboxUC    *usecase.WatchInboxUseCase
	markReadUC      *usecase.MarkReadUseCase
	limiter         Limiter
	inflightTimeout time.Duration
	upgrader        websocket.Upgrader
	origins         []string
}

func NewChatSocketController(
	router *realtime.Router,
	send *usecase.SendMessageUseCase,
	subscribe *usecase.SubscribeMessagesUseCase,
	inbox *usecase.WatchInboxUseCase,
	markRead *usecase.MarkReadUseCase,
) *ChatSocketController {
	ctl := &ChatSocketController{
		router:          router,
		sendMessageUC:   send,
		subscribeUC:     subscribe,
		watchInboxUC:    inbox,
		markReadUC:      markRead,
		inflightTimeout: 5 * time.Second,
	}
	ctl.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     ctl.checkOrigin,
	}
	return ctl
}

// WithLimiter makes message frames share the HTTP send budget.
func (ctl *ChatSocketController) WithLimiter(l Limiter) *ChatSocketController {
	ctl.limiter = l
	return ctl
}

// WithAllowedOrigins limits browser upgrades to the CORS origin list.
func (ctl *ChatSocketController) WithAllowedOrigins(origins []string) *ChatSocketController {
	ctl.origins = origins
	return ctl
}

// checkOrigin lets through requests without an Origin header; browsers always send one.
func (ctl *ChatSocketController) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return middleware.OriginAllowed(ctl.origins, origin)
}

type inboundFrame struct {
	Type            string  `json:"type"`
	ConversationID  string  `json:"conversation_id,omitempty"`
	PeerID          string  `json:"peer_id,omitempty"`
	Text            string  `json:"text,omitempty"`
	ClientMessageID *string `json:"client_message_id,omitempty"`
}

type errorFrame struct {
	Type           string `json:"type"`
	Code           string `json:"code"`
	Error          string `json:"error"`
	Ref            string `json:"ref,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ackFrame struct {
	Type           string        `json:"type"`
	Ref            string        `json:"ref,omitempty"`
	UserID         string        `json:"user_id,omitempty"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Message        *chat.Message `json:"message,omitempty"`
}

type snapshotFrame struct {
	Type           string                        `json:"type"`
	ConversationID string                        `json:"conversation_id"`
	Messages       []chat.Message                `json:"messages"`
	Changes        []stream.Change[chat.Message] `json:"changes,omitempty"`
	Resync         bool                          `json:"resync,omitempty"`
}

type inboxFrame struct {
	Type    string              `json:"type"`
	Entries []stream.InboxEntry `json:"entries"`
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := caller(c)
		if !ok {
			return
		}

		ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just log and return.
			logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.router.Attach(conn)
		defer func() {
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20) // 1MB payload cap
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		_ = conn.SendJSON(ackFrame{Type: "connected", UserID: userID})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
					logger.Debug().Err(err).Str("user_id", userID).Msg("websocket closed")
				}
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload", inboundFrame{})
				continue
			}

			switch frame.Type {
			case "subscribe":
				ctl.handleSubscribe(conn, frame)
			case "unsubscribe":
				ctl.handleUnsubscribe(conn, frame)
			case "subscribe_inbox":
				ctl.handleSubscribeInbox(conn)
			case "message":
				ctl.handleMessage(c, conn, frame)
			case "read":
				ctl.handleRead(c, conn, frame)
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type", frame)
			}
		}
	}
}

func (ctl *ChatSocketController) handleSubscribe(conn *realtime.Connection, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), ctl.inflightTimeout)
	defer cancel()

	sub, err := ctl.subscribeUC.Execute(ctx, usecase.SubscribeMessagesInput{
		ConversationID: frame.ConversationID,
		ViewerID:       conn.UserID,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, err, frame)
		return
	}
	if !ctl.router.Join(chat.MessagesTopic(frame.ConversationID), conn, realtime.CloserFunc(sub.Close)) {
		return
	}
	_ = conn.SendJSON(ackFrame{Type: "ack", Ref: frame.Type, ConversationID: frame.ConversationID})

	go func() {
		for snap := range sub.Updates() {
			err := conn.SendJSON(snapshotFrame{
				Type:           "snapshot",
				ConversationID: frame.ConversationID,
				Messages:       snap.Items,
				Changes:        snap.Changes,
				Resync:         snap.Resync,
			})
			if err != nil {
				sub.Close()
			}
		}
	}()
}

func (ctl *ChatSocketController) handleUnsubscribe(conn *realtime.Connection, frame inboundFrame) {
	if frame.ConversationID == "" {
		ctl.replyError(conn, "bad_request", "conversation_id is required", frame)
		return
	}
	ctl.router.Leave(chat.MessagesTopic(frame.ConversationID), conn)
	_ = conn.SendJSON(ackFrame{Type: "ack", Ref: frame.Type, ConversationID: frame.ConversationID})
}

func (ctl *ChatSocketController) handleSubscribeInbox(conn *realtime.Connection) {
	frame := inboundFrame{Type: "subscribe_inbox"}
	ctx, cancel := context.WithTimeout(context.Background(), ctl.inflightTimeout)
	defer cancel()

	inbox, err := ctl.watchInboxUC.Execute(ctx, usecase.WatchInboxInput{UserID: conn.UserID})
	if err != nil {
		ctl.handleUseCaseError(conn, err, frame)
		return
	}
	if !ctl.router.Join(inboxKey, conn, realtime.CloserFunc(inbox.Close)) {
		return
	}
	_ = conn.SendJSON(ackFrame{Type: "ack", Ref: frame.Type})

	go func() {
		for entries := range inbox.Updates() {
			if err := conn.SendJSON(inboxFrame{Type: "inbox", Entries: entries}); err != nil {
				inbox.Close()
			}
		}
	}()
}

func (ctl *ChatSocketController) handleMessage(c *gin.Context, conn *realtime.Connection, frame inboundFrame) {
	if ctl.limiter != nil && !ctl.limiter.Allow(conn.UserID) {
		ctl.replyError(conn, "rate_limited", "rate limit exceeded, slow down", frame)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	msg, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		SenderID:        conn.UserID,
		RecipientID:     frame.PeerID,
		Text:            frame.Text,
		ClientMessageID: frame.ClientMessageID,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, err, frame)
		return
	}
	_ = conn.SendJSON(ackFrame{Type: "ack", Ref: frame.Type, ConversationID: msg.ConversationID, Message: msg})
}

func (ctl *ChatSocketController) handleRead(c *gin.Context, conn *realtime.Connection, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	_, err := ctl.markReadUC.Execute(ctx, usecase.MarkReadInput{ConversationID: frame.ConversationID, UserID: conn.UserID})
	if err != nil {
		ctl.handleUseCaseError(conn, err, frame)
		return
	}
	_ = conn.SendJSON(ackFrame{Type: "ack", Ref: frame.Type, ConversationID: frame.ConversationID})
}

func (ctl *ChatSocketController) handleUseCaseError(conn *realtime.Connection, err error, frame inboundFrame) {
	switch status := errorStatus(err); {
	case status == http.StatusForbidden:
		ctl.replyError(conn, "forbidden", "user is not a participant in this conversation", frame)
	case status < http.StatusInternalServerError:
		ctl.replyError(conn, "bad_request", err.Error(), frame)
	default:
		logger.Error().Err(err).Str("user_id", conn.UserID).Str("frame", frame.Type).Msg("websocket request failed")
		ctl.replyError(conn, "internal_error", "temporarily unavailable, retry", frame)
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code string, message string, frame inboundFrame) {
	_ = conn.SendJSON(errorFrame{
		Type:           "error",
		Code:           code,
		Error:          message,
		Ref:            frame.Type,
		ConversationID: frame.ConversationID,
	})
}
