package usecase

import (
	"context"

	"guru-chat/internal/infrastructure/logger"
	"guru-chat/internal/infrastructure/realtime/port"
	chat "guru-chat/internal/pkg/chat/application/domain"
)

// publisher turns committed store writes into change feed events.
// Publishing happens after the write and never fails the operation that caused it.
type publisher struct {
	feed port.ChangeFeed
}

func (p publisher) publish(ctx context.Context, events ...port.Event) {
	if p.feed == nil || len(events) == 0 {
		return
	}
	if err := p.feed.Publish(context.WithoutCancel(ctx), events...); err != nil {
		logger.Warn().Err(err).Int("events", len(events)).Msg("change feed publish failed")
	}
}

func (p publisher) event(topic string, ev chat.ChangeEvent) (port.Event, bool) {
	b, err := ev.Encode()
	if err != nil {
		logger.Error().Err(err).Str("topic", topic).Msg("encode change event")
		return port.Event{}, false
	}
	return port.Event{Topic: topic, Payload: b}, true
}

func (p publisher) messages(ctx context.Context, typ chat.ChangeType, msgs ...chat.Message) {
	if p.feed == nil {
		return
	}
	events := make([]port.Event, 0, len(msgs))
	for i := range msgs {
		m := msgs[i]
		if ev, ok := p.event(chat.MessagesTopic(m.ConversationID), chat.ChangeEvent{Type: typ, Message: &m}); ok {
			events = append(events, ev)
		}
	}
	p.publish(ctx, events...)
}

// conversationChanged tells both participants that the summary record moved on.
// The event names the record only; a summary read here could already be stale
// by the time it is delivered.
func (p publisher) conversationChanged(ctx context.Context, conversationID string) {
	p.conversation(ctx, chat.ChangeModified, conversationID)
}

func (p publisher) conversation(ctx context.Context, typ chat.ChangeType, conversationID string) {
	if p.feed == nil {
		return
	}
	a, b, ok := chat.ParseCanonicalID(conversationID)
	if !ok {
		return
	}
	events := make([]port.Event, 0, 2)
	for _, uid := range []string{a, b} {
		if ev, ok := p.event(chat.ConversationsTopic(uid), chat.ChangeEvent{Type: typ, ConversationID: conversationID}); ok {
			events = append(events, ev)
		}
	}
	p.publish(ctx, events...)
}
