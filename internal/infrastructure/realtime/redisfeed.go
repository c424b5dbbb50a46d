package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	redis "github.com/redis/go-redis/v9"

	"guru-chat/internal/infrastructure/logger"
	"guru-chat/internal/infrastructure/realtime/port"
)

// DefaultEventsChannel is the Redis pub/sub channel shared by every API node.
const DefaultEventsChannel = "chat:events"

// RedisFeed fans change events out to every node through Redis pub/sub.
// Publishing only writes to Redis; local subscribers receive events through the relay,
// so a node sees its own events exactly once.
type RedisFeed struct {
	client  *redis.Client
	channel string
	local   *Feed
	pubsub  *redis.PubSub
	once    sync.Once
	wg      sync.WaitGroup
}

type wireEvent struct {
	Topic   string `json:"topic"`
	Payload []byte `json:"payload"`
}

// NewRedisFeed subscribes to channel and starts relaying into a local Feed.
func NewRedisFeed(ctx context.Context, client *redis.Client, channel string) (*RedisFeed, error) {
	if client == nil {
		return nil, errors.New("redis feed: nil client")
	}
	if channel == "" {
		channel = DefaultEventsChannel
	}
	ps := client.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so no event published after return is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis feed: subscribe %s: %w", channel, err)
	}

	f := &RedisFeed{
		client:  client,
		channel: channel,
		local:   NewFeed(0),
		pubsub:  ps,
	}
	f.wg.Add(1)
	go f.relay(ps.Channel())
	return f, nil
}

var _ port.ChangeFeed = (*RedisFeed)(nil)

func (f *RedisFeed) Publish(ctx context.Context, events ...port.Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := f.client.Pipeline()
	for _, ev := range events {
		b, err := json.Marshal(wireEvent{Topic: ev.Topic, Payload: ev.Payload})
		if err != nil {
			return fmt.Errorf("redis feed: encode: %w", err)
		}
		pipe.Publish(ctx, f.channel, b)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis feed: publish: %w", err)
	}
	return nil
}

func (f *RedisFeed) Subscribe(topic string) port.Subscription {
	return f.local.Subscribe(topic)
}

// Close stops the relay. Existing local subscriptions stay open but receive nothing further.
func (f *RedisFeed) Close() error {
	var err error
	f.once.Do(func() {
		err = f.pubsub.Close()
		f.wg.Wait()
	})
	return err
}

func (f *RedisFeed) relay(ch <-chan *redis.Message) {
	defer f.wg.Done()
	for msg := range ch {
		var ev wireEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			logger.Warn().Err(err).Str("channel", msg.Channel).Msg("redis feed: dropping malformed event")
			continue
		}
		_ = f.local.Publish(context.Background(), port.Event{Topic: ev.Topic, Payload: ev.Payload})
	}
}
