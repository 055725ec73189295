package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/adforge/adforge-backend/internal/logger"
	"github.com/adforge/adforge-backend/internal/sse"
)

// SSEBus fans campaign events out across instances. Generation and media
// workers publish progress here instead of broadcasting directly, so a
// browser subscribed to one instance still sees stages completed by another.
// Every instance forwards the full stream into its local hub; the hub drops
// events for campaigns nobody on that instance is watching.
type SSEBus interface {
	Publish(ctx context.Context, msg sse.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error
	Close() error
}

type sseBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewSSEBus(log *logger.Logger) (SSEBus, error) {
	rdb, err := connect()
	if err != nil {
		return nil, err
	}
	channel := strings.TrimSpace(os.Getenv("REDIS_SSE_CHANNEL"))
	if channel == "" {
		channel = "sse"
	}
	return &sseBus{
		log:     log.With("service", "RedisSSEBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *sseBus) Publish(ctx context.Context, msg sse.SSEMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode sse message: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, raw).Err(); err != nil {
		return fmt.Errorf("publish to %q: %w", b.channel, err)
	}
	return nil
}

// StartForwarder subscribes to the bus channel and pushes every decoded
// message through onMsg until ctx is cancelled. The publisher relies on its
// own subscription for local delivery, so the forwarder must be running
// before any generation starts.
func (b *sseBus) StartForwarder(ctx context.Context, onMsg func(m sse.SSEMessage)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// Receive blocks until redis confirms the subscription, otherwise
	// events published right after startup could be lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var msg sse.SSEMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Warn("Dropping undecodable bus payload", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()

	return nil
}

func (b *sseBus) Close() error {
	return b.rdb.Close()
}
