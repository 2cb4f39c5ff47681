package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/achievement-hunters/hunter-bot/internal/observability/attr"
)

// memoryEventBus is an in-process bus for local runs and tests where no NATS
// server is available.
type memoryEventBus struct {
	pubSub *gochannel.GoChannel
	logger *slog.Logger
}

// NewMemoryEventBus returns a bus backed by in-memory channels.
func NewMemoryEventBus(logger *slog.Logger) EventBus {
	return &memoryEventBus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger)),
		logger: logger,
	}
}

func (b *memoryEventBus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)

	if err := b.pubSub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (b *memoryEventBus) Subscribe(ctx context.Context, topic string, handler func(ctx context.Context, msg *message.Message) error) error {
	messages, err := b.pubSub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			if err := handler(ctx, msg); err != nil {
				b.logger.ErrorContext(ctx, "Event handler failed",
					attr.String("topic", topic),
					attr.Error(err),
				)
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()

	return nil
}

func (b *memoryEventBus) Close() error {
	return b.pubSub.Close()
}
