package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/achievement-hunters/hunter-bot/internal/observability/attr"
)

// StreamName is the JetStream stream that carries all hunter events.
const StreamName = "hunter"

// EventBus publishes and consumes domain events. Payloads are JSON-encoded;
// the topic doubles as the NATS subject.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(ctx context.Context, topic string, handler func(ctx context.Context, msg *message.Message) error) error
	Close() error
}

type natsEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	conn       *nc.Conn
	logger     *slog.Logger
}

// NewNATSEventBus connects to NATS, ensures the hunter stream exists, and
// returns a JetStream-backed bus.
func NewNATSEventBus(ctx context.Context, natsURL string, logger *slog.Logger) (EventBus, error) {
	conn, err := nc.Connect(natsURL, nc.RetryOnFailedConnect(true))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}
	if err := ensureStream(ctx, js, logger); err != nil {
		conn.Close()
		return nil, err
	}

	watermillLogger := watermill.NewSlogLogger(logger)
	marshaler := &wmnats.NATSMarshaler{}

	publisher, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:       natsURL,
		Marshaler: marshaler,
		NatsOptions: []nc.Option{
			nc.RetryOnFailedConnect(true),
		},
	}, watermillLogger)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	subscriber, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:         natsURL,
		Unmarshaler: marshaler,
		NatsOptions: []nc.Option{
			nc.RetryOnFailedConnect(true),
		},
	}, watermillLogger)
	if err != nil {
		publisher.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}

	return &natsEventBus{
		publisher:  publisher,
		subscriber: subscriber,
		conn:       conn,
		logger:     logger,
	}, nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, logger *slog.Logger) error {
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if err != jetstream.ErrStreamNotFound {
		return fmt.Errorf("failed to check stream: %w", err)
	}
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     StreamName,
		Subjects: []string{StreamName + ".>"},
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	logger.Info("Created JetStream stream", attr.String("stream", StreamName))
	return nil
}

func (b *natsEventBus) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.SetContext(ctx)

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	b.logger.DebugContext(ctx, "Published event",
		attr.String("topic", topic),
		attr.String("message_id", msg.UUID),
	)
	return nil
}

func (b *natsEventBus) Subscribe(ctx context.Context, topic string, handler func(ctx context.Context, msg *message.Message) error) error {
	messages, err := b.subscriber.Subscribe(ctx, topic)
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

func (b *natsEventBus) Close() error {
	if err := b.publisher.Close(); err != nil {
		b.logger.Error("Error closing publisher", attr.Error(err))
	}
	if err := b.subscriber.Close(); err != nil {
		b.logger.Error("Error closing subscriber", attr.Error(err))
	}
	b.conn.Close()
	return nil
}
