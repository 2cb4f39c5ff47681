package eventbus

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEventBusDeliversPayload(t *testing.T) {
	bus := NewMemoryEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer bus.Close()

	type scoreEvent struct {
		SteamID string  `json:"steam_id"`
		Score   float64 `json:"score"`
	}

	received := make(chan scoreEvent, 1)
	err := bus.Subscribe(context.Background(), "hunter.score.updated", func(_ context.Context, msg *message.Message) error {
		var evt scoreEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return err
		}
		received <- evt
		return nil
	})
	require.NoError(t, err)

	err = bus.Publish(context.Background(), "hunter.score.updated", scoreEvent{SteamID: "76561198000000001", Score: 417.5})
	require.NoError(t, err)

	select {
	case evt := <-received:
		assert.Equal(t, "76561198000000001", evt.SteamID)
		assert.Equal(t, 417.5, evt.Score)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestMemoryEventBusRejectsUnmarshalablePayload(t *testing.T) {
	bus := NewMemoryEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer bus.Close()

	err := bus.Publish(context.Background(), "hunter.score.updated", make(chan int))
	assert.Error(t, err)
}
