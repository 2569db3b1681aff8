package bridge

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Watermill binding for the bridge: hosts that embed the game behind a
// message broker (or another goroutine, via the gochannel transport)
// exchange bridge messages over a topic pair.

// Topics names the pub-sub topic pair for one bridged session.
type Topics struct {
	ToHost   string
	FromHost string
}

// SessionTopics derives the conventional topic pair for a session id.
func SessionTopics(sessionID string) Topics {
	return Topics{
		ToHost:   "quiz-game.to-host." + sessionID,
		FromHost: "quiz-game.from-host." + sessionID,
	}
}

// PublisherSend adapts a watermill publisher into the bridge's SendFunc.
func PublisherSend(publisher message.Publisher, topic string) SendFunc {
	return func(msg Message) error {
		raw, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		wm := message.NewMessage(watermill.NewUUID(), raw)
		wm.Metadata.Set("message_type", string(msg.Type))
		return publisher.Publish(topic, wm)
	}
}

// Run subscribes to the host's topic and feeds inbound messages to the
// bridge until ctx is cancelled. Malformed envelopes are acked and
// dropped; there is no redelivery that could help them.
func Run(ctx context.Context, b *Bridge, subscriber message.Subscriber, topics Topics, logger *slog.Logger) error {
	messages, err := subscriber.Subscribe(ctx, topics.FromHost)
	if err != nil {
		return err
	}

	go func() {
		for wm := range messages {
			var msg Message
			if err := json.Unmarshal(wm.Payload, &msg); err != nil {
				logger.Warn("Dropping malformed bridge message", "error", err)
				wm.Ack()
				continue
			}
			b.HandleInbound(msg)
			wm.Ack()
		}
	}()

	return nil
}

// NewGoChannelTransport creates the in-process pub-sub used by embedded
// hosts and tests.
func NewGoChannelTransport(logger *slog.Logger) *gochannel.GoChannel {
	return gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewSlogLogger(logger),
	)
}
