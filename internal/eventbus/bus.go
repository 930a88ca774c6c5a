// Package eventbus fans manager lifecycle events out to in-process
// subscribers over a watermill gochannel topic.
package eventbus

import (
	"context"
	"errors"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"fitd/pkg/types"
)

// Topic carries every lifecycle event.
const Topic = "fitd.events"

// subscriberBuffer bounds how far a subscriber may lag before events are
// dropped for it.
const subscriberBuffer = 64

var ErrClosed = errors.New("event bus closed")

// Bus implements manager.EventPublisher on top of a watermill pub/sub.
type Bus struct {
	pubsub *gochannel.GoChannel
	log    zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

func New(logger zerolog.Logger) *Bus {
	l := logger.With().Str("component", "eventbus").Logger()
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: subscriberBuffer,
			// gochannel delivers each message on its own goroutine; waiting for
			// the ack keeps subscribers in publish order. Subscribe acks on
			// receipt, so this never waits on a slow consumer.
			BlockPublishUntilSubscriberAck: true,
		}, NewWatermillLogger(l.Level(zerolog.WarnLevel))),
		log:    l,
	}
}

// Publish encodes e and sends it to current subscribers in call order. It
// never blocks on slow subscribers and drops events after Close.
func (b *Bus) Publish(e types.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	payload, err := json.Marshal(e)
	if err != nil {
		b.log.Error().Err(err).Str("event", e.Name).Msg("encode event")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("name", e.Name)
	if err := b.pubsub.Publish(Topic, msg); err != nil {
		b.log.Error().Err(err).Str("event", e.Name).Msg("publish event")
	}
}

// Subscribe streams events until ctx ends or the bus closes, then closes the
// returned channel. A consumer that falls behind loses events rather than
// stalling publishers.
func (b *Bus) Subscribe(ctx context.Context) (<-chan types.Event, error) {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	msgs, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return nil, err
	}
	out := make(chan types.Event, subscriberBuffer)
	go func() {
		defer close(out)
		for msg := range msgs {
			var e types.Event
			if err := json.Unmarshal(msg.Payload, &e); err != nil {
				b.log.Warn().Err(err).Str("uuid", msg.UUID).Msg("drop undecodable event")
				msg.Ack()
				continue
			}
			msg.Ack()
			select {
			case out <- e:
			default:
				b.log.Debug().Str("event", e.Name).Msg("subscriber lagging, event dropped")
			}
		}
	}()
	return out, nil
}

// Close ends all subscriptions.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	return b.pubsub.Close()
}
