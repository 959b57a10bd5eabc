package cache

import (
	"brandwatch/internal/logging"
	"brandwatch/internal/model"
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultEventBuffer = 256

// EventBus fans pipeline events out to every instance over redis pub/sub.
// Delivery is at-most-once: Notify drops when the buffer is full and
// subscribers that are offline miss events.
type EventBus struct {
	client  *redis.Client
	channel string
	buf     chan model.Event
	logger  logging.Logger
}

// NewEventBus creates a bus publishing on channel
func NewEventBus(client *redis.Client, channel string, logger logging.Logger) *EventBus {
	if channel == "" {
		channel = "brandwatch:events"
	}
	return &EventBus{
		client:  client,
		channel: channel,
		buf:     make(chan model.Event, defaultEventBuffer),
		logger:  logger,
	}
}

// Notify queues event for publication without blocking the caller
func (b *EventBus) Notify(_ context.Context, event model.Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	select {
	case b.buf <- event:
	default:
		b.logger.WithFields(logging.Fields{
			"type":     event.Type,
			"entityId": event.EntityID,
		}).Warn("Event buffer full, dropping event")
	}
}

// Run publishes buffered events until ctx is cancelled
func (b *EventBus) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.buf:
			b.publish(ctx, event)
		}
	}
}

func (b *EventBus) publish(ctx context.Context, event model.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		b.logger.WithError(err).Warn("Failed to encode event")
		return
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.WithError(err).WithField("type", event.Type).Warn("Failed to publish event")
	}
}

// Subscribe hands every event received on the channel to deliver until ctx is cancelled
func (b *EventBus) Subscribe(ctx context.Context, deliver func(model.Event)) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// confirm the subscription before reading messages
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event model.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.WithError(err).Warn("Dropping undecodable event")
				continue
			}
			deliver(event)
		}
	}
}
