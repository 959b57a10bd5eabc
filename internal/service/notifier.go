package service

import (
	"brandwatch/internal/model"
	"context"
	"time"
)

// Notifier receives pipeline state transitions. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, event model.Event)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, event model.Event)

func (f NotifierFunc) Notify(ctx context.Context, event model.Event) {
	f(ctx, event)
}

// NopNotifier discards every event
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, model.Event) {}

func newEvent(eventType model.EventType, entityID, brandID, message string, data map[string]any) model.Event {
	return model.Event{
		Type:     eventType,
		EntityID: entityID,
		BrandID:  brandID,
		Message:  message,
		Data:     data,
		At:       time.Now(),
	}
}
