package cache

import (
	"brandwatch/internal/model"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusRoundTrip(t *testing.T) {
	mr, client := newTestClient(t)
	logger, _ := test.NewNullLogger()
	bus := NewEventBus(client, "events", logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan model.Event, 1)
	go bus.Subscribe(ctx, func(ev model.Event) { received <- ev })
	go bus.Run(ctx)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("events")["events"] == 1
	}, time.Second, 10*time.Millisecond)

	bus.Notify(ctx, model.Event{Type: model.EventResponseFailed, EntityID: "r-1", Message: "platform returned 500"})

	select {
	case ev := <-received:
		assert.Equal(t, model.EventResponseFailed, ev.Type)
		assert.Equal(t, "r-1", ev.EntityID)
		assert.False(t, ev.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestEventBusDropsWhenFull(t *testing.T) {
	_, client := newTestClient(t)
	logger, hook := test.NewNullLogger()
	bus := NewEventBus(client, "events", logger)

	// nothing drains the buffer
	for i := 0; i < defaultEventBuffer+1; i++ {
		bus.Notify(context.Background(), model.Event{Type: model.EventThreatDetected})
	}

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Len(t, hook.AllEntries(), 1)
}
