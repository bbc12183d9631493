package messaging

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"userrealm/internal/shared/events"
)

func TestBusDeliversToEachConsumerGroup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(nil)
	audit := make(chan events.Envelope, 1)
	search := make(chan events.Envelope, 1)
	require.NoError(t, bus.Subscribe(ctx, events.AuditTopic, "audit-log", func(_ context.Context, e events.Envelope) error {
		audit <- e
		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx, events.AuditTopic, "search-index", func(_ context.Context, e events.Envelope) error {
		search <- e
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, events.AuditTopic, events.Envelope{EventID: "e-1", EventType: "userstore.add_user"}))

	for _, ch := range []chan events.Envelope{audit, search} {
		select {
		case e := <-ch:
			require.Equal(t, "e-1", e.EventID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered to every group")
		}
	}
}

func TestBusSharesLoadWithinConsumerGroup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewBus(nil)
	var first, second atomic.Int32
	done := make(chan struct{}, 4)
	require.NoError(t, bus.Subscribe(ctx, "topic", "workers", func(context.Context, events.Envelope) error {
		first.Add(1)
		done <- struct{}{}
		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx, "topic", "workers", func(context.Context, events.Envelope) error {
		second.Add(1)
		done <- struct{}{}
		return nil
	}))

	for i := 0; i < 4; i++ {
		require.NoError(t, bus.Publish(ctx, "topic", events.Envelope{EventID: "e", EventType: "t"}))
	}
	for i := 0; i < 4; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
	require.Equal(t, int32(2), first.Load())
	require.Equal(t, int32(2), second.Load())
}

func TestBusSubscriberLeavesOnCancel(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Subscribe(ctx, "topic", "g", func(context.Context, events.Envelope) error { return nil }))
	require.Equal(t, 1, bus.Members("topic", "g"))

	cancel()
	require.Eventually(t, func() bool { return bus.Members("topic", "g") == 0 }, time.Second, 5*time.Millisecond)
}

func TestBusPublishWithoutSubscribers(t *testing.T) {
	bus := NewBus(nil)
	require.NoError(t, bus.Publish(context.Background(), "unused", events.Envelope{EventID: "e-2"}))
}

func TestBusPublishHonoursCancelledContext(t *testing.T) {
	bus := NewBus(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, bus.Publish(ctx, "topic", events.Envelope{EventID: "e-3"}), context.Canceled)
}
