package workers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"userrealm/contexts/identity-access/userstore-service/adapters/memory"
	"userrealm/contexts/identity-access/userstore-service/application/workers"
	"userrealm/contexts/identity-access/userstore-service/ports"
)

type recordingPublisher struct {
	published []string
	failOn    string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ []byte) error {
	if eventType == p.failOn {
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, eventType)
	return nil
}

func seedOutbox(t *testing.T, store *memory.Store, types ...string) {
	t.Helper()
	for i, eventType := range types {
		err := store.AppendOutbox(context.Background(), ports.AuditEvent{
			EventID:    eventType + "-" + string(rune('a'+i)),
			EventType:  eventType,
			Subject:    "alice",
			OccurredAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("append outbox: %v", err)
		}
	}
}

func TestOutboxRelayPublishesAndMarksRows(t *testing.T) {
	store := memory.NewStore()
	seedOutbox(t, store, "userstore.add_user", "userstore.add_group")
	publisher := &recordingPublisher{}
	relay := workers.OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	published, err := relay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if published != 2 || len(publisher.published) != 2 {
		t.Fatalf("expected 2 published, got %d (%v)", published, publisher.published)
	}

	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 0 {
		t.Fatalf("expected no pending rows, got %d", len(pending))
	}

	published, err = relay.RunOnce(context.Background())
	if err != nil || published != 0 {
		t.Fatalf("expected idle second run, got %d %v", published, err)
	}
}

func TestOutboxRelayStopsAtPublishFailure(t *testing.T) {
	store := memory.NewStore()
	seedOutbox(t, store, "userstore.add_user", "userstore.delete_user", "userstore.add_group")
	publisher := &recordingPublisher{failOn: "userstore.delete_user"}
	relay := workers.OutboxRelay{Outbox: store, Publisher: publisher, BatchSize: 10}

	published, err := relay.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected publish failure")
	}
	if published != 1 {
		t.Fatalf("expected 1 row published before failure, got %d", published)
	}
	pending, _ := store.ListPendingOutbox(context.Background(), 10)
	if len(pending) != 2 {
		t.Fatalf("expected failed and later rows to stay pending, got %d", len(pending))
	}
}

func TestOutboxRelayRunStopsOnCancel(t *testing.T) {
	store := memory.NewStore()
	relay := workers.OutboxRelay{Outbox: store, Publisher: &recordingPublisher{}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- relay.Run(ctx, 5*time.Millisecond)
	}()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected nil on cancel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
