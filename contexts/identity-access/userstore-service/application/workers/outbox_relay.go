package workers

import (
	"context"
	"log/slog"
	"time"

	application "userrealm/contexts/identity-access/userstore-service/application"
	"userrealm/contexts/identity-access/userstore-service/ports"
)

// OutboxRelay publishes committed audit events to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce relays one batch and returns how many rows were published.
func (r OutboxRelay) RunOnce(ctx context.Context) (int, error) {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("userstore outbox list failed",
			"event", "userstore_outbox_list_failed",
			"module", "identity-access/userstore-service",
			"layer", "worker",
			"error", err.Error(),
		)
		return 0, err
	}

	published := 0
	for _, row := range pending {
		if err := r.Publisher.Publish(ctx, row.EventType, row.Payload); err != nil {
			logger.Error("userstore outbox publish failed",
				"event", "userstore_outbox_publish_failed",
				"module", "identity-access/userstore-service",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, r.now()); err != nil {
			return published, err
		}
		published++
	}
	return published, nil
}

// Run polls until ctx is cancelled.
func (r OutboxRelay) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			application.ResolveLogger(r.Logger).Warn("userstore outbox relay cycle failed",
				"event", "userstore_outbox_relay_cycle_failed",
				"module", "identity-access/userstore-service",
				"layer", "worker",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r OutboxRelay) now() time.Time {
	if r.Clock == nil {
		return time.Now().UTC()
	}
	return r.Clock.Now().UTC()
}
