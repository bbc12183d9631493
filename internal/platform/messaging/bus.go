package messaging

import (
	"context"
	"log/slog"
	"sync"

	"userrealm/internal/shared/events"
)

const subscriberBuffer = 128

// Bus is the in-process event bus behind the outbox relay. Every consumer
// group of a topic sees each event once; members of one group share the
// load round-robin. A full member buffer drops the event for that group.
type Bus struct {
	mu     sync.Mutex
	topics map[string]map[string]*group
	logger *slog.Logger
}

type group struct {
	members []chan events.Envelope
	next    int
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		topics: make(map[string]map[string]*group),
		logger: logger,
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, event events.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	targets := make(map[string]chan events.Envelope, len(b.topics[topic]))
	for name, g := range b.topics[topic] {
		if len(g.members) == 0 {
			continue
		}
		targets[name] = g.members[g.next%len(g.members)]
		g.next++
	}
	b.mu.Unlock()

	for name, target := range targets {
		select {
		case target <- event:
		default:
			b.logger.Warn("dropping event for slow consumer group",
				"event", "bus_publish_drop",
				"module", "internal/platform/messaging",
				"layer", "platform",
				"topic", topic,
				"consumer_group", name,
				"event_id", event.EventID,
			)
		}
	}

	b.logger.Debug("event published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"consumer_groups", len(targets),
	)
	return nil
}

// Subscribe joins consumerGroup on topic and runs handler for each delivered
// event until ctx is done. Handler errors are logged; the event is not
// redelivered.
func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, events.Envelope) error,
) error {
	ch := b.join(topic, consumerGroup)

	go func() {
		defer b.leave(topic, consumerGroup, ch)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil {
					b.logger.Error("consumer handler failed",
						"event", "bus_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

// Members reports how many subscribers a consumer group currently has.
func (b *Bus) Members(topic string, consumerGroup string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g, ok := b.topics[topic][consumerGroup]; ok {
		return len(g.members)
	}
	return 0
}

func (b *Bus) join(topic string, consumerGroup string) chan events.Envelope {
	ch := make(chan events.Envelope, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	groups, ok := b.topics[topic]
	if !ok {
		groups = make(map[string]*group)
		b.topics[topic] = groups
	}
	g, ok := groups[consumerGroup]
	if !ok {
		g = &group{}
		groups[consumerGroup] = g
	}
	g.members = append(g.members, ch)
	return ch
}

func (b *Bus) leave(topic string, consumerGroup string, target chan events.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g, ok := b.topics[topic][consumerGroup]
	if !ok {
		return
	}
	kept := g.members[:0]
	for _, member := range g.members {
		if member != target {
			kept = append(kept, member)
		}
	}
	g.members = kept
	if len(kept) == 0 {
		delete(b.topics[topic], consumerGroup)
	}
}
