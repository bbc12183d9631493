package events

import (
	"context"
	"fmt"

	"userrealm/internal/platform/messaging"
	sharedevents "userrealm/internal/shared/events"
)

// BusPublisher forwards relayed outbox payloads to the message bus.
type BusPublisher struct {
	Bus   *messaging.Bus
	Topic string
}

func NewBusPublisher(bus *messaging.Bus) BusPublisher {
	return BusPublisher{Bus: bus, Topic: sharedevents.AuditTopic}
}

func (p BusPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	envelope, err := sharedevents.Decode(payload)
	if err != nil {
		return err
	}
	if envelope.EventType != eventType {
		return fmt.Errorf("outbox event type %q does not match payload type %q", eventType, envelope.EventType)
	}
	return p.Bus.Publish(ctx, p.Topic, envelope)
}
