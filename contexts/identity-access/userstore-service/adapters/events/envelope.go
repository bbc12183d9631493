package events

import (
	"strings"

	"userrealm/contexts/identity-access/userstore-service/ports"
	sharedevents "userrealm/internal/shared/events"
)

const SourceService = "identity-access/userstore-service"

// EventType maps a user store operation to its audit event type.
func EventType(operation string) string {
	return "userstore." + operation
}

// ToEnvelope converts an audit event into the bus envelope.
func ToEnvelope(event ports.AuditEvent) sharedevents.Envelope {
	payload := map[string]any{"actor_id": event.ActorID}
	for key, value := range event.Attributes {
		payload[key] = value
	}
	return sharedevents.Envelope{
		EventID:        event.EventID,
		EventType:      event.EventType,
		SourceService:  SourceService,
		OccurredAtUTC:  event.OccurredAt.UTC(),
		CorrelationID:  event.EventID,
		EntityType:     entityType(event.EventType),
		EntityID:       event.Subject,
		PayloadVersion: 1,
		Payload:        payload,
	}
}

// Encode serializes event as an envelope for outbox storage.
func Encode(event ports.AuditEvent) ([]byte, error) {
	return sharedevents.Encode(ToEnvelope(event))
}

func entityType(eventType string) string {
	if strings.Contains(eventType, "group") && !strings.HasSuffix(eventType, "group_list_of_user") {
		return "group"
	}
	return "user"
}
