package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// AuditTopic carries user store audit envelopes.
const AuditTopic = "userstore.audit.v1"

// Envelope is the event shape published on the message bus.
type Envelope struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	SourceService  string    `json:"source_service"`
	OccurredAtUTC  time.Time `json:"occurred_at_utc"`
	CorrelationID  string    `json:"correlation_id"`
	EntityType     string    `json:"entity_type"`
	EntityID       string    `json:"entity_id"`
	PayloadVersion int       `json:"payload_version"`
	Payload        any       `json:"payload"`
}

func Encode(envelope Envelope) ([]byte, error) {
	raw, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("encode envelope %s: %w", envelope.EventID, err)
	}
	return raw, nil
}

// Decode parses raw into an Envelope. Payload is left as decoded JSON.
func Decode(raw []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if envelope.EventID == "" || envelope.EventType == "" {
		return Envelope{}, fmt.Errorf("decode envelope: missing event id or type")
	}
	return envelope, nil
}
