package outbox

import "time"

// Row statuses. Rows are written pending inside the unit of work that made
// the change; the relay flips them to published.
const (
	StatusPending   = "pending"
	StatusPublished = "published"
)

// Message is one persisted outbox row.
type Message struct {
	ID          string
	EventType   string
	Payload     []byte
	Status      string
	CreatedAt   time.Time
	PublishedAt *time.Time
}

func (m Message) Pending() bool {
	return m.Status == "" || m.Status == StatusPending
}
