package postgresadapter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	auditevents "userrealm/contexts/identity-access/userstore-service/adapters/events"
	domainerrors "userrealm/contexts/identity-access/userstore-service/domain/errors"
	"userrealm/contexts/identity-access/userstore-service/ports"
	"userrealm/internal/platform/db"
	"userrealm/internal/shared/outbox"

	"gorm.io/gorm/clause"
)

// OutboxStore persists audit events in UM_AUDIT_OUTBOX. It may sit on a data
// source other than the repository's; both join the same unit of work.
type OutboxStore struct {
	ds     *db.Postgres
	logger *slog.Logger
}

func NewOutboxStore(ds *db.Postgres, logger *slog.Logger) *OutboxStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutboxStore{ds: ds, logger: logger}
}

func (s *OutboxStore) AppendOutbox(ctx context.Context, event ports.AuditEvent) error {
	payload, err := auditevents.Encode(event)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:  strings.TrimSpace(event.EventID),
		EventType: strings.TrimSpace(event.EventType),
		Payload:   payload,
		Status:    outbox.StatusPending,
		CreatedAt: event.OccurredAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	tx, err := db.Session(ctx, s.ds)
	if err != nil {
		return fmt.Errorf("%w: %w", domainerrors.ErrRepositoryFailure, err)
	}
	result := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("%w: append outbox: %w", domainerrors.ErrRepositoryFailure, result.Error)
	}
	if result.RowsAffected == 0 {
		s.logger.Warn("duplicate outbox event ignored",
			"event", "userstore_outbox_duplicate",
			"module", "identity-access/userstore-service",
			"layer", "adapter",
			"outbox_id", row.OutboxID,
		)
	}
	return nil
}

func (s *OutboxStore) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	tx, err := db.Session(ctx, s.ds)
	if err != nil {
		return nil, err
	}

	var rows []outboxModel
	if err := tx.
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error; err != nil {
		return nil, err
	}

	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:  row.OutboxID,
			EventType: row.EventType,
			Payload:   append([]byte(nil), row.Payload...),
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (s *OutboxStore) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	tx, err := db.Session(ctx, s.ds)
	if err != nil {
		return err
	}
	result := tx.
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: outbox row %s not found", domainerrors.ErrRepositoryFailure, outboxID)
	}
	return nil
}

type outboxModel struct {
	OutboxID    string     `gorm:"column:outbox_id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "um_audit_outbox"
}
