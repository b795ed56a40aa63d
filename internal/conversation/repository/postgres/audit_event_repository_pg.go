package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

type PgAuditEventRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgAuditEventRepository(db DBTX, logger *slog.Logger) *PgAuditEventRepository {
	return &PgAuditEventRepository{db: db, logger: logger}
}

func (r *PgAuditEventRepository) Record(ctx context.Context, event *domain.AuditEvent) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, agency_id, request_id, event_type, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at
	`
	err = queryer(ctx, r.db).QueryRow(ctx, query,
		event.ID, event.AgencyID, event.RequestID, event.EventType, metadataJSON,
	).Scan(&event.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to record audit event", "error", err, "event_type", event.EventType)
		return err
	}
	return nil
}
