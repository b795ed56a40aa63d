package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

type PgDeliveryRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgDeliveryRepository(db DBTX, logger *slog.Logger) *PgDeliveryRepository {
	return &PgDeliveryRepository{db: db, logger: logger}
}

func (r *PgDeliveryRepository) Create(ctx context.Context, delivery *domain.Delivery) error {
	query := `
		INSERT INTO deliveries (id, request_id, method, status, provider_message_id, last_status_at, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, now())
		RETURNING created_at
	`
	err := queryer(ctx, r.db).QueryRow(ctx, query,
		delivery.ID, delivery.RequestID, delivery.Method, delivery.Status,
		delivery.ProviderMessageID, delivery.LastStatusAt,
	).Scan(&delivery.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create delivery", "error", err, "request_id", delivery.RequestID)
		return err
	}
	return nil
}

// UpdateStatusByProviderMessageID applies a provider delivery callback. Returns
// domain.ErrNotFound when no delivery carries the provider message id, which
// callers treat as a callback for a message we did not send.
func (r *PgDeliveryRepository) UpdateStatusByProviderMessageID(ctx context.Context, providerMessageID, status string, at time.Time) error {
	query := `
		UPDATE deliveries
		SET status = $2, last_status_at = $3
		WHERE provider_message_id = $1
	`
	tag, err := queryer(ctx, r.db).Exec(ctx, query, providerMessageID, status, at)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update delivery status", "error", err, "provider_message_id", providerMessageID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
