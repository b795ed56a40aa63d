package postgres

import (
	"context"
	"log/slog"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

type PgRequestRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgRequestRepository(db DBTX, logger *slog.Logger) *PgRequestRepository {
	return &PgRequestRepository{db: db, logger: logger}
}

func (r *PgRequestRepository) Create(ctx context.Context, req *domain.Request) error {
	query := `
		INSERT INTO requests (
			id, agency_id, contact_id, request_type, status,
			selected_ref, inbound_body, failure_reason, fulfilled_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, now())
		RETURNING created_at
	`
	err := queryer(ctx, r.db).QueryRow(ctx, query,
		req.ID, req.AgencyID, req.ContactID, req.RequestType, req.Status,
		req.SelectedRef, req.InboundBody, req.FailureReason, req.FulfilledAt,
	).Scan(&req.CreatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create request", "error", err, "agency_id", req.AgencyID, "request_type", req.RequestType)
		return err
	}
	return nil
}
