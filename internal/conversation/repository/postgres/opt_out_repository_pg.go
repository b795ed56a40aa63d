package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

type PgOptOutRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgOptOutRepository(db DBTX, logger *slog.Logger) *PgOptOutRepository {
	return &PgOptOutRepository{db: db, logger: logger}
}

func (r *PgOptOutRepository) Get(ctx context.Context, agencyID uuid.UUID, phoneE164 string) (*domain.SmsOptOut, error) {
	query := `
		SELECT id, agency_id, phone_e164, opted_out_at, last_block_notice_at, created_at
		FROM sms_opt_outs
		WHERE agency_id = $1 AND phone_e164 = $2
	`
	var o domain.SmsOptOut
	err := queryer(ctx, r.db).QueryRow(ctx, query, agencyID, phoneE164).Scan(
		&o.ID, &o.AgencyID, &o.PhoneE164, &o.OptedOutAt, &o.LastBlockNoticeAt, &o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to get opt-out", "error", err, "agency_id", agencyID)
		return nil, err
	}
	return &o, nil
}

// Upsert creates the opt-out or, when the sender already opted out, refreshes
// the opt-out timestamp.
func (r *PgOptOutRepository) Upsert(ctx context.Context, optOut *domain.SmsOptOut) error {
	query := `
		INSERT INTO sms_opt_outs (id, agency_id, phone_e164, opted_out_at, created_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (agency_id, phone_e164) DO UPDATE SET opted_out_at = EXCLUDED.opted_out_at
	`
	_, err := queryer(ctx, r.db).Exec(ctx, query, optOut.ID, optOut.AgencyID, optOut.PhoneE164, optOut.OptedOutAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to upsert opt-out", "error", err, "agency_id", optOut.AgencyID)
		return err
	}
	return nil
}

func (r *PgOptOutRepository) Delete(ctx context.Context, agencyID uuid.UUID, phoneE164 string) error {
	query := `DELETE FROM sms_opt_outs WHERE agency_id = $1 AND phone_e164 = $2`
	_, err := queryer(ctx, r.db).Exec(ctx, query, agencyID, phoneE164)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete opt-out", "error", err, "agency_id", agencyID)
	}
	return err
}

func (r *PgOptOutRepository) MarkBlockNoticeSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE sms_opt_outs SET last_block_notice_at = $2 WHERE id = $1`
	tag, err := queryer(ctx, r.db).Exec(ctx, query, id, at)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark block notice sent", "error", err, "opt_out_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
