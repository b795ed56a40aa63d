package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

type PgContactRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgContactRepository(db DBTX, logger *slog.Logger) *PgContactRepository {
	return &PgContactRepository{db: db, logger: logger}
}

func (r *PgContactRepository) GetByPhone(ctx context.Context, agencyID uuid.UUID, mobilePhoneE164 string) (*domain.Contact, error) {
	query := `
		SELECT id, agency_id, first_name, last_name, mobile_phone_e164, created_at, updated_at
		FROM contacts
		WHERE agency_id = $1 AND mobile_phone_e164 = $2
	`
	var c domain.Contact
	err := queryer(ctx, r.db).QueryRow(ctx, query, agencyID, mobilePhoneE164).Scan(
		&c.ID, &c.AgencyID, &c.FirstName, &c.LastName, &c.MobilePhoneE164, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to get contact by phone", "error", err, "agency_id", agencyID)
		return nil, err
	}
	return &c, nil
}
