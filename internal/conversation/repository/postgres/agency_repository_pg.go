package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

type PgAgencyRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgAgencyRepository(db DBTX, logger *slog.Logger) *PgAgencyRepository {
	return &PgAgencyRepository{db: db, logger: logger}
}

const agencyColumns = `id, name, phone_sms, active, created_at, updated_at`

func (r *PgAgencyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agency, error) {
	query := `SELECT ` + agencyColumns + ` FROM agencies WHERE id = $1`
	return r.scanAgency(ctx, queryer(ctx, r.db).QueryRow(ctx, query, id))
}

func (r *PgAgencyRepository) GetByPhone(ctx context.Context, phoneE164 string) (*domain.Agency, error) {
	query := `SELECT ` + agencyColumns + ` FROM agencies WHERE phone_sms = $1`
	return r.scanAgency(ctx, queryer(ctx, r.db).QueryRow(ctx, query, phoneE164))
}

func (r *PgAgencyRepository) scanAgency(ctx context.Context, row pgx.Row) (*domain.Agency, error) {
	var a domain.Agency
	err := row.Scan(&a.ID, &a.Name, &a.PhoneSMS, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to scan agency", "error", err)
		return nil, err
	}
	return &a, nil
}
