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

type PgMessageLogRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgMessageLogRepository(db DBTX, logger *slog.Logger) *PgMessageLogRepository {
	return &PgMessageLogRepository{db: db, logger: logger}
}

func (r *PgMessageLogRepository) Create(ctx context.Context, msg *domain.MessageLog) error {
	query := `
		INSERT INTO message_logs (
			id, agency_id, request_id, direction, from_phone, to_phone,
			body, provider_message_id, media_count, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, now())
	`
	_, err := queryer(ctx, r.db).Exec(ctx, query,
		msg.ID, msg.AgencyID, msg.RequestID, string(msg.Direction),
		msg.FromPhone, msg.ToPhone, msg.Body, msg.ProviderMessageID, msg.MediaCount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateMessage
		}
		r.logger.ErrorContext(ctx, "Failed to insert message log", "error", err, "message_log_id", msg.ID)
		return err
	}
	return nil
}

const messageLogColumns = `
	id, agency_id, request_id, direction, from_phone, to_phone,
	COALESCE(body, ''), COALESCE(provider_message_id, ''), media_count, created_at
`

func (r *PgMessageLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MessageLog, error) {
	query := `SELECT ` + messageLogColumns + ` FROM message_logs WHERE id = $1`
	return r.scanMessageLog(ctx, queryer(ctx, r.db).QueryRow(ctx, query, id))
}

func (r *PgMessageLogRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.MessageLog, error) {
	query := `SELECT ` + messageLogColumns + ` FROM message_logs WHERE provider_message_id = $1 LIMIT 1`
	return r.scanMessageLog(ctx, queryer(ctx, r.db).QueryRow(ctx, query, providerMessageID))
}

func (r *PgMessageLogRepository) CountInbound(ctx context.Context, agencyID uuid.UUID, fromPhone string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM message_logs
		WHERE agency_id = $1 AND from_phone = $2 AND direction = $3 AND created_at >= $4
	`
	var count int
	err := queryer(ctx, r.db).QueryRow(ctx, query, agencyID, fromPhone, string(domain.DirectionInbound), since).Scan(&count)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count inbound messages", "error", err, "agency_id", agencyID)
		return 0, err
	}
	return count, nil
}

func (r *PgMessageLogRepository) scanMessageLog(ctx context.Context, row pgx.Row) (*domain.MessageLog, error) {
	var m domain.MessageLog
	var direction string
	err := row.Scan(
		&m.ID, &m.AgencyID, &m.RequestID, &direction, &m.FromPhone, &m.ToPhone,
		&m.Body, &m.ProviderMessageID, &m.MediaCount, &m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to scan message log", "error", err)
		return nil, err
	}
	m.Direction = domain.MessageDirection(direction)
	return &m, nil
}
