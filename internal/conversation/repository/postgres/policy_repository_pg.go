package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

type PgPolicyRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgPolicyRepository(db DBTX, logger *slog.Logger) *PgPolicyRepository {
	return &PgPolicyRepository{db: db, logger: logger}
}

const policyColumns = `id, contact_id, label, policy_type, expires_on, created_at, updated_at`

func (r *PgPolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE id = $1`
	var p domain.Policy
	err := queryer(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ContactID, &p.Label, &p.PolicyType, &p.ExpiresOn, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to get policy", "error", err, "policy_id", id)
		return nil, err
	}
	return &p, nil
}

// ListByContact returns policies in creation order; the menu keys "1".."N"
// are assigned from this ordering.
func (r *PgPolicyRepository) ListByContact(ctx context.Context, contactID uuid.UUID, policyType string) ([]*domain.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE contact_id = $1`
	args := []any{contactID}
	if policyType != "" {
		query += ` AND policy_type = $2`
		args = append(args, policyType)
	}
	query += ` ORDER BY created_at, id`

	rows, err := queryer(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list policies", "error", err, "contact_id", contactID)
		return nil, err
	}
	defer rows.Close()

	var policies []*domain.Policy
	for rows.Next() {
		var p domain.Policy
		if err := rows.Scan(&p.ID, &p.ContactID, &p.Label, &p.PolicyType, &p.ExpiresOn, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		policies = append(policies, &p)
	}
	return policies, rows.Err()
}

func (r *PgPolicyRepository) GetCardDocument(ctx context.Context, policyID uuid.UUID) (*domain.Document, error) {
	query := `
		SELECT id, policy_id, kind, COALESCE(file_key, ''), created_at
		FROM documents
		WHERE policy_id = $1 AND kind = $2
		LIMIT 1
	`
	var d domain.Document
	err := queryer(ctx, r.db).QueryRow(ctx, query, policyID, domain.DocumentKindAutoIDCard).Scan(
		&d.ID, &d.PolicyID, &d.Kind, &d.FileKey, &d.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to get card document", "error", err, "policy_id", policyID)
		return nil, err
	}
	return &d, nil
}
