package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

type PgSessionRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgSessionRepository(db DBTX, logger *slog.Logger) *PgSessionRepository {
	return &PgSessionRepository{db: db, logger: logger}
}

// GetOrCreate upserts against the (agency_id, from_phone_e164) unique index.
// Two near-simultaneous first messages from one sender race on the insert;
// the constraint guarantees both land on the same row.
func (r *PgSessionRepository) GetOrCreate(ctx context.Context, agencyID uuid.UUID, fromPhoneE164 string, now time.Time, ttl time.Duration) (*domain.ConversationSession, error) {
	emptyContext, err := json.Marshal(domain.SessionContext{})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal empty session context: %w", err)
	}

	query := `
		INSERT INTO conversation_sessions (
			id, agency_id, from_phone_e164, state, context,
			last_activity_at, expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		ON CONFLICT (agency_id, from_phone_e164) DO UPDATE SET updated_at = now()
		RETURNING id, state, context, last_activity_at, expires_at, created_at, updated_at
	`
	sess := domain.ConversationSession{
		AgencyID:      agencyID,
		FromPhoneE164: fromPhoneE164,
	}
	var contextJSON []byte
	var state string
	err = queryer(ctx, r.db).QueryRow(ctx, query,
		uuid.New(), agencyID, fromPhoneE164, string(domain.StateAwaitingIntentSelection), emptyContext,
		now, now.Add(ttl),
	).Scan(&sess.ID, &state, &contextJSON, &sess.LastActivityAt, &sess.ExpiresAt, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to get-or-create session", "error", err, "agency_id", agencyID)
		return nil, err
	}

	sess.State = domain.SessionState(state)
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &sess.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session context: %w", err)
		}
	}
	return &sess, nil
}

func (r *PgSessionRepository) Update(ctx context.Context, session *domain.ConversationSession) error {
	contextJSON, err := json.Marshal(session.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal session context: %w", err)
	}

	query := `
		UPDATE conversation_sessions
		SET state = $2, context = $3, last_activity_at = $4, expires_at = $5, updated_at = now()
		WHERE id = $1
	`
	tag, err := queryer(ctx, r.db).Exec(ctx, query,
		session.ID, string(session.State), contextJSON, session.LastActivityAt, session.ExpiresAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update session", "error", err, "session_id", session.ID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
