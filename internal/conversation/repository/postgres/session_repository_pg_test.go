package postgres

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

func setupSessionTest(t *testing.T) (*PgSessionRepository, pgxmock.PgxPoolIface) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPgSessionRepository(mockPool, logger), mockPool
}

func TestPgSessionRepository_GetOrCreate(t *testing.T) {
	repo, mockPool := setupSessionTest(t)
	defer mockPool.Close()

	agencyID := uuid.New()
	now := time.Now().UTC()
	ttl := 15 * time.Minute

	t.Run("ExistingSessionReturned", func(t *testing.T) {
		existingID := uuid.New()
		storedContext, err := json.Marshal(domain.SessionContext{
			Options: []domain.MenuOption{{Key: "1", Ref: uuid.New(), Label: "2021 Honda Civic"}},
			Intent:  "insurance_card",
		})
		require.NoError(t, err)

		rows := mockPool.NewRows([]string{"id", "state", "context", "last_activity_at", "expires_at", "created_at", "updated_at"}).
			AddRow(existingID, "awaiting_vehicle_selection", storedContext, now, now.Add(ttl), now.Add(-time.Hour), now)

		mockPool.ExpectQuery(`INSERT INTO conversation_sessions`).
			WithArgs(pgxmock.AnyArg(), agencyID, "+15559992222", "awaiting_intent_selection", pgxmock.AnyArg(), now, now.Add(ttl)).
			WillReturnRows(rows)

		sess, err := repo.GetOrCreate(context.Background(), agencyID, "+15559992222", now, ttl)
		require.NoError(t, err)
		assert.Equal(t, existingID, sess.ID)
		assert.Equal(t, domain.StateAwaitingVehicleSelection, sess.State)
		require.Len(t, sess.Context.Options, 1)
		assert.Equal(t, "2021 Honda Civic", sess.Context.Options[0].Label)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NewSessionCreated", func(t *testing.T) {
		newID := uuid.New()
		rows := mockPool.NewRows([]string{"id", "state", "context", "last_activity_at", "expires_at", "created_at", "updated_at"}).
			AddRow(newID, "awaiting_intent_selection", []byte(`{}`), now, now.Add(ttl), now, now)

		mockPool.ExpectQuery(`INSERT INTO conversation_sessions`).
			WithArgs(pgxmock.AnyArg(), agencyID, "+15559992222", "awaiting_intent_selection", pgxmock.AnyArg(), now, now.Add(ttl)).
			WillReturnRows(rows)

		sess, err := repo.GetOrCreate(context.Background(), agencyID, "+15559992222", now, ttl)
		require.NoError(t, err)
		assert.Equal(t, newID, sess.ID)
		assert.Equal(t, domain.StateAwaitingIntentSelection, sess.State)
		assert.Empty(t, sess.Context.Options)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgSessionRepository_Update(t *testing.T) {
	repo, mockPool := setupSessionTest(t)
	defer mockPool.Close()

	now := time.Now().UTC()
	sess := &domain.ConversationSession{
		ID:             uuid.New(),
		State:          domain.StateAwaitingVehicleSelection,
		LastActivityAt: now,
		ExpiresAt:      now.Add(15 * time.Minute),
	}
	contextJSON, err := json.Marshal(sess.Context)
	require.NoError(t, err)

	t.Run("Updated", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE conversation_sessions`).
			WithArgs(sess.ID, "awaiting_vehicle_selection", contextJSON, sess.LastActivityAt, sess.ExpiresAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.Update(context.Background(), sess))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("MissingRow", func(t *testing.T) {
		mockPool.ExpectExec(`UPDATE conversation_sessions`).
			WithArgs(sess.ID, "awaiting_vehicle_selection", contextJSON, sess.LastActivityAt, sess.ExpiresAt).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.ErrorIs(t, repo.Update(context.Background(), sess), domain.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
