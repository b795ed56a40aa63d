package domain

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	sess := &ConversationSession{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, sess.Expired(now))

	sess.ExpiresAt = now.Add(-time.Second)
	assert.True(t, sess.Expired(now))

	// Zero expiry means the row predates expiry tracking; never expired.
	sess.ExpiresAt = time.Time{}
	assert.False(t, sess.Expired(now))
}

func TestSessionReset(t *testing.T) {
	sess := &ConversationSession{
		State: StateAwaitingVehicleSelection,
		Context: SessionContext{
			Options: []MenuOption{{Key: "1", Ref: uuid.New(), Label: "2021 Honda Civic"}},
			Intent:  "insurance_card",
		},
	}

	sess.Reset()

	assert.Equal(t, StateAwaitingIntentSelection, sess.State)
	assert.Empty(t, sess.Context.Options)
	assert.Empty(t, sess.Context.Intent)
}

func TestSessionContextFindOption(t *testing.T) {
	ref := uuid.New()
	ctx := SessionContext{Options: []MenuOption{
		{Key: "1", Ref: ref, Label: "2021 Honda Civic"},
		{Key: "2", Ref: uuid.New(), Label: "2019 Ford F-150"},
	}}

	opt := ctx.FindOption("1")
	assert.NotNil(t, opt)
	assert.Equal(t, ref, opt.Ref)

	assert.Nil(t, ctx.FindOption("3"))
	assert.Nil(t, ctx.FindOption(""))
}

func TestShouldSendBlockNotice(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	interval := 24 * time.Hour

	optOut := &SmsOptOut{}
	assert.True(t, optOut.ShouldSendBlockNotice(now, interval), "never notified")

	optOut.LastBlockNoticeAt = sql.NullTime{Time: now.Add(-2 * time.Hour), Valid: true}
	assert.False(t, optOut.ShouldSendBlockNotice(now, interval), "notified recently")

	optOut.LastBlockNoticeAt = sql.NullTime{Time: now.Add(-25 * time.Hour), Valid: true}
	assert.True(t, optOut.ShouldSendBlockNotice(now, interval), "window elapsed")
}

func TestDocumentAttached(t *testing.T) {
	var doc *Document
	assert.False(t, doc.Attached())

	doc = &Document{}
	assert.False(t, doc.Attached())

	doc.FileKey = "cards/card.pdf"
	assert.True(t, doc.Attached())
}
