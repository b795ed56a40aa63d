package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// SmsOptOut records that a phone number texted STOP to an agency's line.
// Unique per (agency_id, phone_e164).
type SmsOptOut struct {
	ID                uuid.UUID    `json:"id"`
	AgencyID          uuid.UUID    `json:"agency_id"`
	PhoneE164         string       `json:"phone_e164"`
	OptedOutAt        time.Time    `json:"opted_out_at"`
	LastBlockNoticeAt sql.NullTime `json:"last_block_notice_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

// ShouldSendBlockNotice reports whether a "you're blocked" notice may be sent.
// Notices are throttled to one per interval (24h in production).
func (o *SmsOptOut) ShouldSendBlockNotice(now time.Time, interval time.Duration) bool {
	return !o.LastBlockNoticeAt.Valid || o.LastBlockNoticeAt.Time.Before(now.Add(-interval))
}
