package domain

import (
	"time"

	"github.com/google/uuid"
)

// Audit event types written by the conversation core.
const (
	EventOptedOut        = "sms.opted_out"
	EventOptIn           = "sms.opt_in"
	EventHelpRequested   = "sms.help_requested"
	EventOptedOutBlocked = "sms.opted_out_blocked"
	EventRateLimited     = "sms.rate_limited"
	EventIntentRouted    = "conversation.intent_routed"
	EventMenuSent        = "conversation.menu_sent"
	EventCardFulfilled   = "card.request_fulfilled"
	EventExpireFulfilled = "expire.request_fulfilled"
)

// AuditEvent is an append-only structured record of one decision made while
// processing an inbound message.
type AuditEvent struct {
	ID        uuid.UUID      `json:"id"`
	AgencyID  uuid.UUID      `json:"agency_id"`
	RequestID uuid.NullUUID  `json:"request_id,omitempty"`
	EventType string         `json:"event_type"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}
