package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionState enumerates the conversation states. Keeping this a named type
// (rather than raw strings compared inline) keeps the transition switch
// exhaustive and testable.
type SessionState string

const (
	StateAwaitingIntentSelection  SessionState = "awaiting_intent_selection"
	StateAwaitingVehicleSelection SessionState = "awaiting_vehicle_selection"
	StateAwaitingPolicySelection  SessionState = "awaiting_policy_selection"
	StateComplete                 SessionState = "complete"
)

// MenuOption is one numbered entry of an in-flow selection menu.
type MenuOption struct {
	Key   string    `json:"key"`
	Ref   uuid.UUID `json:"ref"`
	Label string    `json:"label"`
}

// SessionContext is the transient per-session payload. It is serialized to
// jsonb at the storage boundary; LastMenuSentAt marshals as an ISO8601 string.
type SessionContext struct {
	Options        []MenuOption `json:"options,omitempty"`
	Intent         string       `json:"intent,omitempty"`
	LastMenuSentAt *time.Time   `json:"last_menu_sent_at,omitempty"`
}

// FindOption returns the option whose key equals the (already normalized)
// typed selection, or nil.
func (c *SessionContext) FindOption(key string) *MenuOption {
	for i := range c.Options {
		if c.Options[i].Key == key {
			return &c.Options[i]
		}
	}
	return nil
}

// ConversationSession is the per-(agency, phone) conversational state with a
// sliding expiry. At most one session exists per pair, enforced by a unique
// index on (agency_id, from_phone_e164).
type ConversationSession struct {
	ID             uuid.UUID      `json:"id"`
	AgencyID       uuid.UUID      `json:"agency_id"`
	FromPhoneE164  string         `json:"from_phone_e164"`
	State          SessionState   `json:"state"`
	Context        SessionContext `json:"context"`
	LastActivityAt time.Time      `json:"last_activity_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Expired reports whether the session's TTL has elapsed.
func (s *ConversationSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}

// Reset clears transient context and returns the session to the main menu.
// The row itself is kept; sessions are reset, not deleted.
func (s *ConversationSession) Reset() {
	s.State = StateAwaitingIntentSelection
	s.Context = SessionContext{}
}
