package domain

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const (
	RequestTypeAutoIDCard       = "auto_id_card"
	RequestTypePolicyExpiration = "policy_expiration"

	RequestStatusFulfilled = "fulfilled"
)

// Request represents one fulfilled self-service ask. Created only when
// fulfillment succeeds; a failed card fulfillment rolls the row back with the
// enclosing transaction.
type Request struct {
	ID            uuid.UUID     `json:"id"`
	AgencyID      uuid.UUID     `json:"agency_id"`
	ContactID     uuid.NullUUID `json:"contact_id,omitempty"`
	RequestType   string        `json:"request_type"`
	Status        string        `json:"status"`
	SelectedRef   string        `json:"selected_ref"`
	InboundBody   string        `json:"inbound_body"`
	FailureReason string        `json:"failure_reason,omitempty"`
	FulfilledAt   sql.NullTime  `json:"fulfilled_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

const (
	DeliveryMethodMMS = "mms"

	DeliveryStatusQueued    = "queued"
	DeliveryStatusDelivered = "delivered"
	DeliveryStatusFailed    = "failed"
)

// Delivery tracks the lifecycle of an MMS send tied to a Request. Status is
// updated from provider delivery callbacks.
type Delivery struct {
	ID                uuid.UUID    `json:"id"`
	RequestID         uuid.UUID    `json:"request_id"`
	Method            string       `json:"method"`
	Status            string       `json:"status"`
	ProviderMessageID string       `json:"provider_message_id,omitempty"`
	LastStatusAt      sql.NullTime `json:"last_status_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}
