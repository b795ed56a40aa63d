package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageDirection distinguishes inbound from outbound message log rows.
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// MessageLog is the immutable record of one SMS/MMS, inbound or outbound.
// ProviderMessageID is empty when the provider send failed or was never
// attempted; for inbound rows it is the provider's id and drives
// de-duplication.
type MessageLog struct {
	ID                uuid.UUID        `json:"id"`
	AgencyID          uuid.UUID        `json:"agency_id"`
	RequestID         uuid.NullUUID    `json:"request_id,omitempty"`
	Direction         MessageDirection `json:"direction"`
	FromPhone         string           `json:"from_phone"`
	ToPhone           string           `json:"to_phone"`
	Body              string           `json:"body"`
	ProviderMessageID string           `json:"provider_message_id,omitempty"`
	MediaCount        int              `json:"media_count"`
	CreatedAt         time.Time        `json:"created_at"`
}
