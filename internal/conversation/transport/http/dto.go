package http

import "time"

// Telnyx webhook envelope. Only the fields the service acts on are decoded.

type TelnyxWebhookRequest struct {
	Data TelnyxWebhookData `json:"data" validate:"required"`
}

type TelnyxWebhookData struct {
	EventType  string               `json:"event_type" validate:"required"`
	ID         string               `json:"id"`
	OccurredAt time.Time            `json:"occurred_at"`
	Payload    TelnyxWebhookPayload `json:"payload"`
}

type TelnyxWebhookPayload struct {
	ID    string            `json:"id"`
	From  TelnyxPhoneParty  `json:"from"`
	To    []TelnyxToParty   `json:"to"`
	Text  string            `json:"text"`
	Media []TelnyxMediaItem `json:"media"`
}

type TelnyxPhoneParty struct {
	PhoneNumber string `json:"phone_number"`
}

// TelnyxToParty carries the per-recipient delivery status on finalized events.
type TelnyxToParty struct {
	PhoneNumber string `json:"phone_number"`
	Status      string `json:"status"`
}

type TelnyxMediaItem struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
}
