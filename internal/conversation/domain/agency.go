package domain

import (
	"time"

	"github.com/google/uuid"
)

// Agency is a tenant: an insurance agency with its own dedicated sending
// number and policyholder base. Account/billing state lives outside this
// service; the conversation core only needs the sending number.
type Agency struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	PhoneSMS  string    `json:"phone_sms"` // E.164 sending number, unique per agency
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
