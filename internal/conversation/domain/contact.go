package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contact is a policyholder identified by (agency, mobile phone E.164).
type Contact struct {
	ID              uuid.UUID `json:"id"`
	AgencyID        uuid.UUID `json:"agency_id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	MobilePhoneE164 string    `json:"mobile_phone_e164"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PolicyTypeAuto is the policy type eligible for the insurance-card flow.
const PolicyTypeAuto = "auto"

// Policy belongs to one contact and optionally carries an attached
// identity-card document.
type Policy struct {
	ID         uuid.UUID `json:"id"`
	ContactID  uuid.UUID `json:"contact_id"`
	Label      string    `json:"label"`
	PolicyType string    `json:"policy_type"` // e.g. "auto", "homeowners"
	ExpiresOn  time.Time `json:"expires_on"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DocumentKindAutoIDCard identifies the insurance identity-card document.
const DocumentKindAutoIDCard = "auto_id_card"

// Document is a file attached to a policy. FileKey is the storage key of the
// uploaded file; an empty key means nothing was attached.
type Document struct {
	ID        uuid.UUID `json:"id"`
	PolicyID  uuid.UUID `json:"policy_id"`
	Kind      string    `json:"kind"`
	FileKey   string    `json:"file_key"`
	CreatedAt time.Time `json:"created_at"`
}

// Attached reports whether the document has a stored file.
func (d *Document) Attached() bool {
	return d != nil && d.FileKey != ""
}
