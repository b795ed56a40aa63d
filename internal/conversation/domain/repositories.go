package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AgencyRepository resolves tenants.
type AgencyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Agency, error)
	// GetByPhone resolves the agency owning an inbound "to" number.
	GetByPhone(ctx context.Context, phoneE164 string) (*Agency, error)
}

// ContactRepository looks up policyholders.
type ContactRepository interface {
	GetByPhone(ctx context.Context, agencyID uuid.UUID, mobilePhoneE164 string) (*Contact, error)
}

// PolicyRepository looks up policies and their card documents.
type PolicyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Policy, error)
	// ListByContact returns the contact's policies in creation order.
	// policyType filters by type; empty string returns all.
	ListByContact(ctx context.Context, contactID uuid.UUID, policyType string) ([]*Policy, error)
	// GetCardDocument returns the policy's identity-card document.
	GetCardDocument(ctx context.Context, policyID uuid.UUID) (*Document, error)
}

// SessionRepository owns conversation session rows. GetOrCreate upserts
// against the (agency_id, from_phone_e164) unique index so concurrent
// first messages from one sender cannot create two sessions.
type SessionRepository interface {
	GetOrCreate(ctx context.Context, agencyID uuid.UUID, fromPhoneE164 string, now time.Time, ttl time.Duration) (*ConversationSession, error)
	Update(ctx context.Context, session *ConversationSession) error
}

// MessageLogRepository appends and queries the immutable message log.
type MessageLogRepository interface {
	Create(ctx context.Context, msg *MessageLog) error
	GetByID(ctx context.Context, id uuid.UUID) (*MessageLog, error)
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*MessageLog, error)
	// CountInbound counts inbound rows for (agency, phone) created at or
	// after since. The current message is already persisted, so it counts.
	CountInbound(ctx context.Context, agencyID uuid.UUID, fromPhone string, since time.Time) (int, error)
}

// RequestRepository persists fulfilled self-service requests.
type RequestRepository interface {
	Create(ctx context.Context, req *Request) error
}

// DeliveryRepository tracks MMS delivery lifecycles.
type DeliveryRepository interface {
	Create(ctx context.Context, d *Delivery) error
	UpdateStatusByProviderMessageID(ctx context.Context, providerMessageID, status string, at time.Time) error
}

// AuditEventRepository appends structured audit events.
type AuditEventRepository interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// OptOutRepository owns STOP-list rows, unique per (agency, phone).
type OptOutRepository interface {
	Get(ctx context.Context, agencyID uuid.UUID, phoneE164 string) (*SmsOptOut, error)
	Upsert(ctx context.Context, optOut *SmsOptOut) error
	Delete(ctx context.Context, agencyID uuid.UUID, phoneE164 string) error
	MarkBlockNoticeSent(ctx context.Context, id uuid.UUID, at time.Time) error
}

// TxRunner runs fn inside one storage transaction. Repository calls made with
// the ctx passed to fn join that transaction; the Postgres binding carries the
// pgx.Tx through the context. Nested calls join the outer transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
