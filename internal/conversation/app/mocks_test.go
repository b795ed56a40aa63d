package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

// --- Mocks ---

type MockAgencyRepository struct {
	mock.Mock
}

func (m *MockAgencyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agency, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agency), args.Error(1)
}

func (m *MockAgencyRepository) GetByPhone(ctx context.Context, phoneE164 string) (*domain.Agency, error) {
	args := m.Called(ctx, phoneE164)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agency), args.Error(1)
}

type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) GetByPhone(ctx context.Context, agencyID uuid.UUID, mobilePhoneE164 string) (*domain.Contact, error) {
	args := m.Called(ctx, agencyID, mobilePhoneE164)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contact), args.Error(1)
}

type MockPolicyRepository struct {
	mock.Mock
}

func (m *MockPolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Policy, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Policy), args.Error(1)
}

func (m *MockPolicyRepository) ListByContact(ctx context.Context, contactID uuid.UUID, policyType string) ([]*domain.Policy, error) {
	args := m.Called(ctx, contactID, policyType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Policy), args.Error(1)
}

func (m *MockPolicyRepository) GetCardDocument(ctx context.Context, policyID uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) GetOrCreate(ctx context.Context, agencyID uuid.UUID, fromPhoneE164 string, now time.Time, ttl time.Duration) (*domain.ConversationSession, error) {
	args := m.Called(ctx, agencyID, fromPhoneE164, now, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConversationSession), args.Error(1)
}

func (m *MockSessionRepository) Update(ctx context.Context, session *domain.ConversationSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

type MockMessageLogRepository struct {
	mock.Mock
}

func (m *MockMessageLogRepository) Create(ctx context.Context, msg *domain.MessageLog) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MessageLog, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageLog), args.Error(1)
}

func (m *MockMessageLogRepository) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.MessageLog, error) {
	args := m.Called(ctx, providerMessageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageLog), args.Error(1)
}

func (m *MockMessageLogRepository) CountInbound(ctx context.Context, agencyID uuid.UUID, fromPhone string, since time.Time) (int, error) {
	args := m.Called(ctx, agencyID, fromPhone, since)
	return args.Int(0), args.Error(1)
}

type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) Create(ctx context.Context, req *domain.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

type MockDeliveryRepository struct {
	mock.Mock
}

func (m *MockDeliveryRepository) Create(ctx context.Context, d *domain.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeliveryRepository) UpdateStatusByProviderMessageID(ctx context.Context, providerMessageID, status string, at time.Time) error {
	args := m.Called(ctx, providerMessageID, status, at)
	return args.Error(0)
}

type MockAuditEventRepository struct {
	mock.Mock
}

func (m *MockAuditEventRepository) Record(ctx context.Context, event *domain.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockOptOutRepository struct {
	mock.Mock
}

func (m *MockOptOutRepository) Get(ctx context.Context, agencyID uuid.UUID, phoneE164 string) (*domain.SmsOptOut, error) {
	args := m.Called(ctx, agencyID, phoneE164)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SmsOptOut), args.Error(1)
}

func (m *MockOptOutRepository) Upsert(ctx context.Context, optOut *domain.SmsOptOut) error {
	args := m.Called(ctx, optOut)
	return args.Error(0)
}

func (m *MockOptOutRepository) Delete(ctx context.Context, agencyID uuid.UUID, phoneE164 string) error {
	args := m.Called(ctx, agencyID, phoneE164)
	return args.Error(0)
}

func (m *MockOptOutRepository) MarkBlockNoticeSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendSMS(ctx context.Context, agency *domain.Agency, toPhone, body string, requestID uuid.NullUUID) (*domain.MessageLog, error) {
	args := m.Called(ctx, agency, toPhone, body, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageLog), args.Error(1)
}

func (m *MockMessenger) SendMMS(ctx context.Context, agency *domain.Agency, toPhone, body, mediaURL string, requestID uuid.NullUUID) (*domain.MessageLog, error) {
	args := m.Called(ctx, agency, toPhone, body, mediaURL, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MessageLog), args.Error(1)
}

// passthroughTxRunner runs the function directly; repository mocks don't care
// about transaction boundaries.
type passthroughTxRunner struct{}

func (passthroughTxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
