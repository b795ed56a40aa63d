package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

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

func statusWebhookBody(t *testing.T, providerMsgID, recipientStatus string, occurredAt time.Time) []byte {
	t.Helper()
	payload := map[string]any{
		"data": map[string]any{
			"event_type":  "message.finalized",
			"occurred_at": occurredAt.Format(time.RFC3339),
			"payload": map[string]any{
				"id": providerMsgID,
				"to": []map[string]any{{"phone_number": "+15559992222", "status": recipientStatus}},
			},
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func TestHandleStatus_MarksDelivered(t *testing.T) {
	deliveries := new(MockDeliveryRepository)
	handler := NewStatusHandler(deliveries, nil, discardLogger())

	occurredAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	deliveries.On("UpdateStatusByProviderMessageID", mock.Anything, "telnyx-abc", domain.DeliveryStatusDelivered, occurredAt).Return(nil)

	body := statusWebhookBody(t, "telnyx-abc", "delivered", occurredAt)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/telnyx/status", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	handler.HandleStatus(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	deliveries.AssertExpectations(t)
}

func TestHandleStatus_MarksFailed(t *testing.T) {
	deliveries := new(MockDeliveryRepository)
	handler := NewStatusHandler(deliveries, nil, discardLogger())

	occurredAt := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	deliveries.On("UpdateStatusByProviderMessageID", mock.Anything, "telnyx-abc", domain.DeliveryStatusFailed, occurredAt).Return(nil)

	body := statusWebhookBody(t, "telnyx-abc", "delivery_failed", occurredAt)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/telnyx/status", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	handler.HandleStatus(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	deliveries.AssertExpectations(t)
}

func TestHandleStatus_IgnoresUnknownStatus(t *testing.T) {
	deliveries := new(MockDeliveryRepository)
	handler := NewStatusHandler(deliveries, nil, discardLogger())

	body := statusWebhookBody(t, "telnyx-abc", "sending", time.Now())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/telnyx/status", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	handler.HandleStatus(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	deliveries.AssertNotCalled(t, "UpdateStatusByProviderMessageID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleStatus_MissingDeliveryStill200(t *testing.T) {
	deliveries := new(MockDeliveryRepository)
	handler := NewStatusHandler(deliveries, nil, discardLogger())

	// Plain SMS finalized events have no delivery row; the callback is still
	// acknowledged so the provider stops retrying.
	deliveries.On("UpdateStatusByProviderMessageID", mock.Anything, "telnyx-sms", domain.DeliveryStatusDelivered, mock.Anything).
		Return(domain.ErrNotFound)

	body := statusWebhookBody(t, "telnyx-sms", "delivered", time.Now())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/telnyx/status", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	handler.HandleStatus(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestHandleStatus_IgnoresOtherEventTypes(t *testing.T) {
	deliveries := new(MockDeliveryRepository)
	handler := NewStatusHandler(deliveries, nil, discardLogger())

	body := []byte(`{"data":{"event_type":"message.sent","payload":{"id":"x"}}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/telnyx/status", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	handler.HandleStatus(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	deliveries.AssertNotCalled(t, "UpdateStatusByProviderMessageID", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
