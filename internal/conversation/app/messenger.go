package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/covertext/smsflow/internal/conversation/domain"
	"github.com/covertext/smsflow/internal/conversation/provider"
)

// Messenger is the outbound capability consumed by the conversation state
// machine: send a message, record it.
type Messenger interface {
	SendSMS(ctx context.Context, agency *domain.Agency, toPhone, body string, requestID uuid.NullUUID) (*domain.MessageLog, error)
	SendMMS(ctx context.Context, agency *domain.Agency, toPhone, body, mediaURL string, requestID uuid.NullUUID) (*domain.MessageLog, error)
}

// OutboundMessenger sends through a provider adapter and records an outbound
// MessageLog row for every attempt. The log is written even when the provider
// fails (with no provider message id) before the error is re-raised: intent
// to send is always recorded.
type OutboundMessenger struct {
	provider   provider.MessageProvider
	messages   domain.MessageLogRepository
	deliveries domain.DeliveryRepository
	logger     *slog.Logger
}

func NewOutboundMessenger(
	p provider.MessageProvider,
	messages domain.MessageLogRepository,
	deliveries domain.DeliveryRepository,
	logger *slog.Logger,
) *OutboundMessenger {
	return &OutboundMessenger{
		provider:   p,
		messages:   messages,
		deliveries: deliveries,
		logger:     logger.With("component", "outbound_messenger"),
	}
}

func (m *OutboundMessenger) SendSMS(ctx context.Context, agency *domain.Agency, toPhone, body string, requestID uuid.NullUUID) (*domain.MessageLog, error) {
	resp, sendErr := m.provider.Send(ctx, provider.SendRequest{
		From: agency.PhoneSMS,
		To:   toPhone,
		Body: body,
	})

	msgLog := m.newOutboundLog(agency, toPhone, body, requestID, 0)
	if sendErr == nil && resp != nil {
		msgLog.ProviderMessageID = resp.ProviderMessageID
	}

	if err := m.messages.Create(ctx, msgLog); err != nil {
		return nil, fmt.Errorf("failed to record outbound message: %w", err)
	}
	repliesSentCounter.WithLabelValues("sms").Inc()

	if sendErr != nil {
		m.logger.ErrorContext(ctx, "SMS send failed; message logged without provider id",
			"error", sendErr, "to", toPhone, "message_log_id", msgLog.ID)
		return msgLog, fmt.Errorf("sms send failed: %w", sendErr)
	}
	return msgLog, nil
}

func (m *OutboundMessenger) SendMMS(ctx context.Context, agency *domain.Agency, toPhone, body, mediaURL string, requestID uuid.NullUUID) (*domain.MessageLog, error) {
	resp, sendErr := m.provider.Send(ctx, provider.SendRequest{
		From:      agency.PhoneSMS,
		To:        toPhone,
		Body:      body,
		MediaURLs: []string{mediaURL},
	})

	msgLog := m.newOutboundLog(agency, toPhone, body, requestID, 1)
	deliveryStatus := domain.DeliveryStatusQueued
	if sendErr != nil {
		deliveryStatus = domain.DeliveryStatusFailed
	} else if resp != nil {
		msgLog.ProviderMessageID = resp.ProviderMessageID
	}

	if err := m.messages.Create(ctx, msgLog); err != nil {
		return nil, fmt.Errorf("failed to record outbound message: %w", err)
	}
	repliesSentCounter.WithLabelValues("mms").Inc()

	if requestID.Valid {
		delivery := &domain.Delivery{
			ID:                uuid.New(),
			RequestID:         requestID.UUID,
			Method:            domain.DeliveryMethodMMS,
			Status:            deliveryStatus,
			ProviderMessageID: msgLog.ProviderMessageID,
		}
		if err := m.deliveries.Create(ctx, delivery); err != nil {
			return nil, fmt.Errorf("failed to record delivery: %w", err)
		}
	}

	if sendErr != nil {
		m.logger.ErrorContext(ctx, "MMS send failed; message logged without provider id",
			"error", sendErr, "to", toPhone, "message_log_id", msgLog.ID)
		return msgLog, fmt.Errorf("mms send failed: %w", sendErr)
	}
	return msgLog, nil
}

func (m *OutboundMessenger) newOutboundLog(agency *domain.Agency, toPhone, body string, requestID uuid.NullUUID, mediaCount int) *domain.MessageLog {
	return &domain.MessageLog{
		ID:         uuid.New(),
		AgencyID:   agency.ID,
		RequestID:  requestID,
		Direction:  domain.DirectionOutbound,
		FromPhone:  agency.PhoneSMS,
		ToPhone:    toPhone,
		Body:       body,
		MediaCount: mediaCount,
	}
}
