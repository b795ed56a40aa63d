package http

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/covertext/smsflow/internal/conversation/app"
	"github.com/covertext/smsflow/internal/conversation/domain"
)

const (
	eventTypeMessageReceived  = "message.received"
	eventTypeMessageFinalized = "message.finalized"

	headerTelnyxSignature = "Telnyx-Signature-Ed25519"
	headerTelnyxTimestamp = "Telnyx-Timestamp"
)

// EventPublisher is the one broker operation this handler needs; the NATS
// client satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// InboundHandler accepts Telnyx inbound-message webhooks. It persists and
// de-duplicates the message, then hands it to the async pipeline; all
// conversation logic runs off the request path.
type InboundHandler struct {
	agencyRepo  domain.AgencyRepository
	messageRepo domain.MessageLogRepository
	publisher   EventPublisher
	publicKey   ed25519.PublicKey
	logger      *slog.Logger
	validate    *validator.Validate
}

// NewInboundHandler creates a new InboundHandler. publicKey may be nil, in
// which case signature verification is skipped (local development with the
// mock provider).
func NewInboundHandler(
	agencyRepo domain.AgencyRepository,
	messageRepo domain.MessageLogRepository,
	publisher EventPublisher,
	publicKey ed25519.PublicKey,
	logger *slog.Logger,
	validate *validator.Validate,
) *InboundHandler {
	return &InboundHandler{
		agencyRepo:  agencyRepo,
		messageRepo: messageRepo,
		publisher:   publisher,
		publicKey:   publicKey,
		logger:      logger.With("handler", "inbound"),
		validate:    validate,
	}
}

// verifySignature checks the Telnyx ed25519 signature over "timestamp|body".
func verifySignature(publicKey ed25519.PublicKey, r *http.Request, body []byte) bool {
	if publicKey == nil {
		return true
	}
	sigB64 := r.Header.Get(headerTelnyxSignature)
	timestamp := r.Header.Get(headerTelnyxTimestamp)
	if sigB64 == "" || timestamp == "" {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	signed := make([]byte, 0, len(timestamp)+1+len(body))
	signed = append(signed, timestamp...)
	signed = append(signed, '|')
	signed = append(signed, body...)
	return ed25519.Verify(publicKey, signed, sig)
}

// HandleInbound handles message.received webhooks from Telnyx.
func (h *InboundHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to read webhook body", "error", err)
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}
	defer r.Body.Close()

	if !verifySignature(h.publicKey, r, body) {
		logger.WarnContext(ctx, "Rejected webhook with invalid signature")
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	var req TelnyxWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.ErrorContext(ctx, "Failed to decode webhook JSON", "error", err)
		http.Error(w, "Invalid JSON format: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		logger.ErrorContext(ctx, "Failed to validate webhook request", "error", err)
		http.Error(w, "Validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	// Telnyx fans every event type at the configured URL; only inbound
	// messages matter here. Acknowledge the rest so they are not retried.
	if req.Data.EventType != eventTypeMessageReceived {
		w.WriteHeader(http.StatusOK)
		return
	}

	payload := req.Data.Payload
	if payload.ID == "" || payload.From.PhoneNumber == "" || len(payload.To) == 0 {
		logger.WarnContext(ctx, "Webhook payload missing required fields", "provider_message_id", payload.ID)
		http.Error(w, "Payload missing required fields", http.StatusBadRequest)
		return
	}
	toPhone := payload.To[0].PhoneNumber

	agency, err := h.agencyRepo.GetByPhone(ctx, toPhone)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.WarnContext(ctx, "Inbound message for unknown agency number", "to_phone", toPhone)
			http.Error(w, "Unknown destination number", http.StatusNotFound)
			return
		}
		logger.ErrorContext(ctx, "Failed to resolve agency", "error", err, "to_phone", toPhone)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	logger = logger.With("agency_id", agency.ID, "provider_message_id", payload.ID)

	// Provider retries redeliver the same payload; the provider message id is
	// the idempotency key.
	if _, err := h.messageRepo.GetByProviderMessageID(ctx, payload.ID); err == nil {
		logger.InfoContext(ctx, "Duplicate inbound message acknowledged")
		w.WriteHeader(http.StatusOK)
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		logger.ErrorContext(ctx, "Failed to check for duplicate message", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	msg := &domain.MessageLog{
		ID:                uuid.New(),
		AgencyID:          agency.ID,
		Direction:         domain.DirectionInbound,
		FromPhone:         payload.From.PhoneNumber,
		ToPhone:           toPhone,
		Body:              payload.Text,
		ProviderMessageID: payload.ID,
		MediaCount:        len(payload.Media),
	}
	if err := h.messageRepo.Create(ctx, msg); err != nil {
		if errors.Is(err, domain.ErrDuplicateMessage) {
			// Lost a race with a concurrent delivery of the same webhook.
			logger.InfoContext(ctx, "Duplicate inbound message acknowledged after insert race")
			w.WriteHeader(http.StatusOK)
			return
		}
		logger.ErrorContext(ctx, "Failed to persist inbound message", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	event := app.InboundEvent{
		MessageLogID: msg.ID,
		AgencyID:     agency.ID,
		FromPhone:    msg.FromPhone,
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to marshal inbound event", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if err := h.publisher.Publish(ctx, app.SubjectInboundReceived, data); err != nil {
		logger.ErrorContext(ctx, "Failed to publish inbound event", "error", err, "subject", app.SubjectInboundReceived)
		http.Error(w, "Failed to queue message for processing", http.StatusInternalServerError)
		return
	}

	logger.InfoContext(ctx, "Inbound message accepted", "message_log_id", msg.ID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}
