package http

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	chi_middleware "github.com/go-chi/chi/v5/middleware"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

// StatusHandler accepts Telnyx delivery-status webhooks and moves the matching
// delivery row through its lifecycle. It always replies 200 once the payload
// parses: status callbacks are best-effort and a retry storm helps nobody.
type StatusHandler struct {
	deliveryRepo domain.DeliveryRepository
	publicKey    ed25519.PublicKey
	logger       *slog.Logger
}

func NewStatusHandler(deliveryRepo domain.DeliveryRepository, publicKey ed25519.PublicKey, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{
		deliveryRepo: deliveryRepo,
		publicKey:    publicKey,
		logger:       logger.With("handler", "status"),
	}
}

// deliveryStatusFrom maps a Telnyx recipient status onto the delivery
// lifecycle. Unknown statuses map to empty and are ignored.
func deliveryStatusFrom(providerStatus string) string {
	switch providerStatus {
	case "delivered":
		return domain.DeliveryStatusDelivered
	case "delivery_failed", "sending_failed", "delivery_unconfirmed":
		return domain.DeliveryStatusFailed
	default:
		return ""
	}
}

// HandleStatus handles message.finalized webhooks from Telnyx.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
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
		logger.WarnContext(ctx, "Rejected status webhook with invalid signature")
		http.Error(w, "Invalid signature", http.StatusForbidden)
		return
	}

	var req TelnyxWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.ErrorContext(ctx, "Failed to decode status webhook JSON", "error", err)
		http.Error(w, "Invalid JSON format: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Data.EventType != eventTypeMessageFinalized {
		w.WriteHeader(http.StatusOK)
		return
	}

	payload := req.Data.Payload
	if payload.ID == "" || len(payload.To) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}

	status := deliveryStatusFrom(payload.To[0].Status)
	if status == "" {
		logger.InfoContext(ctx, "Ignoring unrecognized delivery status",
			"provider_message_id", payload.ID, "provider_status", payload.To[0].Status)
		w.WriteHeader(http.StatusOK)
		return
	}

	at := req.Data.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	err = h.deliveryRepo.UpdateStatusByProviderMessageID(ctx, payload.ID, status, at)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Status for a message that was not an MMS delivery (plain
			// outbound SMS) or that another system sent.
			logger.InfoContext(ctx, "No delivery for status callback", "provider_message_id", payload.ID)
		} else {
			logger.ErrorContext(ctx, "Failed to update delivery status", "error", err, "provider_message_id", payload.ID)
		}
	} else {
		logger.InfoContext(ctx, "Delivery status updated", "provider_message_id", payload.ID, "status", status)
	}

	w.WriteHeader(http.StatusOK)
}
