package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

// Config carries the conversation thresholds. They are injected here rather
// than living as package globals so tests can tighten or widen them.
type Config struct {
	SessionTTL          time.Duration
	MenuResendInterval  time.Duration
	RateLimitMaxInbound int
	RateLimitWindow     time.Duration
	BlockNoticeInterval time.Duration
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		SessionTTL:          15 * time.Minute,
		MenuResendInterval:  60 * time.Second,
		RateLimitMaxInbound: 10,
		RateLimitWindow:     time.Hour,
		BlockNoticeInterval: 24 * time.Hour,
	}
}

// DocumentURLBuilder turns a card document into a public media URL for MMS.
type DocumentURLBuilder func(doc *domain.Document) string

// ManagerRepos groups the persistence collaborators of the state machine.
type ManagerRepos struct {
	Agencies domain.AgencyRepository
	Contacts domain.ContactRepository
	Policies domain.PolicyRepository
	Sessions domain.SessionRepository
	Messages domain.MessageLogRepository
	Requests domain.RequestRepository
	Audits   domain.AuditEventRepository
	OptOuts  domain.OptOutRepository
}

// Manager is the per-sender conversation state machine. ProcessInbound is the
// single entry point; one call is one unit of work for one already-persisted
// inbound message.
type Manager struct {
	cfg       Config
	tx        domain.TxRunner
	repos     ManagerRepos
	messenger Messenger
	docURL    DocumentURLBuilder
	logger    *slog.Logger
	now       func() time.Time
}

func NewManager(
	cfg Config,
	tx domain.TxRunner,
	repos ManagerRepos,
	messenger Messenger,
	docURL DocumentURLBuilder,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		cfg:       cfg,
		tx:        tx,
		repos:     repos,
		messenger: messenger,
		docURL:    docURL,
		logger:    logger.With("component", "conversation_manager"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// guardResult is the tagged outcome of one guard: either the guard fully
// handled the message (processing stops) or the pipeline continues.
type guardResult int

const (
	guardContinue guardResult = iota
	guardHandled
)

type guardFunc func(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog) (guardResult, error)

// ProcessInbound runs the guard chain and state machine for one inbound
// message. The message must already be persisted and de-duplicated by the
// ingestion boundary.
func (m *Manager) ProcessInbound(ctx context.Context, messageLogID uuid.UUID) error {
	timer := prometheus.NewTimer(processingDurationHist)
	defer timer.ObserveDuration()

	msg, err := m.repos.Messages.GetByID(ctx, messageLogID)
	if err != nil {
		inboundProcessedCounter.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to load message log %s: %w", messageLogID, err)
	}
	if msg.Direction != domain.DirectionInbound {
		m.logger.WarnContext(ctx, "Skipping non-inbound message", "message_log_id", msg.ID, "direction", msg.Direction)
		return nil
	}

	agency, err := m.repos.Agencies.GetByID(ctx, msg.AgencyID)
	if err != nil {
		inboundProcessedCounter.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to load agency %s: %w", msg.AgencyID, err)
	}

	logger := m.logger.With("message_log_id", msg.ID, "agency_id", agency.ID, "from", msg.FromPhone)

	guards := []struct {
		name string
		fn   guardFunc
	}{
		{"stop", m.handleStopCommand},
		{"start", m.handleStartCommand},
		{"help", m.handleHelpCommand},
		{"opt_out", m.checkOptOutStatus},
		{"rate_limit", m.checkRateLimit},
	}
	for _, g := range guards {
		res, err := g.fn(ctx, agency, msg)
		if err != nil {
			inboundProcessedCounter.WithLabelValues("error").Inc()
			return fmt.Errorf("guard %s: %w", g.name, err)
		}
		if res == guardHandled {
			guardTripsCounter.WithLabelValues(g.name).Inc()
			inboundProcessedCounter.WithLabelValues("guard_stop").Inc()
			logger.InfoContext(ctx, "Inbound message handled by guard", "guard", g.name)
			return nil
		}
	}

	now := m.now()
	sess, err := m.repos.Sessions.GetOrCreate(ctx, msg.AgencyID, msg.FromPhone, now, m.cfg.SessionTTL)
	if err != nil {
		inboundProcessedCounter.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to load session: %w", err)
	}

	if sess.Expired(now) {
		logger.InfoContext(ctx, "Session expired, resetting", "session_id", sess.ID)
		sess.Reset()
	}

	sess.LastActivityAt = now
	sess.ExpiresAt = now.Add(m.cfg.SessionTTL)
	if err := m.repos.Sessions.Update(ctx, sess); err != nil {
		inboundProcessedCounter.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to refresh session activity: %w", err)
	}

	if err := m.dispatch(ctx, agency, msg, sess); err != nil {
		inboundProcessedCounter.WithLabelValues("error").Inc()
		return err
	}
	inboundProcessedCounter.WithLabelValues("routed").Inc()
	return nil
}

func (m *Manager) handleStopCommand(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog) (guardResult, error) {
	if NormalizeBody(msg.Body) != "stop" {
		return guardContinue, nil
	}

	optOut := &domain.SmsOptOut{
		ID:         uuid.New(),
		AgencyID:   msg.AgencyID,
		PhoneE164:  msg.FromPhone,
		OptedOutAt: m.now(),
	}
	if err := m.repos.OptOuts.Upsert(ctx, optOut); err != nil {
		return guardContinue, err
	}

	if _, err := m.messenger.SendSMS(ctx, agency, msg.FromPhone, TemplateStopConfirm, uuid.NullUUID{}); err != nil {
		return guardContinue, err
	}

	err := m.audit(ctx, msg.AgencyID, uuid.NullUUID{}, domain.EventOptedOut, map[string]any{
		"message_log_id": msg.ID.String(),
		"phone_e164":     msg.FromPhone,
	})
	if err != nil {
		return guardContinue, err
	}
	return guardHandled, nil
}

func (m *Manager) handleStartCommand(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog) (guardResult, error) {
	if NormalizeBody(msg.Body) != "start" {
		return guardContinue, nil
	}

	optOut, err := m.repos.OptOuts.Get(ctx, msg.AgencyID, msg.FromPhone)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return guardContinue, err
	}

	if optOut != nil {
		if err := m.repos.OptOuts.Delete(ctx, msg.AgencyID, msg.FromPhone); err != nil {
			return guardContinue, err
		}
	}

	// Confirmation goes out whether or not the sender was actually opted
	// out; the opt-in audit event is only written for a real revoke.
	if _, err := m.messenger.SendSMS(ctx, agency, msg.FromPhone, TemplateStartConfirm, uuid.NullUUID{}); err != nil {
		return guardContinue, err
	}

	if optOut != nil {
		err := m.audit(ctx, msg.AgencyID, uuid.NullUUID{}, domain.EventOptIn, map[string]any{
			"message_log_id": msg.ID.String(),
			"phone_e164":     msg.FromPhone,
		})
		if err != nil {
			return guardContinue, err
		}
	}
	return guardHandled, nil
}

func (m *Manager) handleHelpCommand(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog) (guardResult, error) {
	if NormalizeBody(msg.Body) != "help" {
		return guardContinue, nil
	}

	if _, err := m.messenger.SendSMS(ctx, agency, msg.FromPhone, TemplateHelp, uuid.NullUUID{}); err != nil {
		return guardContinue, err
	}

	err := m.audit(ctx, msg.AgencyID, uuid.NullUUID{}, domain.EventHelpRequested, map[string]any{
		"message_log_id": msg.ID.String(),
		"phone_e164":     msg.FromPhone,
	})
	if err != nil {
		return guardContinue, err
	}
	return guardHandled, nil
}

func (m *Manager) checkOptOutStatus(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog) (guardResult, error) {
	optOut, err := m.repos.OptOuts.Get(ctx, msg.AgencyID, msg.FromPhone)
	if errors.Is(err, domain.ErrNotFound) {
		return guardContinue, nil
	}
	if err != nil {
		return guardContinue, err
	}

	// Processing stops either way; the notice itself is throttled to one
	// per rolling window.
	now := m.now()
	if optOut.ShouldSendBlockNotice(now, m.cfg.BlockNoticeInterval) {
		if _, err := m.messenger.SendSMS(ctx, agency, msg.FromPhone, TemplateOptedOutBlockNotice, uuid.NullUUID{}); err != nil {
			return guardContinue, err
		}
		if err := m.repos.OptOuts.MarkBlockNoticeSent(ctx, optOut.ID, now); err != nil {
			return guardContinue, err
		}
		err := m.audit(ctx, msg.AgencyID, uuid.NullUUID{}, domain.EventOptedOutBlocked, map[string]any{
			"message_log_id": msg.ID.String(),
			"phone_e164":     msg.FromPhone,
		})
		if err != nil {
			return guardContinue, err
		}
	}
	return guardHandled, nil
}

func (m *Manager) checkRateLimit(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog) (guardResult, error) {
	now := m.now()
	count, err := m.repos.Messages.CountInbound(ctx, msg.AgencyID, msg.FromPhone, now.Add(-m.cfg.RateLimitWindow))
	if err != nil {
		return guardContinue, err
	}
	if count <= m.cfg.RateLimitMaxInbound {
		return guardContinue, nil
	}

	if _, err := m.messenger.SendSMS(ctx, agency, msg.FromPhone, TemplateRateLimited, uuid.NullUUID{}); err != nil {
		return guardContinue, err
	}

	err = m.audit(ctx, msg.AgencyID, uuid.NullUUID{}, domain.EventRateLimited, map[string]any{
		"message_log_id": msg.ID.String(),
		"phone_e164":     msg.FromPhone,
		"recent_count":   count,
	})
	if err != nil {
		return guardContinue, err
	}
	return guardHandled, nil
}

func (m *Manager) dispatch(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog, sess *domain.ConversationSession) error {
	switch sess.State {
	case domain.StateAwaitingIntentSelection:
		return m.handleIntentSelection(ctx, agency, msg, sess)
	case domain.StateAwaitingVehicleSelection, domain.StateAwaitingPolicySelection:
		return m.handleFlowSelection(ctx, agency, msg, sess)
	default:
		// Unknown state, and complete sessions that get another message
		// before expiry: back to the main menu.
		return m.resetToMenu(ctx, agency, msg, sess)
	}
}

func (m *Manager) handleIntentSelection(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog, sess *domain.ConversationSession) error {
	// Numeric shortcuts bypass the classifier and its audit trail.
	switch strings.TrimSpace(msg.Body) {
	case "1":
		return m.enterCardFlow(ctx, agency, msg, sess)
	case "2":
		return m.enterExpirationFlow(ctx, agency, msg, sess)
	case "3":
		return m.sendUnsupportedThenMenu(ctx, agency, msg, sess)
	}

	routing := RouteIntent(msg.Body)
	intentRoutedCounter.WithLabelValues(string(routing.Intent)).Inc()

	err := m.audit(ctx, msg.AgencyID, uuid.NullUUID{}, domain.EventIntentRouted, map[string]any{
		"message_log_id":  msg.ID.String(),
		"intent":          string(routing.Intent),
		"confidence":      routing.Confidence,
		"reason":          routing.Reason,
		"normalized_body": NormalizeBody(msg.Body),
		"session_id":      sess.ID.String(),
	})
	if err != nil {
		return err
	}

	switch routing.Intent {
	case IntentInsuranceCard:
		return m.enterCardFlow(ctx, agency, msg, sess)
	case IntentPolicyExpiration:
		return m.enterExpirationFlow(ctx, agency, msg, sess)
	case IntentHelpOrOther:
		return m.sendUnsupportedThenMenu(ctx, agency, msg, sess)
	default:
		return m.sendMenu(ctx, agency, msg, sess)
	}
}

func (m *Manager) handleFlowSelection(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog, sess *domain.ConversationSession) error {
	body := NormalizeBody(msg.Body)
	if body == "menu" || body == "cancel" || body == "restart" {
		return m.resetToMenu(ctx, agency, msg, sess)
	}

	selected := sess.Context.FindOption(body)
	if selected == nil {
		_, err := m.messenger.SendSMS(ctx, agency, msg.FromPhone, TemplateInvalidSelection, uuid.NullUUID{})
		return err
	}

	if sess.State == domain.StateAwaitingVehicleSelection {
		return m.fulfillCardRequest(ctx, agency, msg, sess, selected.Ref)
	}
	return m.fulfillExpirationRequest(ctx, agency, msg, sess, selected.Ref)
}

func (m *Manager) sendUnsupportedThenMenu(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog, sess *domain.ConversationSession) error {
	if _, err := m.messenger.SendSMS(ctx, agency, msg.FromPhone, TemplateGlobalUnsupported, uuid.NullUUID{}); err != nil {
		return err
	}
	return m.sendMenu(ctx, agency, msg, sess)
}

func (m *Manager) resetToMenu(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog, sess *domain.ConversationSession) error {
	sess.State = domain.StateAwaitingIntentSelection
	if err := m.repos.Sessions.Update(ctx, sess); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	return m.sendMenu(ctx, agency, msg, sess)
}

// sendMenu sends the main menu, switching to the short variant when a menu
// already went out within MenuResendInterval, then stamps the session and
// writes the menu_sent audit event.
func (m *Manager) sendMenu(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog, sess *domain.ConversationSession) error {
	now := m.now()
	templateName, body := templateNameGlobalMenu, TemplateGlobalMenu
	if sess.Context.LastMenuSentAt != nil && now.Sub(*sess.Context.LastMenuSentAt) < m.cfg.MenuResendInterval {
		templateName, body = templateNameGlobalMenuShort, TemplateGlobalMenuShort
	}

	if _, err := m.messenger.SendSMS(ctx, agency, msg.FromPhone, body, uuid.NullUUID{}); err != nil {
		return err
	}

	sentAt := now
	sess.Context.LastMenuSentAt = &sentAt
	if err := m.repos.Sessions.Update(ctx, sess); err != nil {
		return fmt.Errorf("failed to stamp menu send: %w", err)
	}

	return m.audit(ctx, msg.AgencyID, uuid.NullUUID{}, domain.EventMenuSent, map[string]any{
		"message_log_id": msg.ID.String(),
		"template":       templateName,
		"session_id":     sess.ID.String(),
	})
}

func (m *Manager) audit(ctx context.Context, agencyID uuid.UUID, requestID uuid.NullUUID, eventType string, metadata map[string]any) error {
	event := &domain.AuditEvent{
		ID:        uuid.New(),
		AgencyID:  agencyID,
		RequestID: requestID,
		EventType: eventType,
		Metadata:  metadata,
	}
	if err := m.repos.Audits.Record(ctx, event); err != nil {
		return fmt.Errorf("failed to record %s audit event: %w", eventType, err)
	}
	return nil
}
