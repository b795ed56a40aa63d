package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/covertext/smsflow/internal/conversation/domain"
)

// flowSpec parameterizes the two selection flows.
type flowSpec struct {
	intent       Intent
	policyType   string // empty means all policy types
	emptyMessage string
	menuFormat   string
	targetState  domain.SessionState
}

func (m *Manager) enterCardFlow(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog, sess *domain.ConversationSession) error {
	return m.enterFlow(ctx, agency, msg, sess, flowSpec{
		intent:       IntentInsuranceCard,
		policyType:   domain.PolicyTypeAuto,
		emptyMessage: TemplateNoAutoPolicies,
		menuFormat:   TemplateCardVehicleMenu,
		targetState:  domain.StateAwaitingVehicleSelection,
	})
}

func (m *Manager) enterExpirationFlow(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog, sess *domain.ConversationSession) error {
	return m.enterFlow(ctx, agency, msg, sess, flowSpec{
		intent:       IntentPolicyExpiration,
		policyType:   "",
		emptyMessage: TemplateNoPolicies,
		menuFormat:   TemplateExpirePolicyMenu,
		targetState:  domain.StateAwaitingPolicySelection,
	})
}

// enterFlow resolves the sender to a contact, builds the numbered policy
// options, stores them in session context, transitions state, and sends the
// selection menu. Unknown contacts and empty policy lists are user input
// errors: a guiding reply plus a reset, never an error to the caller.
func (m *Manager) enterFlow(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog, sess *domain.ConversationSession, spec flowSpec) error {
	contact, err := m.repos.Contacts.GetByPhone(ctx, msg.AgencyID, msg.FromPhone)
	if errors.Is(err, domain.ErrNotFound) {
		if _, err := m.messenger.SendSMS(ctx, agency, msg.FromPhone, TemplateAccountNotFound, uuid.NullUUID{}); err != nil {
			return err
		}
		return m.resetToMenu(ctx, agency, msg, sess)
	}
	if err != nil {
		return fmt.Errorf("failed to look up contact: %w", err)
	}

	policies, err := m.repos.Policies.ListByContact(ctx, contact.ID, spec.policyType)
	if err != nil {
		return fmt.Errorf("failed to list policies: %w", err)
	}
	if len(policies) == 0 {
		if _, err := m.messenger.SendSMS(ctx, agency, msg.FromPhone, spec.emptyMessage, uuid.NullUUID{}); err != nil {
			return err
		}
		return m.resetToMenu(ctx, agency, msg, sess)
	}

	options := make([]domain.MenuOption, 0, len(policies))
	for i, policy := range policies {
		options = append(options, domain.MenuOption{
			Key:   strconv.Itoa(i + 1),
			Ref:   policy.ID,
			Label: policy.Label,
		})
	}

	sess.Context.Options = options
	sess.Context.Intent = string(spec.intent)
	sess.State = spec.targetState
	if err := m.repos.Sessions.Update(ctx, sess); err != nil {
		return fmt.Errorf("failed to enter %s flow: %w", spec.intent, err)
	}

	_, err = m.messenger.SendSMS(ctx, agency, msg.FromPhone, renderOptionsMenu(spec.menuFormat, options), uuid.NullUUID{})
	return err
}

// fulfillCardRequest creates the Request, requires the policy's attached
// identity-card document, and dispatches the MMS. Everything runs in one
// transaction: a missing document rolls the Request back and surfaces
// ErrCardDocumentMissing to the caller with no user-facing reply.
func (m *Manager) fulfillCardRequest(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog, sess *domain.ConversationSession, policyID uuid.UUID) error {
	contactID := m.lookupContactID(ctx, msg)
	policy, err := m.repos.Policies.GetByID(ctx, policyID)
	if err != nil {
		return fmt.Errorf("failed to load policy %s: %w", policyID, err)
	}

	now := m.now()
	return m.tx.WithinTx(ctx, func(ctx context.Context) error {
		req := &domain.Request{
			ID:          uuid.New(),
			AgencyID:    msg.AgencyID,
			ContactID:   contactID,
			RequestType: domain.RequestTypeAutoIDCard,
			Status:      domain.RequestStatusFulfilled,
			SelectedRef: policyID.String(),
			InboundBody: msg.Body,
			FulfilledAt: sql.NullTime{Time: now, Valid: true},
		}
		if err := m.repos.Requests.Create(ctx, req); err != nil {
			return fmt.Errorf("failed to create card request: %w", err)
		}

		doc, err := m.repos.Policies.GetCardDocument(ctx, policy.ID)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("policy %s: %w", policy.ID, domain.ErrCardDocumentMissing)
		}
		if err != nil {
			return fmt.Errorf("failed to load card document: %w", err)
		}
		if !doc.Attached() {
			return fmt.Errorf("policy %s document %s has no file: %w", policy.ID, doc.ID, domain.ErrCardDocumentMissing)
		}

		body := fmt.Sprintf(TemplateCardDelivery, policy.Label)
		requestRef := uuid.NullUUID{UUID: req.ID, Valid: true}
		if _, err := m.messenger.SendMMS(ctx, agency, msg.FromPhone, body, m.docURL(doc), requestRef); err != nil {
			return err
		}

		err = m.audit(ctx, msg.AgencyID, requestRef, domain.EventCardFulfilled, map[string]any{
			"policy_id":   policy.ID.String(),
			"document_id": doc.ID.String(),
			"contact_id":  nullUUIDValue(contactID),
			"session_id":  sess.ID.String(),
		})
		if err != nil {
			return err
		}

		sess.State = domain.StateComplete
		sess.Context = domain.SessionContext{}
		return m.repos.Sessions.Update(ctx, sess)
	})
}

// fulfillExpirationRequest creates the Request and sends the formatted
// expiration date as a plain SMS. No Delivery row for SMS.
func (m *Manager) fulfillExpirationRequest(ctx context.Context, agency *domain.Agency, msg *domain.MessageLog, sess *domain.ConversationSession, policyID uuid.UUID) error {
	contactID := m.lookupContactID(ctx, msg)
	policy, err := m.repos.Policies.GetByID(ctx, policyID)
	if err != nil {
		return fmt.Errorf("failed to load policy %s: %w", policyID, err)
	}

	now := m.now()
	return m.tx.WithinTx(ctx, func(ctx context.Context) error {
		req := &domain.Request{
			ID:          uuid.New(),
			AgencyID:    msg.AgencyID,
			ContactID:   contactID,
			RequestType: domain.RequestTypePolicyExpiration,
			Status:      domain.RequestStatusFulfilled,
			SelectedRef: policyID.String(),
			InboundBody: msg.Body,
			FulfilledAt: sql.NullTime{Time: now, Valid: true},
		}
		if err := m.repos.Requests.Create(ctx, req); err != nil {
			return fmt.Errorf("failed to create expiration request: %w", err)
		}

		body := fmt.Sprintf(TemplateExpireDelivery, policy.Label, policy.ExpiresOn.Format(expirationDateLayout))
		requestRef := uuid.NullUUID{UUID: req.ID, Valid: true}
		if _, err := m.messenger.SendSMS(ctx, agency, msg.FromPhone, body, requestRef); err != nil {
			return err
		}

		err = m.audit(ctx, msg.AgencyID, requestRef, domain.EventExpireFulfilled, map[string]any{
			"policy_id":  policy.ID.String(),
			"expires_on": policy.ExpiresOn.Format("2006-01-02"),
			"contact_id": nullUUIDValue(contactID),
			"session_id": sess.ID.String(),
		})
		if err != nil {
			return err
		}

		sess.State = domain.StateComplete
		sess.Context = domain.SessionContext{}
		return m.repos.Sessions.Update(ctx, sess)
	})
}

// lookupContactID resolves the sender to a contact id for the Request row.
// An unknown sender at fulfillment time is tolerated: the reference is
// simply left null.
func (m *Manager) lookupContactID(ctx context.Context, msg *domain.MessageLog) uuid.NullUUID {
	contact, err := m.repos.Contacts.GetByPhone(ctx, msg.AgencyID, msg.FromPhone)
	if err != nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: contact.ID, Valid: true}
}

func nullUUIDValue(id uuid.NullUUID) any {
	if !id.Valid {
		return nil
	}
	return id.UUID.String()
}
