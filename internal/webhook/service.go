// Package webhook provides the buyer-callback bounded context. It accepts
// asynchronous buyer webhooks and reconciles them against the authoritative
// lead state using conditional writes plus the buyer-authoritative override
// for delivery failures.
package webhook

import (
	"context"
	"errors"
	"strings"

	txrepo "lead_exchange_backend/internal/auction/repository"
	buyersrepo "lead_exchange_backend/internal/buyers/repository"
	"lead_exchange_backend/internal/events"
	"lead_exchange_backend/internal/leads/domain"
	leadsrepo "lead_exchange_backend/internal/leads/repository"
	"lead_exchange_backend/platform/apperr"
	"lead_exchange_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Webhook actions.
const (
	ActionPingResponse = "ping_response"
	ActionPostResponse = "post_response"
	ActionStatusUpdate = "status_update"
)

// post_response statuses.
const (
	PostDelivered = "delivered"
	PostFailed    = "failed"
	PostDuplicate = "duplicate"
	PostInvalid   = "invalid"
)

// status_update statuses (disposition axis).
const (
	UpdateReturned   = "returned"
	UpdateCredited   = "credited"
	UpdateWrittenOff = "written_off"
	UpdateDisputed   = "disputed"
)

// LeadStore is the slice of the lead repository the reconciler uses.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadsrepo.Lead, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected domain.Status, write leadsrepo.StatusWrite) (bool, error)
	ForceStatus(ctx context.Context, id uuid.UUID, write leadsrepo.StatusWrite) (domain.Status, error)
	AppendHistory(ctx context.Context, params leadsrepo.AppendHistoryParams) error
}

// Ledger records late ping responses.
type Ledger interface {
	Append(ctx context.Context, params txrepo.AppendParams) error
}

// Request is the decoded webhook body.
type Request struct {
	LeadID        uuid.UUID        `json:"leadId" validate:"required"`
	Action        string           `json:"action" validate:"required,oneof=ping_response post_response status_update"`
	Status        string           `json:"status" validate:"required,max=40"`
	Bid           *decimal.Decimal `json:"bid,omitempty"`
	Reason        string           `json:"reason,omitempty" validate:"omitempty,max=500"`
	TransactionID *uuid.UUID       `json:"transactionId,omitempty"`
}

// Ack is the whole response surface: webhooks never leak lead data.
type Ack struct {
	Received bool   `json:"received"`
	Result   string `json:"result"`
}

// Service reconciles buyer webhooks against the lead state machine.
type Service struct {
	leads  LeadStore
	ledger Ledger
	bus    events.Bus
	log    *logger.Logger
}

func NewService(leads LeadStore, ledger Ledger, bus events.Bus, log *logger.Logger) *Service {
	return &Service{leads: leads, ledger: ledger, bus: bus, log: log}
}

// Process handles one authenticated webhook from the given buyer.
func (s *Service) Process(ctx context.Context, buyer buyersrepo.Buyer, req Request, clientIP string) (Ack, error) {
	lead, err := s.leads.GetByID(ctx, req.LeadID)
	if err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			return Ack{}, apperr.NotFound("unknown lead")
		}
		return Ack{}, err
	}

	switch req.Action {
	case ActionPingResponse:
		return s.recordLatePing(ctx, buyer, req)
	case ActionPostResponse:
		return s.reconcilePost(ctx, buyer, lead, req, clientIP)
	case ActionStatusUpdate:
		return s.reconcileDisposition(ctx, buyer, lead, req, clientIP)
	default:
		return Ack{}, apperr.Validation("unknown action " + req.Action)
	}
}

// recordLatePing appends a ledger row for a ping answered out of band after
// the auction closed. No lead state changes.
func (s *Service) recordLatePing(ctx context.Context, buyer buyersrepo.Buyer, req Request) (Ack, error) {
	err := s.ledger.Append(ctx, txrepo.AppendParams{
		LeadID:         req.LeadID,
		BuyerID:        buyer.ID,
		ActionType:     txrepo.ActionPing,
		Status:         txrepo.StatusSuccess,
		RequestPayload: map[string]any{"source": "webhook", "status": req.Status},
		Bid:            req.Bid,
	})
	if err != nil {
		return Ack{}, err
	}
	return Ack{Received: true, Result: "recorded"}, nil
}

// reconcilePost handles the winning buyer's delivery confirmation.
func (s *Service) reconcilePost(ctx context.Context, buyer buyersrepo.Buyer, lead leadsrepo.Lead, req Request, clientIP string) (Ack, error) {
	if err := validatePostStatus(req.Status); err != nil {
		return Ack{}, err
	}
	// Keep the refusal generic; the reply must not tell a non-winning
	// buyer anything about the lead's state.
	if lead.WinningBuyerID == nil || *lead.WinningBuyerID != buyer.ID {
		return Ack{}, apperr.Forbidden("forbidden")
	}

	actor := "buyer:" + buyer.Ref

	switch req.Status {
	case PostDelivered:
		delivered := domain.DispositionDelivered
		ok, err := s.leads.UpdateStatusIf(ctx, lead.ID, domain.StatusAuctioned, leadsrepo.StatusWrite{
			Status:      domain.StatusSold,
			Disposition: &delivered,
		})
		if err != nil {
			return Ack{}, err
		}
		if ok {
			s.appendStatusHistory(ctx, lead.ID, actor, domain.StatusAuctioned, domain.StatusSold,
				"buyer confirmed delivery", clientIP)
			return Ack{Received: true, Result: "applied"}, nil
		}
		// Lost the conditional write; the coordinator may already have
		// marked the lead SOLD, which makes this confirmation idempotent.
		current, err := s.leads.GetByID(ctx, lead.ID)
		if err != nil {
			return Ack{}, err
		}
		if current.Status == domain.StatusSold {
			return Ack{Received: true, Result: "already applied"}, nil
		}
		s.log.WebhookConflict(lead.ID.String(), buyer.ID.String(),
			string(domain.StatusAuctioned), string(domain.StatusSold), string(current.Status))
		return Ack{Received: true, Result: "ignored"}, nil

	case PostFailed, PostInvalid:
		return s.applyDeliveryFailure(ctx, buyer, lead, req, actor, clientIP)

	case PostDuplicate:
		ok, err := s.leads.UpdateStatusIf(ctx, lead.ID, domain.StatusAuctioned,
			leadsrepo.StatusWrite{Status: domain.StatusDuplicate})
		if err != nil {
			return Ack{}, err
		}
		if ok {
			s.appendStatusHistory(ctx, lead.ID, actor, domain.StatusAuctioned, domain.StatusDuplicate,
				"buyer reported duplicate", clientIP)
			return Ack{Received: true, Result: "applied"}, nil
		}
		// A duplicate report after SOLD does not override the sale.
		current, err := s.leads.GetByID(ctx, lead.ID)
		if err != nil {
			return Ack{}, err
		}
		s.log.WebhookConflict(lead.ID.String(), buyer.ID.String(),
			string(domain.StatusAuctioned), string(domain.StatusDuplicate), string(current.Status))
		return Ack{Received: true, Result: "ignored"}, nil
	}

	return Ack{}, apperr.Validation("unknown post_response status " + req.Status)
}

// applyDeliveryFailure implements the buyer-authoritative override: the
// winning buyer saying "failed" or "invalid" beats an optimistic SOLD.
func (s *Service) applyDeliveryFailure(ctx context.Context, buyer buyersrepo.Buyer, lead leadsrepo.Lead, req Request, actor, clientIP string) (Ack, error) {
	// Re-read so the override decision uses the freshest status.
	current, err := s.leads.GetByID(ctx, lead.ID)
	if err != nil {
		return Ack{}, err
	}

	if domain.CanOverrideToDeliveryFailed(current.Status, req.Status) {
		old, err := s.leads.ForceStatus(ctx, lead.ID, leadsrepo.StatusWrite{Status: domain.StatusDeliveryFailed})
		if err != nil {
			return Ack{}, err
		}
		// Two failed reports can both read SOLD; the write that replaced
		// DELIVERY_FAILED lost that race and must not record a second transition.
		if old == domain.StatusDeliveryFailed {
			return Ack{Received: true, Result: "already applied"}, nil
		}

		reason := "buyer reported " + req.Status + ", overriding SOLD"
		if req.Reason != "" {
			reason += ": " + strings.TrimSpace(req.Reason)
		}
		s.appendStatusHistory(ctx, lead.ID, actor, old, domain.StatusDeliveryFailed, reason, clientIP)

		s.log.BuyerOverride(lead.ID.String(), buyer.ID.String(), req.Status)
		s.bus.Publish(ctx, events.LeadDeliveryFailed{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			BuyerID:   buyer.ID,
			Reason:    req.Status,
		})
		return Ack{Received: true, Result: "applied"}, nil
	}

	if current.Status == domain.StatusDeliveryFailed {
		return Ack{Received: true, Result: "already applied"}, nil
	}

	// AUCTIONED and everything else: no transition defined, record nothing.
	s.log.WebhookConflict(lead.ID.String(), buyer.ID.String(),
		string(current.Status), string(domain.StatusDeliveryFailed), string(current.Status))
	return Ack{Received: true, Result: "ignored"}, nil
}

// reconcileDisposition moves the financial axis per buyer status updates.
func (s *Service) reconcileDisposition(ctx context.Context, buyer buyersrepo.Buyer, lead leadsrepo.Lead, req Request, clientIP string) (Ack, error) {
	if lead.WinningBuyerID == nil || *lead.WinningBuyerID != buyer.ID {
		return Ack{}, apperr.Forbidden("forbidden")
	}

	target, err := dispositionFor(req.Status)
	if err != nil {
		return Ack{}, err
	}

	if !domain.CanTransitionDisposition(lead.Disposition, target) {
		return Ack{}, domain.DispositionError(lead.Disposition, target)
	}

	ok, err := s.leads.UpdateStatusIf(ctx, lead.ID, lead.Status, leadsrepo.StatusWrite{
		Status:      lead.Status,
		Disposition: &target,
	})
	if err != nil {
		return Ack{}, err
	}
	if !ok {
		// Status moved concurrently; the caller should retry against the
		// fresh state rather than have us guess.
		current, rerr := s.leads.GetByID(ctx, lead.ID)
		if rerr != nil {
			return Ack{}, rerr
		}
		s.log.WebhookConflict(lead.ID.String(), buyer.ID.String(),
			string(lead.Status), string(lead.Status), string(current.Status))
		return Ack{Received: true, Result: "ignored"}, nil
	}

	reason := "buyer status update: " + req.Status
	if req.Reason != "" {
		reason += ": " + strings.TrimSpace(req.Reason)
	}
	s.appendDispositionHistory(ctx, lead.ID, "buyer:"+buyer.Ref, lead.Disposition, target, reason, clientIP)

	s.bus.Publish(ctx, events.LeadDispositionChanged{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		BuyerID:        buyer.ID,
		OldDisposition: string(lead.Disposition),
		NewDisposition: string(target),
	})
	return Ack{Received: true, Result: "applied"}, nil
}

func (s *Service) appendStatusHistory(ctx context.Context, leadID uuid.UUID, actor string, from, to domain.Status, reason, clientIP string) {
	params := leadsrepo.AppendHistoryParams{
		LeadID:    leadID,
		Actor:     actor,
		OldStatus: &from,
		NewStatus: &to,
		Reason:    reason,
	}
	if clientIP != "" {
		params.IPAddress = &clientIP
	}
	if err := s.leads.AppendHistory(ctx, params); err != nil {
		s.log.DatabaseError("lead_status_history.append", err)
	}
}

func (s *Service) appendDispositionHistory(ctx context.Context, leadID uuid.UUID, actor string, from, to domain.Disposition, reason, clientIP string) {
	params := leadsrepo.AppendHistoryParams{
		LeadID:         leadID,
		Actor:          actor,
		OldDisposition: &from,
		NewDisposition: &to,
		Reason:         reason,
	}
	if clientIP != "" {
		params.IPAddress = &clientIP
	}
	if err := s.leads.AppendHistory(ctx, params); err != nil {
		s.log.DatabaseError("lead_status_history.append", err)
	}
}

func validatePostStatus(status string) error {
	switch status {
	case PostDelivered, PostFailed, PostDuplicate, PostInvalid:
		return nil
	}
	return apperr.Validation("unknown post_response status " + status)
}

func dispositionFor(status string) (domain.Disposition, error) {
	switch status {
	case UpdateReturned:
		return domain.DispositionReturned, nil
	case UpdateCredited:
		return domain.DispositionCredited, nil
	case UpdateWrittenOff:
		return domain.DispositionWrittenOff, nil
	case UpdateDisputed:
		return domain.DispositionDisputed, nil
	}
	return "", apperr.Validation("unknown status_update status " + status)
}
