// Package service implements the leads business logic: intake, admin status
// changes through the transition table, and manual auction re-runs.
package service

import (
	"context"

	txrepo "lead_exchange_backend/internal/auction/repository"
	"lead_exchange_backend/internal/events"
	"lead_exchange_backend/internal/leads/domain"
	"lead_exchange_backend/internal/leads/repository"
	"lead_exchange_backend/internal/leads/scoring"
	"lead_exchange_backend/internal/leads/transport"
	"lead_exchange_backend/platform/apperr"
	"lead_exchange_backend/platform/logger"

	"github.com/google/uuid"
)

const actorIntake = "system:intake"

// TransactionReader exposes the PING/POST ledger for the detail view and the
// dispute-resolution list.
type TransactionReader interface {
	ListByLead(ctx context.Context, leadID uuid.UUID) ([]txrepo.Transaction, error)
	ListByFilter(ctx context.Context, filter txrepo.ListFilter) ([]txrepo.Transaction, error)
}

// AuctionEnqueuer schedules auction runs on the background worker.
type AuctionEnqueuer interface {
	EnqueueRunLead(ctx context.Context, leadID uuid.UUID) error
}

// Service provides business logic for leads.
type Service struct {
	repo     *repository.Repository
	ledger   TransactionReader
	enqueuer AuctionEnqueuer
	bus      events.Bus
	log      *logger.Logger
}

func New(repo *repository.Repository, ledger TransactionReader, enqueuer AuctionEnqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, ledger: ledger, enqueuer: enqueuer, bus: bus, log: log}
}

// Create runs intake: score, persist in PENDING/NEW, publish, and schedule
// the auction.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	score := 0
	if req.QualityScore != nil {
		score = *req.QualityScore
	} else {
		score = scoring.Score(req.Data, req.Compliance)
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		ServiceTypeID:    req.ServiceTypeID,
		ZipCode:          req.ZipCode,
		RawData:          req.Data,
		LeadQualityScore: score,
		Compliance:       req.Compliance,
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        lead.ID,
		ServiceTypeID: lead.ServiceTypeID,
		ZipCode:       lead.ZipCode,
		QualityScore:  lead.LeadQualityScore,
	})

	if err := s.enqueuer.EnqueueRunLead(ctx, lead.ID); err != nil {
		// The pending-scan task will pick the lead up later.
		s.log.Warn("failed to enqueue auction run", "leadId", lead.ID, "error", err)
	}

	return toResponse(lead), nil
}

// Get returns the admin detail view with both ledgers inlined.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.LeadDetailResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadDetailResponse{}, mapNotFound(err)
	}

	history, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}
	transactions, err := s.ledger.ListByLead(ctx, id)
	if err != nil {
		return transport.LeadDetailResponse{}, err
	}

	return toDetailResponse(lead, history, transactions), nil
}

// List returns a filtered page of leads.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	filter := repository.ListLeadsFilter{Limit: pageSize, Offset: (page - 1) * pageSize}
	if req.Status != "" {
		status := domain.Status(req.Status)
		filter.Status = &status
	}
	if req.ServiceTypeID != "" {
		serviceTypeID, err := uuid.Parse(req.ServiceTypeID)
		if err != nil {
			return transport.LeadListResponse{}, apperr.Validation("invalid serviceTypeId filter")
		}
		filter.ServiceTypeID = &serviceTypeID
	}

	leads, err := s.repo.List(ctx, filter)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	items := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, toResponse(lead))
	}
	return transport.LeadListResponse{Items: items, Total: len(items)}, nil
}

// ChangeStatus applies an admin status change. The transition table is the
// gate; an illegal move returns INVALID_STATUS_TRANSITION with the lead
// untouched.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, req transport.ChangeStatusRequest, actor, clientIP string) (transport.LeadResponse, error) {
	target := domain.Status(req.Status)
	if !domain.ValidStatus(target) {
		return transport.LeadResponse{}, apperr.Validation("unknown status " + req.Status)
	}

	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, mapNotFound(err)
	}

	if !domain.CanTransition(lead.Status, target) {
		return transport.LeadResponse{}, domain.TransitionError(lead.Status, target)
	}

	ok, err := s.repo.UpdateStatusIf(ctx, id, lead.Status, repository.StatusWrite{Status: target})
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if !ok {
		// The lead moved between read and write; surface the conflict.
		current, rerr := s.repo.GetByID(ctx, id)
		if rerr != nil {
			return transport.LeadResponse{}, rerr
		}
		return transport.LeadResponse{}, domain.TransitionError(current.Status, target)
	}

	s.appendHistory(ctx, id, actor, lead.Status, target, req.Reason, clientIP)
	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		OldStatus: string(lead.Status),
		NewStatus: string(target),
		Actor:     actor,
	})

	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toResponse(updated), nil
}

// Rerun moves an EXPIRED lead back to PROCESSING and schedules a fresh
// auction run for it.
func (s *Service) Rerun(ctx context.Context, id uuid.UUID, actor, clientIP string) error {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapNotFound(err)
	}
	if lead.Status != domain.StatusExpired {
		return domain.TransitionError(lead.Status, domain.StatusProcessing)
	}

	ok, err := s.repo.UpdateStatusIf(ctx, id, domain.StatusExpired,
		repository.StatusWrite{Status: domain.StatusProcessing})
	if err != nil {
		return err
	}
	if !ok {
		return domain.TransitionError(lead.Status, domain.StatusProcessing)
	}

	s.appendHistory(ctx, id, actor, domain.StatusExpired, domain.StatusProcessing, "manual auction re-run", clientIP)

	if err := s.enqueuer.EnqueueRunLead(ctx, id); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to schedule auction re-run", err)
	}
	return nil
}

// ListTransactions returns a filtered page of the PING/POST ledger for
// dispute resolution.
func (s *Service) ListTransactions(ctx context.Context, req transport.ListTransactionsRequest) (transport.TransactionListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 100
	}
	if pageSize > 500 {
		pageSize = 500
	}

	filter := txrepo.ListFilter{Limit: pageSize, Offset: (page - 1) * pageSize}
	if req.LeadID != "" {
		leadID, err := uuid.Parse(req.LeadID)
		if err != nil {
			return transport.TransactionListResponse{}, apperr.Validation("invalid leadId filter")
		}
		filter.LeadID = &leadID
	}
	if req.BuyerID != "" {
		buyerID, err := uuid.Parse(req.BuyerID)
		if err != nil {
			return transport.TransactionListResponse{}, apperr.Validation("invalid buyerId filter")
		}
		filter.BuyerID = &buyerID
	}
	if req.ActionType != "" {
		actionType := req.ActionType
		filter.ActionType = &actionType
	}

	transactions, err := s.ledger.ListByFilter(ctx, filter)
	if err != nil {
		return transport.TransactionListResponse{}, err
	}

	items := make([]transport.TransactionListItem, 0, len(transactions))
	for _, tx := range transactions {
		items = append(items, transport.TransactionListItem{
			TransactionResponse: toTransactionResponse(tx),
			LeadID:              tx.LeadID,
		})
	}
	return transport.TransactionListResponse{Items: items, Total: len(items)}, nil
}

func (s *Service) appendHistory(ctx context.Context, leadID uuid.UUID, actor string, from, to domain.Status, reason, clientIP string) {
	params := repository.AppendHistoryParams{
		LeadID:    leadID,
		Actor:     actor,
		OldStatus: &from,
		NewStatus: &to,
		Reason:    reason,
	}
	if clientIP != "" {
		params.IPAddress = &clientIP
	}
	if err := s.repo.AppendHistory(ctx, params); err != nil {
		s.log.DatabaseError("lead_status_history.append", err)
	}
}

func mapNotFound(err error) error {
	if err == repository.ErrNotFound {
		return apperr.NotFound("lead not found")
	}
	return err
}

func toResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:               lead.ID,
		ServiceTypeID:    lead.ServiceTypeID,
		ZipCode:          lead.ZipCode,
		Status:           string(lead.Status),
		Disposition:      string(lead.Disposition),
		WinningBuyerID:   lead.WinningBuyerID,
		WinningBid:       lead.WinningBid,
		LeadQualityScore: lead.LeadQualityScore,
		CreatedAt:        lead.CreatedAt,
		UpdatedAt:        lead.UpdatedAt,
	}
}

func toDetailResponse(lead repository.Lead, history []repository.StatusHistoryEntry, transactions []txrepo.Transaction) transport.LeadDetailResponse {
	detail := transport.LeadDetailResponse{
		LeadResponse: toResponse(lead),
		Data:         lead.RawData,
		Compliance:   lead.Compliance,
		History:      make([]transport.HistoryEntryResponse, 0, len(history)),
		Transactions: make([]transport.TransactionResponse, 0, len(transactions)),
	}
	for _, e := range history {
		detail.History = append(detail.History, transport.HistoryEntryResponse{
			Actor:          e.Actor,
			OldStatus:      statusString(e.OldStatus),
			NewStatus:      statusString(e.NewStatus),
			OldDisposition: dispositionString(e.OldDisposition),
			NewDisposition: dispositionString(e.NewDisposition),
			Reason:         e.Reason,
			IPAddress:      e.IPAddress,
			CreatedAt:      e.CreatedAt,
		})
	}
	for _, tx := range transactions {
		detail.Transactions = append(detail.Transactions, toTransactionResponse(tx))
	}
	return detail
}

func toTransactionResponse(tx txrepo.Transaction) transport.TransactionResponse {
	return transport.TransactionResponse{
		ID:             tx.ID,
		BuyerID:        tx.BuyerID,
		ActionType:     tx.ActionType,
		Status:         tx.Status,
		HTTPStatus:     tx.HTTPStatus,
		Bid:            tx.Bid,
		ResponseTimeMs: tx.ResponseTimeMs,
		ErrorMessage:   tx.ErrorMessage,
		CreatedAt:      tx.CreatedAt,
	}
}

func statusString(s *domain.Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func dispositionString(d *domain.Disposition) *string {
	if d == nil {
		return nil
	}
	v := string(*d)
	return &v
}
