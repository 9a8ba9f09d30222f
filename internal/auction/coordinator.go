// Package auction implements the PING/POST auction coordinator. It solicits
// bids from eligible buyers in parallel, validates them against zone bid
// ranges, selects the winner, delivers the POST, and drives the lead through
// the status machine.
package auction

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"lead_exchange_backend/internal/auction/client"
	txrepo "lead_exchange_backend/internal/auction/repository"
	"lead_exchange_backend/internal/buyers/eligibility"
	buyersrepo "lead_exchange_backend/internal/buyers/repository"
	"lead_exchange_backend/internal/events"
	"lead_exchange_backend/internal/leads/domain"
	leadsrepo "lead_exchange_backend/internal/leads/repository"
	"lead_exchange_backend/internal/mapping"
	"lead_exchange_backend/platform/config"
	"lead_exchange_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Auction run states.
const (
	RunStarted    = "STARTED"
	RunSoliciting = "SOLICITING"
	RunCompleted  = "COMPLETED"
	RunNoBids     = "NO_BIDS"
	RunTimedOut   = "TIMED_OUT"
)

// Ping outcome classifications. OutcomeOutOfRange is applied post-hoc to an
// accepted bid that falls outside the buyer's effective floor/ceiling.
const (
	OutcomeAccepted   = "accepted"
	OutcomeRejected   = "rejected"
	OutcomeError      = "error"
	OutcomeOutOfRange = "bid_out_of_range"
)

const actorSystem = "system:auction"

// ErrAlreadyRunning is returned when the lead is locked by a concurrent run.
var ErrAlreadyRunning = errors.New("auction already running for lead")

// EligibilityResolver ranks buyers for a (serviceType, zip) pair.
type EligibilityResolver interface {
	Resolve(ctx context.Context, serviceTypeID uuid.UUID, zipCode string, opts eligibility.Options) (eligibility.Resolution, error)
}

// LeadStore is the slice of the lead repository the coordinator writes to.
type LeadStore interface {
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected domain.Status, write leadsrepo.StatusWrite) (bool, error)
	AppendHistory(ctx context.Context, params leadsrepo.AppendHistoryParams) error
}

// Ledger records every outbound buyer call.
type Ledger interface {
	Append(ctx context.Context, params txrepo.AppendParams) error
}

// BuyerCaller is the outbound PING/POST transport.
type BuyerCaller interface {
	Ping(ctx context.Context, buyer buyersrepo.Buyer, payload map[string]any) (client.PingReply, client.CallResult, error)
	Post(ctx context.Context, buyer buyersrepo.Buyer, payload map[string]any) (client.CallResult, error)
}

// PingOutcome is one buyer's resolved solicitation.
type PingOutcome struct {
	Buyer          eligibility.EligibleBuyer
	Rank           int
	Classification string
	Bid            *decimal.Decimal
	Reason         string
	Err            error
}

// Result summarizes one auction run.
type Result struct {
	LeadID        uuid.UUID
	State         string
	Solicited     int
	Outcomes      []PingOutcome
	Winner        *PingOutcome
	FinalStatus   domain.Status
	PostDelivered bool
}

type Coordinator struct {
	resolver EligibilityResolver
	leads    LeadStore
	ledger   Ledger
	caller   BuyerCaller
	bus      events.Bus
	cfg      config.AuctionConfig
	log      *logger.Logger

	mu         sync.Mutex
	activeRuns map[uuid.UUID]bool
}

func NewCoordinator(resolver EligibilityResolver, leads LeadStore, ledger Ledger, caller BuyerCaller, bus events.Bus, cfg config.AuctionConfig, log *logger.Logger) *Coordinator {
	return &Coordinator{
		resolver:   resolver,
		leads:      leads,
		ledger:     ledger,
		caller:     caller,
		bus:        bus,
		cfg:        cfg,
		log:        log,
		activeRuns: make(map[uuid.UUID]bool),
	}
}

// markRunning attempts to lock the lead for this run. Returns false if a
// concurrent run already holds it.
func (c *Coordinator) markRunning(leadID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.activeRuns[leadID] {
		return false
	}
	c.activeRuns[leadID] = true
	return true
}

func (c *Coordinator) markComplete(leadID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.activeRuns, leadID)
}

// Run executes one full auction for the lead. A PENDING lead is claimed via
// the conditional move to PROCESSING, so two workers scanning the same batch
// cannot auction the same lead twice. A lead already in PROCESSING was
// claimed by the caller (manual re-run path) and is taken as-is.
func (c *Coordinator) Run(ctx context.Context, lead leadsrepo.Lead) (Result, error) {
	if !c.markRunning(lead.ID) {
		return Result{}, ErrAlreadyRunning
	}
	defer c.markComplete(lead.ID)

	result := Result{LeadID: lead.ID, State: RunStarted}

	switch lead.Status {
	case domain.StatusPending:
		claimed, err := c.leads.UpdateStatusIf(ctx, lead.ID, domain.StatusPending,
			leadsrepo.StatusWrite{Status: domain.StatusProcessing})
		if err != nil {
			return result, err
		}
		if !claimed {
			return result, ErrAlreadyRunning
		}
		c.appendHistory(ctx, lead.ID, domain.StatusPending, domain.StatusProcessing, "auction started")
	case domain.StatusProcessing:
		// Claimed upstream.
	default:
		return result, domain.TransitionError(lead.Status, domain.StatusProcessing)
	}

	resolution, err := c.resolver.Resolve(ctx, lead.ServiceTypeID, lead.ZipCode, eligibility.Options{EnforceDailyCaps: true})
	if err != nil {
		return result, err
	}
	result.Solicited = len(resolution.Eligible)

	if len(resolution.Eligible) == 0 {
		return c.closeNoBids(ctx, lead, result)
	}

	result.State = RunSoliciting
	outcomes, deadlineHit := c.solicit(ctx, lead, resolution.Eligible)
	result.Outcomes = outcomes

	winner := selectWinner(outcomes)
	if winner == nil {
		if deadlineHit {
			result.State = RunTimedOut
		}
		return c.closeNoBids(ctx, lead, result)
	}
	result.Winner = winner

	return c.deliver(ctx, lead, result, *winner)
}

// solicit fans out one ping per eligible buyer. Each ping runs in its own
// goroutine with its own timeout; a buyer's failure never cancels the
// others. The errgroup context carries the auction-wide deadline.
func (c *Coordinator) solicit(ctx context.Context, lead leadsrepo.Lead, eligible []eligibility.EligibleBuyer) ([]PingOutcome, bool) {
	auctionCtx, cancel := context.WithTimeout(ctx, c.cfg.GetAuctionDeadline())
	defer cancel()

	var (
		mu       sync.Mutex
		outcomes []PingOutcome
	)

	g, gctx := errgroup.WithContext(auctionCtx)
	for rank, candidate := range eligible {
		g.Go(func() error {
			outcome := c.pingBuyer(gctx, lead, candidate, rank)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			// Never propagate: one buyer's failure must not cancel the rest.
			return nil
		})
	}
	g.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Rank < outcomes[j].Rank })
	return outcomes, auctionCtx.Err() != nil
}

// pingBuyer solicits one buyer, writes the ledger row, and classifies the
// reply. Transactions are recorded even when transport fails.
func (c *Coordinator) pingBuyer(ctx context.Context, lead leadsrepo.Lead, candidate eligibility.EligibleBuyer, rank int) PingOutcome {
	outcome := PingOutcome{Buyer: candidate, Rank: rank}

	timeout := c.cfg.GetDefaultPingTimeout()
	if candidate.Buyer.PingTimeoutMs != nil && *candidate.Buyer.PingTimeoutMs > 0 {
		timeout = time.Duration(*candidate.Buyer.PingTimeoutMs) * time.Millisecond
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	built := mapping.Build(lead.RawData, candidate.Config.PingRules, candidate.Config.PingStatics)
	payload := built.Payload

	reply, call, err := c.caller.Ping(pingCtx, candidate.Buyer, payload)
	c.recordCall(ctx, lead.ID, candidate.Buyer.ID, txrepo.ActionPing, payload, call, reply.Bid, err)

	if err != nil {
		outcome.Classification = OutcomeError
		outcome.Err = err
		return outcome
	}

	switch {
	case reply.Accepted && reply.Bid != nil && reply.Bid.IsPositive():
		if eligibility.InRange(*reply.Bid, candidate.EffectiveFloor, candidate.EffectiveCeiling) {
			outcome.Classification = OutcomeAccepted
		} else {
			outcome.Classification = OutcomeOutOfRange
		}
		outcome.Bid = reply.Bid
	case reply.Accepted:
		// Accepted without a positive numeric bid is a protocol violation.
		outcome.Classification = OutcomeError
		outcome.Err = errors.New("accepted ping without valid bid")
	default:
		outcome.Classification = OutcomeRejected
		outcome.Reason = reply.Reason
	}
	return outcome
}

// deliver moves the lead to AUCTIONED with the winner pinned, sends the POST,
// and on success marks it SOLD. A failed POST leaves the lead AUCTIONED for
// the webhook reconciler or a later retry to resolve.
func (c *Coordinator) deliver(ctx context.Context, lead leadsrepo.Lead, result Result, winner PingOutcome) (Result, error) {
	buyerID := winner.Buyer.Buyer.ID
	ok, err := c.leads.UpdateStatusIf(ctx, lead.ID, domain.StatusProcessing, leadsrepo.StatusWrite{
		Status:         domain.StatusAuctioned,
		WinningBuyerID: &buyerID,
		WinningBid:     winner.Bid,
	})
	if err != nil {
		return result, err
	}
	if !ok {
		// Someone moved the lead under us; the run is void.
		return result, ErrAlreadyRunning
	}
	c.appendHistory(ctx, lead.ID, domain.StatusProcessing, domain.StatusAuctioned,
		"auction won by "+winner.Buyer.Buyer.Ref+" at "+winner.Bid.StringFixed(2))
	result.FinalStatus = domain.StatusAuctioned

	c.bus.Publish(ctx, events.LeadAuctioned{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		WinningBuyerID: buyerID,
		WinningBid:     *winner.Bid,
		Solicited:      result.Solicited,
		Accepted:       countOutcomes(result.Outcomes, OutcomeAccepted),
	})

	postCtx, cancel := context.WithTimeout(ctx, c.cfg.GetPostTimeout())
	defer cancel()

	built := mapping.Build(lead.RawData, winner.Buyer.Config.PostRules, winner.Buyer.Config.PostStatics)
	call, postErr := c.caller.Post(postCtx, winner.Buyer.Buyer, built.Payload)
	c.recordCall(ctx, lead.ID, buyerID, txrepo.ActionPost, built.Payload, call, winner.Bid, postErr)

	if postErr != nil {
		result.State = RunCompleted
		c.logOutcome(lead.ID, result, &winner)
		return result, nil
	}

	if ok, err := c.leads.UpdateStatusIf(ctx, lead.ID, domain.StatusAuctioned,
		leadsrepo.StatusWrite{Status: domain.StatusSold}); err != nil {
		return result, err
	} else if ok {
		c.appendHistory(ctx, lead.ID, domain.StatusAuctioned, domain.StatusSold, "post delivered")
		result.FinalStatus = domain.StatusSold
		result.PostDelivered = true
		c.bus.Publish(ctx, events.LeadSold{
			BaseEvent:      events.NewBaseEvent(),
			LeadID:         lead.ID,
			WinningBuyerID: buyerID,
			WinningBid:     *winner.Bid,
		})
	}

	result.State = RunCompleted
	c.logOutcome(lead.ID, result, &winner)
	return result, nil
}

// closeNoBids settles an auction that produced no valid bid. The lead leaves
// PROCESSING for REJECTED or EXPIRED per the configured policy.
func (c *Coordinator) closeNoBids(ctx context.Context, lead leadsrepo.Lead, result Result) (Result, error) {
	if result.State != RunTimedOut {
		result.State = RunNoBids
	}

	next := domain.StatusRejected
	if c.cfg.GetNoBidsPolicy() == string(domain.StatusExpired) {
		next = domain.StatusExpired
	}

	ok, err := c.leads.UpdateStatusIf(ctx, lead.ID, domain.StatusProcessing, leadsrepo.StatusWrite{Status: next})
	if err != nil {
		return result, err
	}
	if ok {
		c.appendHistory(ctx, lead.ID, domain.StatusProcessing, next, "no valid bids")
		result.FinalStatus = next
	}

	c.bus.Publish(ctx, events.LeadNoBids{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Solicited: result.Solicited,
		Rejected:  countOutcomes(result.Outcomes, OutcomeRejected),
		Errored:   countOutcomes(result.Outcomes, OutcomeError),
	})
	c.logOutcome(lead.ID, result, nil)
	return result, nil
}

func (c *Coordinator) recordCall(ctx context.Context, leadID, buyerID uuid.UUID, action string, payload map[string]any, call client.CallResult, bid *decimal.Decimal, callErr error) {
	params := txrepo.AppendParams{
		LeadID:         leadID,
		BuyerID:        buyerID,
		ActionType:     action,
		Status:         txrepo.StatusSuccess,
		RequestPayload: payload,
		ResponseTimeMs: int(call.Duration.Milliseconds()),
		Bid:            bid,
	}
	if call.Body != "" {
		body := call.Body
		params.ResponseBody = &body
	}
	if call.HTTPStatus != 0 {
		status := call.HTTPStatus
		params.HTTPStatus = &status
	}
	if callErr != nil {
		params.Status = txrepo.StatusFailure
		if errors.Is(callErr, context.DeadlineExceeded) {
			params.Status = txrepo.StatusTimeout
		}
		msg := callErr.Error()
		params.ErrorMessage = &msg
	}

	// The ledger write outlives a canceled auction context.
	if err := c.ledger.Append(context.WithoutCancel(ctx), params); err != nil {
		c.log.DatabaseError("transactions.append", err)
	}
}

func (c *Coordinator) appendHistory(ctx context.Context, leadID uuid.UUID, from, to domain.Status, reason string) {
	err := c.leads.AppendHistory(ctx, leadsrepo.AppendHistoryParams{
		LeadID:    leadID,
		Actor:     actorSystem,
		OldStatus: &from,
		NewStatus: &to,
		Reason:    reason,
	})
	if err != nil {
		c.log.DatabaseError("lead_status_history.append", err)
	}
}

func (c *Coordinator) logOutcome(leadID uuid.UUID, result Result, winner *PingOutcome) {
	winBuyer, winBid := "", ""
	if winner != nil {
		winBuyer = winner.Buyer.Buyer.ID.String()
		winBid = winner.Bid.StringFixed(2)
	}
	c.log.AuctionOutcome(leadID.String(), result.State, result.Solicited,
		countOutcomes(result.Outcomes, OutcomeAccepted),
		countOutcomes(result.Outcomes, OutcomeRejected),
		countOutcomes(result.Outcomes, OutcomeError),
		winBuyer, winBid)
}

// selectWinner picks the strictly highest in-range bid. An exact tie goes to
// the higher zone priority, then to the earlier eligibility rank.
func selectWinner(outcomes []PingOutcome) *PingOutcome {
	var winner *PingOutcome
	for i := range outcomes {
		o := &outcomes[i]
		if o.Classification != OutcomeAccepted {
			continue
		}
		if winner == nil {
			winner = o
			continue
		}
		switch {
		case o.Bid.GreaterThan(*winner.Bid):
			winner = o
		case o.Bid.Equal(*winner.Bid) && o.Buyer.Priority > winner.Buyer.Priority:
			winner = o
		case o.Bid.Equal(*winner.Bid) && o.Buyer.Priority == winner.Buyer.Priority && o.Rank < winner.Rank:
			winner = o
		}
	}
	return winner
}

func countOutcomes(outcomes []PingOutcome, classification string) int {
	n := 0
	for _, o := range outcomes {
		if o.Classification == classification {
			n++
		}
	}
	return n
}
