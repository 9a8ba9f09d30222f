// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lead_exchange_backend/platform/events"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// LeadCreated is published when intake accepts a new lead.
type LeadCreated struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	ServiceTypeID uuid.UUID `json:"serviceTypeId"`
	ZipCode       string    `json:"zipCode"`
	QualityScore  int       `json:"qualityScore"`
}

func (e LeadCreated) EventName() string { return "leads.created" }

// LeadAuctioned is published when an auction completes with a winner.
type LeadAuctioned struct {
	BaseEvent
	LeadID         uuid.UUID       `json:"leadId"`
	WinningBuyerID uuid.UUID       `json:"winningBuyerId"`
	WinningBid     decimal.Decimal `json:"winningBid"`
	Solicited      int             `json:"solicited"`
	Accepted       int             `json:"accepted"`
}

func (e LeadAuctioned) EventName() string { return "auction.lead.auctioned" }

// LeadSold is published when the winning POST is delivered.
type LeadSold struct {
	BaseEvent
	LeadID         uuid.UUID       `json:"leadId"`
	WinningBuyerID uuid.UUID       `json:"winningBuyerId"`
	WinningBid     decimal.Decimal `json:"winningBid"`
}

func (e LeadSold) EventName() string { return "auction.lead.sold" }

// LeadNoBids is published when an auction closes without a single valid bid.
type LeadNoBids struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	Solicited int       `json:"solicited"`
	Rejected  int       `json:"rejected"`
	Errored   int       `json:"errored"`
}

func (e LeadNoBids) EventName() string { return "auction.lead.no_bids" }

// LeadDeliveryFailed is published when a buyer webhook reports a failed or
// invalid delivery for a lead already marked SOLD.
type LeadDeliveryFailed struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	BuyerID uuid.UUID `json:"buyerId"`
	Reason  string    `json:"reason"`
}

func (e LeadDeliveryFailed) EventName() string { return "webhook.lead.delivery_failed" }

// LeadStatusChanged is published on every applied status transition,
// whatever the actor.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
	Actor     string    `json:"actor"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// LeadDispositionChanged is published when a buyer webhook moves the
// post-sale disposition (returned, credited, written off, disputed).
type LeadDispositionChanged struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	BuyerID        uuid.UUID `json:"buyerId"`
	OldDisposition string    `json:"oldDisposition"`
	NewDisposition string    `json:"newDisposition"`
}

func (e LeadDispositionChanged) EventName() string { return "webhook.lead.disposition_changed" }
