// Package audit consumes domain events and writes the lead lifecycle to the
// structured audit log. Publishers stay free of audit concerns; this module
// inverts the dependency by subscribing on the event bus.
package audit

import (
	"context"

	"lead_exchange_backend/internal/events"
	"lead_exchange_backend/platform/logger"
)

// Module is the audit log event consumer.
type Module struct {
	log *logger.Logger
}

// NewModule creates the audit consumer.
func NewModule(log *logger.Logger) *Module {
	return &Module{log: log}
}

// RegisterHandlers subscribes to all lead lifecycle events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), m)
	bus.Subscribe(events.LeadAuctioned{}.EventName(), m)
	bus.Subscribe(events.LeadSold{}.EventName(), m)
	bus.Subscribe(events.LeadNoBids{}.EventName(), m)
	bus.Subscribe(events.LeadDeliveryFailed{}.EventName(), m)
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), m)
	bus.Subscribe(events.LeadDispositionChanged{}.EventName(), m)
}

// Handle implements events.Handler and dispatches by event type.
func (m *Module) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadCreated:
		m.log.Info("audit: lead created",
			"event", e.EventName(),
			"lead_id", e.LeadID.String(),
			"service_type_id", e.ServiceTypeID.String(),
			"zip_code", e.ZipCode,
			"quality_score", e.QualityScore)
	case events.LeadAuctioned:
		m.log.Info("audit: lead auctioned",
			"event", e.EventName(),
			"lead_id", e.LeadID.String(),
			"winning_buyer_id", e.WinningBuyerID.String(),
			"winning_bid", e.WinningBid.String(),
			"solicited", e.Solicited,
			"accepted", e.Accepted)
	case events.LeadSold:
		m.log.Info("audit: lead sold",
			"event", e.EventName(),
			"lead_id", e.LeadID.String(),
			"winning_buyer_id", e.WinningBuyerID.String(),
			"winning_bid", e.WinningBid.String())
	case events.LeadNoBids:
		m.log.Info("audit: auction closed without bids",
			"event", e.EventName(),
			"lead_id", e.LeadID.String(),
			"solicited", e.Solicited,
			"rejected", e.Rejected,
			"errored", e.Errored)
	case events.LeadDeliveryFailed:
		m.log.Warn("audit: delivery failed after sale",
			"event", e.EventName(),
			"lead_id", e.LeadID.String(),
			"buyer_id", e.BuyerID.String(),
			"reason", e.Reason)
	case events.LeadStatusChanged:
		m.log.Info("audit: lead status changed",
			"event", e.EventName(),
			"lead_id", e.LeadID.String(),
			"old_status", e.OldStatus,
			"new_status", e.NewStatus,
			"actor", e.Actor)
	case events.LeadDispositionChanged:
		m.log.Info("audit: lead disposition changed",
			"event", e.EventName(),
			"lead_id", e.LeadID.String(),
			"buyer_id", e.BuyerID.String(),
			"old_disposition", e.OldDisposition,
			"new_disposition", e.NewDisposition)
	}
	return nil
}
