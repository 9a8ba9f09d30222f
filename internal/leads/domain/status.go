// Package domain provides core business rules for the leads bounded context.
package domain

import (
	"fmt"

	"lead_exchange_backend/platform/apperr"
)

// Status is the processing lifecycle of a lead.
type Status string

const (
	StatusPending        Status = "PENDING"
	StatusProcessing     Status = "PROCESSING"
	StatusAuctioned      Status = "AUCTIONED"
	StatusSold           Status = "SOLD"
	StatusRejected       Status = "REJECTED"
	StatusExpired        Status = "EXPIRED"
	StatusDuplicate      Status = "DUPLICATE"
	StatusDeliveryFailed Status = "DELIVERY_FAILED"
)

// Disposition is the financial lifecycle of a lead, orthogonal to Status.
type Disposition string

const (
	DispositionNew        Disposition = "NEW"
	DispositionDelivered  Disposition = "DELIVERED"
	DispositionReturned   Disposition = "RETURNED"
	DispositionDisputed   Disposition = "DISPUTED"
	DispositionCredited   Disposition = "CREDITED"
	DispositionWrittenOff Disposition = "WRITTEN_OFF"
)

// CodeInvalidStatusTransition is the machine-readable error code attached to
// rejected transitions.
const CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"

// statusTransitions is the legal-transition table. Every status write outside
// this table is rejected, with one exception: the buyer-authoritative
// override SOLD -> DELIVERY_FAILED, which deliberately bypasses the table
// (see CanOverrideToDeliveryFailed). REJECTED and DUPLICATE are terminal;
// administrative resurrection of terminal leads lives outside the core.
var statusTransitions = map[Status][]Status{
	StatusPending: {StatusProcessing},
	// A NO_BIDS auction leaves PROCESSING directly: AUCTIONED implies a
	// winner was recorded, so a lead with no valid bids never passes
	// through it.
	StatusProcessing: {StatusAuctioned, StatusRejected, StatusExpired, StatusDuplicate},
	StatusAuctioned:  {StatusSold, StatusRejected, StatusExpired, StatusDuplicate},
	StatusExpired:    {StatusProcessing},
}

// dispositionTransitions is the legal table for the financial axis.
var dispositionTransitions = map[Disposition][]Disposition{
	DispositionNew:       {DispositionDelivered, DispositionReturned, DispositionDisputed},
	DispositionDelivered: {DispositionReturned, DispositionDisputed},
	DispositionReturned:  {DispositionCredited, DispositionWrittenOff},
}

// CanTransition reports whether from -> to is in the legal-transition table.
func CanTransition(from, to Status) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionDisposition reports whether from -> to is legal on the
// financial axis.
func CanTransitionDisposition(from, to Disposition) bool {
	for _, next := range dispositionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanOverrideToDeliveryFailed reports whether the buyer-authoritative
// override applies: the system already recorded SOLD and the winning buyer
// reports the delivery failed or invalid. The buyer is the only party that
// truly knows whether delivery succeeded, so its report wins over the
// system's optimistic SOLD.
func CanOverrideToDeliveryFailed(current Status, webhookStatus string) bool {
	if current != StatusSold {
		return false
	}
	return webhookStatus == "failed" || webhookStatus == "invalid"
}

// HasWinner reports whether a status implies winningBuyerId is set. The
// invariant runs both ways: these three statuses require a winner, and a
// winner is only ever recorded together with one of them.
func HasWinner(s Status) bool {
	return s == StatusAuctioned || s == StatusSold || s == StatusDeliveryFailed
}

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusAuctioned, StatusSold,
		StatusRejected, StatusExpired, StatusDuplicate, StatusDeliveryFailed:
		return true
	}
	return false
}

// ValidDisposition reports whether d is a known disposition value.
func ValidDisposition(d Disposition) bool {
	switch d {
	case DispositionNew, DispositionDelivered, DispositionReturned,
		DispositionDisputed, DispositionCredited, DispositionWrittenOff:
		return true
	}
	return false
}

// TransitionError builds the typed error for an illegal transition request,
// naming the current and attempted status.
func TransitionError(from, to Status) *apperr.Error {
	return apperr.Conflict(
		fmt.Sprintf("cannot transition lead from %s to %s", from, to),
	).WithCode(CodeInvalidStatusTransition)
}

// DispositionError builds the typed error for an illegal disposition change.
func DispositionError(from, to Disposition) *apperr.Error {
	return apperr.Conflict(
		fmt.Sprintf("cannot change disposition from %s to %s", from, to),
	).WithCode(CodeInvalidStatusTransition)
}
