package domain

import "testing"

func TestStatusTransitionTable(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusPending, StatusProcessing},
		{StatusProcessing, StatusAuctioned},
		{StatusProcessing, StatusRejected},
		{StatusProcessing, StatusExpired},
		{StatusAuctioned, StatusSold},
		{StatusAuctioned, StatusRejected},
		{StatusAuctioned, StatusExpired},
		{StatusAuctioned, StatusDuplicate},
		{StatusExpired, StatusProcessing},
	}
	for _, tc := range legal {
		if !CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to Status }{
		{StatusPending, StatusSold},
		{StatusPending, StatusAuctioned},
		{StatusSold, StatusAuctioned},
		{StatusSold, StatusDeliveryFailed}, // override path only, not the table
		{StatusRejected, StatusProcessing},
		{StatusDuplicate, StatusProcessing},
		{StatusDeliveryFailed, StatusSold},
		{StatusAuctioned, StatusPending},
	}
	for _, tc := range illegal {
		if CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestDispositionTransitionTable(t *testing.T) {
	if !CanTransitionDisposition(DispositionNew, DispositionDelivered) {
		t.Fatalf("NEW -> DELIVERED should be legal")
	}
	if !CanTransitionDisposition(DispositionReturned, DispositionCredited) {
		t.Fatalf("RETURNED -> CREDITED should be legal")
	}
	if !CanTransitionDisposition(DispositionDelivered, DispositionReturned) {
		t.Fatalf("DELIVERED -> RETURNED should be legal")
	}
	if CanTransitionDisposition(DispositionCredited, DispositionNew) {
		t.Fatalf("CREDITED is terminal")
	}
	if CanTransitionDisposition(DispositionWrittenOff, DispositionReturned) {
		t.Fatalf("WRITTEN_OFF is terminal")
	}
}

func TestBuyerOverrideApplies(t *testing.T) {
	if !CanOverrideToDeliveryFailed(StatusSold, "failed") {
		t.Fatalf("SOLD + failed should trigger the override")
	}
	if !CanOverrideToDeliveryFailed(StatusSold, "invalid") {
		t.Fatalf("SOLD + invalid should trigger the override")
	}
	// duplicate after SOLD is a policy decision: no override.
	if CanOverrideToDeliveryFailed(StatusSold, "duplicate") {
		t.Fatalf("SOLD + duplicate must not trigger the override")
	}
	if CanOverrideToDeliveryFailed(StatusAuctioned, "failed") {
		t.Fatalf("override only applies when current status is SOLD")
	}
}

func TestTransitionErrorNamesBothStatuses(t *testing.T) {
	err := TransitionError(StatusSold, StatusAuctioned)
	if err.Code != CodeInvalidStatusTransition {
		t.Fatalf("expected code %s, got %s", CodeInvalidStatusTransition, err.Code)
	}
	msg := err.Error()
	if msg != "cannot transition lead from SOLD to AUCTIONED" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestHasWinnerStatuses(t *testing.T) {
	for _, s := range []Status{StatusAuctioned, StatusSold, StatusDeliveryFailed} {
		if !HasWinner(s) {
			t.Fatalf("%s should require a winner", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusProcessing, StatusRejected, StatusExpired, StatusDuplicate} {
		if HasWinner(s) {
			t.Fatalf("%s should not carry a winner", s)
		}
	}
}
