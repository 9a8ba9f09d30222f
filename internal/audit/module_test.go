package audit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"lead_exchange_backend/internal/events"
	"lead_exchange_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func captureLogger() (*logger.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &logger.Logger{Logger: slog.New(slog.NewTextHandler(&buf, nil))}, &buf
}

func TestAuditLogsSoldLead(t *testing.T) {
	log, buf := captureLogger()
	bus := events.NewInMemoryBus(log)
	NewModule(log).RegisterHandlers(bus)

	leadID := uuid.New()
	buyerID := uuid.New()
	if err := bus.PublishSync(context.Background(), events.LeadSold{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		WinningBuyerID: buyerID,
		WinningBid:     decimal.NewFromFloat(18.75),
	}); err != nil {
		t.Fatalf("PublishSync returned error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "lead sold") {
		t.Fatalf("expected sold audit line, got %q", out)
	}
	if !strings.Contains(out, leadID.String()) || !strings.Contains(out, buyerID.String()) {
		t.Fatalf("audit line must carry lead and buyer ids, got %q", out)
	}
	if !strings.Contains(out, "18.75") {
		t.Fatalf("audit line must carry the winning bid, got %q", out)
	}
}

func TestAuditLogsDeliveryFailureAsWarning(t *testing.T) {
	log, buf := captureLogger()
	bus := events.NewInMemoryBus(log)
	NewModule(log).RegisterHandlers(bus)

	if err := bus.PublishSync(context.Background(), events.LeadDeliveryFailed{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		BuyerID:   uuid.New(),
		Reason:    "failed",
	}); err != nil {
		t.Fatalf("PublishSync returned error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "level=WARN") {
		t.Fatalf("delivery failure must log at warning level, got %q", out)
	}
	if !strings.Contains(out, "delivery failed after sale") {
		t.Fatalf("expected delivery failure audit line, got %q", out)
	}
}

func TestAuditCoversEveryLifecycleEvent(t *testing.T) {
	log, buf := captureLogger()
	bus := events.NewInMemoryBus(log)
	NewModule(log).RegisterHandlers(bus)

	published := []events.Event{
		events.LeadCreated{BaseEvent: events.NewBaseEvent(), LeadID: uuid.New(), ServiceTypeID: uuid.New(), ZipCode: "30301"},
		events.LeadAuctioned{BaseEvent: events.NewBaseEvent(), LeadID: uuid.New(), WinningBuyerID: uuid.New(), WinningBid: decimal.NewFromInt(12)},
		events.LeadNoBids{BaseEvent: events.NewBaseEvent(), LeadID: uuid.New(), Solicited: 3, Rejected: 3},
		events.LeadStatusChanged{BaseEvent: events.NewBaseEvent(), LeadID: uuid.New(), OldStatus: "PENDING", NewStatus: "PROCESSING", Actor: "system"},
		events.LeadDispositionChanged{BaseEvent: events.NewBaseEvent(), LeadID: uuid.New(), BuyerID: uuid.New(), OldDisposition: "DELIVERED", NewDisposition: "RETURNED"},
	}
	for _, event := range published {
		if err := bus.PublishSync(context.Background(), event); err != nil {
			t.Fatalf("PublishSync(%s) returned error: %v", event.EventName(), err)
		}
	}

	out := buf.String()
	for _, event := range published {
		if !strings.Contains(out, "event="+event.EventName()) {
			t.Fatalf("no audit line for %s in %q", event.EventName(), out)
		}
	}
}
