package eligibility

import (
	"context"
	"testing"
	"time"

	"lead_exchange_backend/internal/buyers/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeIndex struct {
	coverage  []repository.CoverageRow
	delivered map[uuid.UUID]int
}

func (f *fakeIndex) ListCoverage(_ context.Context, _ uuid.UUID, _ string) ([]repository.CoverageRow, error) {
	return f.coverage, nil
}

func (f *fakeIndex) CountDeliveredToday(_ context.Context, buyerID, _ uuid.UUID, _ string) (int, error) {
	return f.delivered[buyerID], nil
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intPtr(n int) *int { return &n }

func coverageRow(name string, createdAt time.Time, buyerActive, configActive bool, zone *repository.ZipCoverage) repository.CoverageRow {
	buyerID := uuid.New()
	row := repository.CoverageRow{
		Buyer: repository.Buyer{
			ID:        buyerID,
			Ref:       name,
			Name:      name,
			IsActive:  buyerActive,
			CreatedAt: createdAt,
		},
		Config: repository.ServiceConfig{
			ID:       uuid.New(),
			BuyerID:  buyerID,
			IsActive: configActive,
		},
		Zone: zone,
	}
	if zone != nil {
		zone.BuyerID = buyerID
	}
	return row
}

func TestResolveRanksByZonePriority(t *testing.T) {
	// Two zones cover 10001: Network at priority 150, Contractor at 100.
	base := time.Now()
	network := coverageRow("network", base, true, true, &repository.ZipCoverage{ZipCode: "10001", Priority: 150, IsActive: true})
	contractor := coverageRow("contractor", base.Add(time.Minute), true, true, &repository.ZipCoverage{ZipCode: "10001", Priority: 100, IsActive: true})

	resolver := NewResolver(&fakeIndex{coverage: []repository.CoverageRow{network, contractor}})
	res, err := resolver.Resolve(context.Background(), uuid.New(), "10001", Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if len(res.Eligible) != 2 {
		t.Fatalf("expected 2 eligible, got %d", len(res.Eligible))
	}
	if res.Eligible[0].Buyer.Name != "network" {
		t.Fatalf("expected network ranked first, got %s", res.Eligible[0].Buyer.Name)
	}
	if res.Eligible[1].Buyer.Name != "contractor" {
		t.Fatalf("expected contractor second, got %s", res.Eligible[1].Buyer.Name)
	}
}

func TestResolveExclusionReasons(t *testing.T) {
	base := time.Now()
	inactiveBuyer := coverageRow("inactive-buyer", base, false, true, &repository.ZipCoverage{ZipCode: "10001", Priority: 10, IsActive: true})
	inactiveConfig := coverageRow("inactive-config", base, true, false, &repository.ZipCoverage{ZipCode: "10001", Priority: 10, IsActive: true})
	noZone := coverageRow("no-zone", base, true, true, nil)
	inactiveZone := coverageRow("inactive-zone", base, true, true, &repository.ZipCoverage{ZipCode: "10001", Priority: 10, IsActive: false})

	resolver := NewResolver(&fakeIndex{coverage: []repository.CoverageRow{inactiveBuyer, inactiveConfig, noZone, inactiveZone}})
	res, err := resolver.Resolve(context.Background(), uuid.New(), "10001", Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if len(res.Eligible) != 0 {
		t.Fatalf("expected no eligible buyers, got %d", len(res.Eligible))
	}
	want := map[string]string{
		"inactive-buyer":  ReasonBuyerInactive,
		"inactive-config": ReasonServiceTypeInactive,
		"no-zone":         ReasonNoCoverage,
		"inactive-zone":   ReasonNoCoverage,
	}
	for _, excl := range res.Excluded {
		if want[excl.BuyerName] != excl.Reason {
			t.Fatalf("buyer %s: expected reason %s, got %s", excl.BuyerName, want[excl.BuyerName], excl.Reason)
		}
	}
	if len(res.Excluded) != len(want) {
		t.Fatalf("expected %d exclusions, got %d", len(want), len(res.Excluded))
	}
}

func TestResolveMinBidUsesEffectiveCeiling(t *testing.T) {
	base := time.Now()
	// Config ceiling 30, zone override raises it to 80.
	row := coverageRow("overridden", base, true, true, &repository.ZipCoverage{
		ZipCode: "10001", Priority: 10, IsActive: true, BidCeiling: dec("80"),
	})
	row.Config.BidCeiling = dec("30")

	low := coverageRow("too-low", base, true, true, &repository.ZipCoverage{ZipCode: "10001", Priority: 5, IsActive: true})
	low.Config.BidCeiling = dec("30")

	resolver := NewResolver(&fakeIndex{coverage: []repository.CoverageRow{row, low}})
	res, err := resolver.Resolve(context.Background(), uuid.New(), "10001", Options{RequireMinBid: dec("50")})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if len(res.Eligible) != 1 || res.Eligible[0].Buyer.Name != "overridden" {
		t.Fatalf("expected only the zone-overridden buyer eligible, got %+v", res.Eligible)
	}
	if len(res.Excluded) != 1 || res.Excluded[0].Reason != ReasonBidTooLow {
		t.Fatalf("expected BID_TOO_LOW exclusion, got %+v", res.Excluded)
	}
	if !res.Eligible[0].EffectiveCeiling.Equal(decimal.RequireFromString("80")) {
		t.Fatalf("effective ceiling should be the zone override, got %s", res.Eligible[0].EffectiveCeiling)
	}
}

func TestResolveDailyCap(t *testing.T) {
	base := time.Now()
	capped := coverageRow("capped", base, true, true, &repository.ZipCoverage{
		ZipCode: "10001", Priority: 10, IsActive: true, MaxLeadsPerDay: intPtr(3),
	})
	open := coverageRow("open", base, true, true, &repository.ZipCoverage{
		ZipCode: "10001", Priority: 5, IsActive: true, MaxLeadsPerDay: intPtr(3),
	})

	idx := &fakeIndex{
		coverage: []repository.CoverageRow{capped, open},
		delivered: map[uuid.UUID]int{
			capped.Buyer.ID: 3,
			open.Buyer.ID:   2,
		},
	}

	res, err := NewResolver(idx).Resolve(context.Background(), uuid.New(), "10001", Options{EnforceDailyCaps: true})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if len(res.Eligible) != 1 || res.Eligible[0].Buyer.Name != "open" {
		t.Fatalf("expected only the under-cap buyer, got %+v", res.Eligible)
	}
	if len(res.Excluded) != 1 || res.Excluded[0].Reason != ReasonDailyLimitExceeded {
		t.Fatalf("expected DAILY_LIMIT_EXCEEDED, got %+v", res.Excluded)
	}
}

func TestInRange(t *testing.T) {
	floor, ceiling := dec("20"), dec("100")
	if !InRange(decimal.RequireFromString("45"), floor, ceiling) {
		t.Fatalf("45 should be inside [20,100]")
	}
	if InRange(decimal.RequireFromString("150"), floor, ceiling) {
		t.Fatalf("150 should be outside [20,100]")
	}
	if InRange(decimal.RequireFromString("19.99"), floor, ceiling) {
		t.Fatalf("19.99 should be outside [20,100]")
	}
	if !InRange(decimal.RequireFromString("45"), nil, nil) {
		t.Fatalf("nil bounds are unbounded")
	}
}
