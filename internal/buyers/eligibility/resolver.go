// Package eligibility resolves which buyers may compete for a lead in a
// given service type and zip. The resolver performs no network I/O: it is a
// read-filter-rank pass over the coverage index and is safe to call many
// times per second.
package eligibility

import (
	"context"

	"lead_exchange_backend/internal/buyers/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Exclusion reason codes. The admin UI and callers key on these exact values.
const (
	ReasonBuyerInactive       = "BUYER_INACTIVE"
	ReasonServiceTypeInactive = "SERVICE_TYPE_INACTIVE"
	ReasonBidTooLow           = "BID_TOO_LOW"
	ReasonDailyLimitExceeded  = "DAILY_LIMIT_EXCEEDED"
	ReasonNoCoverage          = "NO_COVERAGE"
)

// Index is the read-side the resolver depends on.
type Index interface {
	ListCoverage(ctx context.Context, serviceTypeID uuid.UUID, zipCode string) ([]repository.CoverageRow, error)
	CountDeliveredToday(ctx context.Context, buyerID, serviceTypeID uuid.UUID, zipCode string) (int, error)
}

// Options tune a single resolution.
type Options struct {
	// RequireMinBid excludes buyers whose effective ceiling is below the
	// threshold.
	RequireMinBid *decimal.Decimal
	// EnforceDailyCaps checks zone delivery counts against maxLeadsPerDay.
	EnforceDailyCaps bool
}

// EligibleBuyer is one ranked auction candidate with its effective zone
// constraints resolved (zone overrides win over service-config defaults).
type EligibleBuyer struct {
	Buyer            repository.Buyer
	Config           repository.ServiceConfig
	Zone             repository.ZipCoverage
	Priority         int
	EffectiveFloor   *decimal.Decimal
	EffectiveCeiling *decimal.Decimal
}

// Exclusion explains why a buyer with a config for the service type is not
// competing.
type Exclusion struct {
	BuyerID   uuid.UUID `json:"buyerId"`
	BuyerName string    `json:"buyerName"`
	Reason    string    `json:"reason"`
}

// Resolution is the full outcome of one eligibility pass.
type Resolution struct {
	Eligible []EligibleBuyer
	Excluded []Exclusion
}

type Resolver struct {
	index Index
}

func NewResolver(index Index) *Resolver {
	return &Resolver{index: index}
}

// Resolve returns the ranked eligible buyers for (serviceType, zip) and the
// excluded buyers with machine-readable reasons. Ranking is zone priority
// descending with ties broken by buyer creation order; the index returns rows
// already in that order, so filtering preserves it.
func (r *Resolver) Resolve(ctx context.Context, serviceTypeID uuid.UUID, zipCode string, opts Options) (Resolution, error) {
	coverage, err := r.index.ListCoverage(ctx, serviceTypeID, zipCode)
	if err != nil {
		return Resolution{}, err
	}

	resolution := Resolution{
		Eligible: make([]EligibleBuyer, 0, len(coverage)),
		Excluded: make([]Exclusion, 0),
	}

	for _, row := range coverage {
		if reason := r.exclusionReason(ctx, row, serviceTypeID, zipCode, opts); reason != "" {
			resolution.Excluded = append(resolution.Excluded, Exclusion{
				BuyerID:   row.Buyer.ID,
				BuyerName: row.Buyer.Name,
				Reason:    reason,
			})
			continue
		}

		floor, ceiling := EffectiveRange(row.Config, *row.Zone)
		resolution.Eligible = append(resolution.Eligible, EligibleBuyer{
			Buyer:            row.Buyer,
			Config:           row.Config,
			Zone:             *row.Zone,
			Priority:         row.Zone.Priority,
			EffectiveFloor:   floor,
			EffectiveCeiling: ceiling,
		})
	}

	return resolution, nil
}

func (r *Resolver) exclusionReason(ctx context.Context, row repository.CoverageRow, serviceTypeID uuid.UUID, zipCode string, opts Options) string {
	if !row.Buyer.IsActive {
		return ReasonBuyerInactive
	}
	if !row.Config.IsActive {
		return ReasonServiceTypeInactive
	}
	if row.Zone == nil || !row.Zone.IsActive {
		return ReasonNoCoverage
	}

	_, ceiling := EffectiveRange(row.Config, *row.Zone)
	if opts.RequireMinBid != nil && ceiling != nil && ceiling.LessThan(*opts.RequireMinBid) {
		return ReasonBidTooLow
	}

	if opts.EnforceDailyCaps && row.Zone.MaxLeadsPerDay != nil {
		delivered, err := r.index.CountDeliveredToday(ctx, row.Buyer.ID, serviceTypeID, zipCode)
		// An index read failure must not admit a capped buyer.
		if err != nil || delivered >= *row.Zone.MaxLeadsPerDay {
			return ReasonDailyLimitExceeded
		}
	}

	return ""
}

// EffectiveRange resolves the bid floor and ceiling for a zone: per-zone
// overrides when present, otherwise the service-config defaults. Either side
// may be nil (unbounded).
func EffectiveRange(cfg repository.ServiceConfig, zone repository.ZipCoverage) (floor, ceiling *decimal.Decimal) {
	floor = cfg.BidFloor
	if zone.BidFloor != nil {
		floor = zone.BidFloor
	}
	ceiling = cfg.BidCeiling
	if zone.BidCeiling != nil {
		ceiling = zone.BidCeiling
	}
	return floor, ceiling
}

// InRange reports whether a bid falls inside the effective [floor, ceiling].
func InRange(bid decimal.Decimal, floor, ceiling *decimal.Decimal) bool {
	if floor != nil && bid.LessThan(*floor) {
		return false
	}
	if ceiling != nil && bid.GreaterThan(*ceiling) {
		return false
	}
	return true
}
