// Package transport defines the wire DTOs for the buyers bounded context.
package transport

import (
	"time"

	"lead_exchange_backend/internal/mapping"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateBuyerRequest registers a new buyer. AuthConfig keys depend on
// authType: apikey wants "apiKey", bearer wants "token", basic wants
// "username" and "password".
type CreateBuyerRequest struct {
	Ref           string            `json:"ref" validate:"required,min=2,max=60,lowercase"`
	Name          string            `json:"name" validate:"required,min=1,max=200"`
	APIURL        string            `json:"apiUrl" validate:"required,url"`
	AuthType      string            `json:"authType" validate:"required,oneof=none apikey bearer basic"`
	AuthConfig    map[string]string `json:"authConfig,omitempty"`
	PingTimeoutMs *int              `json:"pingTimeoutMs,omitempty" validate:"omitempty,min=100,max=30000"`
}

// UpdateBuyerRequest patches buyer fields; nil means unchanged.
type UpdateBuyerRequest struct {
	Name          *string           `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	APIURL        *string           `json:"apiUrl,omitempty" validate:"omitempty,url"`
	AuthType      *string           `json:"authType,omitempty" validate:"omitempty,oneof=none apikey bearer basic"`
	AuthConfig    map[string]string `json:"authConfig,omitempty"`
	IsActive      *bool             `json:"isActive,omitempty"`
	PingTimeoutMs *int              `json:"pingTimeoutMs,omitempty" validate:"omitempty,min=100,max=30000"`
}

// BuyerResponse never exposes credentials or the webhook key hash.
type BuyerResponse struct {
	ID            uuid.UUID `json:"id"`
	Ref           string    `json:"ref"`
	Name          string    `json:"name"`
	APIURL        string    `json:"apiUrl"`
	AuthType      string    `json:"authType"`
	IsActive      bool      `json:"isActive"`
	PingTimeoutMs *int      `json:"pingTimeoutMs,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// CreateBuyerResponse carries the one-time plaintext webhook key. It is
// shown exactly once; only the hash is stored.
type CreateBuyerResponse struct {
	BuyerResponse
	WebhookKey string `json:"webhookKey"`
}

// BuyerListResponse wraps a buyer list.
type BuyerListResponse struct {
	Items []BuyerResponse `json:"items"`
	Total int             `json:"total"`
}

// UpsertConfigRequest stores the (buyer, serviceType) templates and rules.
type UpsertConfigRequest struct {
	PingRules   []mapping.Rule   `json:"pingRules" validate:"required,min=1"`
	PingStatics map[string]any   `json:"pingStatics,omitempty"`
	PostRules   []mapping.Rule   `json:"postRules" validate:"required,min=1"`
	PostStatics map[string]any   `json:"postStatics,omitempty"`
	BidFloor    *decimal.Decimal `json:"bidFloor,omitempty"`
	BidCeiling  *decimal.Decimal `json:"bidCeiling,omitempty"`
	IsActive    *bool            `json:"isActive,omitempty"`
}

// ServiceConfigResponse is the stored config view.
type ServiceConfigResponse struct {
	ID            uuid.UUID        `json:"id"`
	BuyerID       uuid.UUID        `json:"buyerId"`
	ServiceTypeID uuid.UUID        `json:"serviceTypeId"`
	PingRules     []mapping.Rule   `json:"pingRules"`
	PingStatics   map[string]any   `json:"pingStatics,omitempty"`
	PostRules     []mapping.Rule   `json:"postRules"`
	PostStatics   map[string]any   `json:"postStatics,omitempty"`
	BidFloor      *decimal.Decimal `json:"bidFloor,omitempty"`
	BidCeiling    *decimal.Decimal `json:"bidCeiling,omitempty"`
	IsActive      bool             `json:"isActive"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// ZipCoverageItem is one zone row in a bulk upsert.
type ZipCoverageItem struct {
	ZipCode        string           `json:"zipCode" validate:"required,len=5,numeric"`
	Priority       int              `json:"priority" validate:"min=0"`
	MaxLeadsPerDay *int             `json:"maxLeadsPerDay,omitempty" validate:"omitempty,min=1"`
	BidFloor       *decimal.Decimal `json:"bidFloor,omitempty"`
	BidCeiling     *decimal.Decimal `json:"bidCeiling,omitempty"`
	IsActive       *bool            `json:"isActive,omitempty"`
}

// UpsertZipCoverageRequest bulk-upserts coverage zones for a config.
type UpsertZipCoverageRequest struct {
	Zones []ZipCoverageItem `json:"zones" validate:"required,min=1,max=5000,dive"`
}

// ZipCoverageResponse is one stored zone row.
type ZipCoverageResponse struct {
	ZipCode        string           `json:"zipCode"`
	Priority       int              `json:"priority"`
	MaxLeadsPerDay *int             `json:"maxLeadsPerDay,omitempty"`
	BidFloor       *decimal.Decimal `json:"bidFloor,omitempty"`
	BidCeiling     *decimal.Decimal `json:"bidCeiling,omitempty"`
	IsActive       bool             `json:"isActive"`
}

// ZipCoverageListResponse wraps the zones of one config.
type ZipCoverageListResponse struct {
	Items []ZipCoverageResponse `json:"items"`
	Total int                   `json:"total"`
}

// PreviewRequest carries sample raw lead data for template rendering.
type PreviewRequest struct {
	Data map[string]any `json:"data" validate:"required"`
}

// EligibilityRequest is the admin coverage debugger query.
type EligibilityRequest struct {
	ServiceTypeID string `form:"serviceTypeId" validate:"required,uuid"`
	ZipCode       string `form:"zipCode" validate:"required,len=5,numeric"`
	MinBid        string `form:"minBid"`
	EnforceCaps   bool   `form:"enforceCaps"`
}

// EligibleBuyerView is one ranked candidate in the debugger response.
type EligibleBuyerView struct {
	BuyerID          uuid.UUID        `json:"buyerId"`
	BuyerRef         string           `json:"buyerRef"`
	BuyerName        string           `json:"buyerName"`
	Priority         int              `json:"priority"`
	EffectiveFloor   *decimal.Decimal `json:"effectiveFloor,omitempty"`
	EffectiveCeiling *decimal.Decimal `json:"effectiveCeiling,omitempty"`
}

// EligibilityResponse is the full resolution including exclusions.
type EligibilityResponse struct {
	Eligible []EligibleBuyerView `json:"eligible"`
	Excluded []ExclusionView     `json:"excluded"`
}

// ExclusionView carries the machine-readable reason code the admin UI keys on.
type ExclusionView struct {
	BuyerID   uuid.UUID `json:"buyerId"`
	BuyerName string    `json:"buyerName"`
	Reason    string    `json:"reason"`
}
