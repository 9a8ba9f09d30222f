// Package transport defines the wire DTOs for the leads bounded context.
package transport

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateLeadRequest is the intake payload. Data is the opaque raw form map;
// it is never transformed until delivery time.
type CreateLeadRequest struct {
	ServiceTypeID uuid.UUID      `json:"serviceTypeId" validate:"required"`
	ZipCode       string         `json:"zipCode" validate:"required,len=5,numeric"`
	Data          map[string]any `json:"data" validate:"required"`
	QualityScore  *int           `json:"qualityScore,omitempty" validate:"omitempty,min=0,max=100"`
	Compliance    map[string]any `json:"compliance,omitempty"`
}

// ChangeStatusRequest is the admin status-change payload.
type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// ListLeadsRequest carries admin list filters.
type ListLeadsRequest struct {
	Status        string `form:"status"`
	ServiceTypeID string `form:"serviceTypeId"`
	Page          int    `form:"page"`
	PageSize      int    `form:"pageSize"`
}

// LeadResponse is the admin view of a lead.
type LeadResponse struct {
	ID               uuid.UUID        `json:"id"`
	ServiceTypeID    uuid.UUID        `json:"serviceTypeId"`
	ZipCode          string           `json:"zipCode"`
	Status           string           `json:"status"`
	Disposition      string           `json:"disposition"`
	WinningBuyerID   *uuid.UUID       `json:"winningBuyerId,omitempty"`
	WinningBid       *decimal.Decimal `json:"winningBid,omitempty"`
	LeadQualityScore int              `json:"leadQualityScore"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// HistoryEntryResponse is one row of the status ledger.
type HistoryEntryResponse struct {
	Actor          string    `json:"actor"`
	OldStatus      *string   `json:"oldStatus,omitempty"`
	NewStatus      *string   `json:"newStatus,omitempty"`
	OldDisposition *string   `json:"oldDisposition,omitempty"`
	NewDisposition *string   `json:"newDisposition,omitempty"`
	Reason         string    `json:"reason"`
	IPAddress      *string   `json:"ipAddress,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TransactionResponse is one row of the PING/POST ledger.
type TransactionResponse struct {
	ID             uuid.UUID        `json:"id"`
	BuyerID        uuid.UUID        `json:"buyerId"`
	ActionType     string           `json:"actionType"`
	Status         string           `json:"status"`
	HTTPStatus     *int             `json:"httpStatus,omitempty"`
	Bid            *decimal.Decimal `json:"bid,omitempty"`
	ResponseTimeMs int              `json:"responseTimeMs"`
	ErrorMessage   *string          `json:"errorMessage,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
}

// LeadDetailResponse is the admin detail view with both ledgers inlined.
type LeadDetailResponse struct {
	LeadResponse
	Data         map[string]any         `json:"data"`
	Compliance   map[string]any         `json:"compliance,omitempty"`
	History      []HistoryEntryResponse `json:"history"`
	Transactions []TransactionResponse  `json:"transactions"`
}

// LeadListResponse wraps a lead list page.
type LeadListResponse struct {
	Items []LeadResponse `json:"items"`
	Total int            `json:"total"`
}

// ListTransactionsRequest carries the dispute-resolution ledger filters.
type ListTransactionsRequest struct {
	LeadID     string `form:"leadId"`
	BuyerID    string `form:"buyerId"`
	ActionType string `form:"actionType" validate:"omitempty,oneof=PING POST"`
	Page       int    `form:"page"`
	PageSize   int    `form:"pageSize"`
}

// TransactionListResponse wraps a transaction ledger page. LeadID is included
// because the list is not scoped to one lead.
type TransactionListItem struct {
	TransactionResponse
	LeadID uuid.UUID `json:"leadId"`
}

type TransactionListResponse struct {
	Items []TransactionListItem `json:"items"`
	Total int                   `json:"total"`
}
