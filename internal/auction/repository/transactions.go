// Package repository provides data access for the auction transaction ledger.
// The ledger is append-only: every PING and POST sent to a buyer produces
// exactly one row, including calls that failed in transport.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	ActionPing = "PING"
	ActionPost = "POST"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
	StatusTimeout = "TIMEOUT"
)

type Transaction struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	BuyerID        uuid.UUID
	ActionType     string
	Status         string
	RequestPayload map[string]any
	ResponseBody   *string
	HTTPStatus     *int
	Bid            *decimal.Decimal
	ResponseTimeMs int
	ErrorMessage   *string
	CreatedAt      time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type AppendParams struct {
	LeadID         uuid.UUID
	BuyerID        uuid.UUID
	ActionType     string
	Status         string
	RequestPayload map[string]any
	ResponseBody   *string
	HTTPStatus     *int
	Bid            *decimal.Decimal
	ResponseTimeMs int
	ErrorMessage   *string
}

func (r *Repository) Append(ctx context.Context, params AppendParams) error {
	payloadJSON, err := json.Marshal(params.RequestPayload)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO transactions (lead_id, buyer_id, action_type, status, request_payload, response_body, http_status, bid, response_time_ms, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, params.LeadID, params.BuyerID, params.ActionType, params.Status, payloadJSON,
		params.ResponseBody, params.HTTPStatus, params.Bid, params.ResponseTimeMs, params.ErrorMessage)
	return err
}

type ListFilter struct {
	LeadID     *uuid.UUID
	BuyerID    *uuid.UUID
	ActionType *string
	Limit      int
	Offset     int
}

// ListByFilter returns ledger rows newest first for dispute resolution.
func (r *Repository) ListByFilter(ctx context.Context, filter ListFilter) ([]Transaction, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, buyer_id, action_type, status, request_payload, response_body, http_status, bid, response_time_ms, error_message, created_at
		FROM transactions
		WHERE ($1::uuid IS NULL OR lead_id = $1)
		  AND ($2::uuid IS NULL OR buyer_id = $2)
		  AND ($3::text IS NULL OR action_type = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5
	`, filter.LeadID, filter.BuyerID, filter.ActionType, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var tx Transaction
		var payloadJSON []byte
		if err := rows.Scan(
			&tx.ID, &tx.LeadID, &tx.BuyerID, &tx.ActionType, &tx.Status, &payloadJSON,
			&tx.ResponseBody, &tx.HTTPStatus, &tx.Bid, &tx.ResponseTimeMs, &tx.ErrorMessage, &tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payloadJSON, &tx.RequestPayload); err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *Repository) ListByLead(ctx context.Context, leadID uuid.UUID) ([]Transaction, error) {
	return r.ListByFilter(ctx, ListFilter{LeadID: &leadID, Limit: 500})
}
