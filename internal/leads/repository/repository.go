package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lead_exchange_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("lead not found")

type Lead struct {
	ID               uuid.UUID
	ServiceTypeID    uuid.UUID
	ZipCode          string
	RawData          map[string]any
	Status           domain.Status
	Disposition      domain.Disposition
	WinningBuyerID   *uuid.UUID
	WinningBid       *decimal.Decimal
	LeadQualityScore int
	Compliance       map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateLeadParams struct {
	ServiceTypeID    uuid.UUID
	ZipCode          string
	RawData          map[string]any
	LeadQualityScore int
	Compliance       map[string]any
}

// Create persists a new lead in PENDING/NEW. Intake is the only caller.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	rawJSON, err := json.Marshal(params.RawData)
	if err != nil {
		return Lead{}, err
	}
	complianceJSON, err := json.Marshal(orEmpty(params.Compliance))
	if err != nil {
		return Lead{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (service_type_id, zip_code, raw_data, status, disposition, lead_quality_score, compliance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, service_type_id, zip_code, raw_data, status, disposition, winning_buyer_id, winning_bid, lead_quality_score, compliance, created_at, updated_at
	`, params.ServiceTypeID, params.ZipCode, rawJSON, domain.StatusPending, domain.DispositionNew,
		params.LeadQualityScore, complianceJSON)

	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, service_type_id, zip_code, raw_data, status, disposition, winning_buyer_id, winning_bid, lead_quality_score, compliance, created_at, updated_at
		FROM leads
		WHERE id = $1
	`, id)

	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

type ListLeadsFilter struct {
	Status        *domain.Status
	ServiceTypeID *uuid.UUID
	Limit         int
	Offset        int
}

func (r *Repository) List(ctx context.Context, filter ListLeadsFilter) ([]Lead, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, service_type_id, zip_code, raw_data, status, disposition, winning_buyer_id, winning_bid, lead_quality_score, compliance, created_at, updated_at
		FROM leads
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::uuid IS NULL OR service_type_id = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, filter.Status, filter.ServiceTypeID, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

// ListPending returns up to limit PENDING leads, oldest first, for the
// auction worker.
func (r *Repository) ListPending(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, service_type_id, zip_code, raw_data, status, disposition, winning_buyer_id, winning_bid, lead_quality_score, compliance, created_at, updated_at
		FROM leads
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, domain.StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectLeads(rows)
}

// StatusWrite is one status-machine write. Winner fields are set once, only
// together with AUCTIONED; disposition moves independently.
type StatusWrite struct {
	Status         domain.Status
	Disposition    *domain.Disposition
	WinningBuyerID *uuid.UUID
	WinningBid     *decimal.Decimal
}

// UpdateStatusIf applies the write only if the lead's stored status still
// equals expected. The single conditional UPDATE is the compare-and-swap the
// webhook reconciler builds on; a false return means the caller lost a race
// and must re-read.
func (r *Repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected domain.Status, write StatusWrite) (bool, error) {
	// Winner fields exist iff the status says a winner exists. Writes into a
	// non-winner status clear them; writes into a winner status keep or set them.
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads
		SET status = $3,
			disposition = COALESCE($4, disposition),
			winning_buyer_id = CASE WHEN $7 THEN COALESCE($5, winning_buyer_id) ELSE NULL END,
			winning_bid = CASE WHEN $7 THEN COALESCE($6, winning_bid) ELSE NULL END,
			updated_at = now()
		WHERE id = $1 AND status = $2
	`, id, expected, write.Status, write.Disposition, write.WinningBuyerID, write.WinningBid, domain.HasWinner(write.Status))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ForceStatus applies the write unconditionally and returns the status it
// replaced. Reserved for the buyer-authoritative delivery-failure override;
// every other caller goes through UpdateStatusIf.
func (r *Repository) ForceStatus(ctx context.Context, id uuid.UUID, write StatusWrite) (domain.Status, error) {
	var old domain.Status
	err := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET status = $2,
			disposition = COALESCE($3, disposition),
			winning_buyer_id = CASE WHEN $4 THEN winning_buyer_id ELSE NULL END,
			winning_bid = CASE WHEN $4 THEN winning_bid ELSE NULL END,
			updated_at = now()
		WHERE id = $1
		RETURNING (SELECT status FROM leads WHERE id = $1)
	`, id, write.Status, write.Disposition, domain.HasWinner(write.Status)).Scan(&old)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return old, err
}

// Delete hard-deletes a lead; transactions and status history cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func collectLeads(rows pgx.Rows) ([]Lead, error) {
	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func scanLead(row rowScanner) (Lead, error) {
	var lead Lead
	var rawJSON, complianceJSON []byte
	err := row.Scan(
		&lead.ID, &lead.ServiceTypeID, &lead.ZipCode, &rawJSON, &lead.Status, &lead.Disposition,
		&lead.WinningBuyerID, &lead.WinningBid, &lead.LeadQualityScore, &complianceJSON,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return Lead{}, err
	}
	if err := json.Unmarshal(rawJSON, &lead.RawData); err != nil {
		return Lead{}, err
	}
	if err := json.Unmarshal(complianceJSON, &lead.Compliance); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
