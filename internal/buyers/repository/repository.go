package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"lead_exchange_backend/internal/mapping"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("buyer not found")

// Buyer auth types. The credential bag is opaque; only AuthType decides which
// header the ping/post client sends.
const (
	AuthTypeNone   = "none"
	AuthTypeAPIKey = "apikey"
	AuthTypeBearer = "bearer"
	AuthTypeBasic  = "basic"
)

type Buyer struct {
	ID             uuid.UUID
	Ref            string // URL-safe identifier used in webhook paths
	Name           string
	APIURL         string
	AuthType       string
	AuthConfig     map[string]string
	WebhookKeyHash string
	IsActive       bool
	PingTimeoutMs  *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ServiceConfig is the per-(buyer, serviceType) configuration: templates,
// mapping rules and default bid range. Exactly one row per pair.
type ServiceConfig struct {
	ID            uuid.UUID
	BuyerID       uuid.UUID
	ServiceTypeID uuid.UUID
	PingRules     []mapping.Rule
	PingStatics   map[string]any
	PostRules     []mapping.Rule
	PostStatics   map[string]any
	BidFloor      *decimal.Decimal
	BidCeiling    *decimal.Decimal
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ZipCoverage is one (buyer, serviceType, zipCode) zone row.
type ZipCoverage struct {
	ID             uuid.UUID
	BuyerID        uuid.UUID
	ServiceTypeID  uuid.UUID
	ZipCode        string
	Priority       int
	MaxLeadsPerDay *int
	BidFloor       *decimal.Decimal
	BidCeiling     *decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
}

// CoverageRow is the eligibility join: every buyer holding a service config
// for the requested service type, with its zone row for the requested zip
// when one exists. Zone is nil when the buyer has no coverage for the zip.
type CoverageRow struct {
	Buyer  Buyer
	Config ServiceConfig
	Zone   *ZipCoverage
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type CreateBuyerParams struct {
	Ref            string
	Name           string
	APIURL         string
	AuthType       string
	AuthConfig     map[string]string
	WebhookKeyHash string
	PingTimeoutMs  *int
}

func (r *Repository) Create(ctx context.Context, params CreateBuyerParams) (Buyer, error) {
	authJSON, err := json.Marshal(params.AuthConfig)
	if err != nil {
		return Buyer{}, err
	}

	var buyer Buyer
	var rawAuth []byte
	err = r.pool.QueryRow(ctx, `
		INSERT INTO buyers (ref, name, api_url, auth_type, auth_config, webhook_key_hash, ping_timeout_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, ref, name, api_url, auth_type, auth_config, webhook_key_hash, is_active, ping_timeout_ms, created_at, updated_at
	`, params.Ref, params.Name, params.APIURL, params.AuthType, authJSON, params.WebhookKeyHash, params.PingTimeoutMs).Scan(
		&buyer.ID, &buyer.Ref, &buyer.Name, &buyer.APIURL, &buyer.AuthType, &rawAuth,
		&buyer.WebhookKeyHash, &buyer.IsActive, &buyer.PingTimeoutMs, &buyer.CreatedAt, &buyer.UpdatedAt,
	)
	if err != nil {
		return Buyer{}, err
	}
	if err := json.Unmarshal(rawAuth, &buyer.AuthConfig); err != nil {
		return Buyer{}, err
	}
	return buyer, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Buyer, error) {
	return r.getBuyer(ctx, `WHERE id = $1`, id)
}

func (r *Repository) GetByRef(ctx context.Context, ref string) (Buyer, error) {
	return r.getBuyer(ctx, `WHERE ref = $1`, ref)
}

func (r *Repository) getBuyer(ctx context.Context, where string, arg any) (Buyer, error) {
	var buyer Buyer
	var rawAuth []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, ref, name, api_url, auth_type, auth_config, webhook_key_hash, is_active, ping_timeout_ms, created_at, updated_at
		FROM buyers `+where, arg).Scan(
		&buyer.ID, &buyer.Ref, &buyer.Name, &buyer.APIURL, &buyer.AuthType, &rawAuth,
		&buyer.WebhookKeyHash, &buyer.IsActive, &buyer.PingTimeoutMs, &buyer.CreatedAt, &buyer.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Buyer{}, ErrNotFound
	}
	if err != nil {
		return Buyer{}, err
	}
	if err := json.Unmarshal(rawAuth, &buyer.AuthConfig); err != nil {
		return Buyer{}, err
	}
	return buyer, nil
}

type UpdateBuyerParams struct {
	Name          *string
	APIURL        *string
	AuthType      *string
	AuthConfig    map[string]string
	IsActive      *bool
	PingTimeoutMs *int
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateBuyerParams) (Buyer, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return Buyer{}, err
	}

	if params.Name != nil {
		current.Name = *params.Name
	}
	if params.APIURL != nil {
		current.APIURL = *params.APIURL
	}
	if params.AuthType != nil {
		current.AuthType = *params.AuthType
	}
	if params.AuthConfig != nil {
		current.AuthConfig = params.AuthConfig
	}
	if params.IsActive != nil {
		current.IsActive = *params.IsActive
	}
	if params.PingTimeoutMs != nil {
		current.PingTimeoutMs = params.PingTimeoutMs
	}

	authJSON, err := json.Marshal(current.AuthConfig)
	if err != nil {
		return Buyer{}, err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE buyers
		SET name = $2, api_url = $3, auth_type = $4, auth_config = $5, is_active = $6, ping_timeout_ms = $7, updated_at = now()
		WHERE id = $1
	`, id, current.Name, current.APIURL, current.AuthType, authJSON, current.IsActive, current.PingTimeoutMs)
	if err != nil {
		return Buyer{}, err
	}
	if tag.RowsAffected() == 0 {
		return Buyer{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete hard-deletes a buyer; service configs and zip coverage cascade at
// the schema level.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM buyers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context) ([]Buyer, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ref, name, api_url, auth_type, auth_config, webhook_key_hash, is_active, ping_timeout_ms, created_at, updated_at
		FROM buyers
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buyers := make([]Buyer, 0)
	for rows.Next() {
		var buyer Buyer
		var rawAuth []byte
		if err := rows.Scan(
			&buyer.ID, &buyer.Ref, &buyer.Name, &buyer.APIURL, &buyer.AuthType, &rawAuth,
			&buyer.WebhookKeyHash, &buyer.IsActive, &buyer.PingTimeoutMs, &buyer.CreatedAt, &buyer.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawAuth, &buyer.AuthConfig); err != nil {
			return nil, err
		}
		buyers = append(buyers, buyer)
	}
	return buyers, rows.Err()
}
