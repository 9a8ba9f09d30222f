package repository

import (
	"context"
	"encoding/json"
	"errors"

	"lead_exchange_backend/internal/mapping"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var ErrConfigNotFound = errors.New("buyer service config not found")

type UpsertServiceConfigParams struct {
	BuyerID       uuid.UUID
	ServiceTypeID uuid.UUID
	PingRules     []mapping.Rule
	PingStatics   map[string]any
	PostRules     []mapping.Rule
	PostStatics   map[string]any
	BidFloor      *decimal.Decimal
	BidCeiling    *decimal.Decimal
	IsActive      bool
}

// UpsertServiceConfig creates or replaces the single config for a
// (buyer, serviceType) pair.
func (r *Repository) UpsertServiceConfig(ctx context.Context, params UpsertServiceConfigParams) (ServiceConfig, error) {
	pingRules, err := json.Marshal(params.PingRules)
	if err != nil {
		return ServiceConfig{}, err
	}
	pingStatics, err := json.Marshal(orEmptyMap(params.PingStatics))
	if err != nil {
		return ServiceConfig{}, err
	}
	postRules, err := json.Marshal(params.PostRules)
	if err != nil {
		return ServiceConfig{}, err
	}
	postStatics, err := json.Marshal(orEmptyMap(params.PostStatics))
	if err != nil {
		return ServiceConfig{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO buyer_service_configs
			(buyer_id, service_type_id, ping_rules, ping_statics, post_rules, post_statics, bid_floor, bid_ceiling, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (buyer_id, service_type_id) DO UPDATE SET
			ping_rules = EXCLUDED.ping_rules,
			ping_statics = EXCLUDED.ping_statics,
			post_rules = EXCLUDED.post_rules,
			post_statics = EXCLUDED.post_statics,
			bid_floor = EXCLUDED.bid_floor,
			bid_ceiling = EXCLUDED.bid_ceiling,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id, buyer_id, service_type_id, ping_rules, ping_statics, post_rules, post_statics, bid_floor, bid_ceiling, is_active, created_at, updated_at
	`, params.BuyerID, params.ServiceTypeID, pingRules, pingStatics, postRules, postStatics,
		params.BidFloor, params.BidCeiling, params.IsActive)

	return scanServiceConfig(row)
}

func (r *Repository) GetServiceConfig(ctx context.Context, buyerID, serviceTypeID uuid.UUID) (ServiceConfig, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, buyer_id, service_type_id, ping_rules, ping_statics, post_rules, post_statics, bid_floor, bid_ceiling, is_active, created_at, updated_at
		FROM buyer_service_configs
		WHERE buyer_id = $1 AND service_type_id = $2
	`, buyerID, serviceTypeID)

	cfg, err := scanServiceConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ServiceConfig{}, ErrConfigNotFound
	}
	return cfg, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanServiceConfig(row rowScanner) (ServiceConfig, error) {
	var cfg ServiceConfig
	var pingRules, pingStatics, postRules, postStatics []byte
	err := row.Scan(
		&cfg.ID, &cfg.BuyerID, &cfg.ServiceTypeID,
		&pingRules, &pingStatics, &postRules, &postStatics,
		&cfg.BidFloor, &cfg.BidCeiling, &cfg.IsActive, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		return ServiceConfig{}, err
	}
	if err := json.Unmarshal(pingRules, &cfg.PingRules); err != nil {
		return ServiceConfig{}, err
	}
	if err := json.Unmarshal(pingStatics, &cfg.PingStatics); err != nil {
		return ServiceConfig{}, err
	}
	if err := json.Unmarshal(postRules, &cfg.PostRules); err != nil {
		return ServiceConfig{}, err
	}
	if err := json.Unmarshal(postStatics, &cfg.PostStatics); err != nil {
		return ServiceConfig{}, err
	}
	return cfg, nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

type UpsertZipCoverageParams struct {
	BuyerID        uuid.UUID
	ServiceTypeID  uuid.UUID
	ZipCode        string
	Priority       int
	MaxLeadsPerDay *int
	BidFloor       *decimal.Decimal
	BidCeiling     *decimal.Decimal
	IsActive       bool
}

// UpsertZipCoverage bulk-upserts zone rows; uniqueness is per
// (buyer, serviceType, zipCode).
func (r *Repository) UpsertZipCoverage(ctx context.Context, params []UpsertZipCoverageParams) (int, error) {
	batch := &pgx.Batch{}
	for _, p := range params {
		batch.Queue(`
			INSERT INTO buyer_service_zip_codes
				(buyer_id, service_type_id, zip_code, priority, max_leads_per_day, bid_floor, bid_ceiling, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (buyer_id, service_type_id, zip_code) DO UPDATE SET
				priority = EXCLUDED.priority,
				max_leads_per_day = EXCLUDED.max_leads_per_day,
				bid_floor = EXCLUDED.bid_floor,
				bid_ceiling = EXCLUDED.bid_ceiling,
				is_active = EXCLUDED.is_active
		`, p.BuyerID, p.ServiceTypeID, p.ZipCode, p.Priority, p.MaxLeadsPerDay, p.BidFloor, p.BidCeiling, p.IsActive)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	affected := 0
	for range params {
		tag, err := results.Exec()
		if err != nil {
			return affected, err
		}
		affected += int(tag.RowsAffected())
	}
	return affected, nil
}

func (r *Repository) ListZipCoverage(ctx context.Context, buyerID, serviceTypeID uuid.UUID) ([]ZipCoverage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, buyer_id, service_type_id, zip_code, priority, max_leads_per_day, bid_floor, bid_ceiling, is_active, created_at
		FROM buyer_service_zip_codes
		WHERE buyer_id = $1 AND service_type_id = $2
		ORDER BY zip_code ASC
	`, buyerID, serviceTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	zones := make([]ZipCoverage, 0)
	for rows.Next() {
		var z ZipCoverage
		if err := rows.Scan(
			&z.ID, &z.BuyerID, &z.ServiceTypeID, &z.ZipCode, &z.Priority,
			&z.MaxLeadsPerDay, &z.BidFloor, &z.BidCeiling, &z.IsActive, &z.CreatedAt,
		); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}
