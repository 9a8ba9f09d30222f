package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ListCoverage returns every buyer holding a service config for the service
// type, left-joined with its zone row for the zip. Inactive buyers, configs
// and zones are included so the resolver can report exclusion reasons; rows
// come back in final ranking order (zone priority descending, then buyer
// creation order) so the resolver never re-sorts.
func (r *Repository) ListCoverage(ctx context.Context, serviceTypeID uuid.UUID, zipCode string) ([]CoverageRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT
			b.id, b.ref, b.name, b.api_url, b.auth_type, b.auth_config, b.webhook_key_hash, b.is_active, b.ping_timeout_ms, b.created_at, b.updated_at,
			c.id, c.buyer_id, c.service_type_id, c.ping_rules, c.ping_statics, c.post_rules, c.post_statics, c.bid_floor, c.bid_ceiling, c.is_active, c.created_at, c.updated_at,
			z.id, z.zip_code, z.priority, z.max_leads_per_day, z.bid_floor, z.bid_ceiling, z.is_active, z.created_at
		FROM buyer_service_configs c
		JOIN buyers b ON b.id = c.buyer_id
		LEFT JOIN buyer_service_zip_codes z
			ON z.buyer_id = c.buyer_id AND z.service_type_id = c.service_type_id AND z.zip_code = $2
		WHERE c.service_type_id = $1
		ORDER BY COALESCE(z.priority, -1) DESC, b.created_at ASC, b.id ASC
	`, serviceTypeID, zipCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	coverage := make([]CoverageRow, 0)
	for rows.Next() {
		var row CoverageRow
		var rawAuth, pingRules, pingStatics, postRules, postStatics []byte
		var zone ZipCoverage
		var zoneID *uuid.UUID
		var zoneZip *string
		var zonePriority *int
		var zoneActive *bool
		var zoneCreatedAt *time.Time

		if err := rows.Scan(
			&row.Buyer.ID, &row.Buyer.Ref, &row.Buyer.Name, &row.Buyer.APIURL, &row.Buyer.AuthType, &rawAuth,
			&row.Buyer.WebhookKeyHash, &row.Buyer.IsActive, &row.Buyer.PingTimeoutMs, &row.Buyer.CreatedAt, &row.Buyer.UpdatedAt,
			&row.Config.ID, &row.Config.BuyerID, &row.Config.ServiceTypeID,
			&pingRules, &pingStatics, &postRules, &postStatics,
			&row.Config.BidFloor, &row.Config.BidCeiling, &row.Config.IsActive, &row.Config.CreatedAt, &row.Config.UpdatedAt,
			&zoneID, &zoneZip, &zonePriority, &zone.MaxLeadsPerDay, &zone.BidFloor, &zone.BidCeiling, &zoneActive, &zoneCreatedAt,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(rawAuth, &row.Buyer.AuthConfig); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(pingRules, &row.Config.PingRules); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(pingStatics, &row.Config.PingStatics); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(postRules, &row.Config.PostRules); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(postStatics, &row.Config.PostStatics); err != nil {
			return nil, err
		}

		if zoneID != nil {
			zone.ID = *zoneID
			zone.BuyerID = row.Buyer.ID
			zone.ServiceTypeID = row.Config.ServiceTypeID
			zone.ZipCode = *zoneZip
			zone.Priority = *zonePriority
			zone.IsActive = *zoneActive
			zone.CreatedAt = *zoneCreatedAt
			row.Zone = &zone
		}

		coverage = append(coverage, row)
	}
	return coverage, rows.Err()
}

// CountDeliveredToday returns the number of successful POST deliveries for a
// zone since UTC midnight. The transaction ledger is the single source of
// truth for daily caps; no separate counter exists to drift.
func (r *Repository) CountDeliveredToday(ctx context.Context, buyerID, serviceTypeID uuid.UUID, zipCode string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM transactions t
		JOIN leads l ON l.id = t.lead_id
		WHERE t.buyer_id = $1
			AND t.action_type = 'POST'
			AND t.status = 'SUCCESS'
			AND l.service_type_id = $2
			AND l.zip_code = $3
			AND t.created_at >= date_trunc('day', now() AT TIME ZONE 'utc')
	`, buyerID, serviceTypeID, zipCode).Scan(&count)
	return count, err
}
