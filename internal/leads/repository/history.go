package repository

import (
	"context"
	"time"

	"lead_exchange_backend/internal/leads/domain"

	"github.com/google/uuid"
)

type StatusHistoryEntry struct {
	ID             uuid.UUID
	LeadID         uuid.UUID
	Actor          string
	OldStatus      *domain.Status
	NewStatus      *domain.Status
	OldDisposition *domain.Disposition
	NewDisposition *domain.Disposition
	Reason         string
	IPAddress      *string
	CreatedAt      time.Time
}

type AppendHistoryParams struct {
	LeadID         uuid.UUID
	Actor          string
	OldStatus      *domain.Status
	NewStatus      *domain.Status
	OldDisposition *domain.Disposition
	NewDisposition *domain.Disposition
	Reason         string
	IPAddress      *string
}

// AppendHistory records one transition in the append-only ledger. Rows are
// never updated or deleted while the lead exists.
func (r *Repository) AppendHistory(ctx context.Context, params AppendHistoryParams) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lead_status_history (lead_id, actor, old_status, new_status, old_disposition, new_disposition, reason, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, params.LeadID, params.Actor, params.OldStatus, params.NewStatus,
		params.OldDisposition, params.NewDisposition, params.Reason, params.IPAddress)
	return err
}

func (r *Repository) ListHistory(ctx context.Context, leadID uuid.UUID) ([]StatusHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, actor, old_status, new_status, old_disposition, new_disposition, reason, ip_address, created_at
		FROM lead_status_history
		WHERE lead_id = $1
		ORDER BY created_at ASC, id ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []StatusHistoryEntry
	for rows.Next() {
		var e StatusHistoryEntry
		if err := rows.Scan(
			&e.ID, &e.LeadID, &e.Actor, &e.OldStatus, &e.NewStatus,
			&e.OldDisposition, &e.NewDisposition, &e.Reason, &e.IPAddress, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
