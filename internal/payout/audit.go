package payout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/puntomas/panel/internal/commission"
)

// AuditEntry is one submitted batch.
type AuditEntry struct {
	ID         int64              `json:"id"`
	ActorName  string             `json:"actor"`
	ActorRole  commission.Role    `json:"rol"`
	SellerID   int64              `json:"vendedorId"`
	Mode       commission.PayMode `json:"modo"`
	SaleIDs    []int64            `json:"ventasIds"`
	Total      decimal.Decimal    `json:"total"`
	Outcome    string             `json:"resultado"`
	Error      string             `json:"error,omitempty"`
	OccurredAt time.Time          `json:"fecha"`
}

// Auditor records submitted batches.
type Auditor interface {
	Record(ctx context.Context, entry AuditEntry) error
	Recent(ctx context.Context, sellerID int64, limit int) ([]AuditEntry, error)
}

// PGAuditor writes batches into payout_audit.
type PGAuditor struct {
	pool *pgxpool.Pool
}

// NewPGAuditor returns an Auditor over pool.
func NewPGAuditor(pool *pgxpool.Pool) *PGAuditor {
	return &PGAuditor{pool: pool}
}

// Record persists the entry.
func (a *PGAuditor) Record(ctx context.Context, e AuditEntry) error {
	if a == nil || a.pool == nil {
		return errors.New("payout audit not initialised")
	}
	if e.SellerID <= 0 || e.Mode == "" || e.Outcome == "" {
		return errors.New("payout audit requires seller, mode and outcome")
	}
	var errText *string
	if e.Error != "" {
		errText = &e.Error
	}
	_, err := a.pool.Exec(ctx, `INSERT INTO payout_audit (actor_name, actor_role, seller_id, mode, sale_ids, total, outcome, error, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6::text::numeric, $7, $8, COALESCE($9, NOW()))`,
		e.ActorName, string(e.ActorRole), e.SellerID, string(e.Mode), e.SaleIDs, e.Total.StringFixed(2), e.Outcome, errText, nullTime(e.OccurredAt))
	if err != nil {
		return fmt.Errorf("payout: record audit: %w", err)
	}
	return nil
}

// Recent lists the latest batches submitted for a seller, newest first.
func (a *PGAuditor) Recent(ctx context.Context, sellerID int64, limit int) ([]AuditEntry, error) {
	if a == nil || a.pool == nil {
		return nil, errors.New("payout audit not initialised")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := a.pool.Query(ctx, `SELECT id, actor_name, actor_role, seller_id, mode, sale_ids, total::text, outcome, COALESCE(error, ''), occurred_at
FROM payout_audit WHERE seller_id = $1 ORDER BY occurred_at DESC, id DESC LIMIT $2`, sellerID, limit)
	if err != nil {
		return nil, fmt.Errorf("payout: query audit: %w", err)
	}
	defer rows.Close()

	entries := make([]AuditEntry, 0)
	for rows.Next() {
		var (
			e     AuditEntry
			role  string
			mode  string
			total string
		)
		if err := rows.Scan(&e.ID, &e.ActorName, &role, &e.SellerID, &mode, &e.SaleIDs, &total, &e.Outcome, &e.Error, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("payout: scan audit: %w", err)
		}
		e.ActorRole = commission.Role(role)
		e.Mode = commission.PayMode(mode)
		if e.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("payout: parse audit total: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
