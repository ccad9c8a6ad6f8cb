package repositories

import (
	"context"
	"errors"

	"github.com/detomata-com/kamclient/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

// Apply debits the balance and appends the purchase record as one
// transaction: either both land or neither does. The credits overwrite is
// guarded by the prior balance (newBalance + cost), so a concurrent purchase
// that moved the balance surfaces as ErrBalanceConflict instead of losing an
// update. Signature verification is deliberately not re-done here.
func (r *PurchaseRepo) Apply(ctx context.Context, accountID string, rec *models.PurchaseRecord, newBalance int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE accounts SET credits = $1
		WHERE account_id = $2 AND credits = $3
	`, newBalance, accountID, newBalance+rec.Cost)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE account_id = $1)`, accountID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return models.ErrAccountNotFound
		}
		return models.ErrBalanceConflict
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO purchases (purchase_id, account_id, item_id, quantity, cost, purchased_at, signature, device_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING purchased_at
	`, rec.PurchaseID, accountID, rec.ItemID, rec.Quantity, rec.Cost, rec.PurchasedAt, rec.Signature, rec.DeviceAddress).Scan(&rec.PurchasedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListPending returns unclaimed records expanded with catalog metadata. The
// catalog match is case-insensitive on pack name; records without a matching
// pack come back with empty enrichment and PackFound=false rather than being
// dropped.
func (r *PurchaseRepo) ListPending(ctx context.Context, accountID string) ([]models.PendingPurchase, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.purchase_id, p.item_id, p.quantity, p.cost, p.purchased_at,
		       p.signature, p.device_address,
		       ip.name, ip.description, ip.image, ip.items
		FROM purchases p
		LEFT JOIN item_packs ip ON lower(ip.name) = lower(p.item_id)
		WHERE p.account_id = $1 AND p.claimed = false
		ORDER BY p.purchased_at
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []models.PendingPurchase
	for rows.Next() {
		var pp models.PendingPurchase
		var name, desc, image *string
		var items []string
		err := rows.Scan(&pp.PurchaseID, &pp.ItemID, &pp.Quantity, &pp.Cost, &pp.PurchasedAt,
			&pp.Signature, &pp.DeviceAddress,
			&name, &desc, &image, &items)
		if err != nil {
			return nil, err
		}

		if name != nil {
			pp.PackFound = true
			pp.PackName = *name
			pp.Items = items
			if desc != nil {
				pp.PackDescription = *desc
			}
			if image != nil {
				pp.PackImage = *image
			}
		} else {
			pp.PackName = pp.ItemID
			pp.PackDescription = "Pack details not found"
			pp.Items = []string{}
		}
		pending = append(pending, pp)
	}
	return pending, rows.Err()
}

// Claim marks the listed records claimed by a device. Ids that are unknown or
// already claimed are skipped silently; the count covers newly-claimed rows
// only, which makes re-claiming a no-op.
func (r *PurchaseRepo) Claim(ctx context.Context, accountID string, purchaseIDs []string, deviceID string) (int64, error) {
	ct, err := r.pool.Exec(ctx, `
		UPDATE purchases
		SET claimed = true, claimed_by_device = $3, claimed_at = now()
		WHERE account_id = $1 AND purchase_id = ANY($2) AND claimed = false
	`, accountID, purchaseIDs, deviceID)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *PurchaseRepo) GetByID(ctx context.Context, accountID, purchaseID string) (*models.PurchaseRecord, error) {
	var rec models.PurchaseRecord
	err := r.pool.QueryRow(ctx, `
		SELECT purchase_id, item_id, quantity, cost, purchased_at, signature, device_address,
		       claimed, COALESCE(claimed_by_device, ''), claimed_at
		FROM purchases WHERE account_id = $1 AND purchase_id = $2
	`, accountID, purchaseID).Scan(&rec.PurchaseID, &rec.ItemID, &rec.Quantity, &rec.Cost, &rec.PurchasedAt,
		&rec.Signature, &rec.DeviceAddress, &rec.Claimed, &rec.ClaimedByDevice, &rec.ClaimedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrPurchaseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
