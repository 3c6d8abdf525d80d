package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/voucherly/voucher-service/internal/models"
)

// RedemptionRepo is the Postgres-backed redemption ledger. The partial unique
// index ux_redemptions_voucher_user (voucher_id, user_id WHERE status =
// 'SUCCESS') is the storage backstop that closes the read-then-write gap in
// the engine's duplicate check.
type RedemptionRepo struct {
	db *sql.DB
}

func NewRedemptionRepo(db *sql.DB) *RedemptionRepo {
	return &RedemptionRepo{db: db}
}

const redemptionColumns = `id, voucher_id, user_id, order_id, order_amount,
	discount_amount, final_amount, status, redeemed_at`

func (r *RedemptionRepo) Insert(ctx context.Context, rec *models.Redemption) error {
	query := `
		INSERT INTO redemptions
		(id, voucher_id, user_id, order_id, order_amount, discount_amount, final_amount, status, redeemed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.VoucherID, rec.UserID, nullString(rec.OrderID),
		rec.OrderAmount, rec.DiscountAmount, rec.FinalAmount, rec.Status, rec.RedeemedAt,
	)
	if isUniqueViolation(err) {
		return models.ErrDuplicateRedemption
	}
	if err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}

// FindByVoucherAndUser returns the SUCCESS redemption for the pair, nil when
// none exists. Refunded and cancelled records do not count as prior use.
func (r *RedemptionRepo) FindByVoucherAndUser(ctx context.Context, voucherID, userID string) (*models.Redemption, error) {
	query := `SELECT ` + redemptionColumns + `
		FROM redemptions WHERE voucher_id = $1 AND user_id = $2 AND status = $3`
	rec, err := scanRedemption(r.db.QueryRowContext(ctx, query, voucherID, userID, models.RedemptionSuccess))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *RedemptionRepo) GetByID(ctx context.Context, id string) (*models.Redemption, error) {
	query := `SELECT ` + redemptionColumns + ` FROM redemptions WHERE id = $1`
	rec, err := scanRedemption(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// MarkStatus flips a record from one status to another. Conditioning on the
// current status makes the transition apply at most once.
func (r *RedemptionRepo) MarkStatus(ctx context.Context, id string, from, to models.RedemptionStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE redemptions SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, fmt.Errorf("mark redemption status: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func scanRedemption(row rowScanner) (*models.Redemption, error) {
	var (
		rec     models.Redemption
		orderID sql.NullString
	)
	err := row.Scan(
		&rec.ID, &rec.VoucherID, &rec.UserID, &orderID,
		&rec.OrderAmount, &rec.DiscountAmount, &rec.FinalAmount, &rec.Status, &rec.RedeemedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan redemption: %w", err)
	}
	rec.OrderID = orderID.String
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
