package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/voucherly/voucher-service/internal/models"
)

// VoucherRepo is the Postgres-backed voucher catalog. The conditional
// increment/decrement are single-row UPDATEs guarded on the expected counter
// value; Postgres serializes the row writes, so of any set of in-flight
// attempts with the same expected value at most one can succeed.
type VoucherRepo struct {
	db *sql.DB
}

func NewVoucherRepo(db *sql.DB) *VoucherRepo {
	return &VoucherRepo{db: db}
}

const voucherColumns = `id, code, name, discount_kind, discount_value, currency,
	min_order_amount, max_discount_amount, max_redemptions, redeemed_count,
	active, window_start, window_end, created_by, created_at, updated_at`

func (r *VoucherRepo) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, code))
}

func (r *VoucherRepo) GetByID(ctx context.Context, id string) (*models.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *VoucherRepo) List(ctx context.Context) ([]models.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []models.Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, err
		}
		vouchers = append(vouchers, *v)
	}
	return vouchers, rows.Err()
}

func (r *VoucherRepo) Create(ctx context.Context, v *models.Voucher) error {
	query := `
		INSERT INTO vouchers
		(id, code, name, discount_kind, discount_value, currency,
		 min_order_amount, max_discount_amount, max_redemptions, redeemed_count,
		 active, window_start, window_end, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.Code, v.Name, v.DiscountKind, v.DiscountValue, v.Currency,
		v.MinOrderAmount, nullInt64(v.MaxDiscountAmount), v.MaxRedemptions, v.RedeemedCount,
		v.Active, nullTime(v.WindowStart), nullTime(v.WindowEnd), v.CreatedBy, v.CreatedAt, v.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return models.ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("insert voucher: %w", err)
	}
	return nil
}

// UpdateSettings persists the mutable voucher fields. The redeemed_count
// guard makes the "never shrink max_redemptions below redeemed_count" rule
// hold even against a redemption committing between the caller's read and
// this write.
func (r *VoucherRepo) UpdateSettings(ctx context.Context, v *models.Voucher) (bool, error) {
	query := `
		UPDATE vouchers
		SET name = $2, discount_kind = $3, discount_value = $4, currency = $5,
		    min_order_amount = $6, max_discount_amount = $7, max_redemptions = $8,
		    active = $9, window_start = $10, window_end = $11, updated_at = $12
		WHERE id = $1 AND redeemed_count <= $8
	`
	res, err := r.db.ExecContext(ctx, query,
		v.ID, v.Name, v.DiscountKind, v.DiscountValue, v.Currency,
		v.MinOrderAmount, nullInt64(v.MaxDiscountAmount), v.MaxRedemptions,
		v.Active, nullTime(v.WindowStart), nullTime(v.WindowEnd), v.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("update voucher: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *VoucherRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM vouchers WHERE id = $1 AND redeemed_count = 0`, id)
	if err != nil {
		return false, fmt.Errorf("delete voucher: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *VoucherRepo) ConditionalIncrement(ctx context.Context, id string, expected int64) (bool, error) {
	query := `
		UPDATE vouchers
		SET redeemed_count = redeemed_count + 1, updated_at = NOW()
		WHERE id = $1 AND redeemed_count = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, expected)
	if err != nil {
		return false, fmt.Errorf("conditional increment: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *VoucherRepo) ConditionalDecrement(ctx context.Context, id string, expected int64) (bool, error) {
	query := `
		UPDATE vouchers
		SET redeemed_count = redeemed_count - 1, updated_at = NOW()
		WHERE id = $1 AND redeemed_count = $2 AND redeemed_count > 0
	`
	res, err := r.db.ExecContext(ctx, query, id, expected)
	if err != nil {
		return false, fmt.Errorf("conditional decrement: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *VoucherRepo) scanOne(row *sql.Row) (*models.Voucher, error) {
	v, err := scanVoucher(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return v, err
}

func scanVoucher(row rowScanner) (*models.Voucher, error) {
	var (
		v           models.Voucher
		maxDiscount sql.NullInt64
		windowStart sql.NullTime
		windowEnd   sql.NullTime
	)
	err := row.Scan(
		&v.ID, &v.Code, &v.Name, &v.DiscountKind, &v.DiscountValue, &v.Currency,
		&v.MinOrderAmount, &maxDiscount, &v.MaxRedemptions, &v.RedeemedCount,
		&v.Active, &windowStart, &windowEnd, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan voucher: %w", err)
	}
	if maxDiscount.Valid {
		v.MaxDiscountAmount = &maxDiscount.Int64
	}
	if windowStart.Valid {
		t := windowStart.Time
		v.WindowStart = &t
	}
	if windowEnd.Valid {
		t := windowEnd.Time
		v.WindowEnd = &t
	}
	return &v, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
