package models

import "errors"

// Storage-level sentinels. Repositories translate driver errors into these so
// the service layer never inspects pq error codes itself.
var (
	// ErrDuplicateRedemption is returned by the ledger when the partial unique
	// index on (voucher_id, user_id, status=SUCCESS) rejects an insert.
	ErrDuplicateRedemption = errors.New("redemption already exists for voucher and user")

	// ErrDuplicateCode is returned by the catalog when a voucher code is taken.
	ErrDuplicateCode = errors.New("voucher code already exists")

	// ErrVoucherInUse rejects deleting a voucher that has been redeemed.
	ErrVoucherInUse = errors.New("voucher has redemptions and cannot be deleted")

	// ErrInvalidVoucher wraps static field validation failures.
	ErrInvalidVoucher = errors.New("invalid voucher definition")

	// ErrNotRefundable rejects refunding a redemption that is not in SUCCESS.
	ErrNotRefundable = errors.New("redemption is not refundable")
)
