package models

import (
	"errors"
	"time"
)

// RedeemRequest is the engine input after the transport layer has resolved
// the caller identity. UserID comes from the identity collaborator, never
// from the request body.
type RedeemRequest struct {
	VoucherCode string
	UserID      string
	OrderAmount int64
	OrderID     string
}

// Validate covers primitive shape only; business eligibility is the engine's job.
func (r RedeemRequest) Validate() error {
	if NormalizeCode(r.VoucherCode) == "" {
		return errors.New("voucher_code is required")
	}
	if r.UserID == "" {
		return errors.New("user_id is required")
	}
	if r.OrderAmount <= 0 {
		return errors.New("order_amount must be a positive integer")
	}
	return nil
}

// RedeemResult is the committed outcome returned to the caller.
type RedeemResult struct {
	VoucherCode    string       `json:"voucher_code"`
	VoucherName    string       `json:"voucher_name"`
	DiscountKind   DiscountKind `json:"discount_kind"`
	DiscountValue  int64        `json:"discount_value"`
	OrderAmount    int64        `json:"order_amount"`
	DiscountAmount int64        `json:"discount_amount"`
	FinalAmount    int64        `json:"final_amount"`
	Currency       string       `json:"currency"`
	RedeemedAt     time.Time    `json:"redeemed_at"`
}
