package models

import (
	"time"

	"github.com/google/uuid"
)

type RedemptionStatus string

const (
	RedemptionSuccess   RedemptionStatus = "SUCCESS"
	RedemptionCancelled RedemptionStatus = "CANCELLED"
	RedemptionRefunded  RedemptionStatus = "REFUNDED"
)

// Redemption is one committed application of a voucher to an order.
// Records are append-only; status is the only field that ever changes,
// and only from SUCCESS to REFUNDED or CANCELLED.
type Redemption struct {
	ID             string
	VoucherID      string
	UserID         string
	OrderID        string
	OrderAmount    int64
	DiscountAmount int64
	FinalAmount    int64
	Status         RedemptionStatus
	RedeemedAt     time.Time
}

func NewRedemption(voucherID, userID, orderID string, orderAmount, discountAmount int64, redeemedAt time.Time) *Redemption {
	return &Redemption{
		ID:             uuid.New().String(),
		VoucherID:      voucherID,
		UserID:         userID,
		OrderID:        orderID,
		OrderAmount:    orderAmount,
		DiscountAmount: discountAmount,
		FinalAmount:    orderAmount - discountAmount,
		Status:         RedemptionSuccess,
		RedeemedAt:     redeemedAt,
	}
}
