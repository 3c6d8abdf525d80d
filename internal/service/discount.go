package service

import "github.com/voucherly/voucher-service/internal/models"

// ComputeDiscount maps a voucher and a positive order amount to the discount
// in minor units. Pure; the caller guarantees orderAmount > 0.
//
// PERCENT uses integer division, so fractions truncate toward zero.
func ComputeDiscount(v *models.Voucher, orderAmount int64) int64 {
	var discount int64
	switch v.DiscountKind {
	case models.DiscountPercent:
		discount = orderAmount * v.DiscountValue / 100
		if v.MaxDiscountAmount != nil && discount > *v.MaxDiscountAmount {
			discount = *v.MaxDiscountAmount
		}
	case models.DiscountFixed:
		discount = v.DiscountValue
		if discount > orderAmount {
			discount = orderAmount
		}
	}
	return discount
}
