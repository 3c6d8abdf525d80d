package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voucherly/voucher-service/internal/models"
)

func i64(v int64) *int64 { return &v }

func testVoucher(mod func(*models.Voucher)) *models.Voucher {
	v := &models.Voucher{
		ID:                "v-1",
		Code:              "SUMMER30",
		Name:              "Summer promo",
		DiscountKind:      models.DiscountPercent,
		DiscountValue:     30,
		Currency:          "IDR",
		MinOrderAmount:    50000,
		MaxDiscountAmount: i64(30000),
		MaxRedemptions:    1,
		Active:            true,
	}
	if mod != nil {
		mod(v)
	}
	return v
}

func TestComputeDiscount(t *testing.T) {
	tests := []struct {
		name        string
		voucher     *models.Voucher
		orderAmount int64
		want        int64
	}{
		{
			name:        "percent clamped to max discount",
			voucher:     testVoucher(nil), // 30% capped at 30000
			orderAmount: 150000,
			want:        30000,
		},
		{
			name: "percent below cap",
			voucher: testVoucher(func(v *models.Voucher) {
				v.MaxDiscountAmount = i64(100000)
			}),
			orderAmount: 150000,
			want:        45000,
		},
		{
			name: "percent without cap",
			voucher: testVoucher(func(v *models.Voucher) {
				v.MaxDiscountAmount = nil
			}),
			orderAmount: 150000,
			want:        45000,
		},
		{
			name: "percent truncates toward zero",
			voucher: testVoucher(func(v *models.Voucher) {
				v.DiscountValue = 33
				v.MaxDiscountAmount = nil
			}),
			orderAmount: 100, // 33.0 exactly
			want:        33,
		},
		{
			name: "percent truncation boundary",
			voucher: testVoucher(func(v *models.Voucher) {
				v.DiscountValue = 33
				v.MaxDiscountAmount = nil
			}),
			orderAmount: 101, // 33.33 -> 33
			want:        33,
		},
		{
			name: "hundred percent is the whole order",
			voucher: testVoucher(func(v *models.Voucher) {
				v.DiscountValue = 100
				v.MaxDiscountAmount = nil
			}),
			orderAmount: 12345,
			want:        12345,
		},
		{
			name: "fixed within order amount",
			voucher: testVoucher(func(v *models.Voucher) {
				v.DiscountKind = models.DiscountFixed
				v.DiscountValue = 5000
			}),
			orderAmount: 20000,
			want:        5000,
		},
		{
			name: "fixed clamped to order amount",
			voucher: testVoucher(func(v *models.Voucher) {
				v.DiscountKind = models.DiscountFixed
				v.DiscountValue = 25000
			}),
			orderAmount: 20000,
			want:        20000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDiscount(tt.voucher, tt.orderAmount)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got, tt.orderAmount, "discount may never exceed the order")
			assert.GreaterOrEqual(t, tt.orderAmount-got, int64(0), "final amount stays non-negative")
		})
	}
}

func TestComputeDiscountDeterministic(t *testing.T) {
	v := testVoucher(nil)
	first := ComputeDiscount(v, 150000)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, ComputeDiscount(v, 150000))
	}
}
