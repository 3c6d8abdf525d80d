package models

import (
	"strings"
	"time"
)

type DiscountKind string

const (
	DiscountPercent DiscountKind = "PERCENT"
	DiscountFixed   DiscountKind = "FIXED"
)

type Voucher struct {
	ID                string
	Code              string
	Name              string
	DiscountKind      DiscountKind
	DiscountValue     int64
	Currency          string
	MinOrderAmount    int64
	MaxDiscountAmount *int64
	MaxRedemptions    int64
	RedeemedCount     int64
	Active            bool
	WindowStart       *time.Time
	WindowEnd         *time.Time
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// VoucherUpdate carries the mutable fields of a voucher; nil means "leave as is".
// Code and ID are immutable after creation.
type VoucherUpdate struct {
	Name              *string
	Active            *bool
	DiscountKind      *DiscountKind
	DiscountValue     *int64
	Currency          *string
	MinOrderAmount    *int64
	MaxDiscountAmount *int64
	MaxRedemptions    *int64
	WindowStart       *time.Time
	WindowEnd         *time.Time
}

// NormalizeCode is applied to every code crossing the API boundary so that
// lookups and the unique constraint agree on one canonical form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
