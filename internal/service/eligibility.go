package service

import (
	"time"

	"github.com/voucherly/voucher-service/internal/models"
)

// CheckEligibility evaluates the redemption rules against already-fetched
// data; it performs no I/O. Rules short-circuit in a fixed order so the
// caller always sees the same error for the same state.
func CheckEligibility(v *models.Voucher, prior *models.Redemption, orderAmount int64, now time.Time) error {
	if v == nil {
		return errNotFound("")
	}
	if !v.Active {
		return errInactive()
	}
	if v.WindowStart != nil && now.Before(*v.WindowStart) {
		return errNotStarted(*v.WindowStart)
	}
	if v.WindowEnd != nil && now.After(*v.WindowEnd) {
		return errExpired(*v.WindowEnd)
	}
	if v.RedeemedCount >= v.MaxRedemptions {
		return errExhausted()
	}
	if orderAmount < v.MinOrderAmount {
		return errBelowMinimum(v.MinOrderAmount)
	}
	if prior != nil {
		return errAlreadyRedeemed(prior)
	}
	return nil
}
