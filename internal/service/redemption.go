package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/voucherly/voucher-service/internal/metrics"
	"github.com/voucherly/voucher-service/internal/models"
)

// Catalog is the storage contract the engine needs from the voucher store.
// The conditional writes succeed only when the stored redeemed_count still
// equals expected; that compare-and-swap is the sole guard on the capacity
// invariant under concurrent redeemers.
type Catalog interface {
	GetByCode(ctx context.Context, code string) (*models.Voucher, error)
	ConditionalIncrement(ctx context.Context, id string, expected int64) (bool, error)
	ConditionalDecrement(ctx context.Context, id string, expected int64) (bool, error)
}

// Ledger is the storage contract for redemption records. Insert must enforce
// uniqueness of (voucher_id, user_id) among SUCCESS records and report a
// violation as models.ErrDuplicateRedemption.
type Ledger interface {
	FindByVoucherAndUser(ctx context.Context, voucherID, userID string) (*models.Redemption, error)
	Insert(ctx context.Context, r *models.Redemption) error
}

const defaultMaxAttempts = 3

// RedemptionService drives one redemption request to either a committed
// success or a clean no-op failure, never a partially-applied state.
type RedemptionService struct {
	catalog Catalog
	ledger  Ledger
	logger  zerolog.Logger

	now         func() time.Time
	maxAttempts int
}

func NewRedemptionService(catalog Catalog, ledger Ledger, logger zerolog.Logger) *RedemptionService {
	return &RedemptionService{
		catalog:     catalog,
		ledger:      ledger,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		maxAttempts: defaultMaxAttempts,
	}
}

// Redeem runs the full sequence: load, validate, compute, conditional
// increment, ledger insert. A failed increment condition means another
// redemption committed between our read and write; the whole sequence is
// retried from a fresh read, up to maxAttempts.
func (s *RedemptionService) Redeem(ctx context.Context, req models.RedeemRequest) (*models.RedeemResult, error) {
	code := models.NormalizeCode(req.VoucherCode)

	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		// Cancellation is honored only before the increment commits.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, conflict, err := s.attempt(ctx, code, req)
		if err != nil {
			return nil, err
		}
		if conflict {
			continue
		}
		return res, nil
	}
	return nil, errConcurrentConflict(s.maxAttempts)
}

func (s *RedemptionService) attempt(ctx context.Context, code string, req models.RedeemRequest) (*models.RedeemResult, bool, error) {
	voucher, err := s.catalog.GetByCode(ctx, code)
	if err != nil {
		return nil, false, errPersistence("load voucher", err)
	}
	if voucher == nil {
		return nil, false, errNotFound(code)
	}

	prior, err := s.ledger.FindByVoucherAndUser(ctx, voucher.ID, req.UserID)
	if err != nil {
		return nil, false, errPersistence("load prior redemption", err)
	}

	if err := CheckEligibility(voucher, prior, req.OrderAmount, s.now()); err != nil {
		return nil, false, err
	}

	discount := ComputeDiscount(voucher, req.OrderAmount)

	ok, err := s.catalog.ConditionalIncrement(ctx, voucher.ID, voucher.RedeemedCount)
	if err != nil {
		return nil, false, errPersistence("increment redeemed_count", err)
	}
	if !ok {
		return nil, true, nil
	}

	// The counter is committed; from here the transition must run to
	// completion (or be compensated) even if the caller goes away.
	commitCtx := context.WithoutCancel(ctx)

	record := models.NewRedemption(voucher.ID, req.UserID, req.OrderID, req.OrderAmount, discount, s.now())
	if err := s.ledger.Insert(commitCtx, record); err != nil {
		s.compensate(commitCtx, voucher)
		if errors.Is(err, models.ErrDuplicateRedemption) {
			// The storage backstop caught a same-user race the read in step 1
			// could not see. Report it like any other duplicate.
			dup, _ := s.ledger.FindByVoucherAndUser(commitCtx, voucher.ID, req.UserID)
			return nil, false, errAlreadyRedeemed(dup)
		}
		return nil, false, errPersistence("write redemption record", err)
	}

	return &models.RedeemResult{
		VoucherCode:    voucher.Code,
		VoucherName:    voucher.Name,
		DiscountKind:   voucher.DiscountKind,
		DiscountValue:  voucher.DiscountValue,
		OrderAmount:    record.OrderAmount,
		DiscountAmount: record.DiscountAmount,
		FinalAmount:    record.FinalAmount,
		Currency:       voucher.Currency,
		RedeemedAt:     record.RedeemedAt,
	}, false, nil
}

// compensate reverts the counter increment after a failed ledger write. The
// decrement is conditional so a concurrently committed increment from another
// request is never clobbered; on conflict the current count is re-read and
// the decrement retried. If all attempts fail the voucher is left over-counted
// and flagged for manual reconciliation.
func (s *RedemptionService) compensate(ctx context.Context, voucher *models.Voucher) {
	metrics.CompensationsTotal.Inc()
	expected := voucher.RedeemedCount + 1
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		ok, err := s.catalog.ConditionalDecrement(ctx, voucher.ID, expected)
		if err == nil && ok {
			return
		}
		if err != nil {
			s.logger.Warn().Err(err).
				Str("voucher_id", voucher.ID).
				Msg("compensating decrement failed, retrying")
			continue
		}
		current, err := s.catalog.GetByCode(ctx, voucher.Code)
		if err != nil || current == nil {
			break
		}
		expected = current.RedeemedCount
	}
	s.logger.Error().
		Str("voucher_id", voucher.ID).
		Str("voucher_code", voucher.Code).
		Msg("compensation exhausted: redeemed_count is over-counted and needs manual reconciliation")
}
