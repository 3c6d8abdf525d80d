package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voucherly/voucher-service/internal/models"
)

// CatalogStore extends the engine's Catalog with the lifecycle operations
// administration needs.
type CatalogStore interface {
	Catalog
	GetByID(ctx context.Context, id string) (*models.Voucher, error)
	List(ctx context.Context) ([]models.Voucher, error)
	Create(ctx context.Context, v *models.Voucher) error
	UpdateSettings(ctx context.Context, v *models.Voucher) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// LedgerStore extends Ledger with lookup and the status transition used by
// refunds.
type LedgerStore interface {
	Ledger
	GetByID(ctx context.Context, id string) (*models.Redemption, error)
	MarkStatus(ctx context.Context, id string, from, to models.RedemptionStatus) (bool, error)
}

// AdminService owns the voucher lifecycle: create, update, delete, refund.
// It enforces the static field invariants the engine assumes to hold.
type AdminService struct {
	catalog CatalogStore
	ledger  LedgerStore
	logger  zerolog.Logger
	now     func() time.Time
}

func NewAdminService(catalog CatalogStore, ledger LedgerStore, logger zerolog.Logger) *AdminService {
	return &AdminService{
		catalog: catalog,
		ledger:  ledger,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateVoucher validates and persists a new voucher definition. The code is
// normalized before storage; duplicates surface as models.ErrDuplicateCode.
func (s *AdminService) CreateVoucher(ctx context.Context, v *models.Voucher) (*models.Voucher, error) {
	v.Code = models.NormalizeCode(v.Code)
	if v.Code == "" {
		return nil, fmt.Errorf("%w: code is required", models.ErrInvalidVoucher)
	}
	if v.MaxRedemptions == 0 {
		v.MaxRedemptions = 1
	}
	if err := validateVoucher(v); err != nil {
		return nil, err
	}

	v.ID = uuid.New().String()
	v.RedeemedCount = 0
	v.CreatedAt = s.now()
	v.UpdatedAt = v.CreatedAt
	if err := s.catalog.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// UpdateVoucher applies a partial update. The code is immutable, and
// max_redemptions may never be shrunk below the current redeemed_count: that
// would retroactively break the capacity invariant. The persisted update is
// guarded on the same condition so a concurrent redemption cannot slip
// underneath the check.
func (s *AdminService) UpdateVoucher(ctx context.Context, id string, upd models.VoucherUpdate) (*models.Voucher, error) {
	v, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}

	applyUpdate(v, upd)
	if err := validateVoucher(v); err != nil {
		return nil, err
	}
	if v.MaxRedemptions < v.RedeemedCount {
		return nil, fmt.Errorf("%w: max_redemptions %d is below redeemed_count %d",
			models.ErrInvalidVoucher, v.MaxRedemptions, v.RedeemedCount)
	}

	v.UpdatedAt = s.now()
	ok, err := s.catalog.UpdateSettings(ctx, v)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Either redemptions advanced past the new limit between our read and
		// write, or the voucher was deleted. Re-check so the caller is not
		// told the wrong story.
		current, err := s.catalog.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: max_redemptions %d is below the current redeemed_count %d",
			models.ErrInvalidVoucher, v.MaxRedemptions, current.RedeemedCount)
	}
	return v, nil
}

// DeleteVoucher removes a voucher that has never been redeemed. Vouchers with
// redemptions are kept for ledger referential integrity.
func (s *AdminService) DeleteVoucher(ctx context.Context, id string) error {
	ok, err := s.catalog.Delete(ctx, id)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	v, err := s.catalog.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	return models.ErrVoucherInUse
}

// RefundRedemption marks a SUCCESS redemption REFUNDED and releases its slot
// on the voucher counter. The status flip is conditional on the record still
// being SUCCESS, so a refund is applied at most once.
func (s *AdminService) RefundRedemption(ctx context.Context, id string) (*models.Redemption, error) {
	rec, err := s.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}
	if rec.Status != models.RedemptionSuccess {
		return nil, models.ErrNotRefundable
	}

	ok, err := s.ledger.MarkStatus(ctx, id, models.RedemptionSuccess, models.RedemptionRefunded)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.ErrNotRefundable
	}
	rec.Status = models.RedemptionRefunded

	s.releaseSlot(ctx, rec.VoucherID)
	return rec, nil
}

// releaseSlot decrements the voucher counter after a refund, with the same
// conditional-write loop the engine uses for compensation.
func (s *AdminService) releaseSlot(ctx context.Context, voucherID string) {
	for attempt := 0; attempt < defaultMaxAttempts; attempt++ {
		v, err := s.catalog.GetByID(ctx, voucherID)
		if err != nil || v == nil {
			break
		}
		if v.RedeemedCount == 0 {
			return
		}
		ok, err := s.catalog.ConditionalDecrement(ctx, voucherID, v.RedeemedCount)
		if err == nil && ok {
			return
		}
	}
	s.logger.Error().
		Str("voucher_id", voucherID).
		Msg("refund decrement exhausted: redeemed_count needs manual reconciliation")
}

// GetVoucher returns a voucher by id, nil when absent.
func (s *AdminService) GetVoucher(ctx context.Context, id string) (*models.Voucher, error) {
	return s.catalog.GetByID(ctx, id)
}

// GetVoucherByCode returns a voucher by normalized code, nil when absent.
func (s *AdminService) GetVoucherByCode(ctx context.Context, code string) (*models.Voucher, error) {
	return s.catalog.GetByCode(ctx, models.NormalizeCode(code))
}

func (s *AdminService) ListVouchers(ctx context.Context) ([]models.Voucher, error) {
	return s.catalog.List(ctx)
}

func validateVoucher(v *models.Voucher) error {
	switch v.DiscountKind {
	case models.DiscountPercent:
		if v.DiscountValue > 100 {
			return fmt.Errorf("%w: percent discount_value may not exceed 100", models.ErrInvalidVoucher)
		}
	case models.DiscountFixed:
	default:
		return fmt.Errorf("%w: discount_kind must be PERCENT or FIXED", models.ErrInvalidVoucher)
	}
	if v.DiscountValue <= 0 {
		return fmt.Errorf("%w: discount_value must be positive", models.ErrInvalidVoucher)
	}
	if v.MinOrderAmount < 0 {
		return fmt.Errorf("%w: min_order_amount may not be negative", models.ErrInvalidVoucher)
	}
	if v.MaxDiscountAmount != nil && *v.MaxDiscountAmount < 0 {
		return fmt.Errorf("%w: max_discount_amount may not be negative", models.ErrInvalidVoucher)
	}
	if v.MaxRedemptions < 1 {
		return fmt.Errorf("%w: max_redemptions must be positive", models.ErrInvalidVoucher)
	}
	if v.WindowStart != nil && v.WindowEnd != nil && v.WindowEnd.Before(*v.WindowStart) {
		return fmt.Errorf("%w: window_end must not precede window_start", models.ErrInvalidVoucher)
	}
	return nil
}

func applyUpdate(v *models.Voucher, upd models.VoucherUpdate) {
	if upd.Name != nil {
		v.Name = *upd.Name
	}
	if upd.Active != nil {
		v.Active = *upd.Active
	}
	if upd.DiscountKind != nil {
		v.DiscountKind = *upd.DiscountKind
	}
	if upd.DiscountValue != nil {
		v.DiscountValue = *upd.DiscountValue
	}
	if upd.Currency != nil {
		v.Currency = *upd.Currency
	}
	if upd.MinOrderAmount != nil {
		v.MinOrderAmount = *upd.MinOrderAmount
	}
	if upd.MaxDiscountAmount != nil {
		v.MaxDiscountAmount = upd.MaxDiscountAmount
	}
	if upd.MaxRedemptions != nil {
		v.MaxRedemptions = *upd.MaxRedemptions
	}
	if upd.WindowStart != nil {
		v.WindowStart = upd.WindowStart
	}
	if upd.WindowEnd != nil {
		v.WindowEnd = upd.WindowEnd
	}
}
