package service

import (
	"context"
	"sync"

	"github.com/voucherly/voucher-service/internal/models"
)

// memCatalog is an in-memory CatalogStore whose conditional writes use the
// same compare-and-swap semantics as the Postgres repository. Forced
// conflicts and errors can be injected to exercise the retry and
// compensation paths.
type memCatalog struct {
	mu       sync.Mutex
	vouchers map[string]*models.Voucher // by id

	conflictsLeft int   // forced increment conflicts before behaving normally
	incrementErr  error // forced storage error on increment
	decrementErr  error // forced storage error on decrement
}

func newMemCatalog(vouchers ...*models.Voucher) *memCatalog {
	c := &memCatalog{vouchers: make(map[string]*models.Voucher)}
	for _, v := range vouchers {
		c.add(v)
	}
	return c
}

func (c *memCatalog) add(v *models.Voucher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *v
	c.vouchers[v.ID] = &cp
}

func (c *memCatalog) count(id string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vouchers[id].RedeemedCount
}

func (c *memCatalog) GetByCode(ctx context.Context, code string) (*models.Voucher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range c.vouchers {
		if v.Code == code {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (c *memCatalog) GetByID(ctx context.Context, id string) (*models.Voucher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vouchers[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (c *memCatalog) List(ctx context.Context) ([]models.Voucher, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Voucher, 0, len(c.vouchers))
	for _, v := range c.vouchers {
		out = append(out, *v)
	}
	return out, nil
}

func (c *memCatalog) Create(ctx context.Context, v *models.Voucher) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.vouchers {
		if existing.Code == v.Code {
			return models.ErrDuplicateCode
		}
	}
	cp := *v
	c.vouchers[v.ID] = &cp
	return nil
}

func (c *memCatalog) UpdateSettings(ctx context.Context, v *models.Voucher) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored, ok := c.vouchers[v.ID]
	if !ok || stored.RedeemedCount > v.MaxRedemptions {
		return false, nil
	}
	cp := *v
	cp.RedeemedCount = stored.RedeemedCount
	c.vouchers[v.ID] = &cp
	return true, nil
}

func (c *memCatalog) Delete(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.vouchers[id]
	if !ok || v.RedeemedCount != 0 {
		return false, nil
	}
	delete(c.vouchers, id)
	return true, nil
}

func (c *memCatalog) ConditionalIncrement(ctx context.Context, id string, expected int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.incrementErr != nil {
		return false, c.incrementErr
	}
	if c.conflictsLeft > 0 {
		c.conflictsLeft--
		return false, nil
	}
	v, ok := c.vouchers[id]
	if !ok || v.RedeemedCount != expected {
		return false, nil
	}
	v.RedeemedCount++
	return true, nil
}

func (c *memCatalog) ConditionalDecrement(ctx context.Context, id string, expected int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.decrementErr != nil {
		return false, c.decrementErr
	}
	v, ok := c.vouchers[id]
	if !ok || v.RedeemedCount != expected || v.RedeemedCount == 0 {
		return false, nil
	}
	v.RedeemedCount--
	return true, nil
}

// memLedger is an in-memory LedgerStore enforcing the SUCCESS uniqueness
// constraint. insertErrs is a queue of forced failures, consumed one per
// Insert call.
type memLedger struct {
	mu         sync.Mutex
	records    []*models.Redemption
	insertErrs []error
}

func newMemLedger() *memLedger { return &memLedger{} }

func (l *memLedger) failNextInsert(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.insertErrs = append(l.insertErrs, err)
}

func (l *memLedger) successCount(voucherID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.VoucherID == voucherID && r.Status == models.RedemptionSuccess {
			n++
		}
	}
	return n
}

func (l *memLedger) Insert(ctx context.Context, rec *models.Redemption) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.insertErrs) > 0 {
		err := l.insertErrs[0]
		l.insertErrs = l.insertErrs[1:]
		return err
	}
	for _, r := range l.records {
		if r.VoucherID == rec.VoucherID && r.UserID == rec.UserID && r.Status == models.RedemptionSuccess {
			return models.ErrDuplicateRedemption
		}
	}
	cp := *rec
	l.records = append(l.records, &cp)
	return nil
}

func (l *memLedger) FindByVoucherAndUser(ctx context.Context, voucherID, userID string) (*models.Redemption, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if r.VoucherID == voucherID && r.UserID == userID && r.Status == models.RedemptionSuccess {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (l *memLedger) GetByID(ctx context.Context, id string) (*models.Redemption, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (l *memLedger) MarkStatus(ctx context.Context, id string, from, to models.RedemptionStatus) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.records {
		if r.ID == id && r.Status == from {
			r.Status = to
			return true, nil
		}
	}
	return false, nil
}
