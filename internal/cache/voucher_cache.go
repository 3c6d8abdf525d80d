package cache

import (
	"sync"
	"time"

	"github.com/voucherly/voucher-service/internal/models"
)

// VoucherCache is a TTL read-through cache for voucher lookups by code. Only
// the public lookup endpoint uses it; the redemption path always reads the
// catalog directly, since the cached redeemed_count may be stale.
type VoucherCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	store map[string]entry
}

type entry struct {
	voucher   models.Voucher
	expiresAt time.Time
}

func NewVoucherCache(ttl time.Duration) *VoucherCache {
	return &VoucherCache{
		ttl:   ttl,
		store: make(map[string]entry),
	}
}

func (c *VoucherCache) Get(code string) (*models.Voucher, bool) {
	c.mu.RLock()
	e, ok := c.store[code]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	v := e.voucher
	return &v, true
}

func (c *VoucherCache) Set(v *models.Voucher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[v.Code] = entry{voucher: *v, expiresAt: time.Now().Add(c.ttl)}
}

func (c *VoucherCache) Invalidate(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, code)
}
