package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voucherly/voucher-service/internal/models"
)

func TestVoucherCache(t *testing.T) {
	c := NewVoucherCache(time.Minute)
	v := &models.Voucher{ID: "v-1", Code: "WELCOME10", RedeemedCount: 2}

	_, ok := c.Get("WELCOME10")
	assert.False(t, ok)

	c.Set(v)
	got, ok := c.Get("WELCOME10")
	require.True(t, ok)
	assert.Equal(t, "v-1", got.ID)

	// Cached value is a copy; mutating it does not leak back.
	got.RedeemedCount = 99
	again, ok := c.Get("WELCOME10")
	require.True(t, ok)
	assert.Equal(t, int64(2), again.RedeemedCount)

	c.Invalidate("WELCOME10")
	_, ok = c.Get("WELCOME10")
	assert.False(t, ok)
}

func TestVoucherCacheExpiry(t *testing.T) {
	c := NewVoucherCache(10 * time.Millisecond)
	c.Set(&models.Voucher{Code: "SHORT"})

	_, ok := c.Get("SHORT")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("SHORT")
	assert.False(t, ok)
}
