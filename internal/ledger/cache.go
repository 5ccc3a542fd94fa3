package ledger

import (
	"context"
	"math/big"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
	redisclient "github.com/ismail-169/sentinel-finance-sub000/internal/redis"
)

// CachedLedger wraps a Ledger with a TTL'd balance snapshot in redis.
// Mutating calls invalidate both sides of the transfer, so stale reads are
// bounded by the TTL only between external transfers.
type CachedLedger struct {
	inner Ledger
	redis *redisclient.Client
	ttl   time.Duration
}

func NewCachedLedger(inner Ledger, redisClient *redisclient.Client, ttl time.Duration) *CachedLedger {
	return &CachedLedger{inner: inner, redis: redisClient, ttl: ttl}
}

func (c *CachedLedger) BalanceOf(ctx context.Context, address string) (*big.Int, error) {
	key := redisclient.BalanceKey(model.NormalizeAddress(address))

	if cached, err := c.redis.Get(ctx, key).Result(); err == nil {
		if v, ok := model.ParseWei(cached); ok {
			return v, nil
		}
	}

	balance, err := c.inner.BalanceOf(ctx, address)
	if err != nil {
		return nil, err
	}

	if err := c.redis.Set(ctx, key, balance.String(), c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("address", address).Msg("balance cache write failed")
	}
	return balance, nil
}

func (c *CachedLedger) Transfer(ctx context.Context, from, to string, amount *big.Int) (string, error) {
	ref, err := c.inner.Transfer(ctx, from, to, amount)
	if err != nil {
		return "", err
	}
	c.Invalidate(ctx, from, to)
	return ref, nil
}

func (c *CachedLedger) Approve(ctx context.Context, owner, spender string, amount *big.Int) (string, error) {
	return c.inner.Approve(ctx, owner, spender, amount)
}

func (c *CachedLedger) Allowance(ctx context.Context, owner, spender string) (*big.Int, error) {
	return c.inner.Allowance(ctx, owner, spender)
}

// Gas balances change with every transaction the account sends, so they
// are not cached.
func (c *CachedLedger) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	return c.inner.NativeBalance(ctx, address)
}

// Invalidate drops cached balances for the given addresses.
func (c *CachedLedger) Invalidate(ctx context.Context, addresses ...string) {
	for _, addr := range addresses {
		key := redisclient.BalanceKey(model.NormalizeAddress(addr))
		if err := c.redis.Del(ctx, key).Err(); err != nil {
			log.Warn().Err(err).Str("address", addr).Msg("balance cache invalidation failed")
		}
	}
}
