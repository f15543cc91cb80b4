package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
)

// OrganizationChecker reports whether an organization may currently act.
// Implemented by the organizations registry.
type OrganizationChecker interface {
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

// CachedChecker keeps positive answers of another checker in an in-process
// TTL cache. Inactive or unknown organizations are always re-checked so a
// newly created organization is usable immediately.
type CachedChecker struct {
	next  OrganizationChecker
	cache *ristretto.Cache[string, bool]
	ttl   time.Duration
}

// NewCachedChecker wraps next with a ristretto cache holding up to maxEntries organizations.
func NewCachedChecker(next OrganizationChecker, ttl time.Duration, maxEntries int64) (*CachedChecker, error) {
	if next == nil {
		return nil, errors.New("tenant middleware: organization checker is required")
	}
	if ttl <= 0 {
		return nil, errors.New("tenant middleware: cache ttl must be positive")
	}
	if maxEntries <= 0 {
		maxEntries = 10_000
	}

	c, err := ristretto.NewCache(&ristretto.Config[string, bool]{
		NumCounters: maxEntries * 10,
		// Each entry costs 1, so MaxCost counts entries rather than bytes.
		MaxCost:            maxEntries,
		IgnoreInternalCost: true,
		BufferItems:        64,
	})
	if err != nil {
		return nil, err
	}
	return &CachedChecker{next: next, cache: c, ttl: ttl}, nil
}

// IsActive implements OrganizationChecker.
func (c *CachedChecker) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	key := id.String()
	if active, ok := c.cache.Get(key); ok && active {
		return true, nil
	}

	active, err := c.next.IsActive(ctx, id)
	if err != nil {
		return false, err
	}
	if active {
		c.cache.SetWithTTL(key, true, 1, c.ttl)
		c.cache.Wait()
	}
	return active, nil
}

// Invalidate drops a cached organization, e.g. after suspension.
func (c *CachedChecker) Invalidate(id uuid.UUID) {
	c.cache.Del(id.String())
}

// Close shuts down the cache and releases resources.
func (c *CachedChecker) Close() {
	c.cache.Close()
}
