package eligibility

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedOracle memoizes another oracle's answers in a bounded LRU cache.
// Intended in front of ContractOracle, where every miss is an RPC round
// trip. Only definitive answers are cached; backend errors pass through
// uncached so transient RPC failures do not pin a wrong verdict.
//
// Note the cache has no TTL: a registry change is only observed after the
// entry is evicted or Invalidate is called.
type CachedOracle struct {
	inner Oracle
	cache *lru.Cache[common.Address, bool]
}

// NewCachedOracle wraps inner with an LRU cache of the given size.
func NewCachedOracle(inner Oracle, size int) (*CachedOracle, error) {
	cache, err := lru.New[common.Address, bool](size)
	if err != nil {
		return nil, err
	}
	return &CachedOracle{inner: inner, cache: cache}, nil
}

// IsEligible returns the cached answer for addr, consulting the inner
// oracle on a miss.
func (o *CachedOracle) IsEligible(ctx context.Context, addr common.Address) (bool, error) {
	if ok, hit := o.cache.Get(addr); hit {
		return ok, nil
	}

	ok, err := o.inner.IsEligible(ctx, addr)
	if err != nil {
		return false, err
	}

	o.cache.Add(addr, ok)
	return ok, nil
}

// Invalidate drops the cached answer for addr, forcing the next query
// through to the inner oracle.
func (o *CachedOracle) Invalidate(addr common.Address) {
	o.cache.Remove(addr)
}

// Purge drops every cached answer.
func (o *CachedOracle) Purge() {
	o.cache.Purge()
}
