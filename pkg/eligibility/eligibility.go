// Package eligibility provides implementations of the endorser
// authorization predicate consumed by pkg/verifier.
//
// The verifier takes a pure func(address) bool; the Oracle interface here
// is the context-aware superset for backends that may do I/O (on-chain
// registries). Bind adapts an Oracle down to the pure predicate.
package eligibility

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/endorsed-labs/endorsed-go/pkg/verifier"
)

// Oracle answers whether an address is allowed to endorse. Read-only;
// implementations must be safe for concurrent use.
type Oracle interface {
	IsEligible(ctx context.Context, addr common.Address) (bool, error)
}

// Bind adapts an Oracle to the verifier's pure predicate. Oracle errors
// map to ineligible: a verification pass must always terminate with a
// verdict, and failing closed is the only safe answer when the backend
// cannot be reached.
func Bind(ctx context.Context, o Oracle) verifier.EligibilityFunc {
	return func(addr common.Address) bool {
		ok, err := o.IsEligible(ctx, addr)
		return err == nil && ok
	}
}

// StaticOracle is a fixed allow-set of endorser addresses.
type StaticOracle struct {
	mu      sync.RWMutex
	allowed map[common.Address]struct{}
}

// NewStaticOracle builds an oracle from an explicit allow-list.
func NewStaticOracle(addrs ...common.Address) *StaticOracle {
	allowed := make(map[common.Address]struct{}, len(addrs))
	for _, a := range addrs {
		allowed[a] = struct{}{}
	}
	return &StaticOracle{allowed: allowed}
}

// IsEligible reports whether addr is in the allow-set.
func (o *StaticOracle) IsEligible(_ context.Context, addr common.Address) (bool, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.allowed[addr]
	return ok, nil
}

// Add inserts an address into the allow-set.
func (o *StaticOracle) Add(addr common.Address) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.allowed[addr] = struct{}{}
}

// Remove deletes an address from the allow-set.
func (o *StaticOracle) Remove(addr common.Address) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.allowed, addr)
}
