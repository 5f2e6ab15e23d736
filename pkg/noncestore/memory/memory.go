// Package memory is an in-memory noncestore.Store for tests and
// single-process deployments. All data is lost on process exit.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

type pairKey struct {
	endorser common.Address
	nonce    [32]byte
}

// MemoryStore is a mutex-guarded map of consumed (endorser, nonce)
// pairs.
type MemoryStore struct {
	mu       sync.Mutex
	consumed map[pairKey]struct{}
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		consumed: make(map[pairKey]struct{}),
	}
}

// Consume atomically records the pair, reporting whether this was the
// first use.
func (m *MemoryStore) Consume(_ context.Context, endorser common.Address, nonce [32]byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, fmt.Errorf("nonce store is closed")
	}

	key := pairKey{endorser: endorser, nonce: nonce}
	if _, exists := m.consumed[key]; exists {
		return false, nil
	}
	m.consumed[key] = struct{}{}
	return true, nil
}

// Seen reports whether the pair has been consumed.
func (m *MemoryStore) Seen(_ context.Context, endorser common.Address, nonce [32]byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, fmt.Errorf("nonce store is closed")
	}

	_, exists := m.consumed[pairKey{endorser: endorser, nonce: nonce}]
	return exists, nil
}

// HealthCheck always succeeds while the store is open.
func (m *MemoryStore) HealthCheck(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("nonce store is closed")
	}
	return nil
}

// Close marks the store closed. Idempotent.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
