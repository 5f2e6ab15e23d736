// Package noncestore defines the replay-prevention registry the host
// must consult when it accepts an authorized endorsement.
//
// The verification core is stateless; the transactional guarantee that a
// nonce is consumed at most once lives here. All implementations must be
// thread-safe, and Consume must be an atomic read-modify-write so two
// concurrent verifications of the same (endorser, nonce) pair can never
// both be accepted.
package noncestore

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Store is a consume-once registry of (endorser, nonce) pairs.
type Store interface {
	// Consume atomically records the pair and reports whether this call
	// was the first use. false means the nonce was already consumed and
	// the endorsement is a replay. Returns error only on storage
	// failure.
	Consume(ctx context.Context, endorser common.Address, nonce [32]byte) (bool, error)

	// Seen reports whether the pair has been consumed, without
	// consuming it.
	Seen(ctx context.Context, endorser common.Address, nonce [32]byte) (bool, error)

	// HealthCheck verifies the backing storage is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources. The store is unusable afterwards.
	Close() error
}
