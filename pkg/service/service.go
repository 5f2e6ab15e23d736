// Package service wires the pure verification core to its host-side
// collaborators: a clock source, an eligibility oracle, a replay nonce
// store, and an audit sink.
//
// The core (pkg/verifier) is a pure decision function; the cross-call
// guarantee that an accepted nonce is never accepted twice belongs to the
// host, and VerifyAndConsume provides it.
package service

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/endorsed-labs/endorsed-go/pkg/audit"
	"github.com/endorsed-labs/endorsed-go/pkg/eligibility"
	"github.com/endorsed-labs/endorsed-go/pkg/noncestore"
	"github.com/endorsed-labs/endorsed-go/pkg/verifier"
)

// Clock supplies the timestamp (or block number) validBy is compared
// against.
type Clock interface {
	Now() *big.Int
}

// WallClock is a Clock reading unix seconds from the system clock.
type WallClock struct{}

// Now returns the current unix time.
func (WallClock) Now() *big.Int {
	return big.NewInt(time.Now().Unix())
}

// FixedClock is a Clock pinned to a single value, for tests and for
// block-number-based expiry where the caller tracks the chain head.
type FixedClock struct {
	Value *big.Int
}

// Now returns the pinned value.
func (c FixedClock) Now() *big.Int {
	return c.Value
}

// Service runs complete caller-side verification passes.
type Service struct {
	oracle eligibility.Oracle
	nonces noncestore.Store
	sink   audit.Sink
	clock  Clock
	logger *zap.Logger
}

// Config assembles a Service. Oracle and Nonces are required; Sink
// defaults to a no-op, Clock to the wall clock.
type Config struct {
	Oracle eligibility.Oracle
	Nonces noncestore.Store
	Sink   audit.Sink
	Clock  Clock
	Logger *zap.Logger
}

// New validates cfg and builds a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Oracle == nil {
		return nil, errors.New("eligibility oracle is required")
	}
	if cfg.Nonces == nil {
		return nil, errors.New("nonce store is required")
	}
	if cfg.Sink == nil {
		cfg.Sink = audit.NopSink{}
	}
	if cfg.Clock == nil {
		cfg.Clock = WallClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Service{
		oracle: cfg.Oracle,
		nonces: cfg.Nonces,
		sink:   cfg.Sink,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}, nil
}

// Result is a service-level verification outcome: the core verdict plus
// the replay decision.
type Result struct {
	verifier.VerifyResult

	// Replayed is true when the core authorized the endorsement but the
	// nonce was already consumed. The call must be rejected.
	Replayed bool
}

// Accepted reports whether the endorsement was authorized and its nonce
// consumed for the first time.
func (r Result) Accepted() bool {
	return r.Authorized() && !r.Replayed
}

// VerifyAndConsume runs the core verifier and, on an authorized verdict,
// atomically consumes the nonce and notifies the audit sink. methodID
// names the endorsed method for the audit event (see digest.MethodID).
//
// The nonce store's Consume is the sole replay arbiter: of any set of
// concurrent calls presenting the same (endorser, nonce) pair, exactly
// one observes first use.
func (s *Service) VerifyAndConsume(ctx context.Context, rawCallData, extraContext []byte, methodID [32]byte) (Result, error) {
	verdict := verifier.Verify(rawCallData, extraContext, s.clock.Now(), eligibility.Bind(ctx, s.oracle))

	if !verdict.Authorized() {
		s.logger.Debug("endorsement not accepted",
			zap.String("status", verdict.Status.String()),
		)
		return Result{VerifyResult: verdict}, nil
	}

	first, err := s.nonces.Consume(ctx, verdict.Endorser, verdict.Nonce)
	if err != nil {
		return Result{}, errors.Wrap(err, "failed to consume endorsement nonce")
	}
	if !first {
		s.logger.Warn("endorsement replay detected",
			zap.String("endorser", verdict.Endorser.Hex()),
		)
		return Result{VerifyResult: verdict, Replayed: true}, nil
	}

	s.sink.Notify(audit.Event{
		MethodID:  methodID,
		Endorsers: []common.Address{verdict.Endorser},
		Nonce:     verdict.Nonce,
	})

	return Result{VerifyResult: verdict}, nil
}
