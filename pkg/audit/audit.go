// Package audit delivers post-authorization notifications. The
// verification core only supplies the data; the sink decides how it is
// surfaced.
package audit

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is the notification payload emitted after a successful
// authorization.
type Event struct {
	// MethodID identifies the endorsed method, typically the keccak256
	// of its signature string (see digest.MethodID).
	MethodID [32]byte

	// Endorsers are the addresses that endorsed the call. The
	// single-endorser format yields exactly one entry.
	Endorsers []common.Address

	// Nonce is the consumed replay nonce.
	Nonce [32]byte
}

// Sink consumes authorization events.
type Sink interface {
	Notify(event Event)
}

// ZapSink logs authorization events as structured records, tagging each
// with a fresh event id so downstream log pipelines can deduplicate.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a sink writing to the given logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

// Notify logs the event.
func (s *ZapSink) Notify(event Event) {
	endorsers := make([]string, len(event.Endorsers))
	for i, a := range event.Endorsers {
		endorsers[i] = a.Hex()
	}

	s.logger.Info("endorsement authorized",
		zap.String("event_id", uuid.New().String()),
		zap.String("method_id", hex.EncodeToString(event.MethodID[:])),
		zap.Strings("endorsers", endorsers),
		zap.String("nonce", hex.EncodeToString(event.Nonce[:])),
	)
}

// NopSink discards all events.
type NopSink struct{}

// Notify does nothing.
func (NopSink) Notify(Event) {}
