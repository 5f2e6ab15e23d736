// Package verifier is the pure decision core for endorsed call data.
//
// Verify runs one pass over the buffer: trailer decode, expiry check,
// digest reconstruction, address recovery, eligibility check. Every
// outcome is a terminal value; nonce consumption and event emission are
// deliberately the caller's responsibility so the verifier itself stays a
// side-effect-free function of its inputs (see pkg/service for the
// host-side wrapper that owns that state).
package verifier

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/endorsed-labs/endorsed-go/pkg/digest"
	"github.com/endorsed-labs/endorsed-go/pkg/recovery"
	"github.com/endorsed-labs/endorsed-go/pkg/trailer"
)

// Status is the terminal verdict of a verification pass.
type Status int

const (
	// StatusNoEndorsement means the call data carries no endorsement
	// trailer. Not an error; the caller proceeds as an unendorsed call.
	StatusNoEndorsement Status = iota

	// StatusUnsupported means the trailer carries a format type this
	// verifier does not implement. Callers should treat the call as
	// unendorsed but may log the observed type code.
	StatusUnsupported

	// StatusExpired means validBy is in the past. Rejected.
	StatusExpired

	// StatusInvalidSignature means the signature is malformed or does
	// not recover. Rejected.
	StatusInvalidSignature

	// StatusRejected means the signature recovers to an address the
	// eligibility oracle does not accept.
	StatusRejected

	// StatusAuthorized means every check passed. The caller is expected
	// to record the nonce in its replay store and notify its audit sink.
	StatusAuthorized
)

// String returns the verdict name for logs and CLI output.
func (s Status) String() string {
	switch s {
	case StatusNoEndorsement:
		return "no-endorsement"
	case StatusUnsupported:
		return "unsupported-format"
	case StatusExpired:
		return "expired"
	case StatusInvalidSignature:
		return "invalid-signature"
	case StatusRejected:
		return "rejected"
	case StatusAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// EligibilityFunc is the injected authorization predicate: is this
// address allowed to endorse. It must be read-only.
type EligibilityFunc func(common.Address) bool

// VerifyResult is the terminal outcome of Verify.
type VerifyResult struct {
	Status Status

	// Endorser is the recovered signing address, set for
	// StatusAuthorized and StatusRejected.
	Endorser common.Address

	// Nonce is the endorsement nonce, set whenever a single-endorser
	// trailer was decoded. On StatusAuthorized the caller records it in
	// its replay-prevention store.
	Nonce [32]byte

	// Format is the observed type code for StatusUnsupported verdicts.
	Format trailer.FormatType

	// Payload is the business payload with the trailer stripped, set
	// whenever a single-endorser trailer was decoded.
	Payload []byte
}

// Authorized reports whether the verdict is StatusAuthorized.
func (r VerifyResult) Authorized() bool {
	return r.Status == StatusAuthorized
}

// Verify checks a raw call-data buffer for a valid, eligible endorsement.
//
// extraContext is the caller-supplied binding data hashed into the
// digest (typically ABI-encoded method arguments). now is the current
// timestamp or block number against which validBy is compared; the
// expiry check runs before any signature work. isEligible is the
// externally supplied authorization predicate.
func Verify(rawCallData, extraContext []byte, now *big.Int, isEligible EligibilityFunc) VerifyResult {
	res := trailer.Decode(rawCallData)
	switch res.Outcome {
	case trailer.OutcomeUnendorsed:
		return VerifyResult{Status: StatusNoEndorsement}
	case trailer.OutcomeUnsupported:
		return VerifyResult{Status: StatusUnsupported, Format: res.Format}
	}

	e := res.Endorsement
	payload := trailer.Payload(rawCallData, res)

	validBy := new(big.Int).SetBytes(e.ValidBy[:])
	if validBy.Cmp(now) < 0 {
		return VerifyResult{Status: StatusExpired, Nonce: e.Nonce, Payload: payload}
	}

	d := digest.ForEndorsement(extraContext, payload, e)

	addr, err := recovery.RecoverAddress(d, recovery.Signature{R: e.R, S: e.S, V: e.V})
	if err != nil {
		return VerifyResult{Status: StatusInvalidSignature, Nonce: e.Nonce, Payload: payload}
	}

	if !isEligible(addr) {
		return VerifyResult{Status: StatusRejected, Endorser: addr, Nonce: e.Nonce, Payload: payload}
	}

	return VerifyResult{
		Status:   StatusAuthorized,
		Endorser: addr,
		Nonce:    e.Nonce,
		Payload:  payload,
	}
}
