// Package recovery derives the endorsing address from an ECDSA signature
// over a message-authentication digest.
package recovery

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrInvalidSignature is returned when the (r, s, v) triple is not a
// well-formed secp256k1 signature or does not recover to a curve point.
var ErrInvalidSignature = errors.New("invalid endorsement signature")

// ErrMalformedInput is returned when a raw digest slice is not exactly 32
// bytes. Unreachable through the verifier pipeline, but this entry point
// is also usable standalone.
var ErrMalformedInput = errors.New("digest must be exactly 32 bytes")

// DigestLength is the required length of the signed digest.
const DigestLength = 32

// personalPrefix is the EIP-191 domain-separation prefix applied before
// recovery. Re-hashing under it prevents a raw endorsement digest from
// being reinterpretable as any other kind of signable message.
const personalPrefix = "\x19Ethereum Signed Message:\n32"

// Signature is an (r, s, v) triple in the layout carried by the trailer.
// V may use either the 0/1 parity convention or the Ethereum 27/28 one.
type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

// RecoverAddress recovers the 20-byte address that signed the EIP-191
// personal-message hash of digest.
//
// It fails with ErrInvalidSignature when r or s is zero or not below the
// curve order, when v is neither parity value, or when no public key can
// be recovered.
func RecoverAddress(digest [32]byte, sig Signature) (common.Address, error) {
	v, ok := normalizeV(sig.V)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: recovery id %d", ErrInvalidSignature, sig.V)
	}

	r := new(big.Int).SetBytes(sig.R[:])
	s := new(big.Int).SetBytes(sig.S[:])
	if !crypto.ValidateSignatureValues(v, r, s, false) {
		return common.Address{}, fmt.Errorf("%w: r/s out of range", ErrInvalidSignature)
	}

	// 65-byte compact form [R || S || V] with V as parity, as expected
	// by secp256k1 recovery.
	compact := make([]byte, crypto.SignatureLength)
	copy(compact[0:32], sig.R[:])
	copy(compact[32:64], sig.S[:])
	compact[64] = v

	pub, err := crypto.SigToPub(personalHash(digest), compact)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return crypto.PubkeyToAddress(*pub), nil
}

// RecoverAddressBytes is the raw-slice variant of RecoverAddress. It
// fails with ErrMalformedInput when digest is not exactly DigestLength
// bytes.
func RecoverAddressBytes(digest []byte, sig Signature) (common.Address, error) {
	if len(digest) != DigestLength {
		return common.Address{}, fmt.Errorf("%w: got %d", ErrMalformedInput, len(digest))
	}
	return RecoverAddress([32]byte(digest), sig)
}

// PersonalHash returns the EIP-191 personal-message hash of a 32-byte
// digest, i.e. the exact value signatures are verified against. Exposed
// so signing-side code hashes identically to the verifier.
func PersonalHash(digest [32]byte) [32]byte {
	return [32]byte(personalHash(digest))
}

func personalHash(digest [32]byte) []byte {
	return crypto.Keccak256([]byte(personalPrefix), digest[:])
}

// normalizeV maps both recovery id conventions onto parity. Ethereum
// tooling emits 27/28, raw recovery wants 0/1.
func normalizeV(v byte) (byte, bool) {
	switch v {
	case 0, 1:
		return v, true
	case 27, 28:
		return v - 27, true
	default:
		return 0, false
	}
}
