// Package endorse produces endorsed call data. It is the signing-side
// mirror of pkg/verifier, used by endorsers, tests, and the CLI.
package endorse

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/endorsed-labs/endorsed-go/pkg/digest"
	"github.com/endorsed-labs/endorsed-go/pkg/recovery"
	"github.com/endorsed-labs/endorsed-go/pkg/trailer"
)

// Endorser signs payloads with a local secp256k1 private key.
type Endorser struct {
	key *ecdsa.PrivateKey
}

// NewEndorser wraps a private key.
func NewEndorser(key *ecdsa.PrivateKey) (*Endorser, error) {
	if key == nil {
		return nil, fmt.Errorf("private key is nil")
	}
	return &Endorser{key: key}, nil
}

// Address returns the endorser's Ethereum address, i.e. the address a
// verifier recovers from trailers produced by Endorse.
func (e *Endorser) Address() common.Address {
	return crypto.PubkeyToAddress(e.key.PublicKey)
}

// Endorse signs (extraContext, payload, nonce, validBy) and returns the
// payload with a single-endorser trailer appended.
//
// nonce is the caller-chosen replay sequence value; validBy is the
// expiry bound. Both are encoded big-endian into 32-byte fields and must
// be non-negative and fit in 256 bits.
func (e *Endorser) Endorse(payload, extraContext []byte, nonce, validBy *big.Int) ([]byte, error) {
	nonce32, err := toWord(nonce, "nonce")
	if err != nil {
		return nil, err
	}
	validBy32, err := toWord(validBy, "validBy")
	if err != nil {
		return nil, err
	}

	d := digest.Build(extraContext, payload, nonce32, validBy32)
	hash := recovery.PersonalHash(d)

	sig, err := crypto.Sign(hash[:], e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign endorsement digest: %w", err)
	}

	end := &trailer.Endorsement{
		Nonce:   nonce32,
		ValidBy: validBy32,
		V:       sig[64],
		Format:  trailer.FormatSingleEndorser,
	}
	copy(end.R[:], sig[0:32])
	copy(end.S[:], sig[32:64])

	return trailer.Encode(payload, end), nil
}

// toWord encodes a non-negative big integer into a 32-byte big-endian
// field.
func toWord(x *big.Int, name string) ([32]byte, error) {
	var w [32]byte
	if x == nil || x.Sign() < 0 {
		return w, fmt.Errorf("%s must be a non-negative integer", name)
	}
	if x.BitLen() > 256 {
		return w, fmt.Errorf("%s does not fit in 32 bytes", name)
	}
	x.FillBytes(w[:])
	return w, nil
}
