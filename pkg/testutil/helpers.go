// Package testutil provides shared helpers for building endorsed call
// data in tests.
package testutil

import (
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/endorsed-labs/endorsed-go/pkg/endorse"
)

// GenerateKey creates a fresh secp256k1 key pair, failing the test on
// error.
func GenerateKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return key
}

// AddressOf returns the Ethereum address of a private key.
func AddressOf(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// EndorsedCallData signs (payload, extraContext, nonce, validBy) with key
// and returns call data carrying a valid single-endorser trailer.
func EndorsedCallData(t *testing.T, key *ecdsa.PrivateKey, payload, extraContext []byte, nonce, validBy int64) []byte {
	t.Helper()

	endorser, err := endorse.NewEndorser(key)
	if err != nil {
		t.Fatalf("failed to create endorser: %v", err)
	}

	callData, err := endorser.Endorse(payload, extraContext, big.NewInt(nonce), big.NewInt(validBy))
	if err != nil {
		t.Fatalf("failed to endorse payload: %v", err)
	}
	return callData
}

// Word32 left-pads an int64 into a 32-byte big-endian field.
func Word32(v int64) [32]byte {
	var w [32]byte
	big.NewInt(v).FillBytes(w[:])
	return w
}
