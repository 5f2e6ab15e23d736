package recovery

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

// signDigest produces an (r, s, v) triple over the personal-message hash
// of digest, the way an endorser signs.
func signDigest(t *testing.T, digest [32]byte) (Signature, [20]byte) {
	t.Helper()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	hash := PersonalHash(digest)
	raw, err := crypto.Sign(hash[:], key)
	require.NoError(t, err)

	var sig Signature
	copy(sig.R[:], raw[0:32])
	copy(sig.S[:], raw[32:64])
	sig.V = raw[64]

	return sig, crypto.PubkeyToAddress(key.PublicKey)
}

func TestRecoverAddress(t *testing.T) {
	digest := [32]byte(crypto.Keccak256([]byte("endorsement digest")))
	sig, want := signDigest(t, digest)

	got, err := RecoverAddress(digest, sig)
	require.NoError(t, err)
	require.Equal(t, want, [20]byte(got))
}

func TestRecoverAddressEthereumV(t *testing.T) {
	// The 27/28 convention must recover identically to 0/1.
	digest := [32]byte(crypto.Keccak256([]byte("v convention")))
	sig, want := signDigest(t, digest)
	require.Less(t, sig.V, byte(2), "crypto.Sign emits parity v")

	sig.V += 27
	got, err := RecoverAddress(digest, sig)
	require.NoError(t, err)
	require.Equal(t, want, [20]byte(got))
}

// TestRecoverAddressBitFlip pins the core security property: corrupting
// s must never recover the original signer.
func TestRecoverAddressBitFlip(t *testing.T) {
	digest := [32]byte(crypto.Keccak256([]byte("bit flip")))
	sig, original := signDigest(t, digest)

	sig.S[0] ^= 0x01
	got, err := RecoverAddress(digest, sig)
	if err != nil {
		require.ErrorIs(t, err, ErrInvalidSignature)
		return
	}
	require.NotEqual(t, original, [20]byte(got))
}

func TestRecoverAddressInvalid(t *testing.T) {
	digest := [32]byte(crypto.Keccak256([]byte("invalid cases")))
	valid, _ := signDigest(t, digest)

	testCases := []struct {
		name   string
		mutate func(*Signature)
	}{
		{"zero r", func(s *Signature) { s.R = [32]byte{} }},
		{"zero s", func(s *Signature) { s.S = [32]byte{} }},
		{"r at max", func(s *Signature) {
			for i := range s.R {
				s.R[i] = 0xff
			}
		}},
		{"s at max", func(s *Signature) {
			for i := range s.S {
				s.S[i] = 0xff
			}
		}},
		{"v out of range", func(s *Signature) { s.V = 2 }},
		{"v way out of range", func(s *Signature) { s.V = 29 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sig := valid
			tc.mutate(&sig)
			_, err := RecoverAddress(digest, sig)
			require.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestRecoverAddressBytes(t *testing.T) {
	digest := [32]byte(crypto.Keccak256([]byte("raw slice entry point")))
	sig, want := signDigest(t, digest)

	got, err := RecoverAddressBytes(digest[:], sig)
	require.NoError(t, err)
	require.Equal(t, want, [20]byte(got))

	_, err = RecoverAddressBytes(digest[:31], sig)
	require.ErrorIs(t, err, ErrMalformedInput)

	_, err = RecoverAddressBytes(append(digest[:], 0x00), sig)
	require.ErrorIs(t, err, ErrMalformedInput)
}

func TestPersonalHash(t *testing.T) {
	var digest [32]byte
	copy(digest[:], crypto.Keccak256([]byte("prefix check")))

	want := crypto.Keccak256([]byte("\x19Ethereum Signed Message:\n32"), digest[:])
	got := PersonalHash(digest)
	require.Equal(t, want, got[:])
}
