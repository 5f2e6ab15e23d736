package trailer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func FuzzDecodeNeverPanics(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte("ENDORSED"))
	f.Add(Encode([]byte("payload"), &Endorsement{V: 27}))
	f.Add(make([]byte, TrailerLength))

	f.Fuzz(func(t *testing.T, data []byte) {
		res := Decode(data)

		switch res.Outcome {
		case OutcomeEndorsed:
			require.NotNil(t, res.Endorsement)
			require.Equal(t, TrailerLength, res.TrailerLen)
			require.GreaterOrEqual(t, len(data), TrailerLength)
			// Whatever decoded must re-encode to the same tail.
			re := Encode(Payload(data, res), res.Endorsement)
			require.Equal(t, data, re)
		case OutcomeUnsupported:
			require.Nil(t, res.Endorsement)
			require.Equal(t, 0, res.TrailerLen)
		default:
			require.Equal(t, OutcomeUnendorsed, res.Outcome)
			require.Nil(t, res.Endorsement)
		}
	})
}

func FuzzEncodeDecodeRoundTrip(f *testing.F) {
	f.Add([]byte("payload"), []byte("nonce-seed"), []byte("validby-seed"), byte(27))
	f.Add([]byte{}, []byte{}, []byte{}, byte(0))

	f.Fuzz(func(t *testing.T, payload, nonceSeed, validBySeed []byte, v byte) {
		if len(payload) > 4096 {
			payload = payload[:4096]
		}

		e := &Endorsement{V: v, Format: FormatSingleEndorser}
		copy(e.Nonce[:], nonceSeed)
		copy(e.ValidBy[:], validBySeed)

		res := Decode(Encode(payload, e))
		require.Equal(t, OutcomeEndorsed, res.Outcome)
		require.Equal(t, e, res.Endorsement)
		require.Equal(t, payload, append([]byte{}, Payload(Encode(payload, e), res)...))
	})
}
