// Package trailer implements the fixed-width ENDORSED trailer codec.
//
// An endorsement is carried as a 137-byte suffix appended to the call data
// of a contract method invocation:
//
//	nonce(32) || validBy(32) || r(32) || s(32) || v(1) || magicType(8)
//
// All integers are big-endian. The terminal 8-byte word doubles as the
// format sentinel and the type discriminator: its first 6 bytes are the
// ASCII family sentinel "ENDORS" and its last 2 bytes are the big-endian
// format type code. The single-endorser code is 0x4544 (ASCII "ED"), so
// the complete single-endorser word reads as the literal "ENDORSED".
//
// Decoding is pure and total. A buffer that does not carry a recognizable
// trailer is reported as unendorsed, which is a valid state rather than an
// error: most calls legitimately carry no endorsement.
package trailer

// TrailerLength is the exact byte length of a single-endorser trailer.
const TrailerLength = 137

// MagicWord is the complete terminal word of a single-endorser trailer.
const MagicWord = "ENDORSED"

// magicFamily is the 6-byte sentinel shared by all endorsement format
// types.-- a terminal word carrying this prefix but an unrecognized type
// code is reported as unsupported rather than unendorsed, so callers can
// log forward-compatibility events separately.
const magicFamily = "ENDORS"

// FormatType is the 2-byte type discriminator carried in the terminal word.
type FormatType uint16

// FormatSingleEndorser is the only format type this codec implements.
// Its value is the big-endian reading of ASCII "ED".
const FormatSingleEndorser FormatType = 0x4544

// Field widths and offsets measured from the end of the buffer. The
// layout is load-bearing for on-chain verifiers; TestOffsetTable pins it.
const (
	magicTypeWidth = 8
	vWidth         = 1
	scalarWidth    = 32

	offMagicType = magicTypeWidth                // [8:0)
	offV         = offMagicType + vWidth         // [9:8)
	offS         = offV + scalarWidth            // [41:9)
	offR         = offS + scalarWidth            // [73:41)
	offValidBy   = offR + scalarWidth            // [105:73)
	offNonce     = offValidBy + scalarWidth      // [137:105)
)

// Endorsement is the decoded trailer of a single-endorser call.
type Endorsement struct {
	// Nonce is the caller-chosen per-endorser sequence value used for
	// replay mitigation. Uniqueness is not enforced at this layer.
	Nonce [32]byte

	// ValidBy is the big-endian timestamp or block-number bound after
	// which the endorsement is void.
	ValidBy [32]byte

	// R, S are the secp256k1 signature scalars; V carries the recovery
	// parity in its low bit (both 0/1 and 27/28 conventions accepted).
	R [32]byte
	S [32]byte
	V byte

	// Format is the decoded type code, FormatSingleEndorser for any
	// Endorsement produced by Decode.
	Format FormatType
}

// Outcome classifies the result of decoding a call-data buffer.
type Outcome int

const (
	// OutcomeUnendorsed means the buffer carries no recognizable
	// endorsement trailer. This is a valid state, not an error.
	OutcomeUnendorsed Outcome = iota

	// OutcomeUnsupported means the buffer carries the endorsement family
	// sentinel but a format type this codec does not implement.
	OutcomeUnsupported

	// OutcomeEndorsed means a single-endorser trailer was decoded.
	OutcomeEndorsed
)

// DecodeResult is the outcome of Decode plus the decoded fields when the
// trailer was recognized.
type DecodeResult struct {
	Outcome Outcome

	// Endorsement is populated only when Outcome is OutcomeEndorsed.
	Endorsement *Endorsement

	// Format is populated when Outcome is OutcomeEndorsed or
	// OutcomeUnsupported.
	Format FormatType

	// TrailerLen is the number of trailing bytes consumed
	// (TrailerLength when endorsed, 0 otherwise). The business payload
	// is callData[:len(callData)-TrailerLen].
	TrailerLen int
}

// Decode inspects the tail of callData for an endorsement trailer.
//
// Buffers shorter than TrailerLength, and buffers whose terminal word does
// not carry the endorsement family sentinel, decode as unendorsed. A
// recognized family with an unknown type code decodes as unsupported so
// the caller never mistakes a future format for plain call data.
func Decode(callData []byte) DecodeResult {
	if len(callData) < TrailerLength {
		return DecodeResult{Outcome: OutcomeUnendorsed}
	}

	tail := callData[len(callData)-magicTypeWidth:]
	if string(tail[:len(magicFamily)]) != magicFamily {
		return DecodeResult{Outcome: OutcomeUnendorsed}
	}

	format := FormatType(uint16(tail[6])<<8 | uint16(tail[7]))
	if format != FormatSingleEndorser {
		return DecodeResult{
			Outcome: OutcomeUnsupported,
			Format:  format,
		}
	}

	end := len(callData)
	e := &Endorsement{
		V:      callData[end-offV],
		Format: format,
	}
	copy(e.S[:], callData[end-offS:end-offV])
	copy(e.R[:], callData[end-offR:end-offS])
	copy(e.ValidBy[:], callData[end-offValidBy:end-offR])
	copy(e.Nonce[:], callData[end-offNonce:end-offValidBy])

	return DecodeResult{
		Outcome:     OutcomeEndorsed,
		Endorsement: e,
		Format:      format,
		TrailerLen:  TrailerLength,
	}
}

// Encode appends a single-endorser trailer for e to payload and returns
// the combined call data. The Format field of e is ignored; Encode always
// emits the single-endorser word.
func Encode(payload []byte, e *Endorsement) []byte {
	out := make([]byte, 0, len(payload)+TrailerLength)
	out = append(out, payload...)
	out = append(out, e.Nonce[:]...)
	out = append(out, e.ValidBy[:]...)
	out = append(out, e.R[:]...)
	out = append(out, e.S[:]...)
	out = append(out, e.V)
	out = append(out, MagicWord...)
	return out
}

// Payload returns the business payload prefix of callData given a decode
// result, i.e. the bytes the endorsement signature commits to.
func Payload(callData []byte, res DecodeResult) []byte {
	return callData[:len(callData)-res.TrailerLen]
}
