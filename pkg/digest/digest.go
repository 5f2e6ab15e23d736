// Package digest reconstructs the byte sequence an endorser signed.
package digest

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/endorsed-labs/endorsed-go/pkg/trailer"
)

// Build computes the 32-byte digest committed to by an endorsement
// signature:
//
//	keccak256(extraContext || businessPayload || nonce || validBy)
//
// businessPayload is the call data with the trailer stripped off.
// extraContext is caller-supplied binding data, typically the ABI-encoded
// method arguments, so an endorsement signed for one call cannot be
// replayed against a structurally different one. The signature bytes and
// the magic/type word are never part of the digest: the signature covers
// everything except itself.
func Build(extraContext, businessPayload []byte, nonce, validBy [32]byte) [32]byte {
	data := make([]byte, 0, len(extraContext)+len(businessPayload)+64)
	data = append(data, extraContext...)
	data = append(data, businessPayload...)
	data = append(data, nonce[:]...)
	data = append(data, validBy[:]...)

	return [32]byte(crypto.Keccak256Hash(data))
}

// ForEndorsement is a convenience wrapper over Build that pulls nonce and
// validBy out of a decoded endorsement.
func ForEndorsement(extraContext, businessPayload []byte, e *trailer.Endorsement) [32]byte {
	return Build(extraContext, businessPayload, e.Nonce, e.ValidBy)
}

// MethodID computes the 32-byte identifier of a method signature string
// (e.g. "transferFrom(address,address,uint256)") as consumed by the audit
// sink after a successful authorization.
func MethodID(signature string) [32]byte {
	return [32]byte(crypto.Keccak256Hash([]byte(signature)))
}

// PackContext ABI-encodes typed method arguments into an extraContext
// blob. Each entry pairs a Solidity type name with its Go value, using
// go-ethereum's binding conventions (common.Address for address, *big.Int
// for uint256, and so on).
func PackContext(args ...ContextArg) ([]byte, error) {
	abiArgs := make(abi.Arguments, len(args))
	values := make([]interface{}, len(args))

	for i, a := range args {
		t, err := abi.NewType(a.SolidityType, "", nil)
		if err != nil {
			return nil, fmt.Errorf("invalid solidity type %q: %w", a.SolidityType, err)
		}
		abiArgs[i] = abi.Argument{Type: t}
		values[i] = a.Value
	}

	packed, err := abiArgs.Pack(values...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack context arguments: %w", err)
	}

	return packed, nil
}

// ContextArg is a single typed argument for PackContext.
type ContextArg struct {
	SolidityType string
	Value        interface{}
}
