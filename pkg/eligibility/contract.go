package eligibility

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// registryABI is the read-only surface of the on-chain endorser
// registry.
const registryABI = `[{"inputs":[{"internalType":"address","name":"endorser","type":"address"}],"name":"isEligibleEndorser","outputs":[{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"}]`

// ContractCaller is the subset of an Ethereum client needed by
// ContractOracle. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ContractOracle answers eligibility by calling isEligibleEndorser on an
// on-chain registry contract. A rate limiter caps RPC pressure when a
// burst of verifications misses the cache layer.
type ContractOracle struct {
	client   ContractCaller
	registry common.Address
	abi      abi.ABI
	limiter  *rate.Limiter
}

// ContractOracleConfig configures a ContractOracle.
type ContractOracleConfig struct {
	// Registry is the address of the endorser registry contract.
	Registry common.Address

	// RequestsPerSecond caps registry RPC calls. Zero means no limit.
	RequestsPerSecond float64

	// Burst is the limiter burst size; defaults to 1 when rate limiting
	// is enabled.
	Burst int
}

// NewContractOracle builds an oracle against the given registry.
func NewContractOracle(client ContractCaller, cfg ContractOracleConfig) (*ContractOracle, error) {
	if client == nil {
		return nil, errors.New("ethereum client cannot be nil")
	}
	if cfg.Registry == (common.Address{}) {
		return nil, errors.New("registry address cannot be zero")
	}

	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse registry ABI")
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &ContractOracle{
		client:   client,
		registry: cfg.Registry,
		abi:      parsed,
		limiter:  limiter,
	}, nil
}

// IsEligible performs an eth_call against the registry at the latest
// block.
func (o *ContractOracle) IsEligible(ctx context.Context, addr common.Address) (bool, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return false, errors.Wrap(err, "rate limiter wait aborted")
		}
	}

	input, err := o.abi.Pack("isEligibleEndorser", addr)
	if err != nil {
		return false, errors.Wrap(err, "failed to pack registry call")
	}

	output, err := o.client.CallContract(ctx, ethereum.CallMsg{
		To:   &o.registry,
		Data: input,
	}, nil)
	if err != nil {
		return false, errors.Wrapf(err, "registry call to %s failed", o.registry.Hex())
	}

	results, err := o.abi.Unpack("isEligibleEndorser", output)
	if err != nil {
		return false, errors.Wrap(err, "failed to unpack registry response")
	}
	if len(results) != 1 {
		return false, errors.Errorf("registry returned %d values, want 1", len(results))
	}

	eligible, ok := results[0].(bool)
	if !ok {
		return false, errors.Errorf("registry returned %T, want bool", results[0])
	}

	return eligible, nil
}
