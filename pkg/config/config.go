// Package config holds the deployment configuration for a verification
// host: which eligibility backend to query, where the replay nonce store
// lives, and how expiry time is sourced.
package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for verifier host configuration
const (
	EnvRegistryAddress = "ENDORSED_REGISTRY_ADDRESS"
	EnvRPCURL          = "ENDORSED_RPC_URL"
	EnvAllowList       = "ENDORSED_ALLOWED_ENDORSERS"
	EnvNonceStoreType  = "ENDORSED_NONCE_STORE"
	EnvBadgerPath      = "ENDORSED_BADGER_PATH"
	EnvRedisAddress    = "ENDORSED_REDIS_ADDRESS"
	EnvRedisPassword   = "ENDORSED_REDIS_PASSWORD"
	EnvVerbose         = "ENDORSED_VERBOSE"
)

// NonceStoreType selects the replay registry backend.
type NonceStoreType string

const (
	NonceStoreMemory NonceStoreType = "memory"
	NonceStoreBadger NonceStoreType = "badger"
	NonceStoreRedis  NonceStoreType = "redis"
)

// EligibilityMode selects how endorser authorization is answered.
type EligibilityMode string

const (
	// EligibilityStatic uses a fixed allow-list of addresses.
	EligibilityStatic EligibilityMode = "static"
	// EligibilityContract queries an on-chain registry over RPC.
	EligibilityContract EligibilityMode = "contract"
)

// VerifierConfig is the complete configuration for a verification host.
type VerifierConfig struct {
	// Eligibility backend
	EligibilityMode  EligibilityMode `json:"eligibility_mode"`
	AllowedEndorsers []string        `json:"allowed_endorsers,omitempty"` // static mode
	RegistryAddress  string          `json:"registry_address,omitempty"`  // contract mode
	RpcUrl           string          `json:"rpc_url,omitempty"`           // contract mode

	// Oracle cache size; zero disables caching.
	EligibilityCacheSize int `json:"eligibility_cache_size"`

	// Replay nonce store
	NonceStore NonceStoreType `json:"nonce_store"`
	BadgerPath string         `json:"badger_path,omitempty"`
	RedisAddr  string         `json:"redis_address,omitempty"`
	RedisPass  string         `json:"redis_password,omitempty"`
	RedisDB    int            `json:"redis_db,omitempty"`

	// Operational settings
	Verbose bool `json:"verbose"`
}

// Validate checks the configuration for internal consistency.
func (c *VerifierConfig) Validate() error {
	var allErrors field.ErrorList

	switch c.EligibilityMode {
	case EligibilityStatic:
		if len(c.AllowedEndorsers) == 0 {
			allErrors = append(allErrors, field.Required(field.NewPath("allowedEndorsers"),
				"static eligibility requires at least one endorser address"))
		}
		for i, addr := range c.AllowedEndorsers {
			if !common.IsHexAddress(addr) {
				allErrors = append(allErrors, field.Invalid(
					field.NewPath("allowedEndorsers").Index(i), addr, "not a hex address"))
			}
		}
	case EligibilityContract:
		if c.RegistryAddress == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("registryAddress"),
				"contract eligibility requires a registry address"))
		} else if !common.IsHexAddress(c.RegistryAddress) {
			allErrors = append(allErrors, field.Invalid(
				field.NewPath("registryAddress"), c.RegistryAddress, "not a hex address"))
		}
		if c.RpcUrl == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("rpcUrl"),
				"contract eligibility requires an RPC endpoint"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("eligibilityMode"),
			string(c.EligibilityMode), []string{string(EligibilityStatic), string(EligibilityContract)}))
	}

	switch c.NonceStore {
	case NonceStoreMemory:
	case NonceStoreBadger:
		if c.BadgerPath == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("badgerPath"),
				"badger nonce store requires a data path"))
		}
	case NonceStoreRedis:
		if c.RedisAddr == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redisAddress"),
				"redis nonce store requires an address"))
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("redisDB"),
				c.RedisDB, "must be between 0 and 15"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("nonceStore"),
			string(c.NonceStore), []string{string(NonceStoreMemory), string(NonceStoreBadger), string(NonceStoreRedis)}))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

// AllowedAddresses parses the configured allow-list. Call Validate
// first; entries that fail address parsing are skipped here.
func (c *VerifierConfig) AllowedAddresses() []common.Address {
	addrs := make([]common.Address, 0, len(c.AllowedEndorsers))
	for _, s := range c.AllowedEndorsers {
		if common.IsHexAddress(s) {
			addrs = append(addrs, common.HexToAddress(s))
		}
	}
	return addrs
}

// ParseAllowList splits a comma-separated address list as accepted on
// the CLI and in EnvAllowList.
func ParseAllowList(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !common.IsHexAddress(p) {
			return nil, fmt.Errorf("invalid endorser address %q", p)
		}
		out = append(out, p)
	}
	return out, nil
}
