package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/endorsed-labs/endorsed-go/pkg/config"
	"github.com/endorsed-labs/endorsed-go/pkg/eligibility"
	"github.com/endorsed-labs/endorsed-go/pkg/endorse"
	"github.com/endorsed-labs/endorsed-go/pkg/logger"
	"github.com/endorsed-labs/endorsed-go/pkg/trailer"
	"github.com/endorsed-labs/endorsed-go/pkg/verifier"
)

func main() {
	app := &cli.App{
		Name:  "endorsed",
		Usage: "Inspect, produce, and verify ENDORSED call-data trailers",
		Description: `Tooling around the 137-byte ENDORSED endorsement trailer:

- decode: parse the trailer out of a call-data blob
- verify: run the full verification pipeline against an allow-list or
  an on-chain endorser registry
- endorse: sign a payload with a local private key and print the
  endorsed call data`,
		Version: "1.0.0",
		Commands: []*cli.Command{
			decodeCommand(),
			verifyCommand(),
			endorseCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode the endorsement trailer of a hex call-data blob",
		ArgsUsage: "<calldata-hex>",
		Action: func(c *cli.Context) error {
			callData, err := hexArg(c, 0, "calldata")
			if err != nil {
				return err
			}

			res := trailer.Decode(callData)
			switch res.Outcome {
			case trailer.OutcomeUnendorsed:
				fmt.Println("unendorsed: no recognizable trailer")
				return nil
			case trailer.OutcomeUnsupported:
				fmt.Printf("unsupported format type 0x%04x\n", uint16(res.Format))
				return nil
			}

			e := res.Endorsement
			fmt.Printf("format:   single-endorser (0x%04x)\n", uint16(e.Format))
			fmt.Printf("nonce:    0x%s\n", hex.EncodeToString(e.Nonce[:]))
			fmt.Printf("validBy:  %s\n", new(big.Int).SetBytes(e.ValidBy[:]))
			fmt.Printf("r:        0x%s\n", hex.EncodeToString(e.R[:]))
			fmt.Printf("s:        0x%s\n", hex.EncodeToString(e.S[:]))
			fmt.Printf("v:        %d\n", e.V)
			fmt.Printf("payload:  %d bytes\n", len(callData)-res.TrailerLen)
			return nil
		},
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "verify",
		Usage:     "Verify endorsed call data",
		ArgsUsage: "<calldata-hex>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "context",
				Usage: "Hex extraContext bound into the digest",
			},
			&cli.Int64Flag{
				Name:     "now",
				Usage:    "Timestamp or block number for the expiry check",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "allow",
				Usage:   "Comma-separated allow-list of endorser addresses",
				EnvVars: []string{config.EnvAllowList},
			},
			&cli.StringFlag{
				Name:    "registry",
				Usage:   "On-chain endorser registry address (contract mode)",
				EnvVars: []string{config.EnvRegistryAddress},
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Ethereum RPC endpoint (contract mode)",
				EnvVars: []string{config.EnvRPCURL},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvVerbose},
			},
		},
		Action: runVerify,
	}
}

func runVerify(c *cli.Context) error {
	zl, err := logger.NewLogger(&logger.LoggerConfig{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	callData, err := hexArg(c, 0, "calldata")
	if err != nil {
		return err
	}

	extraContext, err := hexFlag(c, "context")
	if err != nil {
		return err
	}

	isEligible, err := buildEligibility(c)
	if err != nil {
		return err
	}

	verdict := verifier.Verify(callData, extraContext, big.NewInt(c.Int64("now")), isEligible)
	zl.Debug("verification pass complete",
		zap.String("status", verdict.Status.String()),
		zap.Int("calldata_bytes", len(callData)),
	)

	fmt.Printf("status: %s\n", verdict.Status)
	switch verdict.Status {
	case verifier.StatusAuthorized, verifier.StatusRejected:
		fmt.Printf("endorser: %s\n", verdict.Endorser.Hex())
		fmt.Printf("nonce:    0x%s\n", hex.EncodeToString(verdict.Nonce[:]))
	case verifier.StatusUnsupported:
		fmt.Printf("format:   0x%04x\n", uint16(verdict.Format))
	}

	if !verdict.Authorized() && verdict.Status != verifier.StatusNoEndorsement {
		return cli.Exit("", 1)
	}
	return nil
}

func buildEligibility(c *cli.Context) (verifier.EligibilityFunc, error) {
	if registry := c.String("registry"); registry != "" {
		if !common.IsHexAddress(registry) {
			return nil, fmt.Errorf("invalid registry address %q", registry)
		}
		rpcURL := c.String("rpc-url")
		if rpcURL == "" {
			return nil, fmt.Errorf("--rpc-url is required with --registry")
		}

		client, err := ethclient.Dial(rpcURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
		}

		oracle, err := eligibility.NewContractOracle(client, eligibility.ContractOracleConfig{
			Registry: common.HexToAddress(registry),
		})
		if err != nil {
			return nil, err
		}
		return eligibility.Bind(c.Context, oracle), nil
	}

	allow, err := config.ParseAllowList(c.String("allow"))
	if err != nil {
		return nil, err
	}
	if len(allow) == 0 {
		return nil, fmt.Errorf("either --allow or --registry must be provided")
	}

	addrs := make([]common.Address, len(allow))
	for i, a := range allow {
		addrs[i] = common.HexToAddress(a)
	}
	return eligibility.Bind(c.Context, eligibility.NewStaticOracle(addrs...)), nil
}

func endorseCommand() *cli.Command {
	return &cli.Command{
		Name:      "endorse",
		Usage:     "Sign a payload and print the endorsed call data",
		ArgsUsage: "<payload-hex>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "private-key",
				Usage:    "Hex secp256k1 private key",
				EnvVars:  []string{"ENDORSED_PRIVATE_KEY"},
				Required: true,
			},
			&cli.StringFlag{
				Name:  "context",
				Usage: "Hex extraContext bound into the digest",
			},
			&cli.Int64Flag{
				Name:  "nonce",
				Usage: "Endorsement nonce",
				Value: 0,
			},
			&cli.Int64Flag{
				Name:     "valid-by",
				Usage:    "Expiry timestamp or block number",
				Required: true,
			},
		},
		Action: runEndorse,
	}
}

func runEndorse(c *cli.Context) error {
	payload, err := hexArg(c, 0, "payload")
	if err != nil {
		return err
	}

	extraContext, err := hexFlag(c, "context")
	if err != nil {
		return err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(c.String("private-key"), "0x"))
	if err != nil {
		return fmt.Errorf("invalid private key: %w", err)
	}

	endorser, err := endorse.NewEndorser(key)
	if err != nil {
		return err
	}

	callData, err := endorser.Endorse(payload, extraContext,
		big.NewInt(c.Int64("nonce")), big.NewInt(c.Int64("valid-by")))
	if err != nil {
		return fmt.Errorf("failed to endorse payload: %w", err)
	}

	fmt.Printf("endorser: %s\n", endorser.Address().Hex())
	fmt.Printf("calldata: 0x%s\n", hex.EncodeToString(callData))
	return nil
}

// hexArg decodes positional argument i as hex, tolerating a 0x prefix.
func hexArg(c *cli.Context, i int, name string) ([]byte, error) {
	raw := c.Args().Get(i)
	if raw == "" {
		return nil, fmt.Errorf("missing %s argument", name)
	}
	b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex %s: %w", name, err)
	}
	return b, nil
}

// hexFlag decodes an optional hex flag, tolerating a 0x prefix.
func hexFlag(c *cli.Context, name string) ([]byte, error) {
	raw := c.String(name)
	if raw == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex --%s: %w", name, err)
	}
	return b, nil
}
