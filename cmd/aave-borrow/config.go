package main

import (
	"flag"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/archon-research/aave-borrow/internal/pkg/blockchain"
	"github.com/archon-research/aave-borrow/internal/pkg/env"
	"github.com/archon-research/aave-borrow/internal/services/borrow_workflow"
)

const (
	multicallModeMulticall3 = "multicall3"
	multicallModeDirect     = "direct"

	defaultAlchemyHTTPURL = "https://eth-mainnet.g.alchemy.com/v2"
)

type cliConfig struct {
	rpcURL     string
	privateKey string
	network    string

	depositAmount    decimal.Decimal
	safetyMargin     decimal.Decimal
	referralCode     uint16
	interestRateMode int64
	confirmations    uint64
	maxPriceAge      time.Duration
	dryRun           bool

	rpcRateLimit  float64
	multicallMode string

	// Address overrides; empty keeps the network default.
	poolAddressesProvider string
	wrappedNative         string
	borrowAsset           string
	priceFeed             string

	snsTopicARN  string
	otlpEndpoint string
	tracesStdout bool
}

// rpcURLFromEnv prefers RPC_URL and falls back to an Alchemy URL built from
// ALCHEMY_HTTP_URL and ALCHEMY_API_KEY.
func rpcURLFromEnv() string {
	if url := env.Get("RPC_URL", ""); url != "" {
		return url
	}
	if key := env.Get("ALCHEMY_API_KEY", ""); key != "" {
		return strings.TrimRight(env.Get("ALCHEMY_HTTP_URL", defaultAlchemyHTTPURL), "/") + "/" + key
	}
	return ""
}

// parseConfig reads the environment first and uses it as flag defaults, so
// flags take precedence. The private key is only read from the environment.
func parseConfig(args []string) (cliConfig, error) {
	confirmationsEnv, err := env.GetInt("CONFIRMATIONS", 1)
	if err != nil {
		return cliConfig{}, err
	}
	referralEnv, err := env.GetInt("REFERRAL_CODE", int(blockchain.NoReferralCode))
	if err != nil {
		return cliConfig{}, err
	}
	rateModeEnv, err := env.GetInt("INTEREST_RATE_MODE", int(blockchain.InterestRateModeStable.Int64()))
	if err != nil {
		return cliConfig{}, err
	}
	maxAgeEnv, err := env.GetDuration("MAX_PRICE_AGE", 24*time.Hour)
	if err != nil {
		return cliConfig{}, err
	}
	rateLimitEnv, err := env.GetInt("RPC_RATE_LIMIT", 25)
	if err != nil {
		return cliConfig{}, err
	}
	dryRunEnv, err := env.GetBool("DRY_RUN", false)
	if err != nil {
		return cliConfig{}, err
	}
	stdoutEnv, err := env.GetBool("OTEL_TRACES_STDOUT", false)
	if err != nil {
		return cliConfig{}, err
	}

	fs := flag.NewFlagSet("aave-borrow", flag.ContinueOnError)
	rpcURL := fs.String("rpc-url", rpcURLFromEnv(), "Ethereum JSON-RPC endpoint (env RPC_URL or ALCHEMY_API_KEY)")
	network := fs.String("network", env.Get("NETWORK", "mainnet"), "Deployment: "+strings.Join(blockchain.KnownNetworks(), ", "))
	deposit := fs.String("deposit", env.Get("DEPOSIT_AMOUNT", "0.02"), "Collateral to deposit, in wrapped native token")
	margin := fs.String("safety-margin", env.Get("SAFETY_MARGIN", borrow_workflow.DefaultSafetyMargin.String()), "Share of available borrows to use")
	referral := fs.Int("referral-code", referralEnv, "Aave referral code")
	rateMode := fs.Int64("interest-rate-mode", int64(rateModeEnv), "Interest rate mode: 1 stable, 2 variable")
	confirmations := fs.Int("confirmations", confirmationsEnv, "Blocks a transaction needs before the next step")
	maxAge := fs.Duration("max-price-age", maxAgeEnv, "Reject older price samples (0 disables)")
	dryRun := fs.Bool("dry-run", dryRunEnv, "Stop after sizing the borrow; send no transactions")
	rateLimit := fs.Float64("rpc-rate-limit", float64(rateLimitEnv), "Maximum RPC requests per second (0 disables)")
	mode := fs.String("multicall-mode", env.Get("MULTICALL_MODE", multicallModeMulticall3), "Batched reads: multicall3 or direct")
	provider := fs.String("pool-addresses-provider", env.Get("POOL_ADDRESSES_PROVIDER", ""), "Override LendingPoolAddressesProvider address")
	weth := fs.String("weth", env.Get("WETH_ADDRESS", ""), "Override wrapped native token address")
	asset := fs.String("borrow-asset", env.Get("BORROW_ASSET", ""), "Override borrowed token address")
	feed := fs.String("price-feed", env.Get("PRICE_FEED", ""), "Override borrow asset price feed address")
	topic := fs.String("sns-topic-arn", env.Get("SNS_TOPIC_ARN", ""), "Publish step events to this SNS topic")
	otlp := fs.String("otlp-endpoint", env.Get("OTEL_EXPORTER_OTLP_ENDPOINT", ""), "OTLP gRPC collector endpoint")
	tracesStdout := fs.Bool("traces-stdout", stdoutEnv, "Print spans to stdout when no OTLP endpoint is set")
	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}

	cfg := cliConfig{
		rpcURL:                *rpcURL,
		privateKey:            env.Get("PRIVATE_KEY", ""),
		network:               strings.ToLower(*network),
		interestRateMode:      *rateMode,
		maxPriceAge:           *maxAge,
		dryRun:                *dryRun,
		rpcRateLimit:          *rateLimit,
		multicallMode:         strings.ToLower(*mode),
		poolAddressesProvider: *provider,
		wrappedNative:         *weth,
		borrowAsset:           *asset,
		priceFeed:             *feed,
		snsTopicARN:           *topic,
		otlpEndpoint:          *otlp,
		tracesStdout:          *tracesStdout,
	}

	if cfg.rpcURL == "" {
		return cliConfig{}, fmt.Errorf("RPC URL not provided (use --rpc-url, RPC_URL or ALCHEMY_API_KEY)")
	}
	if cfg.privateKey == "" {
		return cliConfig{}, fmt.Errorf("PRIVATE_KEY env var is required")
	}

	if cfg.depositAmount, err = decimal.NewFromString(*deposit); err != nil {
		return cliConfig{}, fmt.Errorf("invalid deposit amount %q: %w", *deposit, err)
	}
	if cfg.depositAmount.Sign() <= 0 {
		return cliConfig{}, fmt.Errorf("deposit amount must be positive")
	}
	if cfg.safetyMargin, err = decimal.NewFromString(*margin); err != nil {
		return cliConfig{}, fmt.Errorf("invalid safety margin %q: %w", *margin, err)
	}
	if cfg.safetyMargin.Sign() <= 0 || cfg.safetyMargin.GreaterThan(decimal.NewFromInt(1)) {
		return cliConfig{}, fmt.Errorf("safety margin must be in (0, 1]")
	}
	if *referral < 0 || *referral > math.MaxUint16 {
		return cliConfig{}, fmt.Errorf("referral code must fit in uint16")
	}
	cfg.referralCode = uint16(*referral)
	if cfg.interestRateMode != 1 && cfg.interestRateMode != 2 {
		return cliConfig{}, fmt.Errorf("interest rate mode must be 1 (stable) or 2 (variable)")
	}
	if *confirmations < 1 {
		return cliConfig{}, fmt.Errorf("confirmations must be at least 1")
	}
	cfg.confirmations = uint64(*confirmations)
	if cfg.maxPriceAge < 0 {
		return cliConfig{}, fmt.Errorf("max price age must not be negative")
	}
	if cfg.multicallMode != multicallModeMulticall3 && cfg.multicallMode != multicallModeDirect {
		return cliConfig{}, fmt.Errorf("multicall mode must be %q or %q", multicallModeMulticall3, multicallModeDirect)
	}

	return cfg, nil
}

// resolveNetwork looks up the named deployment and applies address overrides.
func resolveNetwork(cfg cliConfig) (blockchain.NetworkConfig, error) {
	network, err := blockchain.GetNetworkConfig(cfg.network)
	if err != nil {
		return blockchain.NetworkConfig{}, err
	}

	overrides := []struct {
		flag   string
		value  string
		target *common.Address
	}{
		{"pool-addresses-provider", cfg.poolAddressesProvider, &network.PoolAddressesProvider},
		{"weth", cfg.wrappedNative, &network.WrappedNative},
		{"borrow-asset", cfg.borrowAsset, &network.BorrowAsset},
		{"price-feed", cfg.priceFeed, &network.BorrowAssetPriceFeed},
	}
	for _, o := range overrides {
		if o.value == "" {
			continue
		}
		addr, err := blockchain.ParseAddress(o.value)
		if err != nil {
			return blockchain.NetworkConfig{}, fmt.Errorf("--%s: %w", o.flag, err)
		}
		*o.target = addr
	}

	if err := network.Validate(); err != nil {
		return blockchain.NetworkConfig{}, err
	}
	return network, nil
}
