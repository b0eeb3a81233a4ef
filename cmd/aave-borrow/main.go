// Package main runs the Aave V2 borrow workflow once: wrap ETH, deposit it
// as collateral, borrow a safe share of the available capacity in the
// configured stablecoin, and repay it.
//
// Exit code 0 means every step was confirmed; 1 means the workflow halted,
// with the failing step and the state it left the account in logged.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/joho/godotenv"

	"github.com/archon-research/aave-borrow/internal/adapters/outbound/ethereum"
	"github.com/archon-research/aave-borrow/internal/adapters/outbound/sns"
	"github.com/archon-research/aave-borrow/internal/adapters/outbound/telemetry"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/multicall"
	"github.com/archon-research/aave-borrow/internal/pkg/env"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
	"github.com/archon-research/aave-borrow/internal/services/borrow_workflow"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		stop()
		os.Exit(1)
	}
	slog.Info("completed successfully")
}

func run(ctx context.Context, args []string) error {
	cfg, err := parseConfig(args)
	if err != nil {
		return err
	}

	logger := env.NewLogger(os.Stdout, slog.LevelInfo)
	slog.SetDefault(logger)

	shutdownTelemetry, err := initTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	network, err := resolveNetwork(cfg)
	if err != nil {
		return err
	}

	key, err := ethereum.ParsePrivateKey(cfg.privateKey)
	if err != nil {
		return err
	}
	account := crypto.PubkeyToAddress(key.PublicKey)

	rpcClient, err := rpc.DialContext(ctx, cfg.rpcURL)
	if err != nil {
		return fmt.Errorf("connecting to RPC: %w", err)
	}
	ethClient := ethclient.NewClient(rpcClient)
	defer ethClient.Close()

	chain := ethereum.NewRateLimitedClient(ethClient, cfg.rpcRateLimit, 1)

	chainID, err := chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("fetching chain ID: %w", err)
	}
	if chainID.Int64() != network.ChainID {
		return fmt.Errorf("RPC endpoint is on chain %s but network %q expects %d", chainID, network.Name, network.ChainID)
	}
	logger.Info("connected",
		"network", network.Name,
		"chainId", chainID.String(),
		"account", account.Hex())

	mc, err := newMulticaller(cfg.multicallMode, chain, rpcClient)
	if err != nil {
		return err
	}

	erc20ABI, err := abis.GetERC20ABI()
	if err != nil {
		return err
	}
	feedABI, err := abis.GetAggregatorV3ABI()
	if err != nil {
		return err
	}
	metadata, err := blockchain.FetchAssetMetadata(ctx, mc, erc20ABI, feedABI,
		[]common.Address{network.WrappedNative, network.BorrowAsset}, network.BorrowAssetPriceFeed)
	if err != nil {
		return fmt.Errorf("fetching asset metadata: %w", err)
	}
	collateral, borrowToken := metadata.Tokens[0], metadata.Tokens[1]

	txManager, err := ethereum.NewTxManager(chain, key, ethereum.TxManagerConfig{
		ChainID:          chainID,
		Confirmations:    cfg.confirmations,
		GasBufferPercent: ethereum.TxManagerConfigDefaults().GasBufferPercent,
		Logger:           logger,
	})
	if err != nil {
		return err
	}

	deps, err := buildDependencies(chain, mc, txManager, network, metadata.FeedDecimals, logger)
	if err != nil {
		return err
	}

	if cfg.snsTopicARN != "" {
		sink, err := newSNSSink(ctx, cfg.snsTopicARN, logger)
		if err != nil {
			return err
		}
		defer sink.Close()
		deps.Events = sink
	}

	service, err := borrow_workflow.NewService(borrow_workflow.Config{
		Account:              account,
		ChainID:              network.ChainID,
		CollateralToken:      collateral,
		BorrowToken:          borrowToken,
		DepositAmount:        collateral.ToUnits(cfg.depositAmount),
		SafetyMargin:         cfg.safetyMargin,
		BaseCurrencyDecimals: network.BaseCurrencyDecimals,
		InterestRateMode:     big.NewInt(cfg.interestRateMode),
		ReferralCode:         cfg.referralCode,
		MaxPriceAge:          cfg.maxPriceAge,
		DryRun:               cfg.dryRun,
		Logger:               logger,
	}, deps)
	if err != nil {
		return fmt.Errorf("creating service: %w", err)
	}

	report, err := service.Run(ctx)
	logReport(logger, report, borrowToken.String())
	if err != nil {
		var stepErr *borrow_workflow.StepError
		if errors.As(err, &stepErr) {
			logger.Error("workflow halted",
				"step", string(stepErr.Step),
				"state", stepErr.State.String())
		}
		return err
	}
	return nil
}

func initTelemetry(ctx context.Context, cfg cliConfig) (func(), error) {
	environment := cfg.network
	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.TracerConfig{
		ServiceName:    "aave-borrow",
		ServiceVersion: telemetry.TracerConfigDefaults().ServiceVersion,
		Environment:    environment,
		OTLPEndpoint:   cfg.otlpEndpoint,
		Stdout:         cfg.tracesStdout,
	})
	if err != nil {
		return nil, fmt.Errorf("initialising tracer: %w", err)
	}
	shutdownMetrics, err := telemetry.InitMetrics(ctx, telemetry.MetricConfig{
		ServiceName:  "aave-borrow",
		Environment:  environment,
		OTLPEndpoint: cfg.otlpEndpoint,
	})
	if err != nil {
		_ = shutdownTracer(ctx)
		return nil, fmt.Errorf("initialising metrics: %w", err)
	}

	return func() {
		// The run context may already be cancelled; flushing gets its own.
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(flushCtx); err != nil {
			slog.Warn("metrics shutdown failed", "error", err)
		}
		if err := shutdownTracer(flushCtx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}, nil
}

func newMulticaller(mode string, chain *ethereum.RateLimitedClient, rpcClient *rpc.Client) (outbound.Multicaller, error) {
	switch mode {
	case multicallModeDirect:
		return multicall.NewDirectCaller(rpcClient), nil
	case multicallModeMulticall3:
		return multicall.NewClient(chain, blockchain.Multicall3)
	default:
		return nil, fmt.Errorf("unknown multicall mode %q", mode)
	}
}

func buildDependencies(
	chain *ethereum.RateLimitedClient,
	mc outbound.Multicaller,
	sender outbound.TxSender,
	network blockchain.NetworkConfig,
	feedDecimals int,
	logger *slog.Logger,
) (borrow_workflow.Dependencies, error) {
	weth, err := ethereum.NewWETH(chain, sender, network.WrappedNative)
	if err != nil {
		return borrow_workflow.Dependencies{}, err
	}
	approver, err := ethereum.NewERC20Approver(sender)
	if err != nil {
		return borrow_workflow.Dependencies{}, err
	}
	provider, err := ethereum.NewAddressesProvider(mc, chain, sender, network.PoolAddressesProvider, logger)
	if err != nil {
		return borrow_workflow.Dependencies{}, err
	}
	feed, err := ethereum.NewPriceFeed(chain, network.BorrowAssetPriceFeed, feedDecimals)
	if err != nil {
		return borrow_workflow.Dependencies{}, err
	}
	metrics, err := telemetry.NewMetrics(nil)
	if err != nil {
		return borrow_workflow.Dependencies{}, err
	}

	return borrow_workflow.Dependencies{
		Resolver:      provider,
		WrappedNative: weth,
		Approver:      approver,
		PriceFeed:     feed,
		Clock:         ethereum.NewBlockClock(chain),
		Metrics:       metrics,
	}, nil
}

func newSNSSink(ctx context.Context, topicARN string, logger *slog.Logger) (*sns.EventSink, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(env.Get("AWS_REGION", "eu-west-1")),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	var optFns []func(*awssns.Options)
	if endpoint := env.Get("AWS_SNS_ENDPOINT", ""); endpoint != "" {
		optFns = append(optFns, func(o *awssns.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	sink, err := sns.NewEventSink(awssns.NewFromConfig(awsCfg, optFns...), sns.Config{
		TopicARN: topicARN,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating SNS event sink: %w", err)
	}
	return sink, nil
}

func logReport(logger *slog.Logger, report *borrow_workflow.Report, borrowSymbol string) {
	if report == nil {
		return
	}
	attrs := []any{
		"state", report.State.String(),
		"pool", report.Pool.Hex(),
		"dryRun", report.DryRun,
		"transactions", len(report.Transactions),
		"duration", report.Duration(),
	}
	if report.BorrowUnits != nil {
		attrs = append(attrs, "borrowed", report.BorrowAmount.String()+" "+borrowSymbol)
	}
	if report.Repaid != nil {
		attrs = append(attrs, "repaidUnits", report.Repaid.String())
	}
	logger.Info("workflow report", attrs...)

	for _, tx := range report.Transactions {
		logger.Info("transaction",
			"step", string(tx.Step),
			"txHash", tx.Hash.Hex(),
			"block", tx.BlockNumber,
			"gasUsed", tx.GasUsed)
	}
	for _, r := range report.Readings {
		logger.Info("account reading",
			"reading", r.Label,
			"collateral", r.Snapshot.TotalCollateralBase.String(),
			"debt", r.Snapshot.TotalDebtBase.String(),
			"available", r.Snapshot.AvailableBorrowsBase.String())
	}
}
