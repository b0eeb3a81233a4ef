// Package borrow_workflow runs the wrap, deposit, borrow and repay sequence
// against an Aave V2 lending pool.
package borrow_workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

const (
	tracerName = "github.com/archon-research/aave-borrow/internal/services/borrow_workflow"

	ReadingAfterDeposit = "after_deposit"
	ReadingAfterBorrow  = "after_borrow"
	ReadingAfterRepay   = "after_repay"
)

// ErrNothingToBorrow is returned when the sized amount rounds down to zero.
// The pool rejects zero-amount borrows, so the run stops before sending one.
var ErrNothingToBorrow = errors.New("sized borrow amount is zero")

// Config holds configuration for the borrow workflow.
type Config struct {
	// Account is the signing account; it deposits, borrows and repays for itself.
	Account common.Address

	// ChainID is attached to published step events.
	ChainID int64

	// CollateralToken is the wrapped native token that is deposited.
	CollateralToken *entity.Token

	// BorrowToken is the asset that is borrowed and repaid.
	BorrowToken *entity.Token

	// DepositAmount is the collateral to deposit, in CollateralToken units.
	DepositAmount *big.Int

	// SafetyMargin is the share of available borrows to use.
	SafetyMargin decimal.Decimal

	// BaseCurrencyDecimals is the precision of getUserAccountData values.
	BaseCurrencyDecimals int

	// InterestRateMode is passed to both borrow and repay.
	InterestRateMode *big.Int

	ReferralCode uint16

	// MaxPriceAge rejects older price samples. Zero disables the check.
	MaxPriceAge time.Duration

	// DryRun stops after sizing without sending any transaction.
	DryRun bool

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Dependencies are the external collaborators of the workflow.
type Dependencies struct {
	Resolver      outbound.LendingPoolResolver
	WrappedNative outbound.WrappedNativeToken
	Approver      outbound.TokenApprover
	PriceFeed     outbound.PriceFeed

	// Clock is required when MaxPriceAge is set.
	Clock outbound.ChainClock

	// Metrics and Events are optional.
	Metrics outbound.WorkflowMetrics
	Events  outbound.EventSink
}

// Service runs the borrow workflow. Every step waits for the previous one
// to be confirmed; a Service is meant to be run once.
type Service struct {
	config Config
	deps   Dependencies
	check  PriceCheck
	logger *slog.Logger
}

// NewService creates a new borrow workflow service.
func NewService(config Config, deps Dependencies) (*Service, error) {
	if deps.Resolver == nil {
		return nil, fmt.Errorf("lending pool resolver is required")
	}
	if deps.WrappedNative == nil {
		return nil, fmt.Errorf("wrapped native token is required")
	}
	if deps.Approver == nil {
		return nil, fmt.Errorf("token approver is required")
	}
	if deps.PriceFeed == nil {
		return nil, fmt.Errorf("price feed is required")
	}
	if config.MaxPriceAge > 0 && deps.Clock == nil {
		return nil, fmt.Errorf("chain clock is required when max price age is set")
	}

	if config.Account == (common.Address{}) {
		return nil, fmt.Errorf("account is required")
	}
	if config.CollateralToken == nil || config.BorrowToken == nil {
		return nil, fmt.Errorf("collateral and borrow tokens are required")
	}
	if config.CollateralToken.Address != deps.WrappedNative.Address() {
		return nil, fmt.Errorf("collateral token %s is not the wrapped native token %s",
			config.CollateralToken.Address.Hex(), deps.WrappedNative.Address().Hex())
	}
	if config.DepositAmount == nil || config.DepositAmount.Sign() <= 0 {
		return nil, fmt.Errorf("deposit amount must be positive")
	}
	if config.InterestRateMode == nil || config.InterestRateMode.Sign() <= 0 {
		return nil, fmt.Errorf("interest rate mode must be positive")
	}
	if config.BaseCurrencyDecimals <= 0 {
		return nil, fmt.Errorf("base currency decimals must be positive")
	}
	if config.SafetyMargin.IsZero() {
		config.SafetyMargin = DefaultSafetyMargin
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}

	return &Service{
		config: config,
		deps:   deps,
		check:  PriceCheck{MaxAge: config.MaxPriceAge},
		logger: config.Logger.With("component", "borrow-workflow"),
	}, nil
}

// Run executes the workflow. The report is returned in every case; on
// failure the error is a *StepError.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	report := newReport(s.config.Account, s.config.DryRun)
	defer report.finalize()

	ctx, span := otel.Tracer(tracerName).Start(ctx, "borrow.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("account", s.config.Account.Hex()),
			attribute.Bool("dry_run", s.config.DryRun),
		),
	)
	defer span.End()

	s.logger.Info("starting borrow workflow",
		"account", s.config.Account.Hex(),
		"collateral", s.config.CollateralToken.String(),
		"borrow", s.config.BorrowToken.String(),
		"deposit", s.config.CollateralToken.FromUnits(s.config.DepositAmount).String(),
		"dryRun", s.config.DryRun)

	err := s.run(ctx, report)
	span.SetAttributes(attribute.String("workflow.state", report.State.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "borrow workflow halted")
		return report, err
	}

	s.logger.Info("borrow workflow complete",
		"state", report.State.String(),
		"borrowed", report.BorrowAmount.String(),
		"transactions", len(report.Transactions))
	return report, nil
}

func (s *Service) run(ctx context.Context, report *Report) error {
	var pool outbound.LendingPool
	err := s.step(ctx, report, entity.StepResolvePool, func(ctx context.Context) error {
		var err error
		pool, err = s.deps.Resolver.ResolveLendingPool(ctx)
		if err != nil {
			return err
		}
		report.Pool = pool.Address()
		return nil
	})
	if err != nil {
		return err
	}

	if !s.config.DryRun {
		if err := s.fund(ctx, report); err != nil {
			return err
		}
		if err := s.approveAndDeposit(ctx, report, pool); err != nil {
			return err
		}
	}

	if err := s.readAccount(ctx, report, pool, ReadingAfterDeposit); err != nil {
		return err
	}

	size, err := s.priceAndSize(ctx, report)
	if err != nil {
		return err
	}
	if s.config.DryRun {
		s.logger.Info("dry run: stopping before borrow",
			"amount", size.Amount.String(),
			"token", s.config.BorrowToken.String())
		return nil
	}

	if err := s.borrow(ctx, report, pool, size); err != nil {
		return err
	}
	if err := s.readAccount(ctx, report, pool, ReadingAfterBorrow); err != nil {
		return err
	}
	if err := s.repay(ctx, report, pool, size); err != nil {
		return err
	}
	return s.readAccount(ctx, report, pool, ReadingAfterRepay)
}

// fund wraps only the part of the deposit not already held as WETH.
func (s *Service) fund(ctx context.Context, report *Report) error {
	var rec *entity.TxRecord
	var wrapped *big.Int
	err := s.step(ctx, report, entity.StepWrap, func(ctx context.Context) error {
		balance, err := s.deps.WrappedNative.BalanceOf(ctx, s.config.Account)
		if err != nil {
			return fmt.Errorf("reading wrapped balance: %w", err)
		}
		deficit := new(big.Int).Sub(s.config.DepositAmount, balance)
		if deficit.Sign() <= 0 {
			s.logger.Info("wrapped balance covers deposit, skipping wrap",
				"balance", s.config.CollateralToken.FromUnits(balance).String())
			return nil
		}
		rec, err = s.deps.WrappedNative.Wrap(ctx, deficit)
		if err != nil {
			return err
		}
		wrapped = deficit
		return nil
	})
	if err != nil {
		return err
	}
	return s.advance(ctx, report, entity.StepWrap, rec, wrapped)
}

func (s *Service) approveAndDeposit(ctx context.Context, report *Report, pool outbound.LendingPool) error {
	collateral := s.deps.WrappedNative.Address()
	amount := s.config.DepositAmount

	var rec *entity.TxRecord
	err := s.step(ctx, report, entity.StepApprove, func(ctx context.Context) error {
		var err error
		rec, err = s.deps.Approver.Approve(ctx, collateral, pool.Address(), amount)
		return err
	})
	if err != nil {
		return err
	}
	if err := s.advance(ctx, report, entity.StepApprove, rec, amount); err != nil {
		return err
	}

	err = s.step(ctx, report, entity.StepDeposit, func(ctx context.Context) error {
		var err error
		rec, err = pool.Deposit(ctx, collateral, amount, s.config.Account, s.config.ReferralCode)
		return err
	})
	if err != nil {
		return err
	}
	return s.advance(ctx, report, entity.StepDeposit, rec, amount)
}

func (s *Service) readAccount(ctx context.Context, report *Report, pool outbound.LendingPool, label string) error {
	return s.step(ctx, report, entity.StepAccountData, func(ctx context.Context) error {
		snapshot, err := pool.GetUserAccountData(ctx, s.config.Account)
		if err != nil {
			return err
		}
		report.Readings = append(report.Readings, AccountReading{Label: label, Snapshot: snapshot})
		s.logger.Info("account data",
			"reading", label,
			"collateral", snapshot.TotalCollateralBase.String(),
			"debt", snapshot.TotalDebtBase.String(),
			"available", snapshot.AvailableBorrowsBase.String())
		return nil
	})
}

func (s *Service) priceAndSize(ctx context.Context, report *Report) (BorrowSize, error) {
	err := s.step(ctx, report, entity.StepPrice, func(ctx context.Context) error {
		sample, err := s.deps.PriceFeed.LatestRoundData(ctx)
		if err != nil {
			return err
		}
		var now time.Time
		if s.check.MaxAge > 0 {
			now, err = s.deps.Clock.Now(ctx)
			if err != nil {
				return fmt.Errorf("reading chain time: %w", err)
			}
		}
		if err := s.check.Validate(sample, now); err != nil {
			return err
		}
		report.Price = sample
		s.logger.Info("price",
			"price", sample.Price().String(),
			"round", sample.RoundID.String(),
			"updatedAt", sample.UpdatedTime())
		return nil
	})
	if err != nil {
		return BorrowSize{}, err
	}

	var size BorrowSize
	err = s.step(ctx, report, entity.StepSize, func(ctx context.Context) error {
		reading, ok := report.Reading(ReadingAfterDeposit)
		if !ok {
			return errors.New("no account reading to size from")
		}
		var err error
		size, err = SizeBorrow(
			reading.AvailableBorrowsBase,
			s.config.BaseCurrencyDecimals,
			report.Price.Price(),
			s.config.SafetyMargin,
			s.config.BorrowToken,
		)
		if err != nil {
			return err
		}
		if size.Units.Sign() == 0 {
			return ErrNothingToBorrow
		}
		report.BorrowUnits = size.Units
		report.BorrowAmount = size.Amount
		s.deps.Metrics.RecordBorrowAmount(ctx, size.Units)
		return nil
	})
	if err != nil {
		return BorrowSize{}, err
	}

	if s.config.DryRun {
		return size, nil
	}
	return size, s.advance(ctx, report, entity.StepSize, nil, size.Units)
}

func (s *Service) borrow(ctx context.Context, report *Report, pool outbound.LendingPool, size BorrowSize) error {
	var rec *entity.TxRecord
	err := s.step(ctx, report, entity.StepBorrow, func(ctx context.Context) error {
		var err error
		rec, err = pool.Borrow(ctx, s.config.BorrowToken.Address, size.Units,
			s.config.InterestRateMode, s.config.ReferralCode, s.config.Account)
		return err
	})
	if err != nil {
		return err
	}
	return s.advance(ctx, report, entity.StepBorrow, rec, size.Units)
}

func (s *Service) repay(ctx context.Context, report *Report, pool outbound.LendingPool, size BorrowSize) error {
	token := s.config.BorrowToken.Address

	var rec *entity.TxRecord
	err := s.step(ctx, report, entity.StepApproveRepay, func(ctx context.Context) error {
		var err error
		rec, err = s.deps.Approver.Approve(ctx, token, pool.Address(), size.Units)
		return err
	})
	if err != nil {
		return err
	}
	if err := s.advance(ctx, report, entity.StepApproveRepay, rec, size.Units); err != nil {
		return err
	}

	var repaid *big.Int
	err = s.step(ctx, report, entity.StepRepay, func(ctx context.Context) error {
		var err error
		repaid, rec, err = pool.Repay(ctx, token, size.Units, s.config.InterestRateMode, s.config.Account)
		if err != nil {
			return err
		}
		report.Repaid = repaid
		return nil
	})
	if err != nil {
		return err
	}
	return s.advance(ctx, report, entity.StepRepay, rec, repaid)
}

// step runs fn inside a span and records its outcome. A failure is wrapped
// in a StepError carrying the state reached so far.
func (s *Service) step(ctx context.Context, report *Report, step entity.Step, fn func(ctx context.Context) error) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "borrow."+string(step),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("workflow.step", string(step)),
			attribute.String("workflow.state", report.State.String()),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	s.deps.Metrics.RecordStep(ctx, step, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "step failed")
		return &StepError{Step: step, State: report.State, Err: err}
	}
	return nil
}

// advance moves the report to the next state and publishes the transition.
// rec is nil for transitions without a transaction.
func (s *Service) advance(ctx context.Context, report *Report, step entity.Step, rec *entity.TxRecord, amount *big.Int) error {
	next, ok := report.State.Next()
	if !ok {
		return &StepError{Step: step, State: report.State, Err: fmt.Errorf("no state after %s", report.State)}
	}
	report.State = next

	event := entity.StepEvent{
		ChainID:    s.config.ChainID,
		Account:    s.config.Account.Hex(),
		Step:       step,
		State:      next.String(),
		OccurredAt: time.Now().UTC(),
	}
	attrs := []any{"step", string(step), "state", next.String()}
	if rec != nil {
		rec.Step = step
		report.Transactions = append(report.Transactions, *rec)
		event.TxHash = rec.Hash.Hex()
		event.Block = rec.BlockNumber
		attrs = append(attrs, "txHash", rec.Hash.Hex(), "block", rec.BlockNumber)
	}
	if amount != nil {
		event.Amount = amount.String()
		attrs = append(attrs, "amount", amount.String())
	}
	s.logger.Info("state advanced", attrs...)

	if s.deps.Events != nil {
		if err := s.deps.Events.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish step event", "step", string(step), "error", err)
		}
	}
	return nil
}

type noopMetrics struct{}

func (noopMetrics) RecordStep(context.Context, entity.Step, time.Duration, error) {}
func (noopMetrics) RecordBorrowAmount(context.Context, *big.Int)                  {}
