package borrow_workflow

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

var (
	wethAddr    = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	daiAddr     = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	poolAddr    = common.HexToAddress("0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9")
	accountAddr = common.HexToAddress("0x00000000000000000000000000000000000000aA")

	errInjected = errors.New("injected failure")
)

type approval struct {
	token   common.Address
	spender common.Address
	amount  *big.Int
}

// chain is a recording double for every external collaborator. Each call
// is appended to calls; the failAt-th occurrence of failOn returns an error.
type chain struct {
	calls  []string
	failOn string
	failAt int

	wethBalance *big.Int
	available   *big.Int
	sample      *entity.PriceSample
	now         time.Time
	repaid      *big.Int

	wrapped   *big.Int
	approvals []approval
	borrowed  *big.Int
	rateModes []*big.Int
}

func newChain() *chain {
	return &chain{
		wethBalance: new(big.Int),
		// 10 ETH of available borrows
		available: new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)),
		// 0.001 ETH per DAI
		sample: &entity.PriceSample{
			RoundID:         big.NewInt(100),
			Answer:          big.NewInt(1e15),
			StartedAt:       big.NewInt(1_700_000_000),
			UpdatedAt:       big.NewInt(1_700_000_000),
			AnsweredInRound: big.NewInt(100),
			Decimals:        18,
		},
		now: time.Unix(1_700_000_600, 0),
	}
}

func (c *chain) record(name string) error {
	c.calls = append(c.calls, name)
	if name != c.failOn {
		return nil
	}
	n := 0
	for _, call := range c.calls {
		if call == name {
			n++
		}
	}
	at := c.failAt
	if at == 0 {
		at = 1
	}
	if n == at {
		return fmt.Errorf("%s: %w", name, errInjected)
	}
	return nil
}

func (c *chain) tx(name string) *entity.TxRecord {
	return &entity.TxRecord{
		Hash:        common.BytesToHash([]byte(name)),
		BlockNumber: uint64(len(c.calls)),
		GasUsed:     50_000,
	}
}

func (c *chain) count(name string) int {
	n := 0
	for _, call := range c.calls {
		if call == name {
			n++
		}
	}
	return n
}

func (c *chain) deps() Dependencies {
	return Dependencies{
		Resolver:      &fakeResolver{c},
		WrappedNative: &fakeWETH{c},
		Approver:      &fakeApprover{c},
		PriceFeed:     &fakeFeed{c},
		Clock:         &fakeClock{c},
	}
}

type fakeResolver struct{ c *chain }

func (f *fakeResolver) ResolveLendingPool(ctx context.Context) (outbound.LendingPool, error) {
	if err := f.c.record("resolve_pool"); err != nil {
		return nil, err
	}
	return &fakePool{f.c}, nil
}

type fakeWETH struct{ c *chain }

func (f *fakeWETH) Address() common.Address { return wethAddr }

func (f *fakeWETH) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	if err := f.c.record("balance_of"); err != nil {
		return nil, err
	}
	return new(big.Int).Set(f.c.wethBalance), nil
}

func (f *fakeWETH) Wrap(ctx context.Context, amount *big.Int) (*entity.TxRecord, error) {
	if err := f.c.record("wrap"); err != nil {
		return nil, err
	}
	f.c.wrapped = amount
	return f.c.tx("wrap"), nil
}

type fakeApprover struct{ c *chain }

func (f *fakeApprover) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (*entity.TxRecord, error) {
	if err := f.c.record("approve"); err != nil {
		return nil, err
	}
	f.c.approvals = append(f.c.approvals, approval{token, spender, amount})
	return f.c.tx("approve"), nil
}

type fakePool struct{ c *chain }

func (f *fakePool) Address() common.Address { return poolAddr }

func (f *fakePool) Deposit(ctx context.Context, asset common.Address, amount *big.Int, onBehalfOf common.Address, referralCode uint16) (*entity.TxRecord, error) {
	if err := f.c.record("deposit"); err != nil {
		return nil, err
	}
	return f.c.tx("deposit"), nil
}

func (f *fakePool) GetUserAccountData(ctx context.Context, user common.Address) (*entity.AccountSnapshot, error) {
	if err := f.c.record("account_data"); err != nil {
		return nil, err
	}
	debt := new(big.Int)
	if f.c.borrowed != nil && f.c.count("repay") == 0 {
		debt = new(big.Int).Set(f.c.borrowed)
	}
	return entity.NewAccountSnapshot(big.NewInt(2e16), debt, f.c.available)
}

func (f *fakePool) Borrow(ctx context.Context, asset common.Address, amount *big.Int, interestRateMode *big.Int, referralCode uint16, onBehalfOf common.Address) (*entity.TxRecord, error) {
	if err := f.c.record("borrow"); err != nil {
		return nil, err
	}
	f.c.borrowed = amount
	f.c.rateModes = append(f.c.rateModes, interestRateMode)
	return f.c.tx("borrow"), nil
}

func (f *fakePool) Repay(ctx context.Context, asset common.Address, amount *big.Int, rateMode *big.Int, onBehalfOf common.Address) (*big.Int, *entity.TxRecord, error) {
	if err := f.c.record("repay"); err != nil {
		return nil, nil, err
	}
	f.c.rateModes = append(f.c.rateModes, rateMode)
	repaid := amount
	if f.c.repaid != nil {
		repaid = f.c.repaid
	}
	return repaid, f.c.tx("repay"), nil
}

type fakeFeed struct{ c *chain }

func (f *fakeFeed) LatestRoundData(ctx context.Context) (*entity.PriceSample, error) {
	if err := f.c.record("price"); err != nil {
		return nil, err
	}
	return f.c.sample, nil
}

type fakeClock struct{ c *chain }

func (f *fakeClock) Now(ctx context.Context) (time.Time, error) {
	return f.c.now, nil
}

type recordingMetrics struct {
	steps  []entity.Step
	errors int
	borrow *big.Int
}

func (m *recordingMetrics) RecordStep(ctx context.Context, step entity.Step, duration time.Duration, err error) {
	m.steps = append(m.steps, step)
	if err != nil {
		m.errors++
	}
}

func (m *recordingMetrics) RecordBorrowAmount(ctx context.Context, units *big.Int) {
	m.borrow = units
}

type failingSink struct{ published int }

func (s *failingSink) Publish(ctx context.Context, event entity.StepEvent) error {
	s.published++
	return errors.New("sink unavailable")
}

func (s *failingSink) Close() error { return nil }
