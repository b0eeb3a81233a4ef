package ethereum

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

var _ outbound.LendingPool = (*LendingPool)(nil)

// LendingPool is an Aave V2 LendingPool bound to one address.
type LendingPool struct {
	contract boundContract
	logger   *slog.Logger
}

// NewLendingPool binds the pool at address.
func NewLendingPool(caller ethereum.ContractCaller, sender outbound.TxSender, address common.Address, logger *slog.Logger) (*LendingPool, error) {
	parsed, err := abis.GetLendingPoolABI()
	if err != nil {
		return nil, fmt.Errorf("loading LendingPool ABI: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LendingPool{
		contract: boundContract{address: address, abi: parsed, caller: caller, sender: sender},
		logger:   logger.With("component", "lending-pool", "pool", address.Hex()),
	}, nil
}

func (p *LendingPool) Address() common.Address {
	return p.contract.address
}

func (p *LendingPool) Deposit(ctx context.Context, asset common.Address, amount *big.Int, onBehalfOf common.Address, referralCode uint16) (*entity.TxRecord, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.New("deposit amount must be positive")
	}
	rec, _, err := p.contract.transact(ctx, nil, "deposit", asset, amount, onBehalfOf, referralCode)
	return rec, err
}

func (p *LendingPool) GetUserAccountData(ctx context.Context, user common.Address) (*entity.AccountSnapshot, error) {
	out, err := p.contract.callRaw(ctx, "getUserAccountData", user)
	if err != nil {
		return nil, err
	}
	return blockchain.UnpackUserAccountData(p.contract.abi, out)
}

func (p *LendingPool) Borrow(ctx context.Context, asset common.Address, amount *big.Int, interestRateMode *big.Int, referralCode uint16, onBehalfOf common.Address) (*entity.TxRecord, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.New("borrow amount must be positive")
	}
	if interestRateMode == nil {
		return nil, errors.New("interest rate mode is required")
	}
	rec, _, err := p.contract.transact(ctx, nil, "borrow", asset, amount, interestRateMode, referralCode, onBehalfOf)
	return rec, err
}

// Repay pays back debt and returns the amount the pool's Repay event
// reports. The pool caps repayment at the outstanding debt, so this can be
// lower than amount. Without an event the requested amount is returned.
func (p *LendingPool) Repay(ctx context.Context, asset common.Address, amount *big.Int, rateMode *big.Int, onBehalfOf common.Address) (*big.Int, *entity.TxRecord, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, nil, errors.New("repay amount must be positive")
	}
	if rateMode == nil {
		return nil, nil, errors.New("rate mode is required")
	}
	rec, receipt, err := p.contract.transact(ctx, nil, "repay", asset, amount, rateMode, onBehalfOf)
	if err != nil {
		return nil, rec, err
	}

	repaid, err := blockchain.FindRepaidAmount(p.contract.abi, p.contract.address, receipt)
	if err != nil {
		return nil, rec, err
	}
	if repaid == nil {
		p.logger.Warn("no Repay event in receipt, assuming requested amount", "txHash", rec.Hash.Hex())
		repaid = new(big.Int).Set(amount)
	}
	return repaid, rec, nil
}
