package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

var _ outbound.WrappedNativeToken = (*WETH)(nil)

// WETH is a WETH9 contract. Wrapping sends native currency to the payable
// deposit() function.
type WETH struct {
	contract boundContract
}

// NewWETH binds a WETH9 contract at address.
func NewWETH(caller ethereum.ContractCaller, sender outbound.TxSender, address common.Address) (*WETH, error) {
	parsed, err := abis.GetWETH9ABI()
	if err != nil {
		return nil, fmt.Errorf("loading WETH9 ABI: %w", err)
	}
	return &WETH{contract: boundContract{address: address, abi: parsed, caller: caller, sender: sender}}, nil
}

func (w *WETH) Address() common.Address {
	return w.contract.address
}

func (w *WETH) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	values, err := w.contract.call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return bigIntResult("balanceOf", values)
}

// Wrap converts amount of native currency into WETH held by the sender.
func (w *WETH) Wrap(ctx context.Context, amount *big.Int) (*entity.TxRecord, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, errors.New("wrap amount must be positive")
	}
	rec, _, err := w.contract.transact(ctx, amount, "deposit")
	return rec, err
}
