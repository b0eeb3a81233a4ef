package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

var _ outbound.TokenApprover = (*ERC20Approver)(nil)

// ERC20Approver grants allowances on any ERC20 token from the sender's
// account. The token address is chosen per call.
type ERC20Approver struct {
	sender outbound.TxSender
	abi    *abi.ABI
}

func NewERC20Approver(sender outbound.TxSender) (*ERC20Approver, error) {
	if sender == nil {
		return nil, errors.New("tx sender is required")
	}
	parsed, err := abis.GetERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("loading ERC20 ABI: %w", err)
	}
	return &ERC20Approver{sender: sender, abi: parsed}, nil
}

// Approve sets the allowance of spender over token to exactly amount.
func (a *ERC20Approver) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (*entity.TxRecord, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, errors.New("approve amount must be non-negative")
	}
	c := boundContract{address: token, abi: a.abi, sender: a.sender}
	rec, _, err := c.transact(ctx, nil, "approve", spender, amount)
	return rec, err
}
