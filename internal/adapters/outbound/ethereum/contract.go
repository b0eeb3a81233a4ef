package ethereum

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

// boundContract pairs an address with its ABI and the means to read from and
// write to it. Writes go through the TxSender and block until confirmed.
type boundContract struct {
	address common.Address
	abi     *abi.ABI
	caller  ethereum.ContractCaller
	sender  outbound.TxSender
}

func (c *boundContract) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s on %s: %w", method, c.address.Hex(), err)
	}
	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s from %s: %w", method, c.address.Hex(), err)
	}
	return values, nil
}

// callRaw returns the undecoded return data of a view call.
func (c *boundContract) callRaw(ctx context.Context, method string, args ...any) ([]byte, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s on %s: %w", method, c.address.Hex(), err)
	}
	return out, nil
}

// transact sends a state-changing call. The record is returned alongside the
// error when the transaction was mined but reverted.
func (c *boundContract) transact(ctx context.Context, value *big.Int, method string, args ...any) (*entity.TxRecord, *types.Receipt, error) {
	if c.sender == nil {
		return nil, nil, fmt.Errorf("%s on %s: contract is read-only", method, c.address.Hex())
	}
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("packing %s: %w", method, err)
	}
	receipt, err := c.sender.SendAndConfirm(ctx, c.address, data, value)
	if receipt == nil {
		if err == nil {
			err = fmt.Errorf("no receipt")
		}
		return nil, nil, fmt.Errorf("%s on %s: %w", method, c.address.Hex(), err)
	}
	rec := recordFromReceipt(receipt)
	if err != nil {
		return rec, receipt, fmt.Errorf("%s on %s: %w", method, c.address.Hex(), err)
	}
	return rec, receipt, nil
}

func bigIntResult(method string, values []any) (*big.Int, error) {
	if len(values) != 1 {
		return nil, fmt.Errorf("%s: expected 1 value, got %d", method, len(values))
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected type %T", method, values[0])
	}
	return v, nil
}
