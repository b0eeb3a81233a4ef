package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

// ResolveLendingPoolAddress calls getLendingPool() on a LendingPoolAddressesProvider.
// A nil blockNumber reads the latest state. The result is only valid for the
// run that resolved it: the provider's pointer may change between runs.
func ResolveLendingPoolAddress(
	ctx context.Context,
	mc outbound.Multicaller,
	providerAddr common.Address,
	providerABI *abi.ABI,
	blockNumber *big.Int,
) (common.Address, error) {
	callData, err := providerABI.Pack("getLendingPool")
	if err != nil {
		return common.Address{}, fmt.Errorf("packing getLendingPool: %w", err)
	}

	results, err := mc.Execute(ctx, []outbound.Call{
		{Target: providerAddr, AllowFailure: false, CallData: callData},
	}, blockNumber)
	if err != nil {
		return common.Address{}, fmt.Errorf("executing multicall at block %s: %w", blockLabel(blockNumber), err)
	}

	if len(results) != 1 {
		return common.Address{}, fmt.Errorf("expected 1 result, got %d", len(results))
	}
	if !results[0].Success {
		return common.Address{}, fmt.Errorf("getLendingPool call failed at block %s", blockLabel(blockNumber))
	}

	unpacked, err := providerABI.Unpack("getLendingPool", results[0].ReturnData)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpacking getLendingPool: %w", err)
	}

	addr, ok := unpacked[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected return type from getLendingPool")
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("provider %s has no lending pool registered", providerAddr.Hex())
	}

	return addr, nil
}

func blockLabel(blockNumber *big.Int) string {
	if blockNumber == nil {
		return "latest"
	}
	return blockNumber.String()
}
