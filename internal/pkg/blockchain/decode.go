package blockchain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

// UnpackLatestRoundData decodes latestRoundData() return data:
// (uint80 roundId, int256 answer, uint256 startedAt, uint256 updatedAt, uint80 answeredInRound).
func UnpackLatestRoundData(feedABI *abi.ABI, data []byte, decimals int) (*entity.PriceSample, error) {
	unpacked, err := feedABI.Unpack("latestRoundData", data)
	if err != nil {
		return nil, fmt.Errorf("unpacking latestRoundData: %w", err)
	}
	if len(unpacked) != 5 {
		return nil, fmt.Errorf("latestRoundData: expected 5 values, got %d", len(unpacked))
	}

	values := make([]*big.Int, 5)
	for i, v := range unpacked {
		b, ok := v.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("latestRoundData: value %d has type %T", i, v)
		}
		values[i] = b
	}

	return entity.NewPriceSample(values[0], values[1], values[2], values[3], values[4], decimals)
}

// UnpackUserAccountData decodes getUserAccountData() return data.
func UnpackUserAccountData(poolABI *abi.ABI, data []byte) (*entity.AccountSnapshot, error) {
	unpacked, err := poolABI.Unpack("getUserAccountData", data)
	if err != nil {
		return nil, fmt.Errorf("unpacking getUserAccountData: %w", err)
	}
	if len(unpacked) != 6 {
		return nil, fmt.Errorf("getUserAccountData: expected 6 values, got %d", len(unpacked))
	}

	values := make([]*big.Int, 6)
	for i, v := range unpacked {
		b, ok := v.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("getUserAccountData: value %d has type %T", i, v)
		}
		values[i] = b
	}

	snapshot := &entity.AccountSnapshot{
		TotalCollateralBase:         values[0],
		TotalDebtBase:               values[1],
		AvailableBorrowsBase:        values[2],
		CurrentLiquidationThreshold: values[3],
		LTV:                         values[4],
		HealthFactor:                values[5],
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// FindRepaidAmount returns the amount of the first Repay event emitted by
// pool in the receipt, or nil when there is none.
func FindRepaidAmount(poolABI *abi.ABI, pool common.Address, receipt *types.Receipt) (*big.Int, error) {
	event, ok := poolABI.Events["Repay"]
	if !ok {
		return nil, fmt.Errorf("Repay event not in ABI")
	}
	if receipt == nil {
		return nil, nil
	}
	for _, log := range receipt.Logs {
		if log == nil || log.Address != pool || len(log.Topics) == 0 || log.Topics[0] != event.ID {
			continue
		}
		values, err := event.Inputs.NonIndexed().Unpack(log.Data)
		if err != nil {
			return nil, fmt.Errorf("unpacking Repay event: %w", err)
		}
		amount, ok := values[0].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("Repay amount has type %T", values[0])
		}
		return amount, nil
	}
	return nil, nil
}
