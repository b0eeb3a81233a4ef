package testutil

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
)

func mustABI(t *testing.T, load func() (*abi.ABI, error)) *abi.ABI {
	t.Helper()
	parsed, err := load()
	if err != nil {
		t.Fatalf("loading ABI: %v", err)
	}
	return parsed
}

// PackOutputs ABI-encodes values as the return data of method.
func PackOutputs(t *testing.T, load func() (*abi.ABI, error), method string, values ...any) []byte {
	t.Helper()
	parsed := mustABI(t, load)
	m, ok := parsed.Methods[method]
	if !ok {
		t.Fatalf("method %s not in ABI", method)
	}
	data, err := m.Outputs.Pack(values...)
	if err != nil {
		t.Fatalf("packing %s outputs: %v", method, err)
	}
	return data
}

// PackLatestRoundData ABI-encodes latestRoundData() return data.
func PackLatestRoundData(t *testing.T, roundID, answer, startedAt, updatedAt, answeredInRound *big.Int) []byte {
	t.Helper()
	return PackOutputs(t, abis.GetAggregatorV3ABI, "latestRoundData", roundID, answer, startedAt, updatedAt, answeredInRound)
}

// PackUserAccountData ABI-encodes getUserAccountData() return data.
func PackUserAccountData(t *testing.T, collateral, debt, available, threshold, ltv, healthFactor *big.Int) []byte {
	t.Helper()
	return PackOutputs(t, abis.GetLendingPoolABI, "getUserAccountData", collateral, debt, available, threshold, ltv, healthFactor)
}

// PackLendingPoolAddress ABI-encodes getLendingPool() return data.
func PackLendingPoolAddress(t *testing.T, pool common.Address) []byte {
	t.Helper()
	return PackOutputs(t, abis.GetLendingPoolAddressesProviderABI, "getLendingPool", pool)
}

// PackDecimals ABI-encodes a uint8 decimals() return value.
func PackDecimals(t *testing.T, decimals uint8) []byte {
	t.Helper()
	return PackOutputs(t, abis.GetERC20ABI, "decimals", decimals)
}

// PackSymbol ABI-encodes a string symbol() return value.
func PackSymbol(t *testing.T, symbol string) []byte {
	t.Helper()
	return PackOutputs(t, abis.GetERC20ABI, "symbol", symbol)
}

// PackUint256 ABI-encodes a single uint256 such as balanceOf().
func PackUint256(t *testing.T, v *big.Int) []byte {
	t.Helper()
	return PackOutputs(t, abis.GetERC20ABI, "balanceOf", v)
}

// MulticallResult matches the multicall3 aggregate3 output tuple.
type MulticallResult struct {
	Success    bool
	ReturnData []byte
}

// PackMulticallAggregate3 ABI-encodes results as aggregate3 return data.
func PackMulticallAggregate3(t *testing.T, results []MulticallResult) []byte {
	t.Helper()
	return PackOutputs(t, abis.GetMulticall3ABI, "aggregate3", results)
}

// RepayEventData returns the topic0 and non-indexed data of a Repay event.
func RepayEventData(t *testing.T, amount *big.Int) (common.Hash, []byte) {
	t.Helper()
	parsed := mustABI(t, abis.GetLendingPoolABI)
	event := parsed.Events["Repay"]
	data, err := event.Inputs.NonIndexed().Pack(amount)
	if err != nil {
		t.Fatalf("packing Repay event: %v", err)
	}
	return event.ID, data
}

// Wei returns n * 10^decimals.
func Wei(n int64, decimals int) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}
