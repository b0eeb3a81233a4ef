package blockchain

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
	"github.com/archon-research/aave-borrow/internal/testutil"
)

func TestFetchAssetMetadata(t *testing.T) {
	erc20ABI, err := abis.GetERC20ABI()
	if err != nil {
		t.Fatalf("loading ERC20 ABI: %v", err)
	}
	feedABI, err := abis.GetAggregatorV3ABI()
	if err != nil {
		t.Fatalf("loading feed ABI: %v", err)
	}

	net := NetworkRegistry["mainnet"]
	tokens := []common.Address{net.WrappedNative, net.BorrowAsset}

	mc := testutil.NewMockMulticaller()
	mc.ExecuteFn = func(_ context.Context, calls []outbound.Call, _ *big.Int) ([]outbound.Result, error) {
		if len(calls) != 5 {
			t.Fatalf("expected 5 calls in one batch, got %d", len(calls))
		}
		if calls[1].AllowFailure != true || calls[0].AllowFailure != false {
			t.Error("symbol() may fail, decimals() may not")
		}
		if calls[4].Target != net.BorrowAssetPriceFeed {
			t.Errorf("last call target = %s, want feed", calls[4].Target.Hex())
		}
		return []outbound.Result{
			{Success: true, ReturnData: testutil.PackDecimals(t, 18)},
			{Success: true, ReturnData: testutil.PackSymbol(t, "WETH")},
			{Success: true, ReturnData: testutil.PackDecimals(t, 18)},
			{Success: false},
			{Success: true, ReturnData: testutil.PackDecimals(t, 18)},
		}, nil
	}

	md, err := FetchAssetMetadata(context.Background(), mc, erc20ABI, feedABI, tokens, net.BorrowAssetPriceFeed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mc.CallCount != 1 {
		t.Errorf("expected a single multicall, got %d", mc.CallCount)
	}
	if len(md.Tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d", len(md.Tokens))
	}
	if md.Tokens[0].Symbol != "WETH" || md.Tokens[0].Decimals != 18 {
		t.Errorf("token 0 = %+v", md.Tokens[0])
	}
	if md.Tokens[1].Symbol != "" {
		t.Errorf("failed symbol() should leave symbol empty, got %q", md.Tokens[1].Symbol)
	}
	if md.Tokens[1].Address != net.BorrowAsset {
		t.Errorf("token 1 address = %s", md.Tokens[1].Address.Hex())
	}
	if md.FeedDecimals != 18 {
		t.Errorf("FeedDecimals = %d, want 18", md.FeedDecimals)
	}
}

func TestFetchAssetMetadata_DecimalsRequired(t *testing.T) {
	erc20ABI, _ := abis.GetERC20ABI()
	feedABI, _ := abis.GetAggregatorV3ABI()

	mc := testutil.NewMockMulticaller()
	mc.ExecuteFn = func(_ context.Context, calls []outbound.Call, _ *big.Int) ([]outbound.Result, error) {
		return []outbound.Result{
			{Success: false},
			{Success: true, ReturnData: testutil.PackSymbol(t, "WETH")},
			{Success: true, ReturnData: testutil.PackDecimals(t, 8)},
		}, nil
	}

	token := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	_, err := FetchAssetMetadata(context.Background(), mc, erc20ABI, feedABI, []common.Address{token}, common.HexToAddress("0x01"))
	if err == nil || !strings.Contains(err.Error(), "decimals() failed") {
		t.Fatalf("expected decimals failure, got %v", err)
	}
}
