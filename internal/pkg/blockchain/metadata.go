package blockchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

// AssetMetadata is everything needed to convert between raw and human
// amounts for one workflow run.
type AssetMetadata struct {
	Tokens       []*entity.Token
	FeedDecimals int
}

// FetchAssetMetadata reads decimals() and symbol() of every token plus the
// price feed's decimals() in a single multicall. decimals() must succeed;
// symbol() may revert or be non-standard (bytes32), in which case the symbol
// is left empty.
func FetchAssetMetadata(
	ctx context.Context,
	mc outbound.Multicaller,
	erc20ABI *abi.ABI,
	feedABI *abi.ABI,
	tokens []common.Address,
	feed common.Address,
) (*AssetMetadata, error) {
	decimalsData, err := erc20ABI.Pack("decimals")
	if err != nil {
		return nil, fmt.Errorf("packing decimals: %w", err)
	}
	symbolData, err := erc20ABI.Pack("symbol")
	if err != nil {
		return nil, fmt.Errorf("packing symbol: %w", err)
	}
	feedDecimalsData, err := feedABI.Pack("decimals")
	if err != nil {
		return nil, fmt.Errorf("packing feed decimals: %w", err)
	}

	calls := make([]outbound.Call, 0, 2*len(tokens)+1)
	for _, token := range tokens {
		calls = append(calls,
			outbound.Call{Target: token, AllowFailure: false, CallData: decimalsData},
			outbound.Call{Target: token, AllowFailure: true, CallData: symbolData},
		)
	}
	calls = append(calls, outbound.Call{Target: feed, AllowFailure: false, CallData: feedDecimalsData})

	results, err := mc.Execute(ctx, calls, nil)
	if err != nil {
		return nil, fmt.Errorf("executing metadata multicall: %w", err)
	}
	if len(results) != len(calls) {
		return nil, fmt.Errorf("expected %d multicall results, got %d", len(calls), len(results))
	}

	out := &AssetMetadata{Tokens: make([]*entity.Token, len(tokens))}
	for i, addr := range tokens {
		decRes, symRes := results[2*i], results[2*i+1]
		if !decRes.Success {
			return nil, fmt.Errorf("decimals() failed for token %s", addr.Hex())
		}
		decimals, err := unpackUint8(erc20ABI, "decimals", decRes.ReturnData)
		if err != nil {
			return nil, fmt.Errorf("unpacking decimals for token %s: %w", addr.Hex(), err)
		}

		var symbol string
		if symRes.Success {
			if unpacked, err := erc20ABI.Unpack("symbol", symRes.ReturnData); err == nil {
				symbol, _ = unpacked[0].(string)
			}
		}

		token, err := entity.NewToken(addr, symbol, int(decimals))
		if err != nil {
			return nil, err
		}
		out.Tokens[i] = token
	}

	feedRes := results[len(results)-1]
	if !feedRes.Success {
		return nil, fmt.Errorf("decimals() failed for price feed %s", feed.Hex())
	}
	feedDecimals, err := unpackUint8(feedABI, "decimals", feedRes.ReturnData)
	if err != nil {
		return nil, fmt.Errorf("unpacking feed decimals: %w", err)
	}
	out.FeedDecimals = int(feedDecimals)

	return out, nil
}

func unpackUint8(contractABI *abi.ABI, method string, data []byte) (uint8, error) {
	unpacked, err := contractABI.Unpack(method, data)
	if err != nil {
		return 0, err
	}
	switch v := unpacked[0].(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unexpected %s return type %T", method, unpacked[0])
	}
}
