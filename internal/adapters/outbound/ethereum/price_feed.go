package ethereum

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

var _ outbound.PriceFeed = (*PriceFeed)(nil)

// PriceFeed reads a Chainlink AggregatorV3 feed. decimals is fetched once at
// start-up and attached to every sample.
type PriceFeed struct {
	contract boundContract
	decimals int
}

func NewPriceFeed(caller ethereum.ContractCaller, address common.Address, decimals int) (*PriceFeed, error) {
	parsed, err := abis.GetAggregatorV3ABI()
	if err != nil {
		return nil, fmt.Errorf("loading AggregatorV3 ABI: %w", err)
	}
	return &PriceFeed{
		contract: boundContract{address: address, abi: parsed, caller: caller},
		decimals: decimals,
	}, nil
}

func (f *PriceFeed) LatestRoundData(ctx context.Context) (*entity.PriceSample, error) {
	out, err := f.contract.callRaw(ctx, "latestRoundData")
	if err != nil {
		return nil, err
	}
	return blockchain.UnpackLatestRoundData(f.contract.abi, out, f.decimals)
}
