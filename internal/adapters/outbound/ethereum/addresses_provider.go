package ethereum

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/pkg/blockchain"
	"github.com/archon-research/aave-borrow/internal/pkg/blockchain/abis"
	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

var _ outbound.LendingPoolResolver = (*AddressesProvider)(nil)

// AddressesProvider resolves the current LendingPool from a
// LendingPoolAddressesProvider registry.
type AddressesProvider struct {
	address common.Address
	abi     *abi.ABI
	mc      outbound.Multicaller
	caller  ethereum.ContractCaller
	sender  outbound.TxSender
	logger  *slog.Logger
}

// NewAddressesProvider binds the registry at address. caller and sender are
// handed to the resolved pool.
func NewAddressesProvider(
	mc outbound.Multicaller,
	caller ethereum.ContractCaller,
	sender outbound.TxSender,
	address common.Address,
	logger *slog.Logger,
) (*AddressesProvider, error) {
	parsed, err := abis.GetLendingPoolAddressesProviderABI()
	if err != nil {
		return nil, fmt.Errorf("loading addresses provider ABI: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AddressesProvider{
		address: address,
		abi:     parsed,
		mc:      mc,
		caller:  caller,
		sender:  sender,
		logger:  logger,
	}, nil
}

// ResolveLendingPool reads the pool address from the registry and binds it.
func (p *AddressesProvider) ResolveLendingPool(ctx context.Context) (outbound.LendingPool, error) {
	addr, err := blockchain.ResolveLendingPoolAddress(ctx, p.mc, p.address, p.abi, nil)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("resolved lending pool", "provider", p.address.Hex(), "pool", addr.Hex())
	return NewLendingPool(p.caller, p.sender, addr, p.logger)
}
