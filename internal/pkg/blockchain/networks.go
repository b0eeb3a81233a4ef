package blockchain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NetworkConfig names every contract the borrow workflow touches on one
// deployment, so the workflow itself carries no addresses.
type NetworkConfig struct {
	Name                  string
	ChainID               int64
	PoolAddressesProvider common.Address
	WrappedNative         common.Address
	BorrowAsset           common.Address
	// BorrowAssetPriceFeed quotes the borrow asset in the pool's base currency.
	BorrowAssetPriceFeed common.Address
	// BaseCurrencyDecimals is the precision of getUserAccountData values
	// (18 for Aave V2, whose base currency is ETH).
	BaseCurrencyDecimals int
}

var mainnetAaveV2 = NetworkConfig{
	Name:                  "mainnet",
	ChainID:               1,
	PoolAddressesProvider: common.HexToAddress("0xB53C1a33016B2DC2fF3653530bfF1848a515c8c5"),
	WrappedNative:         common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), // WETH
	BorrowAsset:           common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), // DAI
	BorrowAssetPriceFeed:  common.HexToAddress("0x773616E4d11A78F511299002da57A0a94577F1f4"), // DAI / ETH
	BaseCurrencyDecimals:  18,
}

// NetworkRegistry lists the known deployments by name.
var NetworkRegistry = map[string]NetworkConfig{
	"mainnet": mainnetAaveV2,
	// Local hardhat/anvil node forked from mainnet.
	"mainnet-fork": withName(mainnetAaveV2, "mainnet-fork", 31337),
}

func withName(cfg NetworkConfig, name string, chainID int64) NetworkConfig {
	cfg.Name = name
	cfg.ChainID = chainID
	return cfg
}

// GetNetworkConfig looks up a deployment by name (case-insensitive).
func GetNetworkConfig(name string) (NetworkConfig, error) {
	cfg, ok := NetworkRegistry[strings.ToLower(name)]
	if !ok {
		return NetworkConfig{}, fmt.Errorf("unknown network %q (known: %s)", name, strings.Join(KnownNetworks(), ", "))
	}
	return cfg, nil
}

// KnownNetworks returns the registry keys in sorted order.
func KnownNetworks() []string {
	names := make([]string, 0, len(NetworkRegistry))
	for name := range NetworkRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that every address is set.
func (n NetworkConfig) Validate() error {
	addrs := map[string]common.Address{
		"pool addresses provider": n.PoolAddressesProvider,
		"wrapped native token":    n.WrappedNative,
		"borrow asset":            n.BorrowAsset,
		"borrow asset price feed": n.BorrowAssetPriceFeed,
	}
	for name, addr := range addrs {
		if addr == (common.Address{}) {
			return fmt.Errorf("network %q: %s address not set", n.Name, name)
		}
	}
	if n.BaseCurrencyDecimals <= 0 {
		return fmt.Errorf("network %q: base currency decimals must be positive", n.Name)
	}
	return nil
}

// ParseAddress parses a 0x-prefixed hex address, rejecting malformed input
// rather than silently truncating it like common.HexToAddress.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
