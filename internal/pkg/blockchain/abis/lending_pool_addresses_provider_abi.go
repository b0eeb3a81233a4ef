package abis

import "github.com/ethereum/go-ethereum/accounts/abi"

// GetLendingPoolAddressesProviderABI returns the ABI for the Aave V2
// LendingPoolAddressesProvider registry. getLendingPool() is the first hop of
// the pool lookup.
func GetLendingPoolAddressesProviderABI() (*abi.ABI, error) {
	return ParseABI(`[
		{
			"inputs": [],
			"name": "getLendingPool",
			"outputs": [{"name": "", "type": "address"}],
			"stateMutability": "view",
			"type": "function"
		}
	]`)
}
