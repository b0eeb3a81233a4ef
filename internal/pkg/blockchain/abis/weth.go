package abis

import "github.com/ethereum/go-ethereum/accounts/abi"

// GetWETH9ABI returns the wrapping half of the WETH9 contract. deposit() is
// payable: the wrapped amount is the transaction value.
func GetWETH9ABI() (*abi.ABI, error) {
	return ParseABI(`[
		{
			"inputs": [],
			"name": "deposit",
			"outputs": [],
			"stateMutability": "payable",
			"type": "function"
		},
		{
			"inputs": [{"name": "wad", "type": "uint256"}],
			"name": "withdraw",
			"outputs": [],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [{"name": "", "type": "address"}],
			"name": "balanceOf",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "view",
			"type": "function"
		}
	]`)
}
