package abis

import "github.com/ethereum/go-ethereum/accounts/abi"

// GetLendingPoolABI returns the subset of the Aave V2 LendingPool used by the
// borrow workflow, including the Repay event emitted on repayment.
func GetLendingPoolABI() (*abi.ABI, error) {
	return ParseABI(`[
		{
			"inputs": [
				{"name": "asset", "type": "address"},
				{"name": "amount", "type": "uint256"},
				{"name": "onBehalfOf", "type": "address"},
				{"name": "referralCode", "type": "uint16"}
			],
			"name": "deposit",
			"outputs": [],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "asset", "type": "address"},
				{"name": "amount", "type": "uint256"},
				{"name": "interestRateMode", "type": "uint256"},
				{"name": "referralCode", "type": "uint16"},
				{"name": "onBehalfOf", "type": "address"}
			],
			"name": "borrow",
			"outputs": [],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [
				{"name": "asset", "type": "address"},
				{"name": "amount", "type": "uint256"},
				{"name": "rateMode", "type": "uint256"},
				{"name": "onBehalfOf", "type": "address"}
			],
			"name": "repay",
			"outputs": [{"name": "", "type": "uint256"}],
			"stateMutability": "nonpayable",
			"type": "function"
		},
		{
			"inputs": [{"name": "user", "type": "address"}],
			"name": "getUserAccountData",
			"outputs": [
				{"name": "totalCollateralETH", "type": "uint256"},
				{"name": "totalDebtETH", "type": "uint256"},
				{"name": "availableBorrowsETH", "type": "uint256"},
				{"name": "currentLiquidationThreshold", "type": "uint256"},
				{"name": "ltv", "type": "uint256"},
				{"name": "healthFactor", "type": "uint256"}
			],
			"stateMutability": "view",
			"type": "function"
		},
		{
			"anonymous": false,
			"inputs": [
				{"indexed": true, "name": "reserve", "type": "address"},
				{"indexed": true, "name": "user", "type": "address"},
				{"indexed": true, "name": "repayer", "type": "address"},
				{"indexed": false, "name": "amount", "type": "uint256"}
			],
			"name": "Repay",
			"type": "event"
		}
	]`)
}
