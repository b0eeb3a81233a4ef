package blockchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	Multicall3Address = "0xcA11bde05977b3631167028862bE2a173976CA11"
)

var (
	Multicall3 = common.HexToAddress(Multicall3Address)
)

// Aave V2 interest rate modes.
var (
	InterestRateModeStable   = big.NewInt(1)
	InterestRateModeVariable = big.NewInt(2)
)

// NoReferralCode is the referral code for callers without a partner program.
const NoReferralCode uint16 = 0
