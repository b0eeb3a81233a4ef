package blockchain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// ConvertToDecimalAdjusted scales a raw on-chain amount by 10^-decimals
// without going through floating point.
func ConvertToDecimalAdjusted(amount *big.Int, decimals int) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -int32(decimals))
}
