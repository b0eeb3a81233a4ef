package entity

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Token is the ERC20 metadata the workflow needs to scale amounts.
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals int
}

// NewToken creates a Token with validation.
func NewToken(address common.Address, symbol string, decimals int) (*Token, error) {
	if address == (common.Address{}) {
		return nil, fmt.Errorf("token address must not be zero")
	}
	if decimals < 0 || decimals > 36 {
		return nil, fmt.Errorf("token %s: decimals out of range: %d", address.Hex(), decimals)
	}
	return &Token{Address: address, Symbol: symbol, Decimals: decimals}, nil
}

// ToUnits converts a human amount ("0.02") into the token's smallest unit,
// truncating anything below one unit.
func (t *Token) ToUnits(amount decimal.Decimal) *big.Int {
	return amount.Shift(int32(t.Decimals)).Truncate(0).BigInt()
}

// FromUnits converts smallest units back into a human amount.
func (t *Token) FromUnits(units *big.Int) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -int32(t.Decimals))
}

// String returns the symbol when known, the address otherwise.
func (t *Token) String() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	return t.Address.Hex()
}
