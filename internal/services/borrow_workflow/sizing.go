package borrow_workflow

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

var (
	ErrZeroPrice      = errors.New("price is zero")
	ErrNegativePrice  = errors.New("price is negative")
	ErrInvalidMargin  = errors.New("safety margin must be in (0, 1]")
	ErrAmountOverflow = errors.New("borrow amount does not fit in uint256")
)

// DefaultSafetyMargin is the share of the available borrow capacity the
// workflow uses. The remainder absorbs price movement between sizing and
// execution.
var DefaultSafetyMargin = decimal.RequireFromString("0.95")

// BorrowSize is a sized borrow in the borrowed token.
type BorrowSize struct {
	// Units is the amount in the token's smallest unit.
	Units *big.Int
	// Amount is Units scaled by the token decimals.
	Amount decimal.Decimal
}

// SizeBorrow computes floor(available * margin / price) in token units.
//
// available is the raw base-currency value from getUserAccountData with
// baseDecimals of precision; price is the token's price in base currency.
// All arithmetic is exact: the only rounding is the final floor to one unit.
func SizeBorrow(available *big.Int, baseDecimals int, price, margin decimal.Decimal, token *entity.Token) (BorrowSize, error) {
	if available == nil || available.Sign() < 0 {
		return BorrowSize{}, fmt.Errorf("available borrows must be non-negative, got %v", available)
	}
	if token == nil {
		return BorrowSize{}, errors.New("borrow token is required")
	}
	switch price.Sign() {
	case 0:
		return BorrowSize{}, ErrZeroPrice
	case -1:
		return BorrowSize{}, fmt.Errorf("%w: %s", ErrNegativePrice, price)
	}
	if margin.Sign() <= 0 || margin.GreaterThan(decimal.NewFromInt(1)) {
		return BorrowSize{}, fmt.Errorf("%w: %s", ErrInvalidMargin, margin)
	}

	if available.Sign() == 0 {
		return BorrowSize{Units: new(big.Int), Amount: decimal.Zero}, nil
	}

	value := decimal.NewFromBigInt(available, -int32(baseDecimals))
	numerator := value.Mul(margin).Shift(int32(token.Decimals))
	// QuoRem with precision 0 truncates toward zero, which is the floor
	// for the positive operands here.
	quotient, _ := numerator.QuoRem(price, 0)
	units := quotient.BigInt()

	if _, overflow := uint256.FromBig(units); overflow {
		return BorrowSize{}, fmt.Errorf("%w: %s", ErrAmountOverflow, units)
	}

	return BorrowSize{Units: units, Amount: token.FromUnits(units)}, nil
}
