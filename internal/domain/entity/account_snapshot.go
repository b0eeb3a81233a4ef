package entity

import (
	"fmt"
	"math/big"
)

// AccountSnapshot is one getUserAccountData read. All values are raw
// integers as returned by the pool; the value fields are denominated in the
// pool's base currency (wei for Aave V2, where the base is ETH).
type AccountSnapshot struct {
	TotalCollateralBase         *big.Int
	TotalDebtBase               *big.Int
	AvailableBorrowsBase        *big.Int
	CurrentLiquidationThreshold *big.Int // basis points
	LTV                         *big.Int // basis points
	HealthFactor                *big.Int // 1e18 = 1.0
}

// NewAccountSnapshot creates an AccountSnapshot with validation.
// Threshold, LTV and health factor may be nil when the caller only has the
// three value fields.
func NewAccountSnapshot(collateral, debt, available *big.Int) (*AccountSnapshot, error) {
	s := &AccountSnapshot{
		TotalCollateralBase:  collateral,
		TotalDebtBase:        debt,
		AvailableBorrowsBase: available,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that the value fields are present and non-negative.
func (s *AccountSnapshot) Validate() error {
	fields := []struct {
		name  string
		value *big.Int
	}{
		{"totalCollateral", s.TotalCollateralBase},
		{"totalDebt", s.TotalDebtBase},
		{"availableBorrows", s.AvailableBorrowsBase},
	}
	for _, f := range fields {
		if f.value == nil {
			return fmt.Errorf("%s must not be nil", f.name)
		}
		if f.value.Sign() < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", f.name, f.value)
		}
	}
	return nil
}
