package outbound

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

// WrappedNativeToken is the WETH-style contract that turns native currency
// into an ERC20 balance.
type WrappedNativeToken interface {
	Address() common.Address
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Wrap(ctx context.Context, amount *big.Int) (*entity.TxRecord, error)
}

// TokenApprover grants an ERC20 allowance from the signing account.
type TokenApprover interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (*entity.TxRecord, error)
}

// LendingPoolResolver performs the registry → pool address → handle lookup.
type LendingPoolResolver interface {
	ResolveLendingPool(ctx context.Context) (LendingPool, error)
}

// LendingPool is an Aave V2 style pool bound to one address.
type LendingPool interface {
	Address() common.Address
	Deposit(ctx context.Context, asset common.Address, amount *big.Int, onBehalfOf common.Address, referralCode uint16) (*entity.TxRecord, error)
	GetUserAccountData(ctx context.Context, user common.Address) (*entity.AccountSnapshot, error)
	Borrow(ctx context.Context, asset common.Address, amount *big.Int, interestRateMode *big.Int, referralCode uint16, onBehalfOf common.Address) (*entity.TxRecord, error)
	// Repay returns the amount the pool reports as repaid.
	Repay(ctx context.Context, asset common.Address, amount *big.Int, rateMode *big.Int, onBehalfOf common.Address) (*big.Int, *entity.TxRecord, error)
}

// PriceFeed reads the latest round of an AggregatorV3 price feed.
type PriceFeed interface {
	LatestRoundData(ctx context.Context) (*entity.PriceSample, error)
}

// ChainClock reports the chain's notion of "now", i.e. the latest block
// timestamp. On a forked chain this can differ from wall-clock time.
type ChainClock interface {
	Now(ctx context.Context) (time.Time, error)
}
