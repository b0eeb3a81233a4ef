// Package ethereum adapts an Ethereum JSON-RPC node to the workflow's
// outbound ports: a rate-limited client, a signing transaction manager and
// one adapter per external contract.
package ethereum

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/time/rate"

	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

var _ outbound.ChainClient = (*RateLimitedClient)(nil)

// RateLimitedClient gates every RPC of the wrapped client on a token bucket.
// Hosted node providers throttle per-second request rates; waiting locally is
// cheaper than being rejected.
type RateLimitedClient struct {
	next    outbound.ChainClient
	limiter *rate.Limiter
}

// NewRateLimitedClient wraps next. A non-positive rps disables limiting.
func NewRateLimitedClient(next outbound.ChainClient, rps float64, burst int) *RateLimitedClient {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (c *RateLimitedClient) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.ChainID(ctx)
}

func (c *RateLimitedClient) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return c.next.BlockNumber(ctx)
}

func (c *RateLimitedClient) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.HeaderByNumber(ctx, number)
}

func (c *RateLimitedClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.BalanceAt(ctx, account, blockNumber)
}

func (c *RateLimitedClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.CallContract(ctx, msg, blockNumber)
}

func (c *RateLimitedClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return c.next.PendingNonceAt(ctx, account)
}

func (c *RateLimitedClient) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.SuggestGasTipCap(ctx)
}

func (c *RateLimitedClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return c.next.EstimateGas(ctx, msg)
}

func (c *RateLimitedClient) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.next.SendTransaction(ctx, tx)
}

func (c *RateLimitedClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.next.TransactionReceipt(ctx, txHash)
}
