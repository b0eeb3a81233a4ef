package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/archon-research/aave-borrow/internal/ports/outbound"
)

var _ outbound.ChainClock = (*BlockClock)(nil)

type headerReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// BlockClock reports the timestamp of the latest block.
type BlockClock struct {
	client headerReader
}

func NewBlockClock(client headerReader) *BlockClock {
	return &BlockClock{client: client}
}

func (c *BlockClock) Now(ctx context.Context) (time.Time, error) {
	head, err := c.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetching latest header: %w", err)
	}
	if head == nil {
		return time.Time{}, errors.New("latest header is nil")
	}
	return time.Unix(int64(head.Time), 0).UTC(), nil
}
