// Package outbound defines the outbound port interfaces.
package outbound

import (
	"context"
	"math/big"
	"time"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

// WorkflowMetrics records per-step outcomes without tying the workflow to a
// telemetry implementation.
type WorkflowMetrics interface {
	RecordStep(ctx context.Context, step entity.Step, duration time.Duration, err error)
	RecordBorrowAmount(ctx context.Context, units *big.Int)
}
