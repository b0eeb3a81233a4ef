package outbound

import (
	"context"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

// EventSink receives a notification for every workflow state transition.
// Nothing published here is ever read back by the workflow.
type EventSink interface {
	Publish(ctx context.Context, event entity.StepEvent) error
	Close() error
}
