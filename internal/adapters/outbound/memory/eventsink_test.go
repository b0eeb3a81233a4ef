package memory

import (
	"context"
	"testing"

	"github.com/archon-research/aave-borrow/internal/domain/entity"
)

func TestEventSink_PublishAndInspect(t *testing.T) {
	sink := NewEventSink()
	ctx := context.Background()

	var seen int
	sink.OnPublish(func(entity.StepEvent) { seen++ })

	for _, state := range []entity.WorkflowState{entity.StateFunded, entity.StateApproved} {
		if err := sink.Publish(ctx, entity.StepEvent{State: state.String()}); err != nil {
			t.Fatalf("Publish: %v", err)
		}
	}

	if got := sink.States(); len(got) != 2 || got[0] != "funded" || got[1] != "approved" {
		t.Errorf("States() = %v", got)
	}
	if seen != 2 {
		t.Errorf("callback invoked %d times, want 2", seen)
	}

	events := sink.Events()
	events[0].State = "mutated"
	if sink.Events()[0].State != "funded" {
		t.Error("Events() must return a copy")
	}
}

func TestEventSink_DropsAfterClose(t *testing.T) {
	sink := NewEventSink()
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sink.Publish(context.Background(), entity.StepEvent{State: "funded"}); err != nil {
		t.Fatalf("Publish after close: %v", err)
	}
	if n := len(sink.Events()); n != 0 {
		t.Errorf("got %d events after close, want 0", n)
	}
}
