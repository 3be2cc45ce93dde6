package task

import (
	"testing"

	"github.com/behrlich/taskd/internal/wire"
)

func TestTaggedTaskStampAndRetrieve(t *testing.T) {
	tt := &TaggedTask{ID: 1, Task: NewPipelineTask([]Program{{"echo", "hi"}})}

	ts := wire.Timestamp{Sec: 100, Nsec: 5}
	tt.Stamp(PhaseArrived, ts)

	if got := tt.TimestampAt(PhaseArrived); got != ts {
		t.Errorf("expected %+v, got %+v", ts, got)
	}
	if got := tt.TimestampAt(PhaseDispatched); !got.IsZero() {
		t.Errorf("expected zero timestamp for unstamped phase, got %+v", got)
	}
}

func TestTaggedTaskCloneDeepCopiesPrograms(t *testing.T) {
	original := &TaggedTask{
		ID:   2,
		Task: NewPipelineTask([]Program{{"echo", "a"}, {"wc", "-c"}}),
	}

	clone := original.Clone()
	clone.Task.Programs[0][0] = "mutated"

	if original.Task.Programs[0][0] != "echo" {
		t.Error("expected clone to deep-copy programs, original was mutated")
	}
}

func TestNewInternalTaskRunsProcedure(t *testing.T) {
	called := false
	proc := func(slot int) int {
		called = true
		return 0
	}
	tt := NewInternalTask(proc)
	if tt.Kind != KindInternal {
		t.Fatalf("expected KindInternal, got %v", tt.Kind)
	}
	if tt.Procedure(3) != 0 {
		t.Error("expected procedure to return 0")
	}
	if !called {
		t.Error("expected procedure to run")
	}
}
