package status

import (
	"math"
	"testing"

	"github.com/behrlich/taskd/internal/task"
	"github.com/behrlich/taskd/internal/wire"
)

func TestClassifyQueued(t *testing.T) {
	tt := &task.TaggedTask{}
	if got := Classify(tt); got != wire.StatusQueued {
		t.Errorf("expected QUEUED, got %v", got)
	}
}

func TestClassifyExecuting(t *testing.T) {
	tt := &task.TaggedTask{}
	tt.Stamp(task.PhaseDispatched, wire.Timestamp{Sec: 1})
	if got := Classify(tt); got != wire.StatusExecuting {
		t.Errorf("expected EXECUTING, got %v", got)
	}
}

func TestClassifyDone(t *testing.T) {
	tt := &task.TaggedTask{}
	tt.Stamp(task.PhaseDispatched, wire.Timestamp{Sec: 1})
	tt.Stamp(task.PhaseCompleted, wire.Timestamp{Sec: 2})
	if got := Classify(tt); got != wire.StatusDone {
		t.Errorf("expected DONE, got %v", got)
	}
}

func TestTimingsComputesMicroseconds(t *testing.T) {
	tt := &task.TaggedTask{}
	tt.Stamp(task.PhaseSent, wire.Timestamp{Sec: 1, Nsec: 0})
	tt.Stamp(task.PhaseArrived, wire.Timestamp{Sec: 1, Nsec: 500_000})

	c2s, waiting, executing, s2s := Timings(tt)
	if c2s != 500 {
		t.Errorf("expected c2s=500us, got %v", c2s)
	}
	if !math.IsNaN(waiting) || !math.IsNaN(executing) || !math.IsNaN(s2s) {
		t.Errorf("expected unstamped pairs to be NaN, got waiting=%v executing=%v s2s=%v", waiting, executing, s2s)
	}
}

func TestTimingsAllStamped(t *testing.T) {
	tt := &task.TaggedTask{}
	tt.Stamp(task.PhaseSent, wire.Timestamp{Sec: 0})
	tt.Stamp(task.PhaseArrived, wire.Timestamp{Sec: 1})
	tt.Stamp(task.PhaseDispatched, wire.Timestamp{Sec: 2})
	tt.Stamp(task.PhaseEnded, wire.Timestamp{Sec: 3})
	tt.Stamp(task.PhaseCompleted, wire.Timestamp{Sec: 4})

	c2s, waiting, executing, s2s := Timings(tt)
	want := 1_000_000.0
	if c2s != want || waiting != want || executing != want || s2s != want {
		t.Errorf("expected all deltas = 1s in us, got c2s=%v waiting=%v executing=%v s2s=%v", c2s, waiting, executing, s2s)
	}
}
