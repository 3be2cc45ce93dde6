// Package task holds taskd's data model: Programs, the Task tagged
// union of pipeline/internal work, and TaggedTask lifecycle tracking
// (spec §3).
package task

import "github.com/behrlich/taskd/internal/wire"

// Program is a non-empty ordered sequence of argument strings; the
// first is the executable name.
type Program []string

// Clone returns a deep copy of the program's argv vector.
func (p Program) Clone() Program {
	cp := make(Program, len(p))
	copy(cp, p)
	return cp
}

// Kind discriminates a Task's two forms (spec §9's re-modeled
// Pipeline/Internal enum).
type Kind int

const (
	KindPipeline Kind = iota
	KindInternal
)

// Procedure is an internal task's opaque body: given the slot it runs
// in, it returns an exit code. The status subsystem runs its queries
// through status.Runner instead, and procexec's spawner rejects
// non-pipeline tasks, so no internal task is dispatched in this tree.
type Procedure func(slot int) int

// Task is a tagged union: either an ordered pipeline of Programs, or an
// internal procedure reference. Invariant: a pipeline's Programs is
// never empty.
type Task struct {
	Kind      Kind
	Programs  []Program
	Procedure Procedure
}

// NewPipelineTask builds a pipeline Task from one or more Programs.
func NewPipelineTask(programs []Program) Task {
	return Task{Kind: KindPipeline, Programs: programs}
}

// NewInternalTask builds an internal procedure Task.
func NewInternalTask(proc Procedure) Task {
	return Task{Kind: KindInternal, Procedure: proc}
}

// Phase indexes a TaggedTask's lifecycle timestamp vector (spec §3).
type Phase int

const (
	PhaseSent Phase = iota
	PhaseArrived
	PhaseDispatched
	PhaseEnded
	PhaseCompleted
	numPhases
)

// TaggedTask is a Task annotated with an id, client-reported expected
// duration, the originating command line, and lifecycle timestamps.
type TaggedTask struct {
	ID          uint32
	ExpectedMS  uint32
	CommandLine string
	Task        Task
	Timestamps  [numPhases]wire.Timestamp
}

// Stamp records ts at the given lifecycle phase.
func (t *TaggedTask) Stamp(phase Phase, ts wire.Timestamp) {
	t.Timestamps[phase] = ts
}

// TimestampAt returns the timestamp recorded for phase, or the zero
// Timestamp if that phase was never stamped.
func (t *TaggedTask) TimestampAt(phase Phase) wire.Timestamp {
	return t.Timestamps[phase]
}

// Clone deep-copies the TaggedTask, including its Programs vector,
// needed whenever ownership moves into a container (spec §3: "cloned
// on insertion into any container").
func (t *TaggedTask) Clone() *TaggedTask {
	cp := *t
	if t.Task.Kind == KindPipeline {
		cp.Task.Programs = make([]Program, len(t.Task.Programs))
		for i, p := range t.Task.Programs {
			cp.Task.Programs[i] = p.Clone()
		}
	}
	return &cp
}
