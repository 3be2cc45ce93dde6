package queue

import (
	"syscall"

	"github.com/behrlich/taskd"
	"github.com/behrlich/taskd/internal/interfaces"
	"github.com/behrlich/taskd/internal/logging"
	"github.com/behrlich/taskd/internal/task"
	"github.com/behrlich/taskd/internal/wire"
)

// Slot is a fixed array entry owned by the Scheduler: either free, or
// occupied with a child pid and the TaggedTask it is running (spec
// §3).
type Slot struct {
	Occupied bool
	PID      int
	Task     *task.TaggedTask
}

// Spawn forks and execs the runner for tt in the given slot, returning
// the child's pid. Supplied by the caller (the server wiring layer)
// so the scheduler stays independent of process-spawning details
// (spec §9's callback-based re-modeling).
type Spawn func(tt *task.TaggedTask, slot int) (pid int, err error)

// Scheduler owns a queue, a fixed slot array, and an execution policy.
// A task id, once assigned, lives in at most one of {queue, slots, log}
// at any time (spec §3, §4.6).
type Scheduler struct {
	queue     *Queue
	slots     []Slot
	outputDir string
	logger    *logging.Logger
	observer  interfaces.Observer
}

// NewScheduler creates a Scheduler with n slots, ordering its queue by
// less. n must be > 0.
func NewScheduler(less LessFunc, n int, outputDir string, observer interfaces.Observer) (*Scheduler, error) {
	if n <= 0 {
		return nil, taskd.NewError("queue.NewScheduler", taskd.KindInvalidArgument, "slot count must be > 0")
	}
	if observer == nil {
		observer = taskd.NoOpObserver{}
	}
	return &Scheduler{
		queue:     NewQueue(less),
		slots:     make([]Slot, n),
		outputDir: outputDir,
		logger:    logging.Default(),
		observer:  observer,
	}, nil
}

// Add enqueues a clone of t.
func (s *Scheduler) Add(t *task.TaggedTask) error {
	if t == nil {
		return taskd.NewError("queue.Add", taskd.KindInvalidArgument, "nil task")
	}
	s.queue.Insert(t)
	s.observer.ObserveSubmit()
	s.observer.ObserveQueueDepth(uint32(s.queue.Len()))
	return nil
}

// CanScheduleNow reports whether any slot is currently free.
func (s *Scheduler) CanScheduleNow() bool {
	for i := range s.slots {
		if !s.slots[i].Occupied {
			return true
		}
	}
	return false
}

// DispatchPossible removes tasks from the queue and assigns them to
// free slots until either is exhausted, spawning each via spawn. It
// returns the number of tasks dispatched (spec §4.6).
func (s *Scheduler) DispatchPossible(now wire.Timestamp, spawn Spawn) int {
	dispatched := 0
	for s.queue.Len() > 0 {
		slotIdx := s.freeSlot()
		if slotIdx < 0 {
			break
		}

		tt, ok := s.queue.RemoveTop()
		if !ok {
			break
		}

		var arrived wire.Timestamp
		tt.Stamp(task.PhaseDispatched, now)
		arrived = tt.TimestampAt(task.PhaseArrived)
		if !arrived.IsZero() {
			s.observer.ObserveDispatch(queueWaitNs(arrived, now))
		}

		pid, err := spawn(tt, slotIdx)
		if err != nil {
			s.logger.Error("failed to spawn task, dropping", "task_id", tt.ID, "error", err)
			continue
		}

		s.slots[slotIdx] = Slot{Occupied: true, PID: pid, Task: tt}
		dispatched++
	}
	return dispatched
}

func (s *Scheduler) freeSlot() int {
	for i := range s.slots {
		if !s.slots[i].Occupied {
			return i
		}
	}
	return -1
}

// MarkDone reaps the slot's child via a blocking wait, stamps Ended
// and Completed, frees the slot, and returns the TaggedTask to the
// caller. Errors: range if the slot index is out of bounds or already
// free; invalid-argument (wrapping the errno) if the wait fails, in
// which case the slot is freed and the task discarded (spec §4.6).
func (s *Scheduler) MarkDone(slot int, endedTS wire.Timestamp, now wire.Timestamp) (*task.TaggedTask, error) {
	if slot < 0 || slot >= len(s.slots) {
		return nil, taskd.NewError("queue.MarkDone", taskd.KindRange, "slot index out of bounds")
	}
	if !s.slots[slot].Occupied {
		return nil, taskd.NewError("queue.MarkDone", taskd.KindRange, "slot already free")
	}

	pid := s.slots[slot].PID
	tt := s.slots[slot].Task

	var ws syscall.WaitStatus
	_, err := syscall.Wait4(pid, &ws, 0, nil)
	s.slots[slot] = Slot{}
	if err != nil {
		s.logger.Error("reap failed, discarding task", "task_id", tt.ID, "pid", pid, "error", err)
		return nil, taskd.WrapError("queue.MarkDone", taskd.KindInvalidArgument, err)
	}

	tt.Stamp(task.PhaseEnded, endedTS)
	tt.Stamp(task.PhaseCompleted, now)

	dispatched := tt.TimestampAt(task.PhaseDispatched)
	failed := !ws.Exited() || ws.ExitStatus() != 0
	if !dispatched.IsZero() {
		s.observer.ObserveComplete(queueWaitNs(dispatched, endedTS), failed)
	}

	return tt, nil
}

// EnumerateRunning invokes cb for each occupied slot; stops early if
// cb returns false.
func (s *Scheduler) EnumerateRunning(cb func(*task.TaggedTask) bool) {
	for i := range s.slots {
		if s.slots[i].Occupied {
			if !cb(s.slots[i].Task) {
				return
			}
		}
	}
}

// EnumerateQueued invokes cb for each queued entry; stops early if cb
// returns false.
func (s *Scheduler) EnumerateQueued(cb func(*task.TaggedTask) bool) {
	s.queue.Enumerate(cb)
}

// QueueLen reports the number of queued (not yet dispatched) tasks.
func (s *Scheduler) QueueLen() int {
	return s.queue.Len()
}

func queueWaitNs(from, to wire.Timestamp) uint64 {
	deltaSec := to.Sec - from.Sec
	deltaNsec := to.Nsec - from.Nsec
	total := deltaSec*1_000_000_000 + deltaNsec
	if total < 0 {
		return 0
	}
	return uint64(total)
}
