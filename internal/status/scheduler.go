package status

import (
	"sync"

	"github.com/behrlich/taskd"
)

// Scheduler bounds status-query concurrency independently of the task
// scheduler's slots (spec §4.8: "a separate status scheduler with its
// own slot budget"). Each submitted query runs in its own goroutine
// rather than a forked process — Go has no safe fork-without-exec, and
// a query never execs anything, so a goroutine closing over a
// synchronously captured snapshot gives the same isolation guarantee
// spec §4.8 wants without needing a real child process.
type Scheduler struct {
	mu       sync.Mutex
	occupied []bool
}

// NewScheduler creates a Scheduler with n slots. n must be > 0.
func NewScheduler(n int) (*Scheduler, error) {
	if n <= 0 {
		return nil, taskd.NewError("status.NewScheduler", taskd.KindInvalidArgument, "slot count must be > 0")
	}
	return &Scheduler{occupied: make([]bool, n)}, nil
}

// Runner performs the actual status-query work for the slot it was
// given; its last act is reporting completion (spec §4.8 step 4).
type Runner func(slot int)

// Submit finds a free slot, marks it occupied, and launches run in its
// own goroutine. Returns out-of-memory if the scheduler is at
// capacity (the caller replies to the client with an ERROR frame per
// spec §4.8).
func (s *Scheduler) Submit(run Runner) error {
	s.mu.Lock()
	slot := -1
	for i, occ := range s.occupied {
		if !occ {
			slot = i
			break
		}
	}
	if slot < 0 {
		s.mu.Unlock()
		return taskd.NewError("status.Submit", taskd.KindOutOfMemory, "no capacity available")
	}
	s.occupied[slot] = true
	s.mu.Unlock()

	go run(slot)
	return nil
}

// MarkDone frees slot, called by the server loop when it receives the
// status child's TASK_DONE(is_status=true). Unlike the task
// scheduler's MarkDone, there is no process to reap: the goroutine
// has already finished by the time TASK_DONE is observed, since
// sending it is the goroutine's final act.
func (s *Scheduler) MarkDone(slot int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot < 0 || slot >= len(s.occupied) {
		return taskd.NewError("status.MarkDone", taskd.KindRange, "slot index out of bounds")
	}
	if !s.occupied[slot] {
		return taskd.NewError("status.MarkDone", taskd.KindRange, "slot already free")
	}
	s.occupied[slot] = false
	return nil
}

// CanScheduleNow reports whether any slot is currently free.
func (s *Scheduler) CanScheduleNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, occ := range s.occupied {
		if !occ {
			return true
		}
	}
	return false
}
