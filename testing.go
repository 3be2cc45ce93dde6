package taskd

import (
	"sync"

	"github.com/behrlich/taskd/internal/interfaces"
)

// RecordingObserver implements interfaces.Observer by appending every
// observation to in-memory slices, so tests can assert on call order and
// arguments without scraping a Metrics snapshot. Useful for unit testing
// code that only depends on the Observer interface, e.g. the scheduler.
type RecordingObserver struct {
	mu sync.Mutex

	Submits       int
	Dispatches    []uint64
	Completions   []RecordedCompletion
	StatusQueries int
	QueueDepths   []uint32
}

// RecordedCompletion captures one ObserveComplete call.
type RecordedCompletion struct {
	RunNs  uint64
	Failed bool
}

// NewRecordingObserver creates an empty RecordingObserver.
func NewRecordingObserver() *RecordingObserver {
	return &RecordingObserver{}
}

func (r *RecordingObserver) ObserveSubmit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Submits++
}

func (r *RecordingObserver) ObserveDispatch(queueWaitNs uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Dispatches = append(r.Dispatches, queueWaitNs)
}

func (r *RecordingObserver) ObserveComplete(runNs uint64, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Completions = append(r.Completions, RecordedCompletion{RunNs: runNs, Failed: failed})
}

func (r *RecordingObserver) ObserveStatusQuery() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StatusQueries++
}

func (r *RecordingObserver) ObserveQueueDepth(depth uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.QueueDepths = append(r.QueueDepths, depth)
}

// Reset clears all recorded observations.
func (r *RecordingObserver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Submits = 0
	r.Dispatches = nil
	r.Completions = nil
	r.StatusQueries = 0
	r.QueueDepths = nil
}

var _ interfaces.Observer = (*RecordingObserver)(nil)
