package queue

import (
	"container/heap"

	"github.com/behrlich/taskd/internal/task"
)

// LessFunc orders two TaggedTasks; the comparator passed to NewQueue
// is the only thing that distinguishes FCFS from SJF (spec §4.4, §4.6:
// "policies differ only in the comparator").
type LessFunc func(a, b *task.TaggedTask) bool

// taskHeap adapts a slice of TaggedTasks plus a LessFunc to
// container/heap's interface.
type taskHeap struct {
	items []*task.TaggedTask
	less  LessFunc
}

func (h *taskHeap) Len() int            { return len(h.items) }
func (h *taskHeap) Less(i, j int) bool  { return h.less(h.items[i], h.items[j]) }
func (h *taskHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *taskHeap) Push(x any) {
	h.items = append(h.items, x.(*task.TaggedTask))
}

func (h *taskHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

// Queue is a min-heap of owned TaggedTasks parameterized by a
// comparator (spec §4.4).
type Queue struct {
	h *taskHeap
}

// NewQueue creates an empty queue ordered by less.
func NewQueue(less LessFunc) *Queue {
	h := &taskHeap{less: less}
	heap.Init(h)
	return &Queue{h: h}
}

// Insert clones t and sifts it into the heap (spec §4.4: "insert
// clones and sifts up").
func (q *Queue) Insert(t *task.TaggedTask) {
	heap.Push(q.h, t.Clone())
}

// RemoveTop removes and returns the minimum element, or (nil, false)
// if the queue is empty.
func (q *Queue) RemoveTop() (*task.TaggedTask, bool) {
	if q.h.Len() == 0 {
		return nil, false
	}
	return heap.Pop(q.h).(*task.TaggedTask), true
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	return q.h.Len()
}

// Clone deep-clones every entry into a new Queue using the same
// comparator.
func (q *Queue) Clone() *Queue {
	clone := NewQueue(q.h.less)
	for _, t := range q.h.items {
		clone.h.items = append(clone.h.items, t.Clone())
	}
	return clone
}

// Enumerate exposes an unordered borrow of current members for status
// snapshots; order is heap order, not sorted (spec §4.4). Stops early
// if cb returns false.
func (q *Queue) Enumerate(cb func(*task.TaggedTask) bool) {
	for _, t := range q.h.items {
		if !cb(t) {
			return
		}
	}
}
