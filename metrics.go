package taskd

import (
	"sync/atomic"
	"time"

	"github.com/behrlich/taskd/internal/interfaces"
)

// LatencyBuckets defines the queue-wait latency histogram buckets in
// nanoseconds, covering from 1us to 10s with logarithmic spacing — the
// same ladder shape the teacher used for I/O latency, re-applied to
// queue-wait time here since both are "how long did something sit before
// a slot/queue freed up" measurements.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
	10_000_000_000,
}

const numLatencyBuckets = 8

// Metrics tracks operational statistics for a Server's task scheduler.
type Metrics struct {
	TasksSubmitted   atomic.Uint64
	TasksDispatched  atomic.Uint64
	TasksCompleted   atomic.Uint64
	TasksFailed      atomic.Uint64
	StatusQueries    atomic.Uint64

	QueueDepthTotal atomic.Uint64
	QueueDepthCount atomic.Uint64
	MaxQueueDepth   atomic.Uint32

	// TotalQueueWaitNs / QueueWaitCount back the average queue-wait
	// latency; recorded at dispatch time as DISPATCHED - ARRIVED.
	TotalQueueWaitNs atomic.Uint64
	QueueWaitCount   atomic.Uint64
	QueueWaitBuckets [numLatencyBuckets]atomic.Uint64

	// TotalRunNs / RunCount back average task runtime, recorded at
	// completion time as ENDED - DISPATCHED.
	TotalRunNs atomic.Uint64
	RunCount   atomic.Uint64

	StartTime atomic.Int64
	StopTime  atomic.Int64
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// ObserveSubmit records a task entering the queue via add().
func (m *Metrics) ObserveSubmit() {
	m.TasksSubmitted.Add(1)
}

// ObserveDispatch records a task leaving the queue for a slot; queueWaitNs
// is DISPATCHED - ARRIVED in nanoseconds.
func (m *Metrics) ObserveDispatch(queueWaitNs uint64) {
	m.TasksDispatched.Add(1)
	m.TotalQueueWaitNs.Add(queueWaitNs)
	m.QueueWaitCount.Add(1)
	for i, bucket := range LatencyBuckets {
		if queueWaitNs <= bucket {
			m.QueueWaitBuckets[i].Add(1)
		}
	}
}

// ObserveComplete records a reaped task; runNs is ENDED - DISPATCHED.
func (m *Metrics) ObserveComplete(runNs uint64, failed bool) {
	m.TasksCompleted.Add(1)
	if failed {
		m.TasksFailed.Add(1)
	}
	m.TotalRunNs.Add(runNs)
	m.RunCount.Add(1)
}

// ObserveStatusQuery records one STATUS request served.
func (m *Metrics) ObserveStatusQuery() {
	m.StatusQueries.Add(1)
}

// ObserveQueueDepth records a point-in-time queue length sample.
func (m *Metrics) ObserveQueueDepth(depth uint32) {
	m.QueueDepthTotal.Add(uint64(depth))
	m.QueueDepthCount.Add(1)
	for {
		current := m.MaxQueueDepth.Load()
		if depth <= current {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(current, depth) {
			break
		}
	}
}

// Stop marks the server as stopped for uptime accounting.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time, non-atomic copy of Metrics safe to
// print or serialize.
type MetricsSnapshot struct {
	TasksSubmitted  uint64
	TasksDispatched uint64
	TasksCompleted  uint64
	TasksFailed     uint64
	StatusQueries   uint64

	AvgQueueDepth float64
	MaxQueueDepth uint32

	AvgQueueWaitNs uint64
	AvgRunNs       uint64
	UptimeNs       uint64

	QueueWaitHistogram [numLatencyBuckets]uint64
	ErrorRate          float64
}

// Snapshot takes a consistent-enough snapshot of the metrics for
// reporting; individual counters are read atomically but not as one
// transaction, which is acceptable for observability data.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		TasksSubmitted:  m.TasksSubmitted.Load(),
		TasksDispatched: m.TasksDispatched.Load(),
		TasksCompleted:  m.TasksCompleted.Load(),
		TasksFailed:     m.TasksFailed.Load(),
		StatusQueries:   m.StatusQueries.Load(),
		MaxQueueDepth:   m.MaxQueueDepth.Load(),
	}

	if qdc := m.QueueDepthCount.Load(); qdc > 0 {
		snap.AvgQueueDepth = float64(m.QueueDepthTotal.Load()) / float64(qdc)
	}
	if qwc := m.QueueWaitCount.Load(); qwc > 0 {
		snap.AvgQueueWaitNs = m.TotalQueueWaitNs.Load() / qwc
	}
	if rc := m.RunCount.Load(); rc > 0 {
		snap.AvgRunNs = m.TotalRunNs.Load() / rc
	}

	start := m.StartTime.Load()
	if stop := m.StopTime.Load(); stop > 0 {
		snap.UptimeNs = uint64(stop - start)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - start)
	}

	if snap.TasksCompleted > 0 {
		snap.ErrorRate = float64(snap.TasksFailed) / float64(snap.TasksCompleted) * 100.0
	}
	for i := 0; i < numLatencyBuckets; i++ {
		snap.QueueWaitHistogram[i] = m.QueueWaitBuckets[i].Load()
	}

	return snap
}

// Reset zeroes all counters; useful for tests that reuse a Metrics across
// scenarios.
func (m *Metrics) Reset() {
	m.TasksSubmitted.Store(0)
	m.TasksDispatched.Store(0)
	m.TasksCompleted.Store(0)
	m.TasksFailed.Store(0)
	m.StatusQueries.Store(0)
	m.QueueDepthTotal.Store(0)
	m.QueueDepthCount.Store(0)
	m.MaxQueueDepth.Store(0)
	m.TotalQueueWaitNs.Store(0)
	m.QueueWaitCount.Store(0)
	m.TotalRunNs.Store(0)
	m.RunCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.QueueWaitBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// NoOpObserver discards every observation; server.New and
// queue.NewScheduler fall back to it when no Observer is given, so
// metrics collection is opt-in.
type NoOpObserver struct{}

func (NoOpObserver) ObserveSubmit()                    {}
func (NoOpObserver) ObserveDispatch(uint64)             {}
func (NoOpObserver) ObserveComplete(uint64, bool)       {}
func (NoOpObserver) ObserveStatusQuery()                {}
func (NoOpObserver) ObserveQueueDepth(uint32)           {}

var (
	_ interfaces.Observer = (*Metrics)(nil)
	_ interfaces.Observer = NoOpObserver{}
)
