package taskd

import (
	"testing"
	"time"
)

func TestMetricsInitialState(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot()
	if snap.TasksSubmitted != 0 {
		t.Errorf("expected 0 initial submits, got %d", snap.TasksSubmitted)
	}
}

func TestMetricsLifecycle(t *testing.T) {
	m := NewMetrics()

	m.ObserveSubmit()
	m.ObserveSubmit()
	m.ObserveDispatch(1_000_000) // 1ms queue wait
	m.ObserveComplete(5_000_000, false)
	m.ObserveComplete(2_000_000, true)

	snap := m.Snapshot()
	if snap.TasksSubmitted != 2 {
		t.Errorf("expected 2 submits, got %d", snap.TasksSubmitted)
	}
	if snap.TasksDispatched != 1 {
		t.Errorf("expected 1 dispatch, got %d", snap.TasksDispatched)
	}
	if snap.TasksCompleted != 2 {
		t.Errorf("expected 2 completions, got %d", snap.TasksCompleted)
	}
	if snap.TasksFailed != 1 {
		t.Errorf("expected 1 failure, got %d", snap.TasksFailed)
	}

	expectedErrorRate := 50.0
	if snap.ErrorRate < expectedErrorRate-0.1 || snap.ErrorRate > expectedErrorRate+0.1 {
		t.Errorf("expected error rate ~%.1f%%, got %.1f%%", expectedErrorRate, snap.ErrorRate)
	}

	expectedAvgRun := uint64(3_500_000)
	if snap.AvgRunNs != expectedAvgRun {
		t.Errorf("expected avg run %d ns, got %d ns", expectedAvgRun, snap.AvgRunNs)
	}
}

func TestMetricsQueueDepth(t *testing.T) {
	m := NewMetrics()

	m.ObserveQueueDepth(10)
	m.ObserveQueueDepth(20)
	m.ObserveQueueDepth(15)

	snap := m.Snapshot()
	if snap.MaxQueueDepth != 20 {
		t.Errorf("expected max queue depth 20, got %d", snap.MaxQueueDepth)
	}

	expectedAvg := float64(10+20+15) / 3.0
	if snap.AvgQueueDepth < expectedAvg-0.1 || snap.AvgQueueDepth > expectedAvg+0.1 {
		t.Errorf("expected avg queue depth %.1f, got %.1f", expectedAvg, snap.AvgQueueDepth)
	}
}

func TestMetricsUptime(t *testing.T) {
	m := NewMetrics()

	time.Sleep(10 * time.Millisecond)
	snap := m.Snapshot()
	if snap.UptimeNs < 10*1_000_000 {
		t.Errorf("expected uptime >= 10ms, got %d ns", snap.UptimeNs)
	}

	m.Stop()
	time.Sleep(5 * time.Millisecond)

	snap2 := m.Snapshot()
	if snap2.UptimeNs > snap.UptimeNs+2*1_000_000 {
		t.Errorf("uptime increased too much after stop: %d -> %d", snap.UptimeNs, snap2.UptimeNs)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.ObserveSubmit()
	m.ObserveDispatch(1_000_000)
	m.ObserveQueueDepth(10)

	snap := m.Snapshot()
	if snap.TasksSubmitted == 0 {
		t.Error("expected some activity before reset")
	}

	m.Reset()

	snap = m.Snapshot()
	if snap.TasksSubmitted != 0 {
		t.Errorf("expected 0 submits after reset, got %d", snap.TasksSubmitted)
	}
	if snap.MaxQueueDepth != 0 {
		t.Errorf("expected 0 max queue depth after reset, got %d", snap.MaxQueueDepth)
	}
}

func TestNoOpObserverDoesNotPanic(t *testing.T) {
	observer := NoOpObserver{}
	observer.ObserveSubmit()
	observer.ObserveDispatch(1000)
	observer.ObserveComplete(1000, true)
	observer.ObserveStatusQuery()
	observer.ObserveQueueDepth(10)
}

func TestMetricsHistogram(t *testing.T) {
	m := NewMetrics()

	for i := 0; i < 50; i++ {
		m.ObserveDispatch(500_000) // 500us
	}
	for i := 0; i < 49; i++ {
		m.ObserveDispatch(5_000_000) // 5ms
	}
	m.ObserveDispatch(50_000_000) // 50ms

	snap := m.Snapshot()
	if snap.AvgQueueWaitNs == 0 {
		t.Error("expected non-zero average queue wait")
	}

	var total uint64
	for _, v := range snap.QueueWaitHistogram {
		total += v
	}
	if total == 0 {
		t.Error("expected histogram buckets to be populated")
	}
}
