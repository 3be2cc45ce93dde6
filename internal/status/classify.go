// Package status implements taskd's status subsystem: it answers a
// client's STATUS request with a stream of per-task records covering
// queued, running, and completed work, reading a consistent snapshot
// that cannot observe mutations the main loop makes afterward (spec
// §4.8).
package status

import (
	"math"

	"github.com/behrlich/taskd/internal/task"
	"github.com/behrlich/taskd/internal/wire"
)

// Classify infers a TaggedTask's status for a STATUS_RESP record: a
// stamped COMPLETED phase means DONE, a stamped DISPATCHED (but not
// COMPLETED) means EXECUTING, otherwise QUEUED (spec §4.8).
func Classify(tt *task.TaggedTask) wire.TaskStatus {
	if !tt.TimestampAt(task.PhaseCompleted).IsZero() {
		return wire.StatusDone
	}
	if !tt.TimestampAt(task.PhaseDispatched).IsZero() {
		return wire.StatusExecuting
	}
	return wire.StatusQueued
}

// Timings computes the four timing breakdowns a STATUS_RESP carries,
// in microseconds: client-to-server FIFO delay (ARRIVED-SENT), queue
// wait (DISPATCHED-ARRIVED), execution (ENDED-DISPATCHED), and the
// server-to-server completion-report delay (COMPLETED-ENDED). A pair
// with either timestamp absent yields NaN (spec §4.8), which callers
// format as "|-?-|".
func Timings(tt *task.TaggedTask) (c2sFifoUs, waitingUs, executingUs, s2sFifoUs float64) {
	c2sFifoUs = deltaUs(tt.TimestampAt(task.PhaseSent), tt.TimestampAt(task.PhaseArrived))
	waitingUs = deltaUs(tt.TimestampAt(task.PhaseArrived), tt.TimestampAt(task.PhaseDispatched))
	executingUs = deltaUs(tt.TimestampAt(task.PhaseDispatched), tt.TimestampAt(task.PhaseEnded))
	s2sFifoUs = deltaUs(tt.TimestampAt(task.PhaseEnded), tt.TimestampAt(task.PhaseCompleted))
	return
}

func deltaUs(from, to wire.Timestamp) float64 {
	if from.IsZero() || to.IsZero() {
		return math.NaN()
	}
	deltaSec := to.Sec - from.Sec
	deltaNsec := to.Nsec - from.Nsec
	totalNs := deltaSec*1_000_000_000 + deltaNsec
	return float64(totalNs) / 1000.0
}
