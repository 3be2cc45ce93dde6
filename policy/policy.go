// Package policy provides the two scheduling comparators taskd
// supports: first-come-first-served and shortest-job-first (spec
// §4.4). A policy is nothing more than the LessFunc handed to a
// queue.Scheduler; the scheduler itself is policy-agnostic.
package policy

import (
	"github.com/behrlich/taskd"
	"github.com/behrlich/taskd/internal/queue"
	"github.com/behrlich/taskd/internal/task"
)

// Name identifies a scheduling policy by its CLI spelling (spec §6).
type Name string

const (
	FCFS Name = "fcfs"
	SJF  Name = "sjf"
)

// Parse validates and normalizes a policy name from the server CLI.
func Parse(s string) (Name, error) {
	switch Name(s) {
	case FCFS, SJF:
		return Name(s), nil
	default:
		return "", taskd.NewError("policy.Parse", taskd.KindInvalidArgument, "unknown policy: "+s)
	}
}

// LessFunc returns the comparator backing this policy.
func (n Name) LessFunc() queue.LessFunc {
	switch n {
	case SJF:
		return sjfLess
	default:
		return fcfsLess
	}
}

// fcfsLess orders by ARRIVED timestamp ascending.
func fcfsLess(a, b *task.TaggedTask) bool {
	at := a.TimestampAt(task.PhaseArrived)
	bt := b.TimestampAt(task.PhaseArrived)
	if at.Sec != bt.Sec {
		return at.Sec < bt.Sec
	}
	return at.Nsec < bt.Nsec
}

// sjfLess orders by client-reported expected duration ascending,
// interpreted as a signed difference (spec §4.4).
func sjfLess(a, b *task.TaggedTask) bool {
	return int64(a.ExpectedMS)-int64(b.ExpectedMS) < 0
}
